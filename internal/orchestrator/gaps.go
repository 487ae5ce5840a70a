package orchestrator

import "regexp"

// Gap flags a missing or degraded input the reviewing staff member should
// fix before trusting the assessment.
type Gap struct {
	ID       string `json:"id"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// gapSet collects gaps with first-writer-wins deduplication.
type gapSet struct {
	gaps []Gap
	seen map[string]bool
}

func newGapSet() *gapSet {
	return &gapSet{seen: make(map[string]bool)}
}

func (g *gapSet) add(id, severity, message string) {
	if g.seen[id] {
		return
	}
	g.seen[id] = true
	g.gaps = append(g.gaps, Gap{ID: id, Severity: severity, Message: message})
}

func (g *gapSet) has(id string) bool {
	return g.seen[id]
}

func (g *gapSet) ids() []string {
	ids := make([]string, 0, len(g.gaps))
	for _, gap := range g.gaps {
		ids = append(ids, gap.ID)
	}
	return ids
}

func (g *gapSet) messages() []string {
	msgs := make([]string, 0, len(g.gaps))
	for _, gap := range g.gaps {
		msgs = append(msgs, gap.ID+": "+gap.Message)
	}
	return msgs
}

var (
	spo2Pattern = regexp.MustCompile(`(?i)\bspo2\b|o2\s*sat`)
	tempPattern = regexp.MustCompile(`(?i)\btemp\b|temperature|°c`)
	rrPattern   = regexp.MustCompile(`(?i)\brr\b|respiratory rate`)
	hrPattern   = regexp.MustCompile(`(?i)\bhr\b|heart rate|pulse`)

	historyKeyPattern = regexp.MustCompile(`(?i)copd|asthma|immun|transplant|steroid|chemo|antibiotic`)
)

// collectInputGaps checks the combined narrative for missing vital signs
// and thin history before any model call runs. combined is the chief
// complaint, history, typed note, and transcript joined together.
func collectInputGaps(g *gapSet, chief, history, combined string) {
	if len([]rune(chief)) < 10 {
		g.add("chief_too_short", "medium", "Chief complaint is very short; add onset, cough/sputum, chest pain, or dyspnea details.")
	}
	if !historyKeyPattern.MatchString(history) {
		g.add("history_missing_key", "low", "History lacks prior lung disease, immunosuppression, or recent antibiotics.")
	}

	if !spo2Pattern.MatchString(combined) {
		g.add("missing_spo2", "high", "No oxygen saturation on record; measure SpO2.")
	}
	if !tempPattern.MatchString(combined) {
		g.add("missing_temp", "high", "No temperature on record; measure it.")
	}
	if !rrPattern.MatchString(combined) {
		g.add("missing_rr", "medium", "No respiratory rate on record.")
	}
	if !hrPattern.MatchString(combined) {
		g.add("missing_hr", "medium", "No heart rate on record.")
	}
}

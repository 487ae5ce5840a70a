package orchestrator

import "strings"

// Parsing is deliberately tolerant: models drift on whitespace and label
// casing, so we match section headers case-insensitively and accept any
// bullet style.

type draftOutput struct {
	Impression string
	Actions    []string
}

func parseDraft(text string) draftOutput {
	var out draftOutput
	section := ""
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		upper := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(upper, "IMPRESSION:"):
			out.Impression = strings.TrimSpace(line[len("IMPRESSION:"):])
			section = "impression"
		case strings.HasPrefix(upper, "ACTIONS"):
			section = "actions"
		case isBullet(line):
			if section == "actions" {
				out.Actions = append(out.Actions, trimBullet(line))
			}
		case section == "impression" && out.Impression != "":
			out.Impression += " " + line
		}
	}
	return out
}

type auditOutput struct {
	Verdict string
	Reasons []string
}

func parseAudit(text string) auditOutput {
	var out auditOutput
	inReasons := false
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		upper := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(upper, "VERDICT:"):
			out.Verdict = strings.ToLower(strings.TrimSpace(line[len("VERDICT:"):]))
			inReasons = false
		case strings.HasPrefix(upper, "REASONS"):
			inReasons = true
		case isBullet(line) && inReasons:
			out.Reasons = append(out.Reasons, trimBullet(line))
		}
	}
	return out
}

func parseDifferential(text string) []string {
	var out []string
	inList := false
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(strings.ToUpper(line), "DIFFERENTIAL") {
			inList = true
			continue
		}
		if isBullet(line) && inList {
			out = append(out, trimBullet(line))
		}
	}
	return out
}

func isBullet(line string) bool {
	return strings.HasPrefix(line, "-") || strings.HasPrefix(line, "*") || strings.HasPrefix(line, "•")
}

func trimBullet(line string) string {
	return strings.TrimSpace(strings.TrimLeft(line, "-*• \t"))
}

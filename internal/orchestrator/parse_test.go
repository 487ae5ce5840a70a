package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDraft(t *testing.T) {
	out := parseDraft(`IMPRESSION: Likely community-acquired pneumonia
given fever and productive cough.
ACTIONS:
- Monitor vitals every 4 hours
* Encourage oral fluids
• Escalate if SpO2 drops below 92`)

	assert.Equal(t, "Likely community-acquired pneumonia given fever and productive cough.", out.Impression)
	assert.Equal(t, []string{
		"Monitor vitals every 4 hours",
		"Encourage oral fluids",
		"Escalate if SpO2 drops below 92",
	}, out.Actions)
}

func TestParseDraftCaseInsensitiveHeaders(t *testing.T) {
	out := parseDraft("impression: stable overnight\nactions:\n- continue current plan")
	assert.Equal(t, "stable overnight", out.Impression)
	assert.Equal(t, []string{"continue current plan"}, out.Actions)
}

func TestParseDraftNoImpression(t *testing.T) {
	out := parseDraft("The model rambled without any structure at all.")
	assert.Empty(t, out.Impression)
	assert.Empty(t, out.Actions)
}

func TestParseAudit(t *testing.T) {
	out := parseAudit("VERDICT: Pass\nREASONS:\n- Consistent with vitals")
	assert.Equal(t, "pass", out.Verdict)
	assert.Equal(t, []string{"Consistent with vitals"}, out.Reasons)

	out = parseAudit("verdict: flagged\nreasons:\n- Impression contradicts the image finding\n- No supporting evidence cited")
	assert.Equal(t, "flagged", out.Verdict)
	assert.Len(t, out.Reasons, 2)
}

func TestParseDifferential(t *testing.T) {
	out := parseDifferential("DIFFERENTIAL:\n- Pneumonia\n- Bronchitis\n- Heart failure")
	assert.Equal(t, []string{"Pneumonia", "Bronchitis", "Heart failure"}, out)

	assert.Empty(t, parseDifferential("- orphan bullet before any header"))
}

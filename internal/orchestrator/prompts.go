package orchestrator

import (
	"fmt"
	"strings"

	"github.com/careward/wardflow/internal/retrieval"
)

// Prompts use a fixed line-oriented answer format so parsing stays
// independent of any particular model's JSON reliability.

func buildDraftPrompt(in *Input, fusion, evidenceBlock string) string {
	var b strings.Builder
	b.WriteString("TASK: DRAFT ASSESSMENT\n")
	b.WriteString("You are assisting ward staff with a respiratory patient. ")
	b.WriteString("Write a concise clinical impression and concrete next actions.\n\n")

	fmt.Fprintf(&b, "PATIENT: age=%d sex=%s\n", in.Age, in.Sex)
	fmt.Fprintf(&b, "CHIEF COMPLAINT: %s\n", in.Chief)
	if in.History != "" {
		fmt.Fprintf(&b, "HISTORY: %s\n", in.History)
	}
	if in.Text != "" {
		fmt.Fprintf(&b, "NOTE: %s\n", in.Text)
	}
	if fusion != "" {
		b.WriteString("\n" + fusion + "\n")
	}
	if evidenceBlock != "" {
		b.WriteString("\nEVIDENCE:\n" + evidenceBlock + "\n")
	}

	b.WriteString("\nAnswer in exactly this format:\n")
	b.WriteString("IMPRESSION: <one or two sentences>\n")
	b.WriteString("ACTIONS:\n- <action>\n- <action>\n")
	return b.String()
}

func buildAuditPrompt(in *Input, impression string, actions []string) string {
	var b strings.Builder
	b.WriteString("TASK: AUDIT\n")
	b.WriteString("Review the draft below for internal consistency and safety. ")
	b.WriteString("Flag it if the impression contradicts the inputs or an action is unsafe.\n\n")
	fmt.Fprintf(&b, "CHIEF COMPLAINT: %s\n", in.Chief)
	fmt.Fprintf(&b, "DRAFT IMPRESSION: %s\n", impression)
	b.WriteString("DRAFT ACTIONS:\n")
	for _, a := range actions {
		b.WriteString("- " + a + "\n")
	}
	b.WriteString("\nAnswer in exactly this format:\n")
	b.WriteString("VERDICT: pass|flagged\n")
	b.WriteString("REASONS:\n- <reason>\n")
	return b.String()
}

func buildReversePrompt(in *Input, impression string) string {
	var b strings.Builder
	b.WriteString("TASK: DIFFERENTIAL\n")
	b.WriteString("Given the working impression, list alternative diagnoses that would ")
	b.WriteString("also explain the presentation, most likely first.\n\n")
	fmt.Fprintf(&b, "PATIENT: age=%d sex=%s\n", in.Age, in.Sex)
	fmt.Fprintf(&b, "CHIEF COMPLAINT: %s\n", in.Chief)
	fmt.Fprintf(&b, "WORKING IMPRESSION: %s\n", impression)
	b.WriteString("\nAnswer in exactly this format:\n")
	b.WriteString("DIFFERENTIAL:\n- <diagnosis>\n- <diagnosis>\n")
	return b.String()
}

// formatEvidence renders retrieval results as prompt lines, newest
// formatting mirrored by the citation list stored on the assessment.
func formatEvidence(results []retrieval.Result) string {
	var lines []string
	for _, r := range results {
		text := strings.Join(strings.Fields(r.Excerpt), " ")
		source := r.Title
		if source == "" {
			source = r.DocID
		}
		lines = append(lines, fmt.Sprintf("- (%s) %s", source, text))
	}
	return strings.Join(lines, "\n")
}

// buildFusionSummary condenses per-modality state into a compact block the
// draft prompt can reason over.
func buildFusionSummary(in *Input, transcript string, aq audioQuality, iq imageQuality, visionPrimary string, evidenceUsed bool, basis string) string {
	var lines []string
	lines = append(lines, "- route_tag: "+routeTag(in.AudioRef != "", in.ImageRef != ""))
	lines = append(lines, "- primary_basis_hint: "+basis)
	lines = append(lines, fmt.Sprintf("- evidence_used: %t", evidenceUsed))

	if in.AudioRef != "" {
		lines = append(lines, fmt.Sprintf("- audio_transcript_len: %d", len(strings.TrimSpace(transcript))))
		lines = append(lines, fmt.Sprintf("- audio_quality_score: %.3f", aq.Score))
		if len(aq.Issues) > 0 {
			lines = append(lines, "- audio_issues: "+strings.Join(aq.Issues, ", "))
		}
	}
	if in.ImageRef != "" {
		if visionPrimary != "" {
			lines = append(lines, "- vision_primary: "+visionPrimary)
		}
		lines = append(lines, fmt.Sprintf("- image_quality_score: %.3f", iq.Score))
		if len(iq.Issues) > 0 {
			lines = append(lines, "- image_issues: "+strings.Join(iq.Issues, ", "))
		}
	}
	return "FUSED INPUT SUMMARY:\n" + strings.Join(lines, "\n")
}

package adapters

import (
	"context"
	"fmt"
	"strings"
)

// Static adapters produce deterministic output without any model backend.
// They back local development and the demo seed, and keep the pipeline
// exercisable in environments with no inference sidecar.

type StaticSpeechToText struct{}

func (StaticSpeechToText) Transcribe(_ context.Context, audioRef string) (*TranscribeResult, error) {
	if audioRef == "" {
		return nil, ErrAdapterUnavailable
	}
	return &TranscribeResult{
		Transcript: fmt.Sprintf("Patient reports symptoms recorded in audio note %s.", audioRef),
		Model:      "static-asr",
	}, nil
}

type StaticVision struct{}

func (StaticVision) Analyze(_ context.Context, imageRef string) (*VisionResult, error) {
	if imageRef == "" {
		return nil, ErrAdapterUnavailable
	}
	return &VisionResult{
		PrimaryFinding:   "No acute findings",
		Confidence:       0.5,
		TopCandidates:    []string{"No acute findings", "Possible infiltrate"},
		Interpretable:    true,
		EvidenceStrength: StrengthMedium,
		Model:            "static-vision",
	}, nil
}

// StaticGenerator answers draft, audit, and differential prompts with
// fixed templates keyed off the prompt's task header.
type StaticGenerator struct{}

func (StaticGenerator) Generate(_ context.Context, req GenerateRequest) (*GenerateResult, error) {
	prompt := strings.ToLower(req.Prompt)
	var text string
	switch {
	case strings.Contains(prompt, "task: audit"):
		text = "VERDICT: pass\nREASONS:\n- Consistent with reported symptoms and evidence."
	case strings.Contains(prompt, "task: differential"):
		text = "DIFFERENTIAL:\n- Community-acquired pneumonia\n- Viral bronchitis\n- Heart failure exacerbation"
	default:
		text = "IMPRESSION: Findings consistent with a lower respiratory tract infection; clinical correlation advised.\n" +
			"ACTIONS:\n- Monitor vital signs every 4 hours\n- Ensure adequate hydration\n- Escalate to doctor if dyspnea worsens"
	}
	return &GenerateResult{Text: text, Model: "static-generator"}, nil
}

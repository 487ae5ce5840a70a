package orchestrator

import (
	"regexp"
	"strings"

	"github.com/careward/wardflow/internal/adapters"
)

// qualityThreshold is the score below which a modality is considered too
// degraded to act as the primary basis of an assessment.
const qualityThreshold = 0.35

type audioQuality struct {
	Score  float64
	Issues []string
}

var wordPattern = regexp.MustCompile(`[A-Za-z']+`)

// assessAudioQuality scores a transcript in [0, 1] from simple signal
// heuristics: decoder noise tokens, very short speech, and heavy word
// repetition each subtract from a perfect score.
func assessAudioQuality(transcript string) audioQuality {
	t := strings.TrimSpace(transcript)
	if t == "" {
		return audioQuality{Score: 0, Issues: []string{"empty_transcript"}}
	}

	var issues []string

	epsCount := strings.Count(t, "<epsilon>") + strings.Count(strings.ToLower(t), "epsilon")
	tokenCount := len(strings.Fields(t))
	if tokenCount < 1 {
		tokenCount = 1
	}
	if float64(epsCount)/float64(tokenCount) > 0.2 {
		issues = append(issues, "epsilon_noise_high")
	}

	words := wordPattern.FindAllString(strings.ToLower(t), -1)
	if len(words) >= 8 {
		uniq := make(map[string]struct{}, len(words))
		for _, w := range words {
			uniq[w] = struct{}{}
		}
		if float64(len(uniq))/float64(len(words)) < 0.45 {
			issues = append(issues, "repetition_high")
		}
	} else {
		issues = append(issues, "very_short_transcript")
	}

	score := 1.0
	for _, issue := range issues {
		switch issue {
		case "epsilon_noise_high":
			score -= 0.45
		case "very_short_transcript", "repetition_high":
			score -= 0.35
		}
	}
	return audioQuality{Score: clamp01(score), Issues: issues}
}

type imageQuality struct {
	Score  float64
	Issues []string
}

// assessImageQuality scores vision output in [0, 1]. Uninterpretable
// images floor at 0.2; interpretable ones scale with model confidence and
// lose a margin for weak evidence strength.
func assessImageQuality(findings *adapters.VisionResult) imageQuality {
	if findings == nil {
		return imageQuality{Score: 0, Issues: []string{"no_image_findings"}}
	}

	issues := append([]string(nil), findings.Issues...)
	score := 0.2
	if findings.Interpretable {
		score = 0.4 + 0.6*findings.Confidence
	} else {
		issues = append(issues, "image_not_interpretable")
	}

	switch findings.EvidenceStrength {
	case adapters.StrengthLow:
		score -= 0.15
	case adapters.StrengthMedium:
		score -= 0.05
	}
	return imageQuality{Score: clamp01(score), Issues: issues}
}

// pickPrimaryBasis decides which modality the draft should lean on.
func pickPrimaryBasis(hasAudio, hasImage bool, audioQ, imageQ float64, evidenceUsed bool) string {
	if hasAudio && hasImage {
		if audioQ >= 0.6 && imageQ >= 0.6 {
			return "mixed"
		}
		if audioQ >= imageQ {
			return "audio"
		}
		return "image"
	}
	if hasAudio {
		if audioQ >= qualityThreshold {
			return "audio"
		}
		return fallbackBasis(evidenceUsed)
	}
	if hasImage {
		if imageQ >= qualityThreshold {
			return "image"
		}
		return fallbackBasis(evidenceUsed)
	}
	return fallbackBasis(evidenceUsed)
}

func fallbackBasis(evidenceUsed bool) string {
	if evidenceUsed {
		return "evidence"
	}
	return "clinical"
}

func routeTag(hasAudio, hasImage bool) string {
	switch {
	case hasAudio && hasImage:
		return "audio_image"
	case hasAudio:
		return "audio_only"
	case hasImage:
		return "image_only"
	default:
		return "none"
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

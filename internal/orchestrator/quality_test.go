package orchestrator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/careward/wardflow/internal/adapters"
)

func TestAssessAudioQuality(t *testing.T) {
	t.Run("empty transcript scores zero", func(t *testing.T) {
		q := assessAudioQuality("")
		assert.Zero(t, q.Score)
		assert.Contains(t, q.Issues, "empty_transcript")
	})

	t.Run("clean speech keeps full score", func(t *testing.T) {
		q := assessAudioQuality("Patient reports worsening cough since last night with mild fever and reduced appetite today")
		assert.Equal(t, 1.0, q.Score)
		assert.Empty(t, q.Issues)
	})

	t.Run("epsilon noise penalized", func(t *testing.T) {
		q := assessAudioQuality("<epsilon> cough <epsilon> fever <epsilon> night <epsilon> chest <epsilon> pain <epsilon> breath <epsilon> tired <epsilon> weak")
		assert.Contains(t, q.Issues, "epsilon_noise_high")
		assert.InDelta(t, 0.55, q.Score, 1e-9)
	})

	t.Run("very short speech penalized", func(t *testing.T) {
		q := assessAudioQuality("cough fever")
		assert.Contains(t, q.Issues, "very_short_transcript")
		assert.InDelta(t, 0.65, q.Score, 1e-9)
	})

	t.Run("heavy repetition penalized", func(t *testing.T) {
		q := assessAudioQuality(strings.Repeat("cough cough fever ", 5))
		assert.Contains(t, q.Issues, "repetition_high")
	})
}

func TestAssessImageQuality(t *testing.T) {
	t.Run("missing findings score zero", func(t *testing.T) {
		q := assessImageQuality(nil)
		assert.Zero(t, q.Score)
		assert.Contains(t, q.Issues, "no_image_findings")
	})

	t.Run("uninterpretable floors low", func(t *testing.T) {
		q := assessImageQuality(&adapters.VisionResult{Interpretable: false, Confidence: 0.9})
		assert.InDelta(t, 0.2, q.Score, 1e-9)
		assert.Contains(t, q.Issues, "image_not_interpretable")
	})

	t.Run("interpretable scales with confidence", func(t *testing.T) {
		q := assessImageQuality(&adapters.VisionResult{
			Interpretable:    true,
			Confidence:       0.8,
			EvidenceStrength: adapters.StrengthHigh,
		})
		assert.InDelta(t, 0.4+0.6*0.8, q.Score, 1e-9)
	})

	t.Run("weak evidence subtracts margin", func(t *testing.T) {
		low := assessImageQuality(&adapters.VisionResult{
			Interpretable: true, Confidence: 0.8, EvidenceStrength: adapters.StrengthLow,
		})
		medium := assessImageQuality(&adapters.VisionResult{
			Interpretable: true, Confidence: 0.8, EvidenceStrength: adapters.StrengthMedium,
		})
		assert.InDelta(t, 0.88-0.15, low.Score, 1e-9)
		assert.InDelta(t, 0.88-0.05, medium.Score, 1e-9)
	})
}

func TestPickPrimaryBasis(t *testing.T) {
	cases := []struct {
		name               string
		hasAudio, hasImage bool
		audioQ, imageQ     float64
		evidence           bool
		want               string
	}{
		{"both strong", true, true, 0.8, 0.7, true, "mixed"},
		{"both present audio wins tie", true, true, 0.5, 0.5, true, "audio"},
		{"both present image stronger", true, true, 0.3, 0.6, true, "image"},
		{"audio only above threshold", true, false, 0.5, 0, true, "audio"},
		{"audio only degraded with evidence", true, false, 0.2, 0, true, "evidence"},
		{"audio only degraded no evidence", true, false, 0.2, 0, false, "clinical"},
		{"image only above threshold", false, true, 0, 0.5, false, "image"},
		{"image only degraded", false, true, 0, 0.1, true, "evidence"},
		{"neither", false, false, 0, 0, false, "clinical"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := pickPrimaryBasis(tc.hasAudio, tc.hasImage, tc.audioQ, tc.imageQ, tc.evidence)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRouteTag(t *testing.T) {
	assert.Equal(t, "audio_image", routeTag(true, true))
	assert.Equal(t, "audio_only", routeTag(true, false))
	assert.Equal(t, "image_only", routeTag(false, true))
	assert.Equal(t, "none", routeTag(false, false))
}

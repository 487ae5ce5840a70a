// Package adapters defines the model-backend boundary of the assessment
// pipeline. Implementations wrap external inference services; the
// orchestrator only sees these interfaces and the shared error taxonomy.
package adapters

import (
	"context"
	"time"
)

// TranscribeResult is the speech-to-text output for one audio payload.
type TranscribeResult struct {
	Transcript string
	// Model identifies the backend that produced the transcript.
	Model string
}

// EvidenceStrength grades how firmly an image supports its top finding.
type EvidenceStrength string

const (
	StrengthLow    EvidenceStrength = "low"
	StrengthMedium EvidenceStrength = "medium"
	StrengthHigh   EvidenceStrength = "high"
)

// VisionResult is the structured read of one medical image.
type VisionResult struct {
	PrimaryFinding   string
	Confidence       float64
	TopCandidates    []string
	Interpretable    bool
	EvidenceStrength EvidenceStrength
	Issues           []string
	Model            string
}

// GenerateRequest is one text-generation call.
type GenerateRequest struct {
	Prompt    string
	MaxTokens int
}

// GenerateResult is the raw model output before any parsing.
type GenerateResult struct {
	Text  string
	Model string
}

// SpeechToText transcribes an audio payload referenced by storage key.
type SpeechToText interface {
	Transcribe(ctx context.Context, audioRef string) (*TranscribeResult, error)
}

// Vision analyzes an image payload referenced by storage key.
type Vision interface {
	Analyze(ctx context.Context, imageRef string) (*VisionResult, error)
}

// Generator produces free text from a prompt.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error)
}

// EstimateTokens approximates the token count of a prompt. Four characters
// per token is the conventional rough cut for latin-script clinical text.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}

type timeoutGenerator struct {
	inner   Generator
	timeout time.Duration
}

// WithGeneratorTimeout bounds every Generate call with its own deadline.
func WithGeneratorTimeout(g Generator, timeout time.Duration) Generator {
	if timeout <= 0 {
		return g
	}
	return &timeoutGenerator{inner: g, timeout: timeout}
}

func (t *timeoutGenerator) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.Generate(ctx, req)
}

type timeoutSpeechToText struct {
	inner   SpeechToText
	timeout time.Duration
}

func WithTranscribeTimeout(s SpeechToText, timeout time.Duration) SpeechToText {
	if timeout <= 0 {
		return s
	}
	return &timeoutSpeechToText{inner: s, timeout: timeout}
}

func (t *timeoutSpeechToText) Transcribe(ctx context.Context, audioRef string) (*TranscribeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.Transcribe(ctx, audioRef)
}

type timeoutVision struct {
	inner   Vision
	timeout time.Duration
}

func WithVisionTimeout(v Vision, timeout time.Duration) Vision {
	if timeout <= 0 {
		return v
	}
	return &timeoutVision{inner: v, timeout: timeout}
}

func (t *timeoutVision) Analyze(ctx context.Context, imageRef string) (*VisionResult, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.Analyze(ctx, imageRef)
}

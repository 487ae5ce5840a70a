package orchestrator

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/careward/wardflow/internal/adapters"
	"github.com/careward/wardflow/internal/config"
	"github.com/careward/wardflow/internal/domain"
	"github.com/careward/wardflow/internal/domain/assessment"
	"github.com/careward/wardflow/internal/retrieval"
	"github.com/careward/wardflow/pkg/metrics"
)

// Prometheus collectors register globally, so the package shares one.
var (
	testCollector     *metrics.Collector
	testCollectorOnce sync.Once
)

func collector() *metrics.Collector {
	testCollectorOnce.Do(func() {
		testCollector = metrics.NewCollector("orchestratortest")
	})
	return testCollector
}

func testConfig() config.OrchestratorConfig {
	return config.OrchestratorConfig{
		MaxInputTokens:    3072,
		MaxOutputTokens:   384,
		RetryOutputTokens: 192,
		AdapterTimeout:    5 * time.Second,
		TranscribeTimeout: 5 * time.Second,
		VisionTimeout:     5 * time.Second,
	}
}

func testRetrievalConfig() config.RetrievalConfig {
	return config.RetrievalConfig{TopK: 4, EvidenceCharBudget: 2200, ChunkSize: 200, ChunkOverlap: 40}
}

func loadedIndex(t *testing.T) *retrieval.Index {
	t.Helper()
	ix := retrieval.NewIndex(retrieval.Options{ChunkSize: 200, ChunkOverlap: 40})
	require.NoError(t, ix.Upsert(context.Background(), retrieval.Document{
		ID:       "clinical-guideline-resp",
		Title:    "Respiratory Pathway",
		Category: "clinical_guideline",
		Text: "Fever with productive cough suggests a lower respiratory infection. " +
			"Monitor oxygen saturation and respiratory rate. Escalate when saturation " +
			"falls below 90 percent on room air.",
	}))
	return ix
}

func testInput() *Input {
	return &Input{
		PatientID: uuid.New(),
		WardID:    "ward-a",
		Age:       71,
		Sex:       "female",
		Chief:     "Productive cough and fever",
		History:   "Hypertension, type 2 diabetes",
		Text:      "Coughing more since last night, feels feverish",
		ActorID:   uuid.New(),
		ActorRole: domain.RoleNurse,
	}
}

// scriptedGenerator answers each call in order, falling back to the
// static templates once the script runs out.
type scriptedGenerator struct {
	mu     sync.Mutex
	script []func(req adapters.GenerateRequest) (*adapters.GenerateResult, error)
	calls  int
}

func (g *scriptedGenerator) Generate(ctx context.Context, req adapters.GenerateRequest) (*adapters.GenerateResult, error) {
	g.mu.Lock()
	i := g.calls
	g.calls++
	g.mu.Unlock()
	if i < len(g.script) {
		return g.script[i](req)
	}
	return adapters.StaticGenerator{}.Generate(ctx, req)
}

func newOrchestrator(t *testing.T, gen adapters.Generator, ix *retrieval.Index) *Orchestrator {
	t.Helper()
	return New(gen, adapters.StaticSpeechToText{}, adapters.StaticVision{}, ix,
		testConfig(), testRetrievalConfig(), zap.NewNop(), collector())
}

func TestRunHappyPath(t *testing.T) {
	o := newOrchestrator(t, adapters.StaticGenerator{}, loadedIndex(t))

	res, err := o.Run(context.Background(), testInput())
	require.NoError(t, err)

	a := res.Assessment
	assert.False(t, res.FullFailure)
	assert.False(t, res.Degraded)
	assert.Equal(t, assessment.ConfidenceFull, a.Confidence)
	assert.Equal(t, assessment.VerdictPass, a.AuditVerdict)
	assert.Equal(t, assessment.ModalityText, a.Modality)
	assert.NotEmpty(t, a.Impression)
	assert.NotEmpty(t, a.Actions)
	assert.NotEmpty(t, a.Differential)
	assert.NotEmpty(t, a.Citations)
	assert.False(t, a.NoEvidence)
	assert.NotNil(t, a.Risk)
	assert.True(t, a.IsFinalized())

	stages := make([]string, 0, len(a.StageTrace))
	for _, rec := range a.StageTrace {
		stages = append(stages, rec.Stage)
	}
	assert.Equal(t, []string{"asr", "vision", "retrieve", "draft", "audit", "differential", "finalize"}, stages)
}

func TestRunVoiceModality(t *testing.T) {
	o := newOrchestrator(t, adapters.StaticGenerator{}, loadedIndex(t))

	in := testInput()
	in.AudioRef = "audio/check-in-001.ogg"
	res, err := o.Run(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, assessment.ModalityVoice, res.Assessment.Modality)
	assert.NotEmpty(t, res.Assessment.Transcript)
}

func TestRunNoEvidenceDegrades(t *testing.T) {
	empty := retrieval.NewIndex(retrieval.Options{})
	o := newOrchestrator(t, adapters.StaticGenerator{}, empty)

	res, err := o.Run(context.Background(), testInput())
	require.NoError(t, err)

	assert.True(t, res.Degraded)
	assert.False(t, res.FullFailure)
	assert.Equal(t, assessment.ConfidenceLow, res.Assessment.Confidence)
	assert.True(t, res.Assessment.NoEvidence)
	assert.Empty(t, res.Assessment.Citations)
}

func TestRunDraftRetryAfterLengthExceeded(t *testing.T) {
	gen := &scriptedGenerator{script: []func(adapters.GenerateRequest) (*adapters.GenerateResult, error){
		func(adapters.GenerateRequest) (*adapters.GenerateResult, error) {
			return nil, adapters.ErrLengthExceeded
		},
		func(req adapters.GenerateRequest) (*adapters.GenerateResult, error) {
			// The retry drops evidence and shrinks the output budget.
			if strings.Contains(req.Prompt, "EVIDENCE:") {
				return nil, adapters.ErrLengthExceeded
			}
			if req.MaxTokens != 192 {
				return nil, adapters.ErrLengthExceeded
			}
			return &adapters.GenerateResult{Text: "IMPRESSION: Retried impression.\nACTIONS:\n- Recheck vitals"}, nil
		},
	}}

	o := newOrchestrator(t, gen, loadedIndex(t))
	res, err := o.Run(context.Background(), testInput())
	require.NoError(t, err)

	assert.False(t, res.FullFailure)
	assert.True(t, res.Degraded, "a retried draft finalizes low-confidence")
	assert.Equal(t, assessment.ConfidenceLow, res.Assessment.Confidence)
	assert.Equal(t, "Retried impression.", res.Assessment.Impression)
	assert.True(t, res.Assessment.NoEvidence, "retry drops evidence")
	assert.Empty(t, res.Assessment.Citations)

	var draftOutcome string
	for _, rec := range res.Assessment.StageTrace {
		if rec.Stage == "draft" {
			draftOutcome = rec.Outcome
		}
	}
	assert.Equal(t, "retried", draftOutcome)
}

func TestRunFullFailureStoresPlaceholder(t *testing.T) {
	gen := &scriptedGenerator{script: []func(adapters.GenerateRequest) (*adapters.GenerateResult, error){
		func(adapters.GenerateRequest) (*adapters.GenerateResult, error) {
			return nil, adapters.ErrAdapterUnavailable
		},
	}}

	o := newOrchestrator(t, gen, loadedIndex(t))
	res, err := o.Run(context.Background(), testInput())
	require.NoError(t, err, "adapter outages degrade, they do not abort")

	assert.True(t, res.FullFailure)
	assert.True(t, res.Degraded)
	assert.Equal(t, placeholderImpression, res.Assessment.Impression)
	assert.Equal(t, assessment.VerdictFlagged, res.Assessment.AuditVerdict)
	assert.Equal(t, assessment.ConfidenceLow, res.Assessment.Confidence)

	// Audit and differential are skipped once the draft is a placeholder.
	outcomes := map[string]string{}
	for _, rec := range res.Assessment.StageTrace {
		outcomes[rec.Stage] = rec.Outcome
	}
	assert.Equal(t, "failed", outcomes["draft"])
	assert.Equal(t, "skipped", outcomes["audit"])
	assert.Equal(t, "skipped", outcomes["differential"])
}

func TestRunEmptyOutputRetriesOnce(t *testing.T) {
	gen := &scriptedGenerator{script: []func(adapters.GenerateRequest) (*adapters.GenerateResult, error){
		func(adapters.GenerateRequest) (*adapters.GenerateResult, error) {
			return &adapters.GenerateResult{Text: "no parsable structure here"}, nil
		},
		func(adapters.GenerateRequest) (*adapters.GenerateResult, error) {
			return &adapters.GenerateResult{Text: "also nothing parsable"}, nil
		},
	}}

	o := newOrchestrator(t, gen, loadedIndex(t))
	res, err := o.Run(context.Background(), testInput())
	require.NoError(t, err)

	assert.True(t, res.FullFailure)
	assert.Equal(t, placeholderImpression, res.Assessment.Impression)
}

func TestRunAuditRetriesTransientFailure(t *testing.T) {
	gen := &scriptedGenerator{script: []func(adapters.GenerateRequest) (*adapters.GenerateResult, error){
		func(adapters.GenerateRequest) (*adapters.GenerateResult, error) {
			return &adapters.GenerateResult{Text: "IMPRESSION: Likely chest infection.\nACTIONS:\n- Recheck vitals"}, nil
		},
		func(adapters.GenerateRequest) (*adapters.GenerateResult, error) {
			// First audit attempt times out; the second must still run.
			return nil, context.DeadlineExceeded
		},
	}}

	o := newOrchestrator(t, gen, loadedIndex(t))
	res, err := o.Run(context.Background(), testInput())
	require.NoError(t, err)

	assert.Equal(t, assessment.VerdictPass, res.Assessment.AuditVerdict)
	assert.False(t, res.Degraded, "a recovered audit keeps full confidence")
	assert.Equal(t, 4, gen.calls, "draft, two audit attempts, differential")

	var auditOutcome string
	for _, rec := range res.Assessment.StageTrace {
		if rec.Stage == "audit" {
			auditOutcome = rec.Outcome
		}
	}
	assert.Equal(t, "retried", auditOutcome)
}

func TestRunDifferentialRetriesTransientFailure(t *testing.T) {
	gen := &scriptedGenerator{script: []func(adapters.GenerateRequest) (*adapters.GenerateResult, error){
		func(adapters.GenerateRequest) (*adapters.GenerateResult, error) {
			return &adapters.GenerateResult{Text: "IMPRESSION: Likely chest infection.\nACTIONS:\n- Recheck vitals"}, nil
		},
		func(adapters.GenerateRequest) (*adapters.GenerateResult, error) {
			return &adapters.GenerateResult{Text: "VERDICT: pass"}, nil
		},
		func(adapters.GenerateRequest) (*adapters.GenerateResult, error) {
			return nil, adapters.ErrLengthExceeded
		},
	}}

	o := newOrchestrator(t, gen, loadedIndex(t))
	res, err := o.Run(context.Background(), testInput())
	require.NoError(t, err)

	assert.NotEmpty(t, res.Assessment.Differential)

	var diffOutcome string
	for _, rec := range res.Assessment.StageTrace {
		if rec.Stage == "differential" {
			diffOutcome = rec.Outcome
		}
	}
	assert.Equal(t, "retried", diffOutcome)
}

func TestRunAuditHardOutageDoesNotRetry(t *testing.T) {
	gen := &scriptedGenerator{script: []func(adapters.GenerateRequest) (*adapters.GenerateResult, error){
		func(adapters.GenerateRequest) (*adapters.GenerateResult, error) {
			return &adapters.GenerateResult{Text: "IMPRESSION: Likely chest infection.\nACTIONS:\n- Recheck vitals"}, nil
		},
		func(adapters.GenerateRequest) (*adapters.GenerateResult, error) {
			return nil, adapters.ErrAdapterUnavailable
		},
	}}

	o := newOrchestrator(t, gen, loadedIndex(t))
	res, err := o.Run(context.Background(), testInput())
	require.NoError(t, err)

	assert.Equal(t, assessment.VerdictFlagged, res.Assessment.AuditVerdict)
	assert.Equal(t, 3, gen.calls, "an outage is not retried: draft, audit, differential")
}

func TestRunCancelledContextAborts(t *testing.T) {
	o := newOrchestrator(t, adapters.StaticGenerator{}, loadedIndex(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := o.Run(ctx, testInput())
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunAsrFailureDegradesWithoutAborting(t *testing.T) {
	o := New(adapters.StaticGenerator{}, failingSTT{}, adapters.StaticVision{}, loadedIndex(t),
		testConfig(), testRetrievalConfig(), zap.NewNop(), collector())

	in := testInput()
	in.AudioRef = "audio/broken.ogg"
	res, err := o.Run(context.Background(), in)
	require.NoError(t, err)

	assert.True(t, res.Degraded)
	assert.False(t, res.FullFailure)
	assert.Equal(t, assessment.ConfidenceLow, res.Assessment.Confidence)
	assert.Contains(t, strings.Join(res.Assessment.Gaps, " "), "transcription failed")
}

type failingSTT struct{}

func (failingSTT) Transcribe(context.Context, string) (*adapters.TranscribeResult, error) {
	return nil, adapters.ErrAdapterUnavailable
}

// Package orchestrator runs the multimodal assessment pipeline: modality
// normalization, evidence retrieval, draft generation, self-audit, and
// reverse differential, finalized into an immutable assessment record.
// The pipeline degrades instead of failing: adapter outages surface as
// gaps and a low-confidence result, never as a lost request.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/careward/wardflow/internal/adapters"
	"github.com/careward/wardflow/internal/config"
	"github.com/careward/wardflow/internal/domain"
	"github.com/careward/wardflow/internal/domain/assessment"
	"github.com/careward/wardflow/internal/domain/vitals"
	"github.com/careward/wardflow/internal/retrieval"
	"github.com/careward/wardflow/internal/risk"
	"github.com/careward/wardflow/pkg/metrics"
)

// placeholderImpression is stored when the generator could not produce a
// usable draft within the retry budget.
const placeholderImpression = "Insufficient model output; manual clinical review required."

// Input carries everything one pipeline run reads.
type Input struct {
	PatientID uuid.UUID
	RequestID *uuid.UUID
	WardID    string

	Age     int
	Sex     string
	Chief   string
	History string
	// Text is the typed note accompanying the request, if any.
	Text     string
	AudioRef string
	ImageRef string

	Vitals *vitals.Record

	ActorID   uuid.UUID
	ActorRole domain.Role
}

// Result is one completed pipeline run.
type Result struct {
	Assessment *assessment.Assessment
	// Degraded means at least one stage fell back (soft failure).
	Degraded bool
	// FullFailure means the draft itself is a placeholder; the owning
	// request should be flagged for manual review.
	FullFailure bool
}

type Orchestrator struct {
	gen    adapters.Generator
	stt    adapters.SpeechToText
	vision adapters.Vision
	index  *retrieval.Index

	cfg  config.OrchestratorConfig
	rcfg config.RetrievalConfig

	logger  *zap.Logger
	metrics *metrics.Collector
	tracer  trace.Tracer
}

func New(
	gen adapters.Generator,
	stt adapters.SpeechToText,
	vision adapters.Vision,
	index *retrieval.Index,
	cfg config.OrchestratorConfig,
	rcfg config.RetrievalConfig,
	logger *zap.Logger,
	collector *metrics.Collector,
) *Orchestrator {
	return &Orchestrator{
		gen:     adapters.WithGeneratorTimeout(gen, cfg.AdapterTimeout),
		stt:     adapters.WithTranscribeTimeout(stt, cfg.TranscribeTimeout),
		vision:  adapters.WithVisionTimeout(vision, cfg.VisionTimeout),
		index:   index,
		cfg:     cfg,
		rcfg:    rcfg,
		logger:  logger,
		metrics: collector,
		tracer:  otel.Tracer("wardflow/orchestrator"),
	}
}

// run-scoped state shared by the stage helpers.
type runState struct {
	in    *Input
	gaps  *gapSet
	trace []assessment.StageRecord

	transcript    string
	visionResult  *adapters.VisionResult
	audioQ        audioQuality
	imageQ        imageQuality
	evidence      []retrieval.Result
	noEvidence    bool
	basis         string
	fusion        string
	draft         draftOutput
	draftFallback bool
	retryUsed     bool
	verdict       assessment.Verdict
	auditReasons  []string
	differential  []string
}

// Run executes the full pipeline. It only returns an error when the
// context is cancelled between stages; every adapter failure degrades
// into the result instead.
func (o *Orchestrator) Run(ctx context.Context, in *Input) (*Result, error) {
	ctx, span := o.tracer.Start(ctx, "orchestrator.Run", trace.WithAttributes(
		attribute.String("patient_id", in.PatientID.String()),
		attribute.String("route_tag", routeTag(in.AudioRef != "", in.ImageRef != "")),
	))
	defer span.End()

	st := &runState{in: in, gaps: newGapSet()}

	stages := []struct {
		name string
		fn   func(ctx context.Context, st *runState)
	}{
		{"asr", o.stageASR},
		{"vision", o.stageVision},
		{"retrieve", o.stageRetrieve},
		{"draft", o.stageDraft},
		{"audit", o.stageAudit},
		{"differential", o.stageDifferential},
	}
	for _, stage := range stages {
		// Cancellation checkpoint between stages. A cancelled run leaves
		// no partial assessment behind.
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("pipeline aborted before %s stage: %w", stage.name, err)
		}
		stage.fn(ctx, st)
	}

	return o.finalize(st), nil
}

func (o *Orchestrator) recordStage(st *runState, name, outcome string, start time.Time, detail string) {
	elapsed := time.Since(start)
	st.trace = append(st.trace, assessment.StageRecord{
		Stage:      name,
		Outcome:    outcome,
		DurationMs: elapsed.Milliseconds(),
		Detail:     detail,
	})
	o.metrics.PipelineStageSeconds.WithLabelValues(name, outcome).Observe(elapsed.Seconds())
}

func (o *Orchestrator) stageASR(ctx context.Context, st *runState) {
	start := time.Now()
	if st.in.AudioRef == "" {
		st.audioQ = assessAudioQuality("")
		o.recordStage(st, "asr", "skipped", start, "no audio payload")
		return
	}

	res, err := o.stt.Transcribe(ctx, st.in.AudioRef)
	if err != nil {
		o.metrics.AdapterFailures.WithLabelValues("asr", errorKind(err)).Inc()
		o.logger.Warn("transcription failed, continuing without audio",
			zap.String("patient_id", st.in.PatientID.String()),
			zap.Error(err))
		st.gaps.add("asr_failed", "high", "Audio transcription failed; use text input or re-record.")
		st.audioQ = assessAudioQuality("")
		o.recordStage(st, "asr", "failed", start, err.Error())
		return
	}

	st.transcript = res.Transcript
	st.audioQ = assessAudioQuality(st.transcript)
	if st.audioQ.Score < qualityThreshold {
		st.gaps.add("audio_quality_low", "medium", "Audio quality is poor; re-record or use text input.")
	}
	o.recordStage(st, "asr", "ok", start, fmt.Sprintf("transcript_len=%d", len(st.transcript)))
}

func (o *Orchestrator) stageVision(ctx context.Context, st *runState) {
	start := time.Now()
	if st.in.ImageRef == "" {
		st.imageQ = assessImageQuality(nil)
		o.recordStage(st, "vision", "skipped", start, "no image payload")
		return
	}

	res, err := o.vision.Analyze(ctx, st.in.ImageRef)
	if err != nil {
		o.metrics.AdapterFailures.WithLabelValues("vision", errorKind(err)).Inc()
		o.logger.Warn("image analysis failed, continuing without image",
			zap.String("patient_id", st.in.PatientID.String()),
			zap.Error(err))
		st.gaps.add("vision_failed", "medium", "Image analysis failed; re-upload a clearer image.")
		st.imageQ = assessImageQuality(nil)
		o.recordStage(st, "vision", "failed", start, err.Error())
		return
	}

	st.visionResult = res
	st.imageQ = assessImageQuality(res)
	if st.imageQ.Score < qualityThreshold {
		st.gaps.add("image_quality_low", "medium", "Image quality is poor; retake avoiding blur or occlusion.")
	}
	o.recordStage(st, "vision", "ok", start, "primary="+res.PrimaryFinding)
}

func (o *Orchestrator) stageRetrieve(ctx context.Context, st *runState) {
	start := time.Now()
	query := strings.TrimSpace(strings.Join([]string{
		st.in.Chief, st.in.History, st.in.Text, st.transcript,
	}, " "))

	results, err := o.index.Query(ctx, query, retrieval.QueryParams{
		TopK:       o.rcfg.TopK,
		CharBudget: o.rcfg.EvidenceCharBudget,
	})
	o.metrics.RetrievalQuerySeconds.Observe(time.Since(start).Seconds())

	if err != nil {
		if !errors.Is(err, retrieval.ErrRetrievalUnavailable) {
			o.logger.Warn("evidence retrieval failed", zap.Error(err))
		}
		st.noEvidence = true
		st.gaps.add("evidence_unavailable", "low", "Knowledge base is not loaded or has no relevant documents.")
		o.recordStage(st, "retrieve", "failed", start, err.Error())
		return
	}
	if len(results) == 0 {
		st.noEvidence = true
		st.gaps.add("evidence_unavailable", "low", "No relevant evidence matched this presentation.")
		o.recordStage(st, "retrieve", "ok", start, "no matching evidence")
		return
	}

	st.evidence = results
	o.metrics.RetrievalChunksHit.Observe(float64(len(results)))
	o.recordStage(st, "retrieve", "ok", start, fmt.Sprintf("chunks=%d", len(results)))
}

func (o *Orchestrator) stageDraft(ctx context.Context, st *runState) {
	start := time.Now()

	in := st.in
	collectInputGaps(st.gaps, in.Chief, in.History,
		strings.ToLower(strings.Join([]string{in.Chief, in.History, in.Text, st.transcript}, " ")))

	evidenceUsed := len(st.evidence) > 0
	st.basis = pickPrimaryBasis(in.AudioRef != "", in.ImageRef != "", st.audioQ.Score, st.imageQ.Score, evidenceUsed)
	visionPrimary := ""
	if st.visionResult != nil {
		visionPrimary = st.visionResult.PrimaryFinding
	}
	st.fusion = buildFusionSummary(in, st.transcript, st.audioQ, st.imageQ, visionPrimary, evidenceUsed, st.basis)

	prompt, evidence := o.fitToBudget(in, st.fusion, st.evidence)
	st.evidence = evidence

	out, err := o.gen.Generate(ctx, adapters.GenerateRequest{Prompt: prompt, MaxTokens: o.cfg.MaxOutputTokens})
	if err == nil {
		if draft := parseDraft(out.Text); draft.Impression != "" {
			st.draft = draft
			o.recordStage(st, "draft", "ok", start, "")
			return
		}
		err = adapters.ErrEmptyOutput
	}
	o.metrics.AdapterFailures.WithLabelValues("generator", errorKind(err)).Inc()

	if !retryable(err) {
		o.failDraft(st, start, err)
		return
	}

	// One retry with evidence dropped and the narrative trimmed from the
	// tail, at a reduced output budget. Evidence goes first because the
	// patient's own words matter more than citations.
	st.retryUsed = true
	st.evidence = nil
	st.noEvidence = true
	retryIn := *in
	retryIn.History = truncateTail(retryIn.History, 400)
	retryPrompt := buildDraftPrompt(&retryIn, st.fusion, "")

	out, err = o.gen.Generate(ctx, adapters.GenerateRequest{Prompt: retryPrompt, MaxTokens: o.cfg.RetryOutputTokens})
	if err == nil {
		if draft := parseDraft(out.Text); draft.Impression != "" {
			st.draft = draft
			o.recordStage(st, "draft", "retried", start, "succeeded after truncation")
			return
		}
		err = adapters.ErrEmptyOutput
	}
	o.metrics.AdapterFailures.WithLabelValues("generator", errorKind(err)).Inc()
	o.failDraft(st, start, err)
}

func (o *Orchestrator) failDraft(st *runState, start time.Time, err error) {
	o.logger.Error("draft generation failed, storing placeholder",
		zap.String("patient_id", st.in.PatientID.String()),
		zap.Error(err))
	st.draftFallback = true
	st.draft = draftOutput{Impression: placeholderImpression}
	st.gaps.add("diagnosis_failed", "high", "Draft generation failed; add information or retry later.")
	o.recordStage(st, "draft", "failed", start, err.Error())
}

// generateWithRetry applies the retry-once rule to the follow-up
// generation calls: one immediate second attempt on a transient failure,
// then the caller's fallback.
func (o *Orchestrator) generateWithRetry(ctx context.Context, req adapters.GenerateRequest) (out *adapters.GenerateResult, retried bool, err error) {
	out, err = o.gen.Generate(ctx, req)
	if err == nil {
		return out, false, nil
	}
	o.metrics.AdapterFailures.WithLabelValues("generator", errorKind(err)).Inc()
	if !retryable(err) {
		return nil, false, err
	}

	out, err = o.gen.Generate(ctx, req)
	if err != nil {
		o.metrics.AdapterFailures.WithLabelValues("generator", errorKind(err)).Inc()
		return nil, true, err
	}
	return out, true, nil
}

func (o *Orchestrator) stageAudit(ctx context.Context, st *runState) {
	start := time.Now()
	if st.draftFallback {
		st.verdict = assessment.VerdictFlagged
		st.auditReasons = []string{"draft generation failed"}
		o.recordStage(st, "audit", "skipped", start, "no draft to audit")
		return
	}

	prompt := buildAuditPrompt(st.in, st.draft.Impression, st.draft.Actions)
	out, retried, err := o.generateWithRetry(ctx, adapters.GenerateRequest{Prompt: prompt, MaxTokens: o.cfg.RetryOutputTokens})
	if err != nil {
		st.verdict = assessment.VerdictFlagged
		st.auditReasons = []string{"self-audit unavailable"}
		st.gaps.add("audit_failed", "low", "Self-audit could not run; result lacks a safety re-check.")
		o.recordStage(st, "audit", "failed", start, err.Error())
		return
	}

	audit := parseAudit(out.Text)
	if audit.Verdict == "pass" {
		st.verdict = assessment.VerdictPass
	} else {
		st.verdict = assessment.VerdictFlagged
		if len(audit.Reasons) == 0 {
			audit.Reasons = []string{"audit did not confirm the draft"}
		}
	}
	st.auditReasons = audit.Reasons
	outcome := "ok"
	if retried {
		outcome = "retried"
	}
	o.recordStage(st, "audit", outcome, start, "verdict="+string(st.verdict))
}

func (o *Orchestrator) stageDifferential(ctx context.Context, st *runState) {
	start := time.Now()
	if st.draftFallback {
		o.recordStage(st, "differential", "skipped", start, "no draft to differentiate")
		return
	}

	prompt := buildReversePrompt(st.in, st.draft.Impression)
	out, retried, err := o.generateWithRetry(ctx, adapters.GenerateRequest{Prompt: prompt, MaxTokens: o.cfg.RetryOutputTokens})
	if err != nil {
		st.gaps.add("differential_failed", "low", "Differential diagnosis could not be generated.")
		o.recordStage(st, "differential", "failed", start, err.Error())
		return
	}

	st.differential = parseDifferential(out.Text)
	outcome := "ok"
	if retried {
		outcome = "retried"
	}
	o.recordStage(st, "differential", outcome, start, fmt.Sprintf("candidates=%d", len(st.differential)))
}

func (o *Orchestrator) finalize(st *runState) *Result {
	start := time.Now()
	now := time.Now().UTC()
	in := st.in

	snapshot := risk.Compute(risk.Input{
		Vitals:   in.Vitals,
		Symptoms: strings.Join([]string{in.Text, st.transcript}, " "),
		Notes:    in.History,
		Gaps:     st.gaps.ids(),
	}, now)

	confidence := assessment.ConfidenceFull
	degraded := st.draftFallback || st.retryUsed || st.verdict != assessment.VerdictPass ||
		st.noEvidence || st.gaps.has("asr_failed") || st.gaps.has("vision_failed")
	if degraded {
		confidence = assessment.ConfidenceLow
	}

	var qualityFlags []string
	if in.AudioRef != "" {
		qualityFlags = append(qualityFlags, st.audioQ.Issues...)
	}
	if in.ImageRef != "" {
		qualityFlags = append(qualityFlags, st.imageQ.Issues...)
	}

	citations := make([]assessment.Citation, 0, len(st.evidence))
	for _, r := range st.evidence {
		citations = append(citations, assessment.Citation{
			DocID:       r.DocID,
			ChunkOffset: r.Offset,
			Score:       r.Score,
			Excerpt:     truncateTail(r.Excerpt, 300),
		})
	}

	a := &assessment.Assessment{
		PatientID:     in.PatientID,
		RequestID:     in.RequestID,
		WardID:        in.WardID,
		Modality:      primaryModality(in),
		InputText:     in.Text,
		Transcript:    st.transcript,
		Impression:    st.draft.Impression,
		Actions:       st.draft.Actions,
		AuditVerdict:  st.verdict,
		AuditReasons:  st.auditReasons,
		Differential:  st.differential,
		Citations:     citations,
		NoEvidence:    st.noEvidence,
		Confidence:    confidence,
		QualityFlags:  qualityFlags,
		Gaps:          st.gaps.messages(),
		CreatedBy:     in.ActorID,
		CreatedByRole: in.ActorRole,
		Risk: &assessment.RiskSnapshot{
			Level:        string(snapshot.Level),
			Score:        snapshot.Score,
			Factors:      snapshot.FlagIDs(),
			RulesVersion: snapshot.RulesVersion,
		},
	}
	if st.visionResult != nil {
		a.ImageFindings = st.visionResult.PrimaryFinding
	}

	o.recordStage(st, "finalize", "ok", start, "confidence="+string(confidence))
	a.StageTrace = st.trace
	_ = a.Finalize(now)

	o.metrics.AssessmentsTotal.WithLabelValues(string(confidence)).Inc()
	o.logger.Info("assessment finalized",
		zap.String("patient_id", in.PatientID.String()),
		zap.String("confidence", string(confidence)),
		zap.String("risk_level", string(snapshot.Level)),
		zap.Bool("degraded", degraded))

	return &Result{Assessment: a, Degraded: degraded, FullFailure: st.draftFallback}
}

// fitToBudget shrinks the draft prompt under the input token estimate:
// evidence chunks drop from the lowest-ranked end first, then the history
// narrative loses its tail. The chief complaint is never cut.
func (o *Orchestrator) fitToBudget(in *Input, fusion string, evidence []retrieval.Result) (string, []retrieval.Result) {
	prompt := buildDraftPrompt(in, fusion, formatEvidence(evidence))
	for len(evidence) > 0 && adapters.EstimateTokens(prompt) > o.cfg.MaxInputTokens {
		evidence = evidence[:len(evidence)-1]
		prompt = buildDraftPrompt(in, fusion, formatEvidence(evidence))
	}
	if adapters.EstimateTokens(prompt) > o.cfg.MaxInputTokens {
		trimmed := *in
		trimmed.History = truncateTail(trimmed.History, 400)
		prompt = buildDraftPrompt(&trimmed, fusion, "")
	}
	return prompt, evidence
}

func primaryModality(in *Input) assessment.Modality {
	switch {
	case in.AudioRef != "":
		return assessment.ModalityVoice
	case in.ImageRef != "":
		return assessment.ModalityImage
	case in.Vitals != nil && in.Text == "":
		return assessment.ModalityVitals
	default:
		return assessment.ModalityText
	}
}

// retryable reports whether a generation failure is worth one truncated
// retry: context overruns and deadline expiries are, hard outages are not.
func retryable(err error) bool {
	return errors.Is(err, adapters.ErrLengthExceeded) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, adapters.ErrEmptyOutput)
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, adapters.ErrLengthExceeded):
		return "length_exceeded"
	case errors.Is(err, adapters.ErrAdapterUnavailable):
		return "unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, adapters.ErrEmptyOutput):
		return "empty_output"
	default:
		return "other"
	}
}

func truncateTail(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/careward/wardflow/internal/domain"
	"github.com/careward/wardflow/pkg/metrics"
)

// TransitionLogService reads the append-only request audit log and
// persists supplementary entries (linkage notes, annotations) off the
// critical path. Transition rows themselves are written by the request
// repository in the same commit as the state change; only the
// supplementary entries go through the buffered background worker, and a
// full buffer drops them with a warning rather than blocking a ward
// action.
type TransitionLogService struct {
	repo    domain.TransitionLogRepository
	log     *zap.Logger
	metrics *metrics.Collector
	entries chan *domain.TransitionLog
	done    chan struct{}
}

const transitionLogBufferSize = 10_000

func NewTransitionLogService(repo domain.TransitionLogRepository, log *zap.Logger, collector *metrics.Collector) *TransitionLogService {
	svc := &TransitionLogService{
		repo:    repo,
		log:     log,
		metrics: collector,
		entries: make(chan *domain.TransitionLog, transitionLogBufferSize),
		done:    make(chan struct{}),
	}
	go svc.worker()
	return svc
}

// RecordAsync enqueues a supplementary audit entry for async persistence.
func (s *TransitionLogService) RecordAsync(entry *domain.TransitionLog) {
	select {
	case s.entries <- entry:
	default:
		s.metrics.TransitionLogDropped.Inc()
		s.log.Warn("transition log buffer full, dropping entry",
			zap.String("request_id", entry.RequestID.String()),
			zap.String("to_state", entry.ToState),
		)
	}
}

// History returns the transition log for one request, oldest first.
func (s *TransitionLogService) History(ctx context.Context, requestID uuid.UUID) ([]*domain.TransitionLog, error) {
	return s.repo.ListByRequest(ctx, requestID)
}

func (s *TransitionLogService) Shutdown() {
	close(s.entries)
	select {
	case <-s.done:
	case <-time.After(10 * time.Second):
		s.log.Warn("transition log shutdown timed out; some entries may be lost")
	}
}

func (s *TransitionLogService) worker() {
	defer close(s.done)
	for entry := range s.entries {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.repo.Append(ctx, entry); err != nil {
			s.log.Error("failed to persist transition log entry", zap.Error(err))
		} else {
			s.metrics.TransitionLogEntries.Inc()
		}
		cancel()
	}
}

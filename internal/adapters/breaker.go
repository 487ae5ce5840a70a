package adapters

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
)

// BreakerGenerator wraps a Generator with a circuit breaker so that a
// struggling inference backend sheds load instead of queueing requests
// against it. Length overruns do not count as failures; only transport
// and availability errors trip the breaker.
type BreakerGenerator struct {
	inner Generator
	cb    *gobreaker.CircuitBreaker[*GenerateResult]
}

func NewBreakerGenerator(name string, inner Generator) *BreakerGenerator {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrLengthExceeded)
		},
	}
	return &BreakerGenerator{
		inner: inner,
		cb:    gobreaker.NewCircuitBreaker[*GenerateResult](settings),
	}
}

func (b *BreakerGenerator) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	res, err := b.cb.Execute(func() (*GenerateResult, error) {
		return b.inner.Generate(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrAdapterUnavailable
	}
	return res, err
}

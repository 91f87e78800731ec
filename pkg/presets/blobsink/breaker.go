package blobsink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-overrides/pkg/logging"
	"github.com/sony/gobreaker"
)

// ErrUnavailable is returned while the breaker is open.
var ErrUnavailable = errors.New("blobsink: sink unavailable")

// BreakerConfig tunes a BreakerSink.
type BreakerConfig struct {
	Name string
	// MaxRequests is how many calls pass while half-open.
	MaxRequests uint32
	// Interval resets the failure counts while closed.
	Interval time.Duration
	// Timeout is how long the breaker stays open before probing again.
	Timeout time.Duration
	// ConsecutiveFailures trips the breaker.
	ConsecutiveFailures uint32
	Logger              logging.Logger
}

// DefaultBreakerConfig suits a remote object store.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:                name,
		MaxRequests:         1,
		Interval:            time.Minute,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 3,
	}
}

// BreakerSink stops calling a failing sink until it recovers. ErrNotFound
// and caller cancellation do not count as failures.
type BreakerSink struct {
	next    Sink
	breaker *gobreaker.CircuitBreaker
}

var _ Sink = (*BreakerSink)(nil)

// NewBreakerSink wraps next.
func NewBreakerSink(next Sink, cfg BreakerConfig) *BreakerSink {
	logger := logging.OrNop(cfg.Logger)
	threshold := cfg.ConsecutiveFailures
	if threshold == 0 {
		threshold = 3
	}
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("blobsink: breaker state changed", "sink", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrNotFound) ||
				errors.Is(err, context.Canceled)
		},
	}
	return &BreakerSink{next: next, breaker: gobreaker.NewCircuitBreaker(settings)}
}

// State reports the breaker state ("closed", "half-open" or "open").
func (s *BreakerSink) State() string {
	return s.breaker.State().String()
}

func (s *BreakerSink) Put(ctx context.Context, key string, payload []byte) error {
	_, err := s.execute(func() (any, error) {
		return nil, s.next.Put(ctx, key, payload)
	})
	return err
}

func (s *BreakerSink) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.execute(func() (any, error) {
		return s.next.Get(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	payload, _ := out.([]byte)
	return payload, nil
}

func (s *BreakerSink) List(ctx context.Context, prefix string) ([]string, error) {
	out, err := s.execute(func() (any, error) {
		return s.next.List(ctx, prefix)
	})
	if err != nil {
		return nil, err
	}
	keys, _ := out.([]string)
	return keys, nil
}

func (s *BreakerSink) Delete(ctx context.Context, key string) error {
	_, err := s.execute(func() (any, error) {
		return nil, s.next.Delete(ctx, key)
	})
	return err
}

func (s *BreakerSink) execute(fn func() (any, error)) (any, error) {
	out, err := s.breaker.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, err)
	}
	return out, err
}

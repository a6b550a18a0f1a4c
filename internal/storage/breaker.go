package storage

import (
	"context"
	"errors"
	"time"

	"github.com/ikkim/storefront-cart/config"
	"github.com/ikkim/storefront-cart/pkg/logger"
	"github.com/sony/gobreaker"
)

// BreakerStorage wraps a remote backend in a circuit breaker. While the
// breaker is open every call fails fast with ErrUnavailable instead of
// waiting on the backend.
type BreakerStorage struct {
	next Storage
	cb   *gobreaker.CircuitBreaker
}

func NewBreakerStorage(name string, next Storage, cfg config.BreakerConfig) *BreakerStorage {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}

	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		// A full quota is the caller's problem, not the backend's.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrQuotaExceeded)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Storage circuit breaker state changed", map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
		},
	}

	return &BreakerStorage{
		next: next,
		cb:   gobreaker.NewCircuitBreaker(st),
	}
}

func (s *BreakerStorage) GetItem(ctx context.Context, key string) (string, bool, error) {
	type result struct {
		value string
		ok    bool
	}
	res, err := s.cb.Execute(func() (interface{}, error) {
		v, ok, err := s.next.GetItem(ctx, key)
		return result{value: v, ok: ok}, err
	})
	if err != nil {
		return "", false, breakerErr(err)
	}
	r := res.(result)
	return r.value, r.ok, nil
}

func (s *BreakerStorage) SetItem(ctx context.Context, key, value string) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.next.SetItem(ctx, key, value)
	})
	return breakerErr(err)
}

func (s *BreakerStorage) RemoveItem(ctx context.Context, key string) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.next.RemoveItem(ctx, key)
	})
	return breakerErr(err)
}

func (s *BreakerStorage) Close() error {
	return s.next.Close()
}

// State reports the breaker state, mainly for health output.
func (s *BreakerStorage) State() gobreaker.State {
	return s.cb.State()
}

func breakerErr(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return unavailable("circuit breaker", err)
	}
	return err
}

package resilience

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrAllTiersFailed is returned when every tier in a [Chain] fails or is
// bypassed by an open breaker.
var ErrAllTiersFailed = errors.New("all tiers failed")

// tier pairs a value with its dedicated breaker.
type tier[T any] struct {
	name    string
	value   T
	breaker *Breaker
}

// Chain orders instances of a provider type from most to least preferred and
// tries them in order until one succeeds, skipping tiers whose breaker is
// open. Callers learn which tier served the request, so the session layer
// can report whether the premium or the platform voice is speaking.
//
// Chain is safe for concurrent use once built; AddTier must not race with Do.
type Chain[T any] struct {
	tiers []tier[T]
	cfg   BreakerConfig
}

// NewChain creates a Chain whose per-tier breakers share cfg (the Name field
// is replaced with each tier's name).
func NewChain[T any](cfg BreakerConfig) *Chain[T] {
	return &Chain[T]{cfg: cfg}
}

// AddTier appends a tier. Tiers are tried in the order they were added.
func (c *Chain[T]) AddTier(name string, value T) {
	bc := c.cfg
	bc.Name = name
	c.tiers = append(c.tiers, tier[T]{
		name:    name,
		value:   value,
		breaker: NewBreaker(bc),
	})
}

// Len reports the number of tiers in the chain.
func (c *Chain[T]) Len() int { return len(c.tiers) }

// Do tries fn against each tier in order until one succeeds and returns the
// name of the tier that served the call. When every tier fails the returned
// error wraps [ErrAllTiersFailed] together with the last tier error.
func (c *Chain[T]) Do(fn func(name string, value T) error) (string, error) {
	var lastErr error
	for i := range c.tiers {
		t := &c.tiers[i]
		err := t.breaker.Do(func() error {
			return fn(t.name, t.value)
		})
		if err == nil {
			return t.name, nil
		}
		lastErr = err
		if errors.Is(err, ErrBreakerOpen) {
			slog.Debug("tier bypassed, breaker open", "tier", t.name)
		} else {
			slog.Warn("tier failed, falling through", "tier", t.name, "error", err)
		}
	}
	return "", fmt.Errorf("%w: %v", ErrAllTiersFailed, lastErr)
}

// DoWithResult is the result-carrying variant of [Chain.Do]. It is a
// package-level function because Go does not allow method-level type
// parameters.
func DoWithResult[T, R any](c *Chain[T], fn func(name string, value T) (R, error)) (R, string, error) {
	var (
		lastErr error
		zero    R
	)
	for i := range c.tiers {
		t := &c.tiers[i]
		var result R
		err := t.breaker.Do(func() error {
			var innerErr error
			result, innerErr = fn(t.name, t.value)
			return innerErr
		})
		if err == nil {
			return result, t.name, nil
		}
		lastErr = err
		if errors.Is(err, ErrBreakerOpen) {
			slog.Debug("tier bypassed, breaker open", "tier", t.name)
		} else {
			slog.Warn("tier failed, falling through", "tier", t.name, "error", err)
		}
	}
	return zero, "", fmt.Errorf("%w: %v", ErrAllTiersFailed, lastErr)
}

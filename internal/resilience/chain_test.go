package resilience

import (
	"errors"
	"testing"
	"time"
)

func TestChain_FirstTierServes(t *testing.T) {
	c := NewChain[string](BreakerConfig{})
	c.AddTier("premium", "eleven")
	c.AddTier("platform", "browser")

	var tried []string
	name, err := c.Do(func(name, value string) error {
		tried = append(tried, value)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "premium" {
		t.Errorf("served tier = %q, want %q", name, "premium")
	}
	if len(tried) != 1 || tried[0] != "eleven" {
		t.Errorf("tried = %v, want just the first tier", tried)
	}
}

func TestChain_FallsThroughOnError(t *testing.T) {
	c := NewChain[string](BreakerConfig{})
	c.AddTier("premium", "eleven")
	c.AddTier("platform", "browser")

	name, err := c.Do(func(name, value string) error {
		if name == "premium" {
			return errTest
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "platform" {
		t.Errorf("served tier = %q, want %q", name, "platform")
	}
}

func TestChain_AllTiersFail(t *testing.T) {
	c := NewChain[string](BreakerConfig{})
	c.AddTier("premium", "eleven")
	c.AddTier("platform", "browser")

	name, err := c.Do(func(name, value string) error { return errTest })
	if !errors.Is(err, ErrAllTiersFailed) {
		t.Fatalf("err = %v, want ErrAllTiersFailed", err)
	}
	if name != "" {
		t.Errorf("served tier = %q, want empty", name)
	}
}

func TestChain_SkipsTrippedTier(t *testing.T) {
	c := NewChain[string](BreakerConfig{Threshold: 1, Cooldown: time.Hour})
	c.AddTier("premium", "eleven")
	c.AddTier("platform", "browser")

	// Trip the first tier.
	if _, err := c.Do(func(name, value string) error {
		if name == "premium" {
			return errTest
		}
		return nil
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The tripped tier must be bypassed without invoking fn.
	var tried []string
	name, err := c.Do(func(name, value string) error {
		tried = append(tried, name)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "platform" {
		t.Errorf("served tier = %q, want %q", name, "platform")
	}
	if len(tried) != 1 || tried[0] != "platform" {
		t.Errorf("tried = %v, want only the platform tier", tried)
	}
}

func TestDoWithResult(t *testing.T) {
	c := NewChain[int](BreakerConfig{})
	c.AddTier("a", 1)
	c.AddTier("b", 2)

	got, name, err := DoWithResult(c, func(name string, value int) (string, error) {
		if name == "a" {
			return "", errTest
		}
		return "served", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "b" {
		t.Errorf("served tier = %q, want %q", name, "b")
	}
	if got != "served" {
		t.Errorf("result = %q, want %q", got, "served")
	}
}

func TestDoWithResult_AllFail(t *testing.T) {
	c := NewChain[int](BreakerConfig{})
	c.AddTier("a", 1)

	got, _, err := DoWithResult(c, func(name string, value int) (string, error) {
		return "partial", errTest
	})
	if !errors.Is(err, ErrAllTiersFailed) {
		t.Fatalf("err = %v, want ErrAllTiersFailed", err)
	}
	if got != "" {
		t.Errorf("result = %q, want zero value on failure", got)
	}
}

func TestChain_Len(t *testing.T) {
	c := NewChain[string](BreakerConfig{})
	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0", c.Len())
	}
	c.AddTier("only", "x")
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}

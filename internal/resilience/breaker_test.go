package resilience

import (
	"errors"
	"testing"
	"time"
)

var errTest = errors.New("test error")

func TestNewBreaker_Defaults(t *testing.T) {
	b := NewBreaker(BreakerConfig{Name: "test"})
	if b.threshold != 3 {
		t.Errorf("threshold = %d, want 3", b.threshold)
	}
	if b.cooldown != 15*time.Second {
		t.Errorf("cooldown = %v, want 15s", b.cooldown)
	}
	if b.probeBudget != 2 {
		t.Errorf("probeBudget = %d, want 2", b.probeBudget)
	}
	if b.State() != BreakerClosed {
		t.Errorf("initial state = %v, want closed", b.State())
	}
}

func TestBreaker_ClosedForwardsCalls(t *testing.T) {
	b := NewBreaker(BreakerConfig{Name: "test"})
	called := false
	err := b.Do(func() error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Fatal("fn was not called")
	}
}

func TestBreaker_TripsAfterThreshold(t *testing.T) {
	b := NewBreaker(BreakerConfig{
		Name:      "test",
		Threshold: 3,
		Cooldown:  time.Hour, // long cooldown so it stays open
	})

	for i := 0; i < 3; i++ {
		_ = b.Do(func() error { return errTest })
	}
	if b.State() != BreakerOpen {
		t.Fatalf("state = %v, want open after 3 failures", b.State())
	}

	// Next call must be rejected without running fn.
	called := false
	err := b.Do(func() error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrBreakerOpen) {
		t.Fatalf("err = %v, want ErrBreakerOpen", err)
	}
	if called {
		t.Fatal("fn ran while the breaker was open")
	}
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker(BreakerConfig{Name: "test", Threshold: 3})

	_ = b.Do(func() error { return errTest })
	_ = b.Do(func() error { return errTest })
	_ = b.Do(func() error { return nil })

	if b.State() != BreakerClosed {
		t.Fatalf("state = %v, want closed after a success", b.State())
	}

	// Two more failures still do not reach the threshold.
	_ = b.Do(func() error { return errTest })
	_ = b.Do(func() error { return errTest })
	if b.State() != BreakerClosed {
		t.Fatalf("state = %v, want closed at 2 of 3 failures", b.State())
	}
}

func TestBreaker_ProbeClosesOnSuccess(t *testing.T) {
	b := NewBreaker(BreakerConfig{
		Name:      "test",
		Threshold: 1,
		Cooldown:  time.Millisecond,
	})

	_ = b.Do(func() error { return errTest })
	if b.State() != BreakerOpen {
		t.Fatalf("state = %v, want open", b.State())
	}

	time.Sleep(5 * time.Millisecond)
	if b.State() != BreakerProbing {
		t.Fatalf("state = %v, want probing after cooldown", b.State())
	}

	if err := b.Do(func() error { return nil }); err != nil {
		t.Fatalf("probe call: unexpected error: %v", err)
	}
	if b.State() != BreakerClosed {
		t.Fatalf("state = %v, want closed after successful probe", b.State())
	}
}

func TestBreaker_ProbeReopensOnFailure(t *testing.T) {
	b := NewBreaker(BreakerConfig{
		Name:      "test",
		Threshold: 1,
		Cooldown:  time.Millisecond,
	})

	_ = b.Do(func() error { return errTest })
	time.Sleep(5 * time.Millisecond)

	if err := b.Do(func() error { return errTest }); !errors.Is(err, errTest) {
		t.Fatalf("probe call: err = %v, want errTest", err)
	}
	if b.State() != BreakerOpen {
		t.Fatalf("state = %v, want open after failed probe", b.State())
	}

	// The fresh open period rejects calls again.
	if err := b.Do(func() error { return nil }); !errors.Is(err, ErrBreakerOpen) {
		t.Fatalf("err = %v, want ErrBreakerOpen", err)
	}
}

func TestBreaker_ProbeBudgetExhausted(t *testing.T) {
	b := NewBreaker(BreakerConfig{
		Name:        "test",
		Threshold:   1,
		Cooldown:    time.Millisecond,
		ProbeBudget: 1,
	})

	_ = b.Do(func() error { return errTest })
	time.Sleep(5 * time.Millisecond)

	// First probe is admitted but leaves the breaker probing while fn
	// runs. Hold it open by failing, then check the budget.
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- b.Do(func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	if err := b.Do(func() error { return nil }); !errors.Is(err, ErrBreakerOpen) {
		t.Fatalf("second probe: err = %v, want ErrBreakerOpen", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first probe: unexpected error: %v", err)
	}
	if b.State() != BreakerClosed {
		t.Fatalf("state = %v, want closed", b.State())
	}
}

func TestBreaker_Reset(t *testing.T) {
	b := NewBreaker(BreakerConfig{Name: "test", Threshold: 1, Cooldown: time.Hour})

	_ = b.Do(func() error { return errTest })
	if b.State() != BreakerOpen {
		t.Fatalf("state = %v, want open", b.State())
	}

	b.Reset()
	if b.State() != BreakerClosed {
		t.Fatalf("state = %v, want closed after Reset", b.State())
	}
	if err := b.Do(func() error { return nil }); err != nil {
		t.Fatalf("unexpected error after Reset: %v", err)
	}
}

package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
)

var errRateLimited = errors.New("429 rate limited")

func retryOnRateLimit(err error) ErrorClassification {
	return ErrorClassification{Retryable: errors.Is(err, errRateLimited), RecordFailure: true}
}

func fastRetries(attempts int) Config {
	return Config{
		RetryMaxAttempts:    attempts,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
	}
}

func TestExecuteRetries(t *testing.T) {
	cases := []struct {
		name         string
		failures     int
		failWith     error
		wantAttempts int
		wantErr      error
	}{
		{name: "recovers after rate limits", failures: 2, failWith: errRateLimited, wantAttempts: 3},
		{name: "gives up after max attempts", failures: 5, failWith: errRateLimited, wantAttempts: 3, wantErr: errRateLimited},
		{name: "permanent error is not retried", failures: 5, failWith: errors.New("400 bad request"), wantAttempts: 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			exec := NewExecutor(fastRetries(3))
			attempts := 0
			err := exec.Execute(context.Background(), "llm.legal_guidance", func(context.Context) error {
				attempts++
				if attempts <= tc.failures {
					return tc.failWith
				}
				return nil
			}, retryOnRateLimit)

			if attempts != tc.wantAttempts {
				t.Fatalf("expected %d attempts, got %d", tc.wantAttempts, attempts)
			}
			switch {
			case tc.wantErr != nil && !errors.Is(err, tc.wantErr):
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			case tc.failures < tc.wantAttempts && err != nil:
				t.Fatalf("expected success, got %v", err)
			case tc.failures >= tc.wantAttempts && err == nil:
				t.Fatalf("expected an error")
			}
		})
	}
}

func TestExecuteStopsRetryingWhenContextEnds(t *testing.T) {
	cfg := fastRetries(5)
	cfg.RetryInitialBackoff = time.Second
	cfg.RetryMaxBackoff = time.Second
	exec := NewExecutor(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	attempts := 0
	err := exec.Execute(ctx, "llm.legal_guidance", func(context.Context) error {
		attempts++
		return errRateLimited
	}, retryOnRateLimit)
	if !errors.Is(err, errRateLimited) {
		t.Fatalf("expected last call error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected the backoff wait to be cut short after 1 attempt, got %d", attempts)
	}
}

func TestBackoffGrowsAndCaps(t *testing.T) {
	next := Config{
		RetryInitialBackoff: 100 * time.Millisecond,
		RetryMaxBackoff:     300 * time.Millisecond,
		RetryMultiplier:     2,
	}.backoff()

	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 300 * time.Millisecond, 300 * time.Millisecond}
	for i, w := range want {
		if got := next(); got != w {
			t.Fatalf("delay %d: expected %s, got %s", i, w, got)
		}
	}
}

func TestNormalizeFillsDefaults(t *testing.T) {
	cfg := Config{RetryInitialBackoff: 5 * time.Second}.normalize()
	def := DefaultConfig()

	if cfg.RetryMaxAttempts != def.RetryMaxAttempts || cfg.BreakerMinRequests != def.BreakerMinRequests {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
	if cfg.RetryMaxBackoff != 5*time.Second {
		t.Fatalf("max backoff must not be below the initial backoff, got %s", cfg.RetryMaxBackoff)
	}
}

func TestExecuteOpensCircuitAfterFailures(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:        1,
		BreakerEnabled:          true,
		BreakerMinRequests:      2,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      time.Minute,
		BreakerHalfOpenMaxCalls: 1,
	})

	errDown := errors.New("provider unreachable")
	for i := 0; i < 2; i++ {
		err := exec.Execute(context.Background(), "llm.analyze_document", func(context.Context) error {
			return errDown
		}, nil)
		if !errors.Is(err, errDown) {
			t.Fatalf("call %d: expected provider error, got %v", i, err)
		}
	}

	err := exec.Execute(context.Background(), "llm.analyze_document", func(context.Context) error {
		t.Fatalf("open circuit must not call the provider")
		return nil
	}, nil)
	if !errors.Is(err, gobreaker.ErrOpenState) || !IsCircuitOpen(err) {
		t.Fatalf("expected open state error, got %v", err)
	}
}

func TestPermanentFailuresDoNotTripBreaker(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:    1,
		BreakerEnabled:      true,
		BreakerMinRequests:  1,
		BreakerFailureRatio: 0.1,
		BreakerOpenTimeout:  time.Minute,
	})

	ignore := func(error) ErrorClassification { return ErrorClassification{} }
	for i := 0; i < 3; i++ {
		_ = exec.Execute(context.Background(), "nats.publish", func(context.Context) error {
			return errors.New("invalid event")
		}, ignore)
	}
	if exec.State("nats.publish") != "closed" {
		t.Fatalf("expected closed breaker, got %s", exec.State("nats.publish"))
	}
}

func TestSingleAttemptNeverRetries(t *testing.T) {
	exec := NewExecutor(DefaultConfig().SingleAttempt())

	attempts := 0
	errTemp := errors.New("temporary")
	err := exec.Execute(context.Background(), "llm.analyze_document", func(context.Context) error {
		attempts++
		return errTemp
	}, func(error) ErrorClassification {
		return ErrorClassification{Retryable: true, RecordFailure: true}
	})
	if !errors.Is(err, errTemp) {
		t.Fatalf("expected temporary error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestStateObserverSeesBreakerOpen(t *testing.T) {
	var transitions []string
	exec := NewExecutor(Config{
		RetryMaxAttempts:        1,
		BreakerEnabled:          true,
		BreakerMinRequests:      1,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      time.Minute,
		BreakerHalfOpenMaxCalls: 1,
	}, WithStateObserver(func(op, from, to string) {
		transitions = append(transitions, op+":"+from+"->"+to)
	}))

	_ = exec.Execute(context.Background(), "nats.publish", func(context.Context) error {
		return errors.New("down")
	}, nil)

	if len(transitions) != 1 || transitions[0] != "nats.publish:closed->open" {
		t.Fatalf("unexpected transitions: %v", transitions)
	}
	if exec.State("nats.publish") != "open" {
		t.Fatalf("unexpected state: %s", exec.State("nats.publish"))
	}
	if exec.State("other") != "closed" {
		t.Fatalf("unknown operation should report closed")
	}
}

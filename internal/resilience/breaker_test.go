package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/vidtube/backend/internal/metrics"
)

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	b := NewBreaker[string]("test_open", Settings{FailureThreshold: 2, OpenTimeout: time.Minute})
	boom := errors.New("boom")

	for i := 0; i < 2; i++ {
		if _, err := b.Execute(func() (string, error) { return "", boom }); !errors.Is(err, boom) {
			t.Fatalf("expected upstream error, got %v", err)
		}
	}

	called := false
	_, err := b.Execute(func() (string, error) {
		called = true
		return "ok", nil
	})
	if !errors.Is(err, ErrOpen) {
		t.Fatalf("expected ErrOpen, got %v", err)
	}
	if called {
		t.Fatal("expected open breaker to skip the call")
	}
	if b.State() != "open" {
		t.Fatalf("expected open state, got %s", b.State())
	}
	if got := testutil.ToFloat64(metrics.CircuitBreakerRequests.WithLabelValues("test_open", "rejected")); got != 1 {
		t.Fatalf("expected one rejected request, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.CircuitBreakerState.WithLabelValues("test_open")); got != 2 {
		t.Fatalf("expected state gauge 2, got %v", got)
	}
}

func TestBreakerPassesThroughSuccess(t *testing.T) {
	b := NewBreaker[int]("test_success", Settings{})
	got, err := b.Execute(func() (int, error) { return 42, nil })
	if err != nil || got != 42 {
		t.Fatalf("unexpected result %d, %v", got, err)
	}
	if b.State() != "closed" {
		t.Fatalf("expected closed state, got %s", b.State())
	}
}

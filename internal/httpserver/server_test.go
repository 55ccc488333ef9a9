package httpserver

import (
	"net/http"
	"testing"
	"time"
)

func TestNewAppliesDefaults(t *testing.T) {
	s := New(8080, http.NotFoundHandler(), Options{})
	if s.Addr() != ":8080" {
		t.Fatalf("unexpected addr %s", s.Addr())
	}
	if s.inner.WriteTimeout != 10*time.Minute || s.inner.ReadHeaderTimeout != 5*time.Second {
		t.Fatalf("unexpected timeouts %v / %v", s.inner.WriteTimeout, s.inner.ReadHeaderTimeout)
	}
}

func TestStartReturnsNilAfterShutdown(t *testing.T) {
	s := New(0, http.NotFoundHandler(), Options{WriteTimeout: time.Second})
	s.inner.Addr = "127.0.0.1:0"

	done := make(chan error, 1)
	go func() { done <- s.Start() }()
	time.Sleep(50 * time.Millisecond)

	if err := s.Stop(); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("expected clean stop, got %v", err)
	}
}

package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errBackend = errors.New("backend unreachable")

func TestBreaker_ClosedState_Success(t *testing.T) {
	b := New(DefaultConfig())

	err := b.Execute(context.Background(), func() error {
		return nil
	})

	if err != nil {
		t.Errorf("expected no error, got: %v", err)
	}
	if b.State() != StateClosed {
		t.Errorf("expected state closed, got: %v", b.State())
	}
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	cfg := Config{
		FailureThreshold: 2,
		SuccessThreshold: 2,
		Timeout:          100 * time.Millisecond,
	}
	b := New(cfg)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_ = b.Execute(ctx, func() error {
			return errBackend
		})
	}

	if b.State() != StateOpen {
		t.Fatalf("expected state open, got: %v", b.State())
	}

	// Calls are rejected without running fn
	ran := false
	err := b.Execute(ctx, func() error {
		ran = true
		return nil
	})
	if err == nil {
		t.Error("expected rejection error while open")
	}
	if ran {
		t.Error("fn must not run while breaker is open")
	}
}

func TestBreaker_HalfOpenRecovery(t *testing.T) {
	cfg := Config{
		FailureThreshold: 2,
		SuccessThreshold: 2,
		Timeout:          20 * time.Millisecond,
	}
	b := New(cfg)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_ = b.Execute(ctx, func() error {
			return errBackend
		})
	}
	if b.State() != StateOpen {
		t.Fatalf("expected state open, got: %v", b.State())
	}

	time.Sleep(30 * time.Millisecond)

	// Two successful probes close the breaker
	for i := 0; i < 2; i++ {
		if err := b.Execute(ctx, func() error { return nil }); err != nil {
			t.Fatalf("probe %d failed: %v", i, err)
		}
	}
	if b.State() != StateClosed {
		t.Errorf("expected state closed after recovery, got: %v", b.State())
	}
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	cfg := Config{
		FailureThreshold: 1,
		SuccessThreshold: 2,
		Timeout:          20 * time.Millisecond,
	}
	b := New(cfg)
	ctx := context.Background()

	_ = b.Execute(ctx, func() error { return errBackend })
	if b.State() != StateOpen {
		t.Fatalf("expected state open, got: %v", b.State())
	}

	time.Sleep(30 * time.Millisecond)

	_ = b.Execute(ctx, func() error { return errBackend })
	if b.State() != StateOpen {
		t.Errorf("expected state open after half-open failure, got: %v", b.State())
	}
}

func TestBreaker_Reset(t *testing.T) {
	cfg := Config{FailureThreshold: 1, SuccessThreshold: 1, Timeout: time.Hour}
	b := New(cfg)

	_ = b.Execute(context.Background(), func() error { return errBackend })
	if b.State() != StateOpen {
		t.Fatalf("expected state open, got: %v", b.State())
	}

	b.Reset()
	if b.State() != StateClosed {
		t.Errorf("expected state closed after reset, got: %v", b.State())
	}
}

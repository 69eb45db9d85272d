package supervisor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestWorkerRetriesWithBackoffThenSucceeds(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	sup := New(ctx, zap.NewNop())
	var attempts int32
	err := sup.AddWorker(WorkerConfig{
		Name:           "flaky",
		Exchange:       "binance",
		Pair:           "btcusdt",
		MaxRetries:     5,
		InitialBackoff: 5 * time.Millisecond,
		MaxBackoff:     20 * time.Millisecond,
		BackoffFactor:  2,
	}, func(ctx context.Context) error {
		if atomic.AddInt32(&attempts, 1) < 3 {
			return errors.New("transient")
		}
		<-ctx.Done()
		return nil
	})
	if err != nil {
		t.Fatalf("AddWorker: %v", err)
	}
	if err := sup.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	if atomic.LoadInt32(&attempts) < 3 {
		t.Fatalf("expected at least 3 attempts, got %d", attempts)
	}
	sup.Stop()
}

func TestWorkerExhaustingRetriesReportsFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	sup := New(ctx, zap.NewNop())
	sup.AddWorker(WorkerConfig{
		Name:           "doomed",
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		BackoffFactor:  2,
	}, func(ctx context.Context) error {
		return errors.New("always fails")
	})
	sup.Start()
	defer sup.Stop()

	select {
	case err := <-sup.Failures():
		if err == nil {
			t.Fatal("expected a non-nil failure")
		}
	case <-time.After(1 * time.Second):
		t.Fatal("expected a failure to be reported")
	}

	status, err := sup.Status("doomed")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status != StatusFailed {
		t.Fatalf("expected StatusFailed, got %s", status)
	}
}

func TestAddWorkerRejectsDuplicateName(t *testing.T) {
	sup := New(context.Background(), zap.NewNop())
	noop := func(ctx context.Context) error { <-ctx.Done(); return nil }
	if err := sup.AddWorker(WorkerConfig{Name: "dup"}, noop); err != nil {
		t.Fatalf("first AddWorker: %v", err)
	}
	if err := sup.AddWorker(WorkerConfig{Name: "dup"}, noop); err == nil {
		t.Fatal("expected an error for a duplicate worker name")
	}
}

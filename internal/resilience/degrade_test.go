package resilience

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// TestDegrade_Success passes the function result through unchanged.
func TestDegrade_Success(t *testing.T) {
	got, degraded := Degrade(context.Background(), discardLogger(), "generate", 0, "fallback",
		func(ctx context.Context) (string, error) {
			return "It's 3 PM.", nil
		})
	if degraded {
		t.Error("expected degraded=false on success")
	}
	if got != "It's 3 PM." {
		t.Errorf("expected result passthrough, got %q", got)
	}
}

// TestDegrade_Error returns the fallback when the function fails.
func TestDegrade_Error(t *testing.T) {
	got, degraded := Degrade(context.Background(), discardLogger(), "generate", 0, "fallback",
		func(ctx context.Context) (string, error) {
			return "", errors.New("upstream 500")
		})
	if !degraded {
		t.Error("expected degraded=true on error")
	}
	if got != "fallback" {
		t.Errorf("expected fallback, got %q", got)
	}
}

// TestDegrade_Timeout returns the fallback when the function exceeds the bound.
func TestDegrade_Timeout(t *testing.T) {
	start := time.Now()
	got, degraded := Degrade(context.Background(), discardLogger(), "generate", 20*time.Millisecond, 42,
		func(ctx context.Context) (int, error) {
			select {
			case <-time.After(5 * time.Second):
				return 1, nil
			case <-ctx.Done():
				return 0, ctx.Err()
			}
		})
	if !degraded {
		t.Error("expected degraded=true on timeout")
	}
	if got != 42 {
		t.Errorf("expected fallback 42, got %d", got)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("timeout not enforced, took %v", elapsed)
	}
}

// TestDegrade_Panic recovers and returns the fallback.
func TestDegrade_Panic(t *testing.T) {
	got, degraded := Degrade(context.Background(), discardLogger(), "synthesize", 0, []byte("safe"),
		func(ctx context.Context) ([]byte, error) {
			panic("boom")
		})
	if !degraded {
		t.Error("expected degraded=true on panic")
	}
	if string(got) != "safe" {
		t.Errorf("expected fallback, got %q", got)
	}
}

// TestDegrade_ContextCancelled degrades when the parent context is already done.
func TestDegrade_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, degraded := Degrade(ctx, discardLogger(), "generate", time.Second, "fallback",
		func(ctx context.Context) (string, error) {
			if err := ctx.Err(); err != nil {
				return "", err
			}
			return "reply", nil
		})
	if !degraded {
		t.Error("expected degraded=true with cancelled context")
	}
	if got != "fallback" {
		t.Errorf("expected fallback, got %q", got)
	}
}

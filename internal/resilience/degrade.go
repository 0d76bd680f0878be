// Package resilience contains the degrade-and-continue policy used around
// upstream service calls.
//
// A live call must never stall or die because a single upstream request
// failed: the turn keeps going with a safe fallback value (apology text,
// zero audio chunks) and the failure is logged. Degrade is that policy in
// one place so call sites do not each reinvent it.
package resilience

import (
	"context"
	"log/slog"
	"time"
)

// Degrade runs fn bounded by timeout and returns its result, or fallback if
// fn returns an error, panics, or does not finish before the timeout. The
// second return value reports whether the fallback was used.
//
// A timeout of zero means fn is bounded only by ctx. Cancellation of ctx
// itself also degrades; the caller's teardown path decides whether the
// degraded value is ever used.
func Degrade[T any](ctx context.Context, log *slog.Logger, stage string, timeout time.Duration, fallback T, fn func(context.Context) (T, error)) (result T, degraded bool) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("upstream call panicked, degrading",
				"stage", stage, "panic", r)
			result, degraded = fallback, true
		}
	}()

	v, err := fn(ctx)
	if err != nil {
		log.Warn("upstream call failed, degrading",
			"stage", stage, "error", err)
		return fallback, true
	}
	return v, false
}

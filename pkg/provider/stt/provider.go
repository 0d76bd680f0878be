// Package stt defines the Provider interface for streaming speech-to-text
// backends.
//
// An STT provider wraps a real-time transcription service (e.g., Deepgram)
// behind a uniform streaming interface. The central abstraction is
// SessionHandle: once opened, a session accepts raw encoded audio frames at
// any rate and emits finalized Transcript values on a channel. Interim
// (non-final) engine results are filtered out inside the session — callers
// only ever see results the engine has committed to, and only when the
// transcript text is non-empty after trimming whitespace.
//
// Connection-level failures are surfaced on a separate error channel rather
// than by closing the session: the engine dropping mid-call does not imply
// the call itself should end, and the owner decides whether to keep listening
// or tear down.
//
// Implementations must be safe for concurrent use.
package stt

import (
	"context"

	"github.com/MrWong99/voxbridge/pkg/types"
)

// StreamConfig describes the audio format and recognition hints for a new
// transcription session. The format must match the bytes later passed to
// SendAudio; the engine cannot detect a mismatch and will silently produce
// garbage otherwise.
type StreamConfig struct {
	// Format is the encoding, sample rate, and channel count of the audio
	// pushed into the session (mu-law 8 kHz mono for telephony calls).
	Format types.AudioFormat

	// Language is the BCP-47 language tag for recognition (e.g., "en").
	// An empty string uses the provider default.
	Language string
}

// SessionHandle represents an open streaming transcription session.
//
// Callers must call Close exactly once when the session is no longer needed,
// including on abnormal termination; failing to do so leaks the upstream
// connection and the provider's internal goroutines. Close is idempotent.
// All methods are safe for concurrent use.
type SessionHandle interface {
	// SendAudio delivers a chunk of raw encoded audio to the engine. There is
	// no batching requirement; chunks are forwarded as they arrive. Calling
	// SendAudio after Close returns an error.
	SendAudio(chunk []byte) error

	// Finals returns a read-only channel emitting finalized, non-empty
	// transcripts. Interim results and finals that are empty after trimming
	// never appear here. The channel is closed when the session ends.
	Finals() <-chan types.Transcript

	// Errors returns a read-only channel surfacing connection-level failures
	// from the engine. An error here does not close the session's owner —
	// the owner decides whether to continue. The channel is closed when the
	// session ends.
	Errors() <-chan error

	// Close flushes pending audio, terminates the session, and releases the
	// upstream connection. After Close returns, the Finals and Errors
	// channels are closed. Calling Close more than once is safe and returns nil.
	Close() error
}

// Provider is the abstraction over any streaming STT backend.
//
// Implementations must be safe for concurrent use; multiple sessions may be
// open simultaneously (one per active call).
type Provider interface {
	// StartStream opens a new streaming transcription session with the given
	// audio format. The returned SessionHandle is ready to accept audio
	// immediately; the engine may drop frames delivered before it finishes
	// its own startup handshake.
	//
	// Returns an error if the session cannot be established (authentication
	// failure, unreachable endpoint, or ctx already cancelled). The caller
	// owns the handle and must call Close when done.
	StartStream(ctx context.Context, cfg StreamConfig) (SessionHandle, error)
}

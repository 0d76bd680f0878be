// Package tts defines the Provider interface for text-to-speech backends.
//
// A TTS provider wraps a speech synthesis service (e.g., Deepgram Speak) and
// presents a uniform streaming interface: one utterance of text in, a channel
// of encoded audio chunks out. Chunks are emitted as the engine produces them
// so playback can begin before the full utterance is rendered.
//
// Implementations must be safe for concurrent use.
package tts

import "context"

// Provider is the abstraction over any TTS backend.
//
// Implementations must be safe for concurrent use; multiple synthesis requests
// may run in parallel (one per active call).
type Provider interface {
	// Synthesize renders text into audio and returns a channel emitting encoded
	// audio chunks in playback order. Chunk boundaries are arbitrary; callers
	// must not assume any framing. The output encoding is fixed per provider
	// instance (mu-law 8 kHz mono for telephony use).
	//
	// The returned channel is closed by the implementation when the utterance
	// is fully rendered, when synthesis fails mid-stream, or when ctx is
	// cancelled. The caller must drain the channel to avoid leaking the
	// provider's internal goroutine; callers should check ctx.Err() to
	// distinguish cancellation from a provider failure.
	//
	// Returns a non-nil error only if the stream cannot be started (empty
	// text, authentication failure, non-success upstream status).
	Synthesize(ctx context.Context, text string) (<-chan []byte, error)
}

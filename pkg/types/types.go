// Package types defines the shared types used across all Voxbridge packages.
//
// These types form the lingua franca between the telephony leg, the provider
// wrappers, and the call orchestrator. Each package defines its own domain
// types; only cross-cutting data structures live here to avoid circular imports.
package types

// AudioFormat describes the encoding, sample rate, and channel count of an
// audio stream crossing a provider boundary.
type AudioFormat struct {
	// Encoding is the provider wire name of the codec (e.g., "mulaw", "linear16").
	Encoding string

	// SampleRate in Hz (8000 for the telephony leg).
	SampleRate int

	// Channels: 1 for mono. The telephony leg is always mono.
	Channels int
}

// TelephonyFormat is the one fixed narrowband format the telephony leg
// speaks: G.711 mu-law, 8 kHz, mono. Every byte written back to the call leg
// must conform to it.
var TelephonyFormat = AudioFormat{
	Encoding:   "mulaw",
	SampleRate: 8000,
	Channels:   1,
}

// Transcript represents a speech-to-text result from the recognition engine.
// Both partial (interim) and final results use this type; only finals drive
// the conversation pipeline.
type Transcript struct {
	// Text is the transcribed speech content of the top alternative.
	Text string

	// IsFinal indicates whether the engine has committed to this result.
	// Interim results may still be revised and must not trigger a turn.
	IsFinal bool

	// Confidence is the engine's confidence score for the top alternative
	// (0.0–1.0). May be zero if the engine does not report confidence.
	Confidence float64
}

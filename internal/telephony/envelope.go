// Package telephony implements the media-stream leg of a call: the wire
// envelope used by the telephony provider's duplex stream, the call-setup
// markup that points the provider at the stream endpoint, and the WebSocket
// handler that feeds decoded frames into a call session.
package telephony

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedFrame reports a textual frame that is not valid JSON. Callers
// log and drop the frame; the call continues.
var ErrMalformedFrame = errors.New("telephony: malformed frame")

// FrameKind distinguishes the two frame types a decoded stream message can
// carry.
type FrameKind int

const (
	// FrameMedia carries raw encoded audio.
	FrameMedia FrameKind = iota
	// FrameStop signals the provider has ended the stream.
	FrameStop
)

// Frame is one decoded unit of the telephony duplex stream.
type Frame struct {
	Kind FrameKind

	// Audio holds the decoded audio bytes for FrameMedia frames; nil for
	// FrameStop.
	Audio []byte
}

// envelope is the provider's textual stream message. Only the fields the
// bridge consumes are mapped.
type envelope struct {
	Event string `json:"event"`
	Media *struct {
		Payload string `json:"payload"`
	} `json:"media,omitempty"`
}

// outboundEnvelope is the shape of every frame sent back on the stream.
type outboundEnvelope struct {
	Event string        `json:"event"`
	Media outboundMedia `json:"media"`
}

type outboundMedia struct {
	Payload string `json:"payload"`
}

// Decode parses one inbound stream message. Binary messages are raw audio and
// pass through as a media frame. Textual messages are the provider's JSON
// envelope: "media" events carry base64 audio, "stop" ends the stream, and
// any other event value is dropped, yielding (nil, nil).
//
// Malformed JSON and an undecodable payload return an error wrapping
// ErrMalformedFrame; the caller drops the frame and keeps the call alive.
func Decode(data []byte, binary bool) (*Frame, error) {
	if binary {
		return &Frame{Kind: FrameMedia, Audio: data}, nil
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	switch env.Event {
	case "media":
		if env.Media == nil {
			return nil, fmt.Errorf("%w: media event without media object", ErrMalformedFrame)
		}
		audio, err := base64.StdEncoding.DecodeString(env.Media.Payload)
		if err != nil {
			return nil, fmt.Errorf("%w: decode payload: %v", ErrMalformedFrame, err)
		}
		return &Frame{Kind: FrameMedia, Audio: audio}, nil
	case "stop":
		return &Frame{Kind: FrameStop}, nil
	default:
		// Unknown events (e.g. "connected", "mark") are dropped silently.
		return nil, nil
	}
}

// Encode wraps audio in the textual media envelope the provider expects for
// playback.
func Encode(audio []byte) ([]byte, error) {
	out := outboundEnvelope{
		Event: "media",
		Media: outboundMedia{
			Payload: base64.StdEncoding.EncodeToString(audio),
		},
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("telephony: encode frame: %w", err)
	}
	return data, nil
}

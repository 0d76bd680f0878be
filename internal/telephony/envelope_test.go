package telephony

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"
)

func TestDecode_MediaEnvelope(t *testing.T) {
	audio := bytes.Repeat([]byte{0x00}, 320)
	payload := base64.StdEncoding.EncodeToString(audio)
	raw := []byte(`{"event":"media","media":{"payload":"` + payload + `"}}`)

	f, err := Decode(raw, false)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if f == nil {
		t.Fatal("expected a frame, got nil")
	}
	if f.Kind != FrameMedia {
		t.Errorf("expected FrameMedia, got %v", f.Kind)
	}
	if !bytes.Equal(f.Audio, audio) {
		t.Errorf("decoded audio does not match original payload")
	}
}

func TestDecode_StopEnvelope(t *testing.T) {
	f, err := Decode([]byte(`{"event":"stop"}`), false)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if f == nil || f.Kind != FrameStop {
		t.Fatalf("expected FrameStop, got %+v", f)
	}
	if f.Audio != nil {
		t.Error("stop frame must carry no audio")
	}
}

func TestDecode_UnknownEventDropped(t *testing.T) {
	for _, event := range []string{"connected", "mark", "dtmf", ""} {
		raw := []byte(`{"event":"` + event + `"}`)
		f, err := Decode(raw, false)
		if err != nil {
			t.Errorf("event %q: unexpected error: %v", event, err)
		}
		if f != nil {
			t.Errorf("event %q: expected frame to be dropped, got %+v", event, f)
		}
	}
}

func TestDecode_MalformedJSON(t *testing.T) {
	_, err := Decode([]byte(`{"event":"media"`), false)
	if !errors.Is(err, ErrMalformedFrame) {
		t.Fatalf("expected ErrMalformedFrame, got %v", err)
	}
}

func TestDecode_MediaWithoutMediaObject(t *testing.T) {
	_, err := Decode([]byte(`{"event":"media"}`), false)
	if !errors.Is(err, ErrMalformedFrame) {
		t.Fatalf("expected ErrMalformedFrame, got %v", err)
	}
}

func TestDecode_InvalidBase64Payload(t *testing.T) {
	_, err := Decode([]byte(`{"event":"media","media":{"payload":"!!!not-base64!!!"}}`), false)
	if !errors.Is(err, ErrMalformedFrame) {
		t.Fatalf("expected ErrMalformedFrame, got %v", err)
	}
}

func TestDecode_BinaryPassthrough(t *testing.T) {
	audio := []byte{0xFF, 0x7F, 0x00, 0x80}
	f, err := Decode(audio, true)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if f.Kind != FrameMedia {
		t.Errorf("expected FrameMedia, got %v", f.Kind)
	}
	if !bytes.Equal(f.Audio, audio) {
		t.Error("binary frame must pass through unchanged")
	}
}

func TestEncode_MediaEnvelope(t *testing.T) {
	audio := []byte{0x01, 0x02, 0x03}
	raw, err := Encode(audio)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var env struct {
		Event string `json:"event"`
		Media struct {
			Payload string `json:"payload"`
		} `json:"media"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("unmarshal encoded frame: %v", err)
	}
	if env.Event != "media" {
		t.Errorf("expected event media, got %q", env.Event)
	}
	if want := base64.StdEncoding.EncodeToString(audio); env.Media.Payload != want {
		t.Errorf("payload: want %q, got %q", want, env.Media.Payload)
	}
}

// TestRoundTrip verifies decode(encode(audio)) restores the audio bytes and
// that re-encoding a decoded media envelope reproduces the original payload.
func TestRoundTrip(t *testing.T) {
	audio := bytes.Repeat([]byte{0x55, 0xAA}, 160)

	raw, err := Encode(audio)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	f, err := Decode(raw, false)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(f.Audio, audio) {
		t.Fatal("round trip did not preserve audio")
	}

	again, err := Encode(f.Audio)
	if err != nil {
		t.Fatalf("re-Encode: %v", err)
	}
	if !bytes.Equal(again, raw) {
		t.Error("re-encoding a decoded frame must reproduce the original envelope")
	}
}

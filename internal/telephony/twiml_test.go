package telephony

import (
	"strings"
	"testing"
)

func TestCallSetupDocument(t *testing.T) {
	doc, err := CallSetupDocument("wss://bridge.example.com/audio", "Hello! How can I help?")
	if err != nil {
		t.Fatalf("CallSetupDocument: %v", err)
	}
	s := string(doc)

	if !strings.HasPrefix(s, "<?xml") {
		t.Error("expected XML declaration prefix")
	}
	if !strings.Contains(s, "<Say>Hello! How can I help?</Say>") {
		t.Errorf("missing greeting verb in:\n%s", s)
	}
	if !strings.Contains(s, `<Stream url="wss://bridge.example.com/audio">`) &&
		!strings.Contains(s, `<Stream url="wss://bridge.example.com/audio"/>`) {
		t.Errorf("missing stream noun in:\n%s", s)
	}
	if !strings.Contains(s, "<Connect>") {
		t.Errorf("missing Connect verb in:\n%s", s)
	}
}

func TestCallSetupDocument_NoGreeting(t *testing.T) {
	doc, err := CallSetupDocument("wss://bridge.example.com/audio", "")
	if err != nil {
		t.Fatalf("CallSetupDocument: %v", err)
	}
	if strings.Contains(string(doc), "<Say") {
		t.Error("expected no Say verb when greeting is empty")
	}
}

func TestCallSetupDocument_EmptyURL(t *testing.T) {
	if _, err := CallSetupDocument("", "hi"); err == nil {
		t.Fatal("expected error for empty stream URL")
	}
}

func TestCallSetupDocument_EscapesGreeting(t *testing.T) {
	doc, err := CallSetupDocument("wss://x/audio", `Tom & "Jerry" <speak>`)
	if err != nil {
		t.Fatalf("CallSetupDocument: %v", err)
	}
	s := string(doc)
	if strings.Contains(s, "<speak>") {
		t.Error("greeting must be XML-escaped")
	}
	if !strings.Contains(s, "&amp;") {
		t.Error("expected escaped ampersand")
	}
}

package openai

import (
	"testing"

	"github.com/MrWong99/voxbridge/pkg/provider/llm"
)

// TestNew_EmptyAPIKey checks that an empty API key returns an error.
func TestNew_EmptyAPIKey(t *testing.T) {
	if _, err := New("", "gpt-4o-mini"); err == nil {
		t.Fatal("expected error for empty apiKey")
	}
}

// TestNew_EmptyModel checks that an empty model name returns an error.
func TestNew_EmptyModel(t *testing.T) {
	if _, err := New("sk-test", ""); err == nil {
		t.Fatal("expected error for empty model")
	}
}

// TestNew_Valid checks that a valid constructor call succeeds.
func TestNew_Valid(t *testing.T) {
	p, err := New("sk-test", "gpt-4o-mini")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.model != "gpt-4o-mini" {
		t.Errorf("expected model gpt-4o-mini, got %q", p.model)
	}
}

// TestBuildParams_SystemPromptPrepended checks the system prompt becomes the
// first message.
func TestBuildParams_SystemPromptPrepended(t *testing.T) {
	p, _ := New("sk-test", "gpt-4o-mini")
	params, err := p.buildParams(llm.CompletionRequest{
		SystemPrompt: "You answer phone calls.",
		Messages: []llm.Message{
			{Role: "user", Content: "Hello?"},
		},
	})
	if err != nil {
		t.Fatalf("buildParams: %v", err)
	}
	if len(params.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(params.Messages))
	}
	if params.Messages[0].OfSystem == nil {
		t.Error("expected first message to be the system prompt")
	}
	if params.Messages[1].OfUser == nil {
		t.Error("expected second message to be the user message")
	}
}

// TestBuildParams_TemperatureAndMaxTokens checks the optional tuning fields.
func TestBuildParams_TemperatureAndMaxTokens(t *testing.T) {
	p, _ := New("sk-test", "gpt-4o-mini")
	params, err := p.buildParams(llm.CompletionRequest{
		Messages:    []llm.Message{{Role: "user", Content: "hi"}},
		Temperature: 0.7,
		MaxTokens:   256,
	})
	if err != nil {
		t.Fatalf("buildParams: %v", err)
	}
	if !params.Temperature.Valid() || params.Temperature.Value != 0.7 {
		t.Errorf("expected temperature 0.7, got %+v", params.Temperature)
	}
	if !params.MaxCompletionTokens.Valid() || params.MaxCompletionTokens.Value != 256 {
		t.Errorf("expected max completion tokens 256, got %+v", params.MaxCompletionTokens)
	}
}

// TestBuildParams_ZeroTemperatureOmitted checks that a zero temperature is
// left unset so the provider default applies.
func TestBuildParams_ZeroTemperatureOmitted(t *testing.T) {
	p, _ := New("sk-test", "gpt-4o-mini")
	params, err := p.buildParams(llm.CompletionRequest{
		Messages: []llm.Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("buildParams: %v", err)
	}
	if params.Temperature.Valid() {
		t.Error("expected temperature to be omitted when zero")
	}
	if params.MaxCompletionTokens.Valid() {
		t.Error("expected max tokens to be omitted when zero")
	}
}

// TestBuildParams_UnknownRole checks that an unknown message role is rejected.
func TestBuildParams_UnknownRole(t *testing.T) {
	p, _ := New("sk-test", "gpt-4o-mini")
	_, err := p.buildParams(llm.CompletionRequest{
		Messages: []llm.Message{{Role: "narrator", Content: "meanwhile"}},
	})
	if err == nil {
		t.Fatal("expected error for unknown role")
	}
}

// TestConvertMessage_Roles checks all supported roles convert.
func TestConvertMessage_Roles(t *testing.T) {
	for _, role := range []string{"system", "user", "assistant"} {
		if _, err := convertMessage(llm.Message{Role: role, Content: "x"}); err != nil {
			t.Errorf("role %q: unexpected error: %v", role, err)
		}
	}
}

package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefault_IsValid(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("expected default listen addr, got %q", cfg.Server.ListenAddr)
	}
	if cfg.Providers.LLM.Name != "groq" {
		t.Errorf("expected default llm provider groq, got %q", cfg.Providers.LLM.Name)
	}
}

func TestLoadFromReader_OverridesDefaults(t *testing.T) {
	yaml := `
server:
  listen_addr: ":9090"
  log_level: debug
providers:
  llm:
    name: openai
    model: gpt-4o-mini
pacing:
  chunk_delay_ms: 40
`
	cfg, err := LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Server.ListenAddr != ":9090" {
		t.Errorf("listen_addr not overridden: %q", cfg.Server.ListenAddr)
	}
	if cfg.Providers.LLM.Model != "gpt-4o-mini" {
		t.Errorf("llm model not overridden: %q", cfg.Providers.LLM.Model)
	}
	// Untouched sections keep their defaults.
	if cfg.Providers.STT.Name != "deepgram" {
		t.Errorf("expected default stt provider, got %q", cfg.Providers.STT.Name)
	}
	if cfg.ChunkDelay() != 40*time.Millisecond {
		t.Errorf("expected chunk delay 40ms, got %v", cfg.ChunkDelay())
	}
	if cfg.MaxQuiet() != 3*time.Second {
		t.Errorf("expected default max quiet 3s, got %v", cfg.MaxQuiet())
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	_, err := LoadFromReader(strings.NewReader("server:\n  listne_addr: ':9090'\n"))
	if err == nil {
		t.Fatal("expected error for misspelled field")
	}
}

func TestValidate_CollectsAllFailures(t *testing.T) {
	cfg := Default()
	cfg.Server.LogLevel = "verbose"
	cfg.Providers.LLM.Name = "skynet"
	cfg.Agent.Temperature = 3.5

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{"log_level", "providers.llm.name", "temperature"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in joined error, got: %v", want, err)
		}
	}
}

func TestValidate_ProviderNameCaseInsensitive(t *testing.T) {
	cfg := Default()
	cfg.Providers.LLM.Name = "Groq"
	if err := Validate(cfg); err != nil {
		t.Errorf("expected case-insensitive provider match, got: %v", err)
	}
}

func TestGenerateTimeout(t *testing.T) {
	cfg := Default()
	if cfg.GenerateTimeout() != 30*time.Second {
		t.Errorf("expected 30s, got %v", cfg.GenerateTimeout())
	}
}

func TestCredentialsFromEnv_AllPresent(t *testing.T) {
	t.Setenv("DEEPGRAM_API_KEY", "dg-key")
	t.Setenv("GROQ_API_KEY", "gsk-key")
	t.Setenv("PUBLIC_URL", "https://bridge.example.com")

	creds, err := CredentialsFromEnv(Default())
	if err != nil {
		t.Fatalf("CredentialsFromEnv: %v", err)
	}
	if creds.DeepgramAPIKey != "dg-key" || creds.LLMAPIKey != "gsk-key" || creds.PublicURL != "https://bridge.example.com" {
		t.Errorf("unexpected credentials: %+v", creds)
	}
}

func TestCredentialsFromEnv_MissingIsFatal(t *testing.T) {
	t.Setenv("DEEPGRAM_API_KEY", "")
	t.Setenv("GROQ_API_KEY", "")
	t.Setenv("PUBLIC_URL", "")

	_, err := CredentialsFromEnv(Default())
	if err == nil {
		t.Fatal("expected error when environment is empty")
	}
	// All missing variables are reported together.
	for _, want := range []string{"DEEPGRAM_API_KEY", "GROQ_API_KEY", "PUBLIC_URL"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in error, got: %v", want, err)
		}
	}
}

func TestCredentialsFromEnv_LocalLLMNeedsNoKey(t *testing.T) {
	t.Setenv("DEEPGRAM_API_KEY", "dg-key")
	t.Setenv("PUBLIC_URL", "https://bridge.example.com")
	t.Setenv("GROQ_API_KEY", "")

	cfg := Default()
	cfg.Providers.LLM.Name = "ollama"

	creds, err := CredentialsFromEnv(cfg)
	if err != nil {
		t.Fatalf("expected no key requirement for local provider: %v", err)
	}
	if creds.LLMAPIKey != "" {
		t.Errorf("expected empty LLM key, got %q", creds.LLMAPIKey)
	}
}

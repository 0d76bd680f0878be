// Package config provides the configuration schema and loaders for the
// bridge: tunables come from an optional YAML file, credentials come from the
// process environment and are validated at startup.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// ValidProviderNames lists known provider names per pipeline stage, used by
// [Validate].
var ValidProviderNames = map[string][]string{
	"stt": {"deepgram"},
	"llm": {"groq", "openai", "anthropic", "gemini", "ollama", "deepseek", "mistral", "llamacpp", "llamafile"},
	"tts": {"deepgram"},
}

// llmKeyEnv maps LLM provider names to the environment variable carrying
// their API key. Providers absent from the map (local inference) need none.
var llmKeyEnv = map[string]string{
	"groq":      "GROQ_API_KEY",
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
	"gemini":    "GEMINI_API_KEY",
	"deepseek":  "DEEPSEEK_API_KEY",
	"mistral":   "MISTRAL_API_KEY",
}

// Config is the root configuration structure, typically loaded from a YAML
// file using [Load]. All values have working defaults; a missing file is not
// an error.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Providers ProvidersConfig `yaml:"providers"`
	Agent     AgentConfig     `yaml:"agent"`
	Pacing    PacingConfig    `yaml:"pacing"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// ProvidersConfig selects the upstream service for each pipeline stage.
type ProvidersConfig struct {
	STT ProviderEntry `yaml:"stt"`
	LLM ProviderEntry `yaml:"llm"`
	TTS ProviderEntry `yaml:"tts"`
}

// ProviderEntry is the common configuration block shared by all stages.
type ProviderEntry struct {
	// Name selects the provider implementation (e.g., "deepgram", "groq").
	Name string `yaml:"name"`

	// Model selects a specific model within the provider (e.g.,
	// "nova-2-general", "mixtral-8x7b-32768", "aura-asteria-en").
	Model string `yaml:"model"`

	// BaseURL overrides the provider's default API endpoint.
	BaseURL string `yaml:"base_url"`

	// Language is the recognition language for the STT stage; ignored by the
	// other stages.
	Language string `yaml:"language"`
}

// AgentConfig shapes the conversational behaviour of the agent.
type AgentConfig struct {
	// SystemPrompt is the instruction injected ahead of every conversation.
	SystemPrompt string `yaml:"system_prompt"`

	// Greeting is spoken by the telephony provider when the call connects.
	Greeting string `yaml:"greeting"`

	// Temperature controls reply randomness. Zero uses the model default.
	Temperature float64 `yaml:"temperature"`

	// GenerateTimeoutSeconds bounds one reply-generation call.
	GenerateTimeoutSeconds int `yaml:"generate_timeout_seconds"`
}

// PacingConfig holds the playback pacing heuristics.
type PacingConfig struct {
	// ChunkDelayMS is the minimum gap between outbound audio chunks.
	ChunkDelayMS int `yaml:"chunk_delay_ms"`

	// QuietPerWordMS scales the post-reply quiet period by reply length.
	QuietPerWordMS int `yaml:"quiet_per_word_ms"`

	// MaxQuietMS caps the post-reply quiet period.
	MaxQuietMS int `yaml:"max_quiet_ms"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr: ":8080",
			LogLevel:   LogInfo,
		},
		Providers: ProvidersConfig{
			STT: ProviderEntry{Name: "deepgram", Model: "nova-2-general", Language: "en"},
			LLM: ProviderEntry{Name: "groq", Model: "mixtral-8x7b-32768"},
			TTS: ProviderEntry{Name: "deepgram", Model: "aura-asteria-en"},
		},
		Agent: AgentConfig{
			SystemPrompt:           "You are a helpful phone assistant. Keep your answers short and conversational; they will be read aloud.",
			Greeting:               "Hello! How can I help you today?",
			Temperature:            0.7,
			GenerateTimeoutSeconds: 30,
		},
		Pacing: PacingConfig{
			ChunkDelayMS:   20,
			QuietPerWordMS: 150,
			MaxQuietMS:     3000,
		},
	}
}

// Load reads the YAML configuration file at path, layered over [Default], and
// returns a validated [Config]. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r over the defaults and validates
// the result. Useful in tests where configs are constructed from string
// literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.ListenAddr == "" {
		errs = append(errs, errors.New("server.listen_addr is required"))
	}
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	validateProviderName(&errs, "stt", cfg.Providers.STT.Name)
	validateProviderName(&errs, "llm", cfg.Providers.LLM.Name)
	validateProviderName(&errs, "tts", cfg.Providers.TTS.Name)

	if cfg.Agent.GenerateTimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("agent.generate_timeout_seconds %d must not be negative", cfg.Agent.GenerateTimeoutSeconds))
	}
	if cfg.Agent.Temperature < 0 || cfg.Agent.Temperature > 2 {
		errs = append(errs, fmt.Errorf("agent.temperature %.2f is out of range [0, 2]", cfg.Agent.Temperature))
	}
	if cfg.Pacing.ChunkDelayMS < 0 || cfg.Pacing.QuietPerWordMS < 0 || cfg.Pacing.MaxQuietMS < 0 {
		errs = append(errs, errors.New("pacing values must not be negative"))
	}

	return errors.Join(errs...)
}

func validateProviderName(errs *[]error, kind, name string) {
	if name == "" {
		*errs = append(*errs, fmt.Errorf("providers.%s.name is required", kind))
		return
	}
	valid := ValidProviderNames[kind]
	for _, v := range valid {
		if strings.EqualFold(name, v) {
			return
		}
	}
	*errs = append(*errs, fmt.Errorf("providers.%s.name %q is unknown; valid values: %s",
		kind, name, strings.Join(valid, ", ")))
}

// GenerateTimeout returns the reply-generation bound as a duration.
func (c *Config) GenerateTimeout() time.Duration {
	return time.Duration(c.Agent.GenerateTimeoutSeconds) * time.Second
}

// ChunkDelay returns the pacing gap as a duration.
func (c *Config) ChunkDelay() time.Duration {
	return time.Duration(c.Pacing.ChunkDelayMS) * time.Millisecond
}

// QuietPerWord returns the per-word quiet scaling as a duration.
func (c *Config) QuietPerWord() time.Duration {
	return time.Duration(c.Pacing.QuietPerWordMS) * time.Millisecond
}

// MaxQuiet returns the quiet-period cap as a duration.
func (c *Config) MaxQuiet() time.Duration {
	return time.Duration(c.Pacing.MaxQuietMS) * time.Millisecond
}

// Credentials holds the secrets and addresses supplied via the environment.
type Credentials struct {
	// DeepgramAPIKey authenticates both the transcription stream and the
	// synthesis calls.
	DeepgramAPIKey string

	// LLMAPIKey authenticates the reply-generation provider. Empty for local
	// inference providers.
	LLMAPIKey string

	// PublicURL is the externally reachable base URL of this process, used
	// to build the media-stream address handed to the telephony provider.
	PublicURL string
}

// CredentialsFromEnv reads the credentials for the configured providers.
// Missing required values are a fatal startup condition; all missing values
// are reported together.
func CredentialsFromEnv(cfg *Config) (*Credentials, error) {
	var errs []error
	creds := &Credentials{}

	creds.DeepgramAPIKey = os.Getenv("DEEPGRAM_API_KEY")
	if creds.DeepgramAPIKey == "" {
		errs = append(errs, errors.New("DEEPGRAM_API_KEY is not set"))
	}

	creds.PublicURL = os.Getenv("PUBLIC_URL")
	if creds.PublicURL == "" {
		errs = append(errs, errors.New("PUBLIC_URL is not set"))
	}

	if envVar, ok := llmKeyEnv[strings.ToLower(cfg.Providers.LLM.Name)]; ok {
		creds.LLMAPIKey = os.Getenv(envVar)
		if creds.LLMAPIKey == "" {
			errs = append(errs, fmt.Errorf("%s is not set (required for llm provider %q)", envVar, cfg.Providers.LLM.Name))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("config: missing required environment: %w", err)
	}
	return creds, nil
}

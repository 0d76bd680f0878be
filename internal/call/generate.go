package call

import (
	"context"
	"log/slog"
	"time"

	"github.com/MrWong99/voxbridge/internal/resilience"
	"github.com/MrWong99/voxbridge/pkg/provider/llm"
)

// FallbackReply is spoken when reply generation fails or times out. The call
// must never be left silent because the generator was unavailable.
const FallbackReply = "Sorry, I encountered an error."

const defaultGenerateTimeout = 30 * time.Second

// Generator wraps an llm.Provider with the fail-open policy: every call
// returns usable reply text, falling back to FallbackReply on error, timeout,
// or panic.
type Generator struct {
	provider     llm.Provider
	log          *slog.Logger
	systemPrompt string
	temperature  float64
	timeout      time.Duration
}

// GeneratorConfig configures a Generator. Zero Timeout selects the 30 s
// default.
type GeneratorConfig struct {
	SystemPrompt string
	Temperature  float64
	Timeout      time.Duration
}

// NewGenerator creates a Generator around provider.
func NewGenerator(provider llm.Provider, log *slog.Logger, cfg GeneratorConfig) *Generator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultGenerateTimeout
	}
	return &Generator{
		provider:     provider,
		log:          log,
		systemPrompt: cfg.SystemPrompt,
		temperature:  cfg.Temperature,
		timeout:      cfg.Timeout,
	}
}

// Reply produces the reply for the given conversation so far. The second
// return value reports whether the fallback was used.
func (g *Generator) Reply(ctx context.Context, history []llm.Message) (string, bool) {
	return resilience.Degrade(ctx, g.log, "generate", g.timeout, FallbackReply,
		func(ctx context.Context) (string, error) {
			resp, err := g.provider.Complete(ctx, llm.CompletionRequest{
				Messages:     history,
				SystemPrompt: g.systemPrompt,
				Temperature:  g.temperature,
			})
			if err != nil {
				return "", err
			}
			return resp.Content, nil
		})
}

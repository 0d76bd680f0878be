// Command voxbridge is the main entry point for the voxbridge telephony
// voice-agent server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/voxbridge/internal/call"
	"github.com/MrWong99/voxbridge/internal/config"
	"github.com/MrWong99/voxbridge/internal/health"
	"github.com/MrWong99/voxbridge/internal/observe"
	"github.com/MrWong99/voxbridge/internal/telephony"
	"github.com/MrWong99/voxbridge/pkg/provider/llm"
	"github.com/MrWong99/voxbridge/pkg/provider/llm/anyllm"
	oaillm "github.com/MrWong99/voxbridge/pkg/provider/llm/openai"
	"github.com/MrWong99/voxbridge/pkg/provider/stt"
	sttdeepgram "github.com/MrWong99/voxbridge/pkg/provider/stt/deepgram"
	"github.com/MrWong99/voxbridge/pkg/provider/tts"
	ttsdeepgram "github.com/MrWong99/voxbridge/pkg/provider/tts/deepgram"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "", "path to the YAML configuration file (optional)")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "voxbridge: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "voxbridge: %v\n", err)
		}
		return 1
	}

	creds, err := config.CredentialsFromEnv(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "voxbridge: %v\n", err)
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("voxbridge starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "voxbridge",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	// ── Instantiate providers ─────────────────────────────────────────────────
	sttProv, err := buildSTT(cfg.Providers.STT, creds)
	if err != nil {
		slog.Error("failed to create stt provider", "name", cfg.Providers.STT.Name, "err", err)
		return 1
	}
	llmProv, err := buildLLM(cfg.Providers.LLM, creds)
	if err != nil {
		slog.Error("failed to create llm provider", "name", cfg.Providers.LLM.Name, "err", err)
		return 1
	}
	ttsProv, err := buildTTS(cfg.Providers.TTS, creds)
	if err != nil {
		slog.Error("failed to create tts provider", "name", cfg.Providers.TTS.Name, "err", err)
		return 1
	}

	// ── Call pipeline ─────────────────────────────────────────────────────────
	callCfg := call.Config{
		STT: sttProv,
		TTS: ttsProv,
		Generator: call.NewGenerator(llmProv, logger, call.GeneratorConfig{
			SystemPrompt: cfg.Agent.SystemPrompt,
			Temperature:  cfg.Agent.Temperature,
			Timeout:      cfg.GenerateTimeout(),
		}),
		Pacer:    call.NewPacer(cfg.ChunkDelay(), cfg.QuietPerWord(), cfg.MaxQuiet()),
		Language: cfg.Providers.STT.Language,
		STTName:  cfg.Providers.STT.Name,
		LLMName:  cfg.Providers.LLM.Name,
		TTSName:  cfg.Providers.TTS.Name,
		Logger:   logger,
		Metrics:  metrics,
	}

	// ── HTTP routes ───────────────────────────────────────────────────────────
	const streamPath = "/audio"

	voice, err := telephony.NewVoiceHandler(creds.PublicURL, streamPath, cfg.Agent.Greeting, logger)
	if err != nil {
		slog.Error("failed to build voice webhook", "public_url", creds.PublicURL, "err", err)
		return 1
	}

	mux := http.NewServeMux()
	mux.Handle("POST /twilio/voice", voice)
	mux.Handle(streamPath, telephony.NewStreamHandler(callCfg, logger, metrics))
	mux.Handle("GET /metrics", promhttp.Handler())
	health.New(
		health.Reachable("deepgram", "https://api.deepgram.com"),
	).Register(mux)

	handler := observe.Middleware(metrics)(telephony.CORS(mux))

	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	printStartupSummary(cfg, creds.PublicURL)

	// ── Serve until signalled ─────────────────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("server ready — press Ctrl+C to shut down", "addr", cfg.Server.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on %s: %w", cfg.Server.ListenAddr, err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received, stopping…")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

func buildSTT(entry config.ProviderEntry, creds *config.Credentials) (stt.Provider, error) {
	switch entry.Name {
	case "deepgram":
		var opts []sttdeepgram.Option
		if entry.Model != "" {
			opts = append(opts, sttdeepgram.WithModel(entry.Model))
		}
		if entry.Language != "" {
			opts = append(opts, sttdeepgram.WithLanguage(entry.Language))
		}
		return sttdeepgram.New(creds.DeepgramAPIKey, opts...)
	default:
		return nil, fmt.Errorf("unknown stt provider %q", entry.Name)
	}
}

func buildLLM(entry config.ProviderEntry, creds *config.Credentials) (llm.Provider, error) {
	switch entry.Name {
	case "openai":
		var opts []oaillm.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaillm.WithBaseURL(entry.BaseURL))
		}
		return oaillm.New(creds.LLMAPIKey, entry.Model, opts...)
	case "groq", "anthropic", "gemini", "deepseek", "mistral", "ollama", "llamacpp", "llamafile":
		var opts []anyllmlib.Option
		if creds.LLMAPIKey != "" {
			opts = append(opts, anyllmlib.WithAPIKey(creds.LLMAPIKey))
		}
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.New(entry.Name, entry.Model, opts...)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", entry.Name)
	}
}

func buildTTS(entry config.ProviderEntry, creds *config.Credentials) (tts.Provider, error) {
	switch entry.Name {
	case "deepgram":
		var opts []ttsdeepgram.Option
		if entry.Model != "" {
			opts = append(opts, ttsdeepgram.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, ttsdeepgram.WithBaseURL(entry.BaseURL))
		}
		return ttsdeepgram.New(creds.DeepgramAPIKey, opts...)
	default:
		return nil, fmt.Errorf("unknown tts provider %q", entry.Name)
	}
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config, publicURL string) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║        voxbridge — startup summary    ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("STT", cfg.Providers.STT.Name, cfg.Providers.STT.Model)
	printProvider("LLM", cfg.Providers.LLM.Name, cfg.Providers.LLM.Model)
	printProvider("TTS", cfg.Providers.TTS.Name, cfg.Providers.TTS.Model)
	printValue("Public URL", publicURL)
	printValue("Listen addr", cfg.Server.ListenAddr)
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	printValue(kind, value)
}

func printValue(label, value string) {
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-12s : %-20s ║\n", label, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

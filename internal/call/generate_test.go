package call

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/MrWong99/voxbridge/pkg/provider/llm"
	llmmock "github.com/MrWong99/voxbridge/pkg/provider/llm/mock"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestGenerator_Success(t *testing.T) {
	prov := &llmmock.Provider{Response: &llm.CompletionResponse{Content: "It's 3 PM."}}
	g := NewGenerator(prov, testLogger(), GeneratorConfig{
		SystemPrompt: "You answer phone calls.",
		Temperature:  0.7,
	})

	reply, degraded := g.Reply(context.Background(), []llm.Message{
		{Role: "user", Content: "what time is it"},
	})
	if degraded {
		t.Error("expected degraded=false")
	}
	if reply != "It's 3 PM." {
		t.Errorf("expected reply passthrough, got %q", reply)
	}

	req := prov.CompleteCalls[0].Req
	if req.SystemPrompt != "You answer phone calls." {
		t.Errorf("system prompt not forwarded: %q", req.SystemPrompt)
	}
	if req.Temperature != 0.7 {
		t.Errorf("temperature not forwarded: %f", req.Temperature)
	}
}

func TestGenerator_UpstreamErrorYieldsFallback(t *testing.T) {
	prov := &llmmock.Provider{Err: errors.New("502 bad gateway")}
	g := NewGenerator(prov, testLogger(), GeneratorConfig{})

	reply, degraded := g.Reply(context.Background(), []llm.Message{{Role: "user", Content: "hi"}})
	if !degraded {
		t.Error("expected degraded=true")
	}
	if reply != FallbackReply {
		t.Errorf("expected exactly the fallback string, got %q", reply)
	}
}

func TestGenerator_TimeoutYieldsFallback(t *testing.T) {
	prov := &llmmock.Provider{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			select {
			case <-time.After(10 * time.Second):
				return &llm.CompletionResponse{Content: "too late"}, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
	}
	g := NewGenerator(prov, testLogger(), GeneratorConfig{Timeout: 20 * time.Millisecond})

	start := time.Now()
	reply, degraded := g.Reply(context.Background(), []llm.Message{{Role: "user", Content: "hi"}})
	if !degraded {
		t.Error("expected degraded=true on timeout")
	}
	if reply != FallbackReply {
		t.Errorf("expected fallback, got %q", reply)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("timeout not enforced, took %v", elapsed)
	}
}

func TestGenerator_PanicYieldsFallback(t *testing.T) {
	prov := &llmmock.Provider{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			panic("provider bug")
		},
	}
	g := NewGenerator(prov, testLogger(), GeneratorConfig{})

	reply, degraded := g.Reply(context.Background(), []llm.Message{{Role: "user", Content: "hi"}})
	if !degraded || reply != FallbackReply {
		t.Errorf("expected degraded fallback, got %q (degraded=%v)", reply, degraded)
	}
}

func TestGenerator_DefaultTimeoutApplied(t *testing.T) {
	g := NewGenerator(&llmmock.Provider{}, testLogger(), GeneratorConfig{})
	if g.timeout != defaultGenerateTimeout {
		t.Errorf("expected default timeout %v, got %v", defaultGenerateTimeout, g.timeout)
	}
}

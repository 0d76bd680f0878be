package deepgram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

// newTestProvider points a provider at the given test server.
func newTestProvider(t *testing.T, srv *httptest.Server, opts ...Option) *Provider {
	t.Helper()
	opts = append([]Option{WithBaseURL(srv.URL)}, opts...)
	p, err := New("test-key", opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

// drain collects all chunks from the audio channel into one slice.
func drain(t *testing.T, ch <-chan []byte) []byte {
	t.Helper()
	var all []byte
	for {
		select {
		case chunk, ok := <-ch:
			if !ok {
				return all
			}
			all = append(all, chunk...)
		case <-time.After(5 * time.Second):
			t.Fatal("timed out draining audio channel")
		}
	}
}

func TestNew_EmptyAPIKey(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty apiKey")
	}
}

func TestSynthesize_EmptyText(t *testing.T) {
	p, err := New("key")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Synthesize(context.Background(), "  \t "); err == nil {
		t.Fatal("expected error for whitespace-only text")
	}
}

func TestSynthesize_StreamsAudio(t *testing.T) {
	payload := []byte{0xFF, 0x7F, 0x00, 0x80, 0xFF, 0xFF}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Token test-key" {
			t.Errorf("unexpected Authorization header: %q", got)
		}
		var body speakRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		if body.Text != "Hello caller" {
			t.Errorf("expected text %q, got %q", "Hello caller", body.Text)
		}
		w.Write(payload)
	}))
	defer srv.Close()

	p := newTestProvider(t, srv)
	ch, err := p.Synthesize(context.Background(), "Hello caller")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	got := drain(t, ch)
	if string(got) != string(payload) {
		t.Errorf("expected %v, got %v", payload, got)
	}
}

func TestSynthesize_QueryParams_MulawDefault(t *testing.T) {
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Write([]byte{0xFF})
	}))
	defer srv.Close()

	p := newTestProvider(t, srv)
	ch, err := p.Synthesize(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	drain(t, ch)

	if got := gotQuery.Get("model"); got != defaultModel {
		t.Errorf("model: want %q, got %q", defaultModel, got)
	}
	if got := gotQuery.Get("encoding"); got != "mulaw" {
		t.Errorf("encoding: want mulaw, got %q", got)
	}
	if got := gotQuery.Get("sample_rate"); got != "8000" {
		t.Errorf("sample_rate: want 8000, got %q", got)
	}
	if got := gotQuery.Get("container"); got != "none" {
		t.Errorf("container: want none, got %q", got)
	}
}

func TestSynthesize_QueryParams_Linear16(t *testing.T) {
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		// Two linear16 samples at 16 kHz.
		w.Write([]byte{0x00, 0x00, 0x00, 0x00})
	}))
	defer srv.Close()

	p := newTestProvider(t, srv, WithLinear16(16000))
	ch, err := p.Synthesize(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	got := drain(t, ch)

	if q := gotQuery.Get("encoding"); q != "linear16" {
		t.Errorf("encoding: want linear16, got %q", q)
	}
	if q := gotQuery.Get("sample_rate"); q != "16000" {
		t.Errorf("sample_rate: want 16000, got %q", q)
	}
	// 2 samples at 16 kHz downsample to 1 mu-law byte at 8 kHz.
	if len(got) != 1 {
		t.Fatalf("expected 1 transcoded byte, got %d", len(got))
	}
	if got[0] != 0xFF {
		t.Errorf("expected mu-law silence 0xFF, got 0x%02X", got[0])
	}
}

func TestSynthesize_CustomModel(t *testing.T) {
	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotModel = r.URL.Query().Get("model")
		w.Write([]byte{0xFF})
	}))
	defer srv.Close()

	p := newTestProvider(t, srv, WithModel("aura-2-thalia-en"))
	ch, err := p.Synthesize(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	drain(t, ch)

	if gotModel != "aura-2-thalia-en" {
		t.Errorf("model: want aura-2-thalia-en, got %q", gotModel)
	}
}

func TestSynthesize_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"err_msg":"invalid credentials"}`))
	}))
	defer srv.Close()

	p := newTestProvider(t, srv)
	_, err := p.Synthesize(context.Background(), "hi")
	if err == nil {
		t.Fatal("expected error for non-200 response")
	}
	if !strings.Contains(err.Error(), "403") {
		t.Errorf("expected status code in error, got: %v", err)
	}
	if !strings.Contains(err.Error(), "invalid credentials") {
		t.Errorf("expected upstream detail in error, got: %v", err)
	}
}

func TestSynthesize_ContextCancelStopsStream(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte{0xFF})
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-block
	}))
	defer srv.Close()
	defer close(block)

	ctx, cancel := context.WithCancel(context.Background())
	p := newTestProvider(t, srv)
	ch, err := p.Synthesize(ctx, "hi")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	cancel()
	// The channel must close once the cancelled request aborts the body read.
	deadline := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("audio channel did not close after cancellation")
		}
	}
}

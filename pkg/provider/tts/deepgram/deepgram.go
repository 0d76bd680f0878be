// Package deepgram provides a Deepgram Speak-backed TTS provider. It
// implements the tts.Provider interface.
//
// Synthesis is a single POST per utterance; the response body is streamed, so
// audio chunks reach the caller while the engine is still rendering the tail
// of the utterance. By default the provider requests mu-law 8 kHz mono with no
// container, which is playable on a telephony leg as-is. WithLinear16 switches
// the upstream request to raw PCM at a higher sample rate and transcodes down
// to mu-law 8 kHz locally, for Speak models that render poorly at 8 kHz.
package deepgram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/MrWong99/voxbridge/pkg/audio"
	"github.com/MrWong99/voxbridge/pkg/provider/tts"
)

// Compile-time interface assertion.
var _ tts.Provider = (*Provider)(nil)

const (
	defaultBaseURL = "https://api.deepgram.com"
	speakEndpoint  = "/v1/speak"
	defaultModel   = "aura-asteria-en"
	defaultTimeout = 30 * time.Second

	// audioChanBuf is the buffer depth of the returned audio channel.
	audioChanBuf = 64

	// chunkSize is the read size used when streaming the response body.
	// 4096 mu-law bytes is roughly half a second of telephony audio.
	chunkSize = 4096

	telephonyRate = 8000
)

// Option is a functional option for configuring a Deepgram Provider.
type Option func(*Provider)

// WithModel sets the Speak voice model (e.g., "aura-asteria-en", "aura-2-thalia-en").
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithBaseURL overrides the default Deepgram API base URL.
func WithBaseURL(baseURL string) Option {
	return func(p *Provider) {
		p.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithTimeout sets the per-request HTTP timeout. The timeout covers the whole
// request including streaming the response body. Defaults to 30 s.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.httpClient.Timeout = d
	}
}

// WithLinear16 requests linear16 PCM at the given sample rate from the engine
// and transcodes it to mu-law 8 kHz locally. sampleRate must be one the Speak
// API supports (e.g., 16000, 24000).
func WithLinear16(sampleRate int) Option {
	return func(p *Provider) {
		p.linear16Rate = sampleRate
	}
}

// Provider implements tts.Provider backed by the Deepgram Speak REST API.
// It is safe for concurrent use; multiple Synthesize calls may run in parallel.
type Provider struct {
	apiKey       string
	baseURL      string
	model        string
	linear16Rate int // 0 = request mu-law directly
	httpClient   *http.Client
}

// New creates a new Deepgram Speak Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("deepgram: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		model:   defaultModel,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// speakRequest is the JSON body sent to POST /v1/speak.
type speakRequest struct {
	Text string `json:"text"`
}

// Synthesize implements tts.Provider. The POST is issued synchronously so
// upstream rejections (bad key, bad model) surface as an error; only body
// streaming happens on the returned channel.
func (p *Provider) Synthesize(ctx context.Context, text string) (<-chan []byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("deepgram: text must not be empty")
	}

	body, err := json.Marshal(speakRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("deepgram: marshal speak request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.speakURL(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("deepgram: create speak request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("deepgram: POST %s: %w", speakEndpoint, err)
	}

	if resp.StatusCode != http.StatusOK {
		// Error details are JSON; keep a bounded excerpt for the message.
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("deepgram: POST %s returned status %d: %s",
			speakEndpoint, resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	audioCh := make(chan []byte, audioChanBuf)
	go p.streamBody(ctx, resp.Body, audioCh)
	return audioCh, nil
}

// streamBody reads the response body in fixed-size chunks, transcodes when the
// upstream format is linear16, and emits mu-law chunks until EOF, a read
// error, or ctx cancellation. It owns closing both the body and the channel.
func (p *Provider) streamBody(ctx context.Context, body io.ReadCloser, out chan<- []byte) {
	defer close(out)
	defer body.Close()

	var tc *audio.Transcoder
	if p.linear16Rate > 0 {
		tc = audio.NewTranscoder(p.linear16Rate)
	}

	buf := make([]byte, chunkSize)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			if tc != nil {
				chunk = tc.Transcode(chunk)
			}
			if len(chunk) > 0 {
				select {
				case out <- chunk:
				case <-ctx.Done():
					return
				}
			}
		}
		if err != nil {
			// io.EOF is the normal end of the utterance. Anything else ends
			// the stream early; the caller sees a closed channel either way.
			return
		}
	}
}

// speakURL builds the Speak endpoint URL with the configured model and the
// audio format parameters.
func (p *Provider) speakURL() string {
	q := url.Values{}
	q.Set("model", p.model)
	q.Set("container", "none")
	if p.linear16Rate > 0 {
		q.Set("encoding", "linear16")
		q.Set("sample_rate", strconv.Itoa(p.linear16Rate))
	} else {
		q.Set("encoding", "mulaw")
		q.Set("sample_rate", strconv.Itoa(telephonyRate))
	}
	return p.baseURL + speakEndpoint + "?" + q.Encode()
}

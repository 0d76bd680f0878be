// Package call implements the per-call session pipeline: inbound audio frames
// flow into a streaming transcription session, finalized transcripts trigger
// reply generation, replies are synthesized to audio, and the audio is paced
// back out over the telephony leg — all while frames keep arriving.
//
// Each call is owned by exactly one Session. The Session's event loop is the
// single owner of all turn state; transcription events, inbound audio, and
// turn completion are all bridged onto that loop through channels, so no
// locks guard the turn-taking itself.
package call

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/MrWong99/voxbridge/internal/observe"
	"github.com/MrWong99/voxbridge/internal/resilience"
	"github.com/MrWong99/voxbridge/pkg/provider/llm"
	"github.com/MrWong99/voxbridge/pkg/provider/stt"
	"github.com/MrWong99/voxbridge/pkg/provider/tts"
	"github.com/MrWong99/voxbridge/pkg/types"
)

// State is the call session's turn state.
type State int32

const (
	// StateConnecting means the session exists but the transcription stream
	// is not open yet.
	StateConnecting State = iota
	// StateListening means inbound audio is being forwarded and no turn is
	// in flight.
	StateListening
	// StateGenerating means a reply is being generated for a final transcript.
	StateGenerating
	// StateSynthesizing means the reply text is being rendered to audio.
	StateSynthesizing
	// StatePlaying means synthesized audio is being paced out to the caller.
	StatePlaying
	// StateClosed is terminal; all session resources are released.
	StateClosed
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateListening:
		return "listening"
	case StateGenerating:
		return "generating"
	case StateSynthesizing:
		return "synthesizing"
	case StatePlaying:
		return "playing"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Leg is the outbound half of the telephony connection. The media-stream
// handler implements it by wrapping audio in the wire envelope and writing it
// to the WebSocket.
type Leg interface {
	// WriteAudio sends one chunk of encoded audio to the caller.
	WriteAudio(ctx context.Context, audio []byte) error
}

// Config wires a Session's collaborators. STT, TTS, and Generator are
// required. Nil Pacer, Logger, and Metrics select defaults.
type Config struct {
	STT       stt.Provider
	TTS       tts.Provider
	Generator *Generator
	Pacer     *Pacer

	// Language is the recognition language hint, e.g. "en".
	Language string

	// STTName, LLMName, and TTSName label provider metrics with the
	// configured backend names. Empty values fall back to the stage name.
	STTName string
	LLMName string
	TTSName string

	Logger  *slog.Logger
	Metrics *observe.Metrics
}

// audioInBuf bounds inbound frame buffering between the leg's read loop and
// the session loop. Frames are ~20 ms each; when the buffer is full the
// oldest unprocessed audio is already stale, so new frames are dropped.
const audioInBuf = 64

// Session is one live call's pipeline. Create with New, drive with Start,
// feed with HandleAudio, and end with Stop. All methods are safe for
// concurrent use.
type Session struct {
	id  uuid.UUID
	log *slog.Logger

	leg       Leg
	sttProv   stt.Provider
	ttsProv   tts.Provider
	generator *Generator
	pacer     *Pacer
	language  string
	metrics   *observe.Metrics

	sttName string
	llmName string
	ttsName string

	handle stt.SessionHandle

	audioIn  chan []byte
	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	state atomic.Int32

	// history is the conversation so far. Only the active turn goroutine
	// touches it, and turns are strictly serialized.
	history []llm.Message
}

// New creates a Session for one call over leg.
func New(cfg Config, leg Leg) (*Session, error) {
	if cfg.STT == nil || cfg.TTS == nil || cfg.Generator == nil {
		return nil, errors.New("call: STT, TTS, and Generator are required")
	}
	if leg == nil {
		return nil, errors.New("call: leg must not be nil")
	}
	if cfg.Pacer == nil {
		cfg.Pacer = NewPacer(0, 0, 0)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}
	if cfg.STTName == "" {
		cfg.STTName = "stt"
	}
	if cfg.LLMName == "" {
		cfg.LLMName = "llm"
	}
	if cfg.TTSName == "" {
		cfg.TTSName = "tts"
	}

	id := uuid.New()
	return &Session{
		id:        id,
		log:       cfg.Logger.With("call_id", id.String()),
		leg:       leg,
		sttProv:   cfg.STT,
		ttsProv:   cfg.TTS,
		generator: cfg.Generator,
		pacer:     cfg.Pacer,
		language:  cfg.Language,
		metrics:   cfg.Metrics,
		sttName:   cfg.STTName,
		llmName:   cfg.LLMName,
		ttsName:   cfg.TTSName,
		audioIn:   make(chan []byte, audioInBuf),
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
	}, nil
}

// ID returns the session identifier.
func (s *Session) ID() uuid.UUID { return s.id }

// State returns the current turn state.
func (s *Session) State() State { return State(s.state.Load()) }

func (s *Session) setState(st State) { s.state.Store(int32(st)) }

// Done is closed once the session has fully torn down.
func (s *Session) Done() <-chan struct{} { return s.done }

// Start opens the transcription stream and launches the session loop. The
// stream start is fire-and-forget: the session is listening as soon as the
// connection is up, accepting that the engine may drop the first frames.
// ctx bounds the whole call; cancelling it tears the session down.
func (s *Session) Start(ctx context.Context) error {
	handle, err := s.sttProv.StartStream(ctx, stt.StreamConfig{
		Format:   types.TelephonyFormat,
		Language: s.language,
	})
	if err != nil {
		s.setState(StateClosed)
		close(s.done)
		return fmt.Errorf("call: open transcription stream: %w", err)
	}
	s.handle = handle
	s.setState(StateListening)
	s.log.Info("call session started")

	go s.run(ctx)
	return nil
}

// HandleAudio queues one inbound media frame's audio for the transcription
// engine. Frames arriving faster than the session can forward them are
// dropped; returns an error only after the session has closed.
func (s *Session) HandleAudio(audio []byte) error {
	select {
	case <-s.done:
		return errors.New("call: session is closed")
	default:
	}
	select {
	case s.audioIn <- audio:
	default:
		s.log.Debug("inbound audio buffer full, dropping frame")
	}
	return nil
}

// Stop signals the session to tear down: a control-stop frame arrived or the
// leg disconnected. In-flight turn work is cancelled. Safe to call multiple
// times; teardown itself happens exactly once, on the session loop.
func (s *Session) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// turnResult is delivered to the session loop when a turn goroutine finishes.
type turnResult struct {
	outcome string // "ok", "degraded", "cancelled"
}

// run is the session's event loop and the single owner of turn state. It
// serializes everything: audio forwarding, transcript handling, turn
// completion, and teardown.
func (s *Session) run(ctx context.Context) {
	defer s.teardown()

	go s.forwardAudio()

	finals := s.handle.Finals()
	engineErrs := s.handle.Errors()

	var (
		// pending queues at most one transcript that arrived mid-turn; a
		// newer one replaces it. Processed when the active turn completes.
		pending *string

		// turnDone is non-nil exactly while a turn is in flight.
		turnDone   chan turnResult
		turnCancel context.CancelFunc
	)

	startTurn := func(text string) {
		turnCtx, cancel := context.WithCancel(ctx)
		done := make(chan turnResult, 1)
		turnDone, turnCancel = done, cancel
		go func() {
			defer cancel()
			done <- s.runTurn(turnCtx, text)
		}()
	}

	for {
		select {
		case <-ctx.Done():
			if turnCancel != nil {
				turnCancel()
				<-turnDone
			}
			return

		case <-s.stopCh:
			s.log.Info("stop received, closing call session")
			if turnCancel != nil {
				turnCancel()
				<-turnDone
			}
			return

		case tr, ok := <-finals:
			if !ok {
				// Transcription ended on its own. Keep the call alive; the
				// caller can still hear any in-flight reply, and teardown
				// comes from stop/disconnect.
				finals = nil
				continue
			}
			s.log.Info("final transcript", "text", tr.Text, "confidence", tr.Confidence)
			if turnDone != nil {
				// Mid-turn transcript: queue one, newest wins.
				text := tr.Text
				pending = &text
				continue
			}
			startTurn(tr.Text)

		case err, ok := <-engineErrs:
			if !ok {
				engineErrs = nil
				continue
			}
			s.log.Warn("transcription engine error", "error", err)
			s.metrics.RecordProviderError(ctx, s.sttName, "stt")

		case res := <-turnDone:
			turnDone, turnCancel = nil, nil
			s.setState(StateListening)
			s.metrics.RecordTurn(ctx, res.outcome)
			if pending != nil {
				text := *pending
				pending = nil
				startTurn(text)
			}
		}
	}
}

// forwardAudio pumps inbound frames to the transcription engine off the
// event loop, so a stalled engine write can never wedge turn handling or
// teardown. Teardown's handle.Close unblocks any in-flight SendAudio, and
// this goroutine exits as soon as the session is closed.
func (s *Session) forwardAudio() {
	for {
		select {
		case <-s.done:
			return
		case audio := <-s.audioIn:
			if err := s.handle.SendAudio(audio); err != nil {
				select {
				case <-s.done:
					return
				default:
					s.log.Warn("forward audio to transcription failed", "error", err)
				}
			}
		}
	}
}

// runTurn executes one generate → synthesize → play cycle. Failures degrade
// (fallback reply, or nothing to play) and a panic anywhere in the turn is
// contained as "this turn produced nothing to play".
func (s *Session) runTurn(ctx context.Context, text string) (res turnResult) {
	start := time.Now()
	res = turnResult{outcome: "ok"}

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("turn panicked, nothing to play", "panic", r)
			res = turnResult{outcome: "degraded"}
		}
		s.metrics.TurnDuration.Record(ctx, time.Since(start).Seconds())
	}()

	// Generate.
	s.setState(StateGenerating)
	s.history = append(s.history, llm.Message{Role: "user", Content: text})
	genStart := time.Now()
	reply, degraded := s.generator.Reply(ctx, s.history)
	s.metrics.LLMDuration.Record(ctx, time.Since(genStart).Seconds())
	genStatus := "ok"
	if degraded {
		res.outcome = "degraded"
		genStatus = "error"
		s.metrics.RecordProviderError(ctx, s.llmName, "llm")
	}
	s.metrics.RecordProviderRequest(ctx, s.llmName, "llm", genStatus)
	s.history = append(s.history, llm.Message{Role: "assistant", Content: reply})

	// Synthesize. A failed start yields a nil channel, i.e. nothing to play.
	s.setState(StateSynthesizing)
	synthStart := time.Now()
	chunks, synthDegraded := resilience.Degrade[<-chan []byte](ctx, s.log, "synthesize", 0, nil,
		func(ctx context.Context) (<-chan []byte, error) {
			return s.ttsProv.Synthesize(ctx, reply)
		})
	synthStatus := "ok"
	if synthDegraded {
		res.outcome = "degraded"
		synthStatus = "error"
		s.metrics.RecordProviderError(ctx, s.ttsName, "tts")
	}
	s.metrics.RecordProviderRequest(ctx, s.ttsName, "tts", synthStatus)

	// Play.
	s.setState(StatePlaying)
	if chunks != nil {
		sent, err := s.pacer.Play(ctx, chunks, s.sendChunk)
		s.metrics.TTSDuration.Record(ctx, time.Since(synthStart).Seconds())
		if err != nil {
			if ctx.Err() != nil {
				res.outcome = "cancelled"
				return res
			}
			s.log.Warn("playback ended early", "sent", sent, "error", err)
			res.outcome = "degraded"
		}
	}

	// Hold the line briefly so the tail of the reply plays out before the
	// next utterance is accepted.
	if err := s.pacer.Quiet(ctx, reply); err != nil {
		res.outcome = "cancelled"
	}
	return res
}

// sendChunk encodes and writes one synthesized chunk to the telephony leg.
func (s *Session) sendChunk(ctx context.Context, audio []byte) error {
	return s.leg.WriteAudio(ctx, audio)
}

// teardown releases the transcription stream exactly once and marks the
// session closed. Runs on the session loop as its final act.
func (s *Session) teardown() {
	s.setState(StateClosed)
	if err := s.handle.Close(); err != nil {
		s.log.Warn("close transcription stream", "error", err)
	}
	close(s.done)
	s.log.Info("call session closed")
}

package telephony

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/coder/websocket"

	"github.com/MrWong99/voxbridge/internal/call"
	"github.com/MrWong99/voxbridge/internal/observe"
)

// StreamHandler accepts the telephony provider's media-stream WebSocket and
// runs one call.Session per connection: inbound messages are decoded into
// frames and fed to the session, and the session writes synthesized audio
// back through the same connection.
type StreamHandler struct {
	cfg     call.Config
	log     *slog.Logger
	metrics *observe.Metrics
}

// NewStreamHandler creates a StreamHandler that builds sessions from cfg.
func NewStreamHandler(cfg call.Config, log *slog.Logger, metrics *observe.Metrics) *StreamHandler {
	if log == nil {
		log = slog.Default()
	}
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	return &StreamHandler{cfg: cfg, log: log, metrics: metrics}
}

// ServeHTTP upgrades the request and pumps the stream until the provider
// stops it or the connection drops. It does not return until the session has
// fully torn down.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// The telephony provider connects from its own infrastructure; there
		// is no browser origin to verify on this route.
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "handler exited")

	ctx := r.Context()

	leg := &wsLeg{conn: conn}
	sess, err := call.New(h.cfg, leg)
	if err != nil {
		h.log.Error("create call session", "error", err)
		conn.Close(websocket.StatusInternalError, "session setup failed")
		return
	}

	log := h.log.With("call_id", sess.ID().String())
	if err := sess.Start(ctx); err != nil {
		log.Error("start call session", "error", err)
		conn.Close(websocket.StatusInternalError, "session start failed")
		return
	}

	h.metrics.ActiveCalls.Add(ctx, 1)
	defer h.metrics.ActiveCalls.Add(ctx, -1)

	h.readLoop(ctx, log, conn, sess)

	sess.Stop()
	<-sess.Done()
	conn.Close(websocket.StatusNormalClosure, "call ended")
}

// readLoop pumps inbound stream messages into the session until a stop frame,
// a read failure, or session teardown.
func (h *StreamHandler) readLoop(ctx context.Context, log *slog.Logger, conn *websocket.Conn, sess *call.Session) {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			select {
			case <-sess.Done():
				// Session already torn down; the close race is expected.
			default:
				log.Info("telephony leg disconnected", "error", err)
			}
			return
		}

		frame, err := Decode(data, typ == websocket.MessageBinary)
		if err != nil {
			// Malformed frames are dropped; the call continues.
			log.Warn("dropping malformed frame", "error", err)
			h.metrics.FramesDropped.Add(ctx, 1)
			continue
		}
		if frame == nil {
			// Unrecognized event, dropped silently.
			continue
		}

		switch frame.Kind {
		case FrameMedia:
			if err := sess.HandleAudio(frame.Audio); err != nil {
				return
			}
		case FrameStop:
			log.Info("stop frame received")
			return
		}
	}
}

// wsLeg adapts the WebSocket connection to call.Leg: synthesized audio goes
// out as the textual media envelope.
type wsLeg struct {
	conn *websocket.Conn
}

func (l *wsLeg) WriteAudio(ctx context.Context, audio []byte) error {
	frame, err := Encode(audio)
	if err != nil {
		return err
	}
	return l.conn.Write(ctx, websocket.MessageText, frame)
}

// Ensure wsLeg implements call.Leg at compile time.
var _ call.Leg = (*wsLeg)(nil)

// VoiceHandler answers the provider's incoming-call webhook with the
// call-setup markup pointing at this process's stream endpoint.
type VoiceHandler struct {
	streamURL string
	greeting  string
	log       *slog.Logger
}

// NewVoiceHandler builds a VoiceHandler. publicURL is the externally
// reachable base URL of this process (http or https); streamPath is the
// media-stream route (e.g. "/audio"). The stream URL uses the matching
// ws/wss scheme.
func NewVoiceHandler(publicURL, streamPath, greeting string, log *slog.Logger) (*VoiceHandler, error) {
	if log == nil {
		log = slog.Default()
	}
	streamURL, err := streamEndpoint(publicURL, streamPath)
	if err != nil {
		return nil, err
	}
	return &VoiceHandler{streamURL: streamURL, greeting: greeting, log: log}, nil
}

func (h *VoiceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	doc, err := CallSetupDocument(h.streamURL, h.greeting)
	if err != nil {
		h.log.Error("render call setup document", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.Write(doc)
}

// streamEndpoint converts the public base URL into the wss:// (or ws://)
// address of the media-stream route.
func streamEndpoint(publicURL, streamPath string) (string, error) {
	u, err := url.Parse(publicURL)
	if err != nil {
		return "", errors.New("telephony: invalid public URL")
	}
	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	case "http", "ws":
		u.Scheme = "ws"
	default:
		return "", errors.New("telephony: public URL must be http(s) or ws(s)")
	}
	u.Path = strings.TrimRight(u.Path, "/") + streamPath
	return u.String(), nil
}

// CORS wraps next with permissive cross-origin headers and answers preflight
// requests. The webhook and status routes carry no credentials, so a
// wildcard origin is acceptable here.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

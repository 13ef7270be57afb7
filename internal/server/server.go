package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/GriffinCanCode/camera-overlay/internal/caption"
	apperr "github.com/GriffinCanCode/camera-overlay/internal/errors"
	"github.com/GriffinCanCode/camera-overlay/internal/grpcclient"
	"github.com/GriffinCanCode/camera-overlay/internal/orientation"
	"github.com/GriffinCanCode/camera-overlay/internal/overlay"
	"github.com/GriffinCanCode/camera-overlay/internal/pipeline"
	"github.com/GriffinCanCode/camera-overlay/internal/trace"
	"github.com/GriffinCanCode/camera-overlay/internal/transform"
)

// Pipeline is the part of pipeline.Pipeline the server drives.
type Pipeline interface {
	ID() string
	OnOrientationChanged(o orientation.Orientation) error
	OnLayout(b transform.Bounds) error
	Snapshot() overlay.Snapshot
	Orientation() orientation.State
	Stats() pipeline.Stats
	Captions() *caption.Store
}

// DetectorHealth reports on the remote detector feeding the pipeline.
type DetectorHealth interface {
	Health() grpcclient.Health
}

// rateLimiter tracks message timestamps using a sliding window.
type rateLimiter struct {
	timestamps []time.Time
	mu         sync.Mutex
}

// allow checks if a message is allowed and records the timestamp if so.
func (r *rateLimiter) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-RateLimitWindow)

	valid := r.timestamps[:0]
	for _, t := range r.timestamps {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	r.timestamps = valid

	if len(r.timestamps) >= RateLimitMessages {
		return false
	}
	r.timestamps = append(r.timestamps, now)
	return true
}

// Server handles HTTP and WebSocket connections.
type Server struct {
	pipe     Pipeline
	hub      *Hub
	detector DetectorHealth
	stopCh   chan struct{}
	once     sync.Once
}

// New creates a server for p whose overlay is drawn through hub.
func New(p Pipeline, hub *Hub) *Server {
	hub.Seed(p.Snapshot())
	s := &Server{pipe: p, hub: hub, stopCh: make(chan struct{})}
	go s.broadcastCaptions()
	return s
}

// WithDetector reports d under /api/stats. Call before serving.
func (s *Server) WithDetector(d DetectorHealth) *Server {
	s.detector = d
	return s
}

// Close stops the caption broadcaster.
func (s *Server) Close() {
	s.once.Do(func() { close(s.stopCh) })
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", s.handleWebSocket)

	mux.HandleFunc("GET /api/overlay", s.handleOverlay)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/caption", s.handleCaption)

	// Apply middleware: trace -> CORS
	return corsMiddleware(trace.Middleware(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := newClient()
	s.hub.register(c)
	defer s.hub.unregister(c)

	log := trace.Logger(ctx).With("client_id", c.id)
	log.Info("websocket connected", "remote", r.RemoteAddr)

	if cur, ok := s.pipe.Captions().Current(); ok {
		s.reply(c, captionMessage(&cur))
	}
	go s.writeLoop(ctx, conn, c, cancel)

	for {
		var msg json.RawMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			log.Debug("websocket read error", "error", err)
			return
		}

		if !c.limiter.allow() {
			log.Warn("rate limit exceeded", "remote", r.RemoteAddr)
			s.reply(c, ErrorMessage{Type: TypeError, Code: apperr.CodeUnavailable.String(), Message: "rate limit exceeded"})
			continue
		}

		if err := s.dispatch(ctx, msg); err != nil {
			log.Debug("message rejected", "error", err)
			s.reply(c, errorMessage(err))
		}
	}
}

// dispatch applies one inbound message to the pipeline.
func (s *Server) dispatch(ctx context.Context, raw json.RawMessage) error {
	var base Message
	if err := json.Unmarshal(raw, &base); err != nil {
		return apperr.Wrap(err, apperr.CodeInvalidArgument, "malformed message")
	}
	if tc, ok := trace.ExtractFromJSON(raw); ok {
		ctx = trace.WithContext(ctx, tc)
	}
	log := trace.Logger(ctx)

	switch base.Type {
	case TypeOrientation:
		var m OrientationMessage
		if err := json.Unmarshal(raw, &m); err != nil {
			return apperr.Wrap(err, apperr.CodeInvalidArgument, "malformed orientation message")
		}
		log.Debug("orientation event", "orientation", m.Orientation)
		return s.pipe.OnOrientationChanged(orientation.Parse(m.Orientation))
	case TypeLayout:
		var m LayoutMessage
		if err := json.Unmarshal(raw, &m); err != nil {
			return apperr.Wrap(err, apperr.CodeInvalidArgument, "malformed layout message")
		}
		log.Debug("layout event", "width", m.Width, "height", m.Height)
		return s.pipe.OnLayout(transform.Bounds{Width: m.Width, Height: m.Height})
	default:
		return apperr.Newf(apperr.CodeInvalidArgument, "unknown message type %q", base.Type)
	}
}

// reply queues msg for c alone, dropping it if the queue is full.
func (s *Server) reply(c *client, msg any) {
	select {
	case c.send <- msg:
	default:
	}
}

func (s *Server) writeLoop(ctx context.Context, conn *websocket.Conn, c *client, cancel context.CancelFunc) {
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			wctx, done := context.WithTimeout(ctx, WriteTimeout)
			err := wsjson.Write(wctx, conn, msg)
			done()
			if err != nil {
				slog.Debug("websocket write error", "client_id", c.id, "error", err)
				return
			}
		}
	}
}

func (s *Server) broadcastCaptions() {
	events := s.pipe.Captions().Events()
	for {
		select {
		case <-s.stopCh:
			return
		case evt := <-events:
			s.hub.Broadcast(captionMessage(evt.Entry))
		}
	}
}

type overlayResponse struct {
	PipelineID  string            `json:"pipelineId"`
	Overlay     overlay.Snapshot  `json:"overlay"`
	Orientation orientation.State `json:"orientation"`
	Hint        string            `json:"hint"`
	Matrix      *TransformMessage `json:"matrix"`
}

func (s *Server) handleOverlay(w http.ResponseWriter, _ *http.Request) {
	snap := s.pipe.Snapshot()
	st := s.pipe.Orientation()
	writeJSON(w, overlayResponse{
		PipelineID:  s.pipe.ID(),
		Overlay:     snap,
		Orientation: st,
		Hint:        st.Hint.String(),
		Matrix:      transformMessage(snap.Transform),
	})
}

type statsResponse struct {
	PipelineID string             `json:"pipelineId"`
	Stats      pipeline.Stats     `json:"stats"`
	Clients    int                `json:"clients"`
	Dropped    uint64             `json:"clientMessagesDropped"`
	Detector   *grpcclient.Health `json:"detector,omitempty"`
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	resp := statsResponse{
		PipelineID: s.pipe.ID(),
		Stats:      s.pipe.Stats(),
		Clients:    s.hub.Clients(),
		Dropped:    s.hub.Dropped(),
	}
	if s.detector != nil {
		h := s.detector.Health()
		resp.Detector = &h
	}
	writeJSON(w, resp)
}

type captionResponse struct {
	Current *caption.Entry  `json:"current"`
	History []caption.Entry `json:"history"`
}

func (s *Server) handleCaption(w http.ResponseWriter, _ *http.Request) {
	var resp captionResponse
	if cur, ok := s.pipe.Captions().Current(); ok {
		resp.Current = &cur
	}
	resp.History = s.pipe.Captions().History(CaptionHistoryLimit)
	writeJSON(w, resp)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

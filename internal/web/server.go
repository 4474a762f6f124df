package web

import (
	"encoding/base64"
	"encoding/json"
	"image"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/hybridgroup/mjpeg"
	"github.com/pkg/errors"
	"github.com/rs/cors"

	"github.com/ironsheep/plate-fill-mcp/internal/config"
	"github.com/ironsheep/plate-fill-mcp/internal/detection"
	"github.com/ironsheep/plate-fill-mcp/internal/imaging"
	"github.com/ironsheep/plate-fill-mcp/internal/log"
	"github.com/ironsheep/plate-fill-mcp/internal/measure"
)

const (
	// OverlayQuality is the JPEG quality of overlays and stream frames.
	OverlayQuality = 85

	// MaxBodyBytes bounds a /process request body.
	MaxBodyBytes = 32 << 20

	// MaxClients bounds the number of smoothing sessions kept; the least
	// recently used one is dropped first.
	MaxClients = 64
)

// ProcessRequest is the body of POST /process.
type ProcessRequest struct {
	// Image is a data URL or raw base64 frame.
	Image      string   `json:"image"`
	Utensil    string   `json:"utensil"`
	DiameterMM *float64 `json:"diameter_mm"`
	HeightMM   *float64 `json:"assumed_height_mm"`

	// Session optionally names the client's stream. Frames sharing a session
	// share boundary smoothing; frames without one are measured on their own.
	Session string `json:"session,omitempty"`
}

// ProcessResponse is the body of a successful POST /process.
type ProcessResponse struct {
	PercentFill *float64 `json:"percent_fill"`
	VolumeML    *float64 `json:"volume_ml"`
	Overlay     string   `json:"overlay"`
	Warnings    []string `json:"warnings,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server measures frames posted by a browser and republishes the annotated
// result as an MJPEG stream.
//
// Each named session has its own smoothing state, reset whenever that
// session's utensil changes.
type Server struct {
	pipeline *measure.Pipeline
	scale    config.ScaleContext

	streamMu sync.Mutex
	stream   *mjpeg.Stream

	mu      sync.Mutex
	clients map[string]*client
	seq     uint64
}

// client is the smoothing state of one session.
type client struct {
	mu    sync.Mutex
	state detection.SmoothingState
	kind  config.Kind

	// lastUsed orders clients for eviction; guarded by Server.mu.
	lastUsed uint64
}

// New creates a web server from a pipeline configuration.
func New(cfg config.Config) (*Server, error) {
	p, err := measure.New(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create pipeline")
	}
	return &Server{
		pipeline: p,
		scale:    cfg.Scale,
		stream:   mjpeg.NewStream(),
		clients:  make(map[string]*client),
	}, nil
}

// Handler returns the routes wrapped in a permissive CORS policy.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/process", s.handleProcess).Methods(http.MethodPost)
	router.Handle("/stream", s.stream).Methods(http.MethodGet)
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(router)
}

// ListenAndServe serves Handler on addr until the listener fails.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Info("web server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrapf(err, "listen on %s", addr)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req ProcessRequest
	// A malformed body is treated like an empty one.
	_ = json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes)).Decode(&req)

	if req.Image == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing image"})
		return
	}
	frame, err := imaging.DecodeBase64(req.Image)
	if err != nil {
		log.Debug("undecodable frame", "error", err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad image"})
		return
	}
	scale, err := s.requestScale(req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	resp, err := s.process(frame, scale, req.Session)
	if err != nil {
		log.Error("process failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// requestScale applies the request's utensil and physical sizes on top of
// the configured scale. Radius bounds stay as configured, which by default
// means derived from each frame's size.
func (s *Server) requestScale(req ProcessRequest) (config.ScaleContext, error) {
	sc := s.scale
	if req.Utensil != "" {
		k, err := config.ParseKind(req.Utensil)
		if err != nil {
			return sc, err
		}
		sc.Kind = k
	}
	if req.DiameterMM != nil {
		sc.DiameterMM = *req.DiameterMM
	}
	if req.HeightMM != nil {
		sc.HeightMM = *req.HeightMM
	}
	return sc, nil
}

// client returns the session's state, creating it and evicting the least
// recently used session if needed.
func (s *Server) client(session string) *client {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	if c, ok := s.clients[session]; ok {
		c.lastUsed = s.seq
		return c
	}
	if len(s.clients) >= MaxClients {
		var oldest string
		var oldestSeq uint64
		for id, c := range s.clients {
			if oldest == "" || c.lastUsed < oldestSeq {
				oldest, oldestSeq = id, c.lastUsed
			}
		}
		delete(s.clients, oldest)
		log.Debug("evicted web session", "session", oldest)
	}
	c := &client{kind: s.scale.Kind, lastUsed: s.seq}
	s.clients[session] = c
	return c
}

// process measures one frame and publishes its overlay to the stream.
func (s *Server) process(frame image.Image, scale config.ScaleContext, session string) (*ProcessResponse, error) {
	var state *detection.SmoothingState
	if session != "" {
		c := s.client(session)
		c.mu.Lock()
		defer c.mu.Unlock()

		if scale.Kind != c.kind {
			if _, ok := c.state.Last(); ok {
				c.state.Reset()
			}
			c.kind = scale.Kind
		}
		state = &c.state
	}

	res, err := s.pipeline.WithScale(scale).Measure(frame, state)
	if err != nil && !errors.Is(err, measure.ErrNoUtensil) && !errors.Is(err, measure.ErrDegenerateInterior) {
		return nil, err
	}

	resp := &ProcessResponse{Warnings: res.Warnings}
	if m := res.Measurement; m != nil {
		fill := m.FillPercent
		resp.PercentFill = &fill
		resp.VolumeML = m.VolumeML
	}

	jpeg, err := imaging.EncodeJPEG(imaging.Render(frame, res.Annotation()), OverlayQuality)
	if err != nil {
		return nil, errors.Wrap(err, "overlay")
	}
	s.publish(jpeg)
	resp.Overlay = "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpeg)
	return resp, nil
}

// publish pushes a frame to /stream. mjpeg.Stream.UpdateJPEG reuses its
// frame buffer without locking, so callers are serialized here.
func (s *Server) publish(jpeg []byte) {
	s.streamMu.Lock()
	defer s.streamMu.Unlock()
	s.stream.UpdateJPEG(jpeg)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn("failed to write response", "error", err)
	}
}

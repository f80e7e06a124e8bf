// File: internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/recorder-cli/internal/config"
	"github.com/xkilldash9x/recorder-cli/internal/engine"
	"github.com/xkilldash9x/recorder-cli/internal/recorder"
)

// Server is the HTTP request boundary: it maps inbound create/event/close
// requests onto the lifecycle manager and serializes results to JSON. No
// engine handles leak through this layer.
type Server struct {
	cfg     config.ServerConfig
	manager *recorder.Manager
	logger  *zap.Logger

	// createLimiter guards session creation; launching a browser is the
	// most expensive operation this service performs.
	createLimiter *rate.Limiter

	httpServer *http.Server
}

// New wires the HTTP boundary around the manager.
func New(cfg config.ServerConfig, manager *recorder.Manager, logger *zap.Logger) *Server {
	s := &Server{
		cfg:           cfg,
		manager:       manager,
		logger:        logger.Named("server"),
		createLimiter: rate.NewLimiter(rate.Limit(cfg.CreateRate), cfg.CreateBurst),
	}
	s.httpServer = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.Router(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Router builds the route table. Exposed separately so tests can drive the
// handlers through httptest without binding a port.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.corsMiddleware)

	r.Get("/health", s.handleHealth)
	r.Get("/api/session", s.handleList)
	r.Post("/api/session", s.handleCreate)
	r.Route("/api/session/{id}", func(r chi.Router) {
		r.Post("/event", s.handleEvent)
		r.Post("/close", s.handleClose)
		r.Get("/script", s.handleScript)
	})

	return r
}

// ListenAndServe blocks serving HTTP until Shutdown or a listener error.
func (s *Server) ListenAndServe() error {
	s.logger.Info("Listening.", zap.String("addr", s.cfg.Addr()))
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// --- Handlers ---

type createRequest struct {
	URL      string           `json:"url"`
	Viewport *engine.Viewport `json:"viewport,omitempty"`
}

type createResponse struct {
	ID       string          `json:"id"`
	Viewport engine.Viewport `json:"viewport"`
	Image    string          `json:"image"`
	File     string          `json:"file,omitempty"`
	Tzafon   []string        `json:"tzafon"`
	Info     string          `json:"info"`
}

type eventResponse struct {
	Tzafon []string              `json:"tzafon"`
	Image  string                `json:"image"`
	Meta   string                `json:"meta"`
	Scroll *recorder.ScrollRange `json:"scroll,omitempty"`
	Info   string                `json:"info"`
}

type closeResponse struct {
	Closed bool `json:"closed"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string][]recorder.SessionInfo{
		"sessions": s.manager.Sessions(),
	})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	if !s.createLimiter.Allow() {
		s.writeError(w, http.StatusTooManyRequests, "session creation rate exceeded", "rate_limited")
		return
	}

	var req createRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	res, err := s.manager.CreateSession(r.Context(), req.URL, req.Viewport)
	if err != nil {
		s.writeRecorderError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, createResponse{
		ID:       res.ID,
		Viewport: res.Viewport,
		Image:    res.Shot.Image,
		File:     res.Shot.File,
		Tzafon:   res.Instructions,
		Info:     "session created",
	})
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var ev recorder.Event
	if !s.decodeBody(w, r, &ev) {
		return
	}

	res, err := s.manager.HandleEvent(r.Context(), id, ev)
	if err != nil {
		s.writeRecorderError(w, err)
		return
	}

	tzafon := res.Instructions
	if tzafon == nil {
		tzafon = []string{}
	}
	s.writeJSON(w, http.StatusOK, eventResponse{
		Tzafon: tzafon,
		Image:  res.Shot.Image,
		Meta:   res.Description,
		Scroll: res.Scroll,
		Info:   "ok",
	})
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	closed := s.manager.CloseSession(r.Context(), id)
	s.writeJSON(w, http.StatusOK, closeResponse{Closed: closed})
}

func (s *Server) handleScript(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	script, err := s.manager.Script(id)
	if err != nil {
		s.writeRecorderError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"tzafon": script})
}

// --- Plumbing ---

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Headers", "content-type")
		h.Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// decodeBody parses a JSON request body, treating an entirely empty body as
// an empty object like the reference service does. Returns false after
// writing the error response.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxRequestBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return true
		}
		s.writeError(w, http.StatusBadRequest, "malformed JSON body: "+err.Error(), string(recorder.KindInvalidRequest))
		return false
	}
	return true
}

func (s *Server) writeRecorderError(w http.ResponseWriter, err error) {
	kind := recorder.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case recorder.KindInvalidRequest, recorder.KindUnsupportedEvent:
		status = http.StatusBadRequest
	case recorder.KindNotFound:
		status = http.StatusNotFound
	case recorder.KindTimeout:
		status = http.StatusGatewayTimeout
	}
	s.writeError(w, status, err.Error(), string(kind))
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg, kind string) {
	s.writeJSON(w, status, map[string]string{"error": msg, "kind": kind})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("Failed to encode response.", zap.Error(err))
	}
}

// Package api exposes the service controller, flags codec and log stream
// supervisor over HTTP for a local UI.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/axondata/go-svcrelay"
	"github.com/axondata/go-svcrelay/internal/relay"
)

// FlagsStore reads and rewrites a unit's startup flags
type FlagsStore interface {
	ReadFlags(name string) (string, error)
	WriteFlags(name, flags string) error
}

// Streamer is the single-slot log stream supervisor
type Streamer interface {
	Start(ctx context.Context, name string) error
	Stop() error
	Active() (svcrelay.StreamInfo, bool)
}

// Reloader makes the service manager pick up rewritten unit files
type Reloader interface {
	DaemonReload(ctx context.Context) error
}

// Server serves the control API. Each request runs on its own goroutine;
// the only shared mutable state lives inside the Streamer.
type Server struct {
	httpServer *http.Server
	ctl        svcrelay.Controller
	flags      FlagsStore
	streams    Streamer
	events     http.Handler
}

// New creates a configured HTTP server. events serves the websocket
// event feed and may be nil.
func New(addr string, ctl svcrelay.Controller, flags FlagsStore, streams Streamer, events http.Handler) *Server {
	mux := http.NewServeMux()
	s := &Server{
		httpServer: &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second},
		ctl:        ctl,
		flags:      flags,
		streams:    streams,
		events:     events,
	}
	s.registerRoutes(mux)
	s.httpServer.Handler = sameOriginOnly(mux)
	return s
}

// Handler returns the routing handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run blocks and serves HTTP traffic.
func (s *Server) Run() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts the server down.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/services/{name}/status", s.handleStatus)
	mux.HandleFunc("POST /v1/services/{name}/start", s.handleControl(s.ctl.Start))
	mux.HandleFunc("POST /v1/services/{name}/stop", s.handleControl(s.ctl.Stop))
	mux.HandleFunc("POST /v1/services/{name}/restart", s.handleControl(s.ctl.Restart))
	mux.HandleFunc("GET /v1/services/{name}/flags", s.handleReadFlags)
	mux.HandleFunc("PUT /v1/services/{name}/flags", s.handleWriteFlags)
	mux.HandleFunc("POST /v1/services/{name}/logs", s.handleStartLogs)
	mux.HandleFunc("GET /v1/logs", s.handleActiveLogs)
	mux.HandleFunc("DELETE /v1/logs", s.handleStopLogs)
	if s.events != nil {
		mux.Handle("GET /v1/events", s.events)
	}
}

// sameOriginOnly refuses state-changing requests made by pages of another
// origin. Browsers send simple cross-site POSTs without a preflight, so
// the origin has to be checked here rather than left to CORS.
func sameOriginOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
		default:
			if r.Header.Get("Sec-Fetch-Site") == "cross-site" || !relay.SameOrigin(r) {
				slog.WarnContext(r.Context(), "cross-origin request refused",
					"method", r.Method, "path", r.URL.Path, "origin", r.Header.Get("Origin"))
				writeJSON(w, http.StatusForbidden, errorResponse{Error: "cross-origin request refused"})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// unitParam returns the normalized unit named in the request path. It
// writes a 400 response and reports false when the name is not usable.
func unitParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	name := r.PathValue("name")
	if err := svcrelay.CheckUnitName(name); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return "", false
	}
	return svcrelay.UnitName(name), true
}

type statusResponse struct {
	Unit   string `json:"unit"`
	Status string `json:"status"`
}

type flagsBody struct {
	Unit  string `json:"unit,omitempty"`
	Flags string `json:"flags"`
}

type streamResponse struct {
	Active  bool      `json:"active"`
	Unit    string    `json:"unit,omitempty"`
	Stream  string    `json:"stream,omitempty"`
	PID     int       `json:"pid,omitempty"`
	Started time.Time `json:"started,omitzero"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	unit, ok := unitParam(w, r)
	if !ok {
		return
	}
	status, err := s.ctl.Status(r.Context(), unit)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Unit: unit, Status: status.String()})
}

func (s *Server) handleControl(op func(context.Context, string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		unit, ok := unitParam(w, r)
		if !ok {
			return
		}
		if err := op(r.Context(), unit); err != nil {
			writeError(r.Context(), w, err)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

func (s *Server) handleReadFlags(w http.ResponseWriter, r *http.Request) {
	unit, ok := unitParam(w, r)
	if !ok {
		return
	}
	flags, err := s.flags.ReadFlags(unit)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, flagsBody{Unit: unit, Flags: flags})
}

func (s *Server) handleWriteFlags(w http.ResponseWriter, r *http.Request) {
	unit, ok := unitParam(w, r)
	if !ok {
		return
	}

	var body flagsBody
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid body: " + err.Error()})
		return
	}

	if err := s.flags.WriteFlags(unit, body.Flags); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	if r.URL.Query().Get("reload") == "true" {
		if reloader, ok := s.ctl.(Reloader); ok {
			if err := reloader.DaemonReload(r.Context()); err != nil {
				writeError(r.Context(), w, err)
				return
			}
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStartLogs(w http.ResponseWriter, r *http.Request) {
	unit, ok := unitParam(w, r)
	if !ok {
		return
	}
	if err := s.streams.Start(r.Context(), unit); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, s.activeStream())
}

func (s *Server) handleActiveLogs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.activeStream())
}

func (s *Server) handleStopLogs(w http.ResponseWriter, r *http.Request) {
	if err := s.streams.Stop(); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) activeStream() streamResponse {
	info, ok := s.streams.Active()
	if !ok {
		return streamResponse{}
	}
	return streamResponse{
		Active:  true,
		Unit:    info.Unit,
		Stream:  info.ID,
		PID:     info.PID,
		Started: info.Started.UTC(),
	}
}

// writeError maps rejected unit names to 400, tool-reported failures to
// 502 and everything else to 500.
// The message is the tool's own diagnostic where there is one.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var toolErr *svcrelay.ToolError
	switch {
	case errors.Is(err, svcrelay.ErrInvalidUnitName):
		status = http.StatusBadRequest
	case errors.As(err, &toolErr):
		status = http.StatusBadGateway
	}
	slog.ErrorContext(ctx, "request failed", "error", err)
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}

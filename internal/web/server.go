// Package web serves the controller view, a JSON API and a websocket feed.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"led-state-controller/internal/actuator"
	"led-state-controller/internal/controller"
	ctlerrors "led-state-controller/internal/errors"
	"led-state-controller/internal/logger"
)

//go:embed templates/index.html
var templateFS embed.FS

// DefaultTitle is the page heading
const DefaultTitle = "IoT LED State Controller"

// Controller is what the web surface needs from the SyncController
type Controller interface {
	Snapshot() controller.Snapshot
	SendCommand(ctx context.Context, cmd actuator.Command) error
}

// CommandResponse is the body of POST /api/commands/{name}
type CommandResponse struct {
	Command  string              `json:"command"`
	OK       bool                `json:"ok"`
	Error    string              `json:"error,omitempty"`
	Snapshot controller.Snapshot `json:"snapshot"`
}

// Options configures a Server. Health and Metrics are optional.
type Options struct {
	Listen      string
	Port        int
	Title       string
	Health      http.Handler
	Metrics     http.Handler
	MetricsPath string
	Logger      logger.ILogger
}

// Server is the HTTP front end
type Server struct {
	ctrl     Controller
	hub      *Hub
	opts     Options
	tmpl     *template.Template
	upgrader websocket.Upgrader
	log      logger.ILogger
	server   *http.Server
}

// NewServer builds the routes. The hub must be running for /ws to work.
func NewServer(ctrl Controller, hub *Hub, opts Options) (*Server, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("parse view template: %w", err)
	}
	if opts.Title == "" {
		opts.Title = DefaultTitle
	}
	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewStandardLogger()
	}

	s := &Server{
		ctrl: ctrl,
		hub:  hub,
		opts: opts,
		tmpl: tmpl,
		log:  opts.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}

	s.server = &http.Server{
		Addr:              net.JoinHostPort(opts.Listen, fmt.Sprint(opts.Port)),
		Handler:           s.Routes(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Routes returns the request multiplexer
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /commands/{name}", s.handleFormCommand)
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("POST /api/commands/{name}", s.handleCommand)
	mux.HandleFunc("GET /ws", s.handleWebsocket)
	if s.opts.Health != nil {
		mux.Handle("GET /health", s.opts.Health)
	}
	if s.opts.Metrics != nil {
		mux.Handle("GET "+s.opts.MetricsPath, s.opts.Metrics)
	}
	return mux
}

// ListenAndServe serves until ctx is done, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.LogInfo("🌐 Web UI listening on http://%s", s.server.Addr)
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("web server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("web server shutdown: %w", err)
		}
		return nil
	}
}

type viewData struct {
	Title    string
	Snapshot controller.Snapshot
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.Execute(w, viewData{Title: s.opts.Title, Snapshot: s.ctrl.Snapshot()}); err != nil {
		s.log.LogError("render view: %v", err)
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Snapshot())
}

// dispatch runs the command on a context that outlives the request: a
// browser navigating away does not abort a command already sent
func (s *Server) dispatch(r *http.Request) (actuator.Command, int, error) {
	cmd, err := actuator.ParseCommand(r.PathValue("name"))
	if err != nil {
		return 0, http.StatusNotFound, err
	}
	err = s.ctrl.SendCommand(context.WithoutCancel(r.Context()), cmd)
	return cmd, statusFor(err), err
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	cmd, code, err := s.dispatch(r)
	resp := CommandResponse{OK: err == nil, Snapshot: s.ctrl.Snapshot()}
	if cmd.Valid() {
		resp.Command = cmd.Endpoint()
	}
	if err != nil {
		resp.Error = err.Error()
		if resp.Snapshot.LastError != "" {
			resp.Error = resp.Snapshot.LastError
		}
	}
	writeJSON(w, code, resp)
}

func (s *Server) handleFormCommand(w http.ResponseWriter, r *http.Request) {
	if _, code, err := s.dispatch(r); code == http.StatusNotFound {
		http.Error(w, err.Error(), code)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.LogWarn("Failed to upgrade to websocket: %v", err)
		return
	}
	client := &Client{hub: s.hub, conn: conn, send: make(chan []byte, sendBuffer)}

	// the current view goes first so a fresh page never waits for the next poll
	if payload, err := json.Marshal(s.ctrl.Snapshot()); err == nil {
		client.send <- payload
	}
	select {
	case s.hub.register <- client:
	case <-s.hub.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// statusFor maps controller errors onto HTTP status codes
func statusFor(err error) int {
	if err == nil {
		return http.StatusOK
	}
	switch ctlerrors.KindOf(err) {
	case ctlerrors.KindConfigurationMissing:
		return http.StatusServiceUnavailable
	case ctlerrors.KindCommandFailure, ctlerrors.KindTransportFailure:
		return http.StatusBadGateway
	}
	var validation *ctlerrors.ValidationError
	if errors.As(err, &validation) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

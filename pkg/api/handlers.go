// Package api serves the chat HTTP and websocket endpoints.
package api

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/parth-patel-1/DAU-Chatbot/pkg/backend"
	"github.com/parth-patel-1/DAU-Chatbot/pkg/chat"
	"github.com/parth-patel-1/DAU-Chatbot/pkg/session"
)

// SessionCookie holds the browser's session id.
const SessionCookie = "daubot_session"

// Server holds what the handlers share. Pages may be nil when the backend
// cannot list its pages.
type Server struct {
	Sessions *session.Store
	Turns    *session.TurnHandler
	Renderer *chat.Renderer
	Pages    backend.PageLister
	Logger   *slog.Logger
}

func NewServer(sessions *session.Store, turns *session.TurnHandler, renderer *chat.Renderer, pages backend.PageLister, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if renderer == nil {
		renderer = chat.NewRenderer()
	}
	return &Server{
		Sessions: sessions,
		Turns:    turns,
		Renderer: renderer,
		Pages:    pages,
		Logger:   logger,
	}
}

// RegisterRoutes registers the API routes on router.
func (s *Server) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/chat", s.HandleChat).Methods("POST")
	router.HandleFunc("/api/chat/clear", s.HandleClear).Methods("POST")
	router.HandleFunc("/api/messages", s.HandleMessages).Methods("GET")
	router.HandleFunc("/api/pages", s.HandlePages).Methods("GET")
	router.HandleFunc("/api/ws", s.HandleWebSocket).Methods("GET")
	router.HandleFunc("/healthz", s.HandleHealth).Methods("GET")
}

// Session returns the caller's session, creating it and setting the cookie
// on first use.
func (s *Server) Session(w http.ResponseWriter, r *http.Request) *session.Session {
	return s.session(r, func(c *http.Cookie) { http.SetCookie(w, c) })
}

func (s *Server) session(r *http.Request, setCookie func(*http.Cookie)) *session.Session {
	var id string
	if c, err := r.Cookie(SessionCookie); err == nil {
		id = c.Value
	}
	sess := s.Sessions.GetOrCreate(id)
	if sess.ID() != id {
		setCookie(&http.Cookie{
			Name:     SessionCookie,
			Value:    sess.ID(),
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return sess
}

// HandleClear empties the caller's transcript.
func (s *Server) HandleClear(w http.ResponseWriter, r *http.Request) {
	sess := s.Session(w, r)
	if err := sess.Clear(); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	s.Logger.Info("transcript cleared", "session", sess.ID())
	writeJSON(w, http.StatusOK, map[string]any{"status": "cleared", "messages": []chat.Rendered{}})
}

// HandleMessages returns the caller's rendered transcript.
func (s *Server) HandleMessages(w http.ResponseWriter, r *http.Request) {
	sess := s.Session(w, r)
	writeJSON(w, http.StatusOK, map[string]any{
		"messages": s.Renderer.RenderAll(sess.Transcript().Messages()),
		"busy":     sess.Busy(),
	})
}

// HandlePages lists the documentation pages known to the backend.
func (s *Server) HandlePages(w http.ResponseWriter, r *http.Request) {
	if s.Pages == nil {
		writeError(w, http.StatusNotImplemented, "page listing is not supported by this backend")
		return
	}
	pages, err := s.Pages.ListPages(r.Context())
	if err != nil {
		s.Logger.Error("list pages failed", "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pages": pages})
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": s.Sessions.Len()})
}

// LoggingMiddleware logs one line per request.
func LoggingMiddleware(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration", time.Since(start).Round(time.Millisecond),
			)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Package server exposes dashboard pages over a JSON API.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"StockLens/internal/dashboard"
	"StockLens/internal/logger"
	"StockLens/internal/notifier"
)

const DefaultAddr = ":8080"

// Server routes API requests to the dashboard builder.
type Server struct {
	Builder *dashboard.Builder
	Log     *logger.Logger
	router  chi.Router
}

// New creates a Server with all routes mounted.
func New(b *dashboard.Builder, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	s := &Server{Builder: b, Log: log.WithComponent("server")}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.healthz)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/dashboard/{ticker}", s.getDashboard)
	})
	s.router = r
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// HTTPServer wraps the handler in an http.Server listening on addr.
func (s *Server) HTTPServer(addr string) *http.Server {
	if addr == "" {
		addr = DefaultAddr
	}
	return &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		// page builds wait on upstream providers
		WriteTimeout:   90 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.Log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	status := map[string]string{"status": "ok"}
	s.writeJSON(w, http.StatusOK, ok(&status))
}

func (s *Server) getDashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req, err := s.Builder.ParseRequest(chi.URLParam(r, "ticker"), q.Get("start"), q.Get("end"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, fail(err.Error()))
		return
	}

	page := s.Builder.Build(r.Context(), req)
	status := http.StatusOK
	if page.Halted {
		status = http.StatusUnprocessableEntity
	}

	if q.Get("format") == "markdown" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(notifier.FormatPage(page)))
		return
	}

	resp := ok(NewPageView(page))
	if a, found := page.FirstError(); found && page.Halted {
		resp.Error = a.Message
	}
	s.writeJSON(w, status, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Log.Error("encode response failed", zap.Error(err))
	}
}

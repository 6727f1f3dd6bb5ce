// Package api exposes library operations over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"vidlib/internal/library"
	"vidlib/internal/model"
)

const refreshTimeout = 5 * time.Minute

// Notifier announces newly inboxed videos.
type Notifier interface {
	NotifyVideos(ctx context.Context, videos []model.Video)
}

// Server is the HTTP API server.
type Server struct {
	lib      *library.Library
	notifier Notifier
	log      *slog.Logger
	router   chi.Router
	now      func() time.Time
}

// New creates a Server. notifier may be nil.
func New(lib *library.Library, notifier Notifier, log *slog.Logger) *Server {
	s := &Server{
		lib:      lib,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  slog.NewLogLogger(s.log.Handler(), slog.LevelDebug),
		NoColor: true,
	}))
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/subscriptions", s.handleListSubscriptions)
		r.Post("/subscriptions", s.handleAddSubscriptions)
		r.Delete("/subscriptions", s.handleDeleteSubscriptions)
		r.Post("/subscribe", s.handleSubscribe)
		r.Post("/cleanup/archived", s.handleCleanupArchived)
		r.Post("/cleanup/duplicates", s.handleCleanupDuplicates)
		r.Post("/cleanup/inbox", s.handleCleanupInbox)
		r.Post("/refresh", s.handleRefresh)
		r.Post("/import-opml", s.handleImportOPML)
		r.Get("/export-opml", s.handleExportOPML)
	})

	s.router = r
}

// Handler returns the HTTP handler of the API.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves the API on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server starting", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", "error", err)
	}
	s.writeJSON(w, status, errorResponse{Error: library.UserMessage(err)})
}

func (s *Server) badRequest(w http.ResponseWriter, msg string) {
	s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

func statusFor(err error) int {
	var couldNot *library.CouldNotSubscribeError
	switch {
	case errors.Is(err, library.ErrNoInfoFoundToSubscribeTo),
		errors.Is(err, library.ErrNoInfoFoundToUnsubscribe),
		errors.Is(err, library.ErrNotSupported):
		return http.StatusBadRequest
	case errors.Is(err, library.ErrFailedGettingChannelID), errors.As(err, &couldNot):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Package statusapi exposes the ledger's derived queries — all rows, the
// completion count, and crashed rows — as read-only JSON endpoints. It
// never touches the ledger directly — every response is read through
// the Manager's own query methods, which in turn read the same in-memory
// snapshot the dispatch loop serves requests from.
package statusapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

// LearnerSource is the subset of *manager.Manager the status surface reads.
// A narrow interface keeps this package ignorant of the ledger/wire types it
// doesn't need and makes it trivially mockable in tests.
type LearnerSource interface {
	AsDicts() []LearnerView
	NDone() int
	Failed() []LearnerView
}

// LearnerView mirrors manager.LearnerView's public field set so this
// package does not need to import internal/manager for its JSON shape.
type LearnerView struct {
	Fname      any      `json:"fname"`
	JobID      *string  `json:"job_id,omitempty"`
	IsDone     bool     `json:"is_done"`
	JobName    *string  `json:"job_name,omitempty"`
	LogFname   *string  `json:"log_fname,omitempty"`
	OutputLogs []string `json:"output_logs,omitempty"`
}

// Server is the read-only HTTP status surface.
type Server struct {
	httpServer *http.Server
	source     LearnerSource
	logger     *slog.Logger
}

// Config configures a Server.
type Config struct {
	Addr   string
	Logger *slog.Logger
}

// New builds a Server bound to addr, backed by source.
func New(source LearnerSource, cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{source: source, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /status/failed", s.handleFailed)

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.withLogging(mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start blocks serving HTTP until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("statusapi: listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Learners []LearnerView `json:"learners"`
	NDone    int           `json:"n_done"`
}

// handleStatus godoc
//
//	@Summary		List all learner rows
//	@Description	Returns every row of the ledger, projected to its public field set, plus a completion count
//	@Tags			status
//	@Produce		json
//	@Success		200	{object}	StatusResponse
//	@Router			/status [get]
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		Learners: s.source.AsDicts(),
		NDone:    s.source.NDone(),
	})
}

// FailedResponse is the body of GET /status/failed.
type FailedResponse struct {
	Learners []LearnerView `json:"learners"`
}

// handleFailed godoc
//
//	@Summary		List crashed learner rows
//	@Description	Returns rows that were claimed at least once, were released by the reconciler, and never completed
//	@Tags			status
//	@Produce		json
//	@Success		200	{object}	FailedResponse
//	@Router			/status/failed [get]
func (s *Server) handleFailed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, FailedResponse{Learners: s.source.Failed()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// withLogging logs each request's method, path, status and duration.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		s.logger.Info("statusapi: request",
			"method", r.Method, "path", r.URL.Path,
			"status", wrapped.status, "duration", time.Since(start).String())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
)

type roomCounter interface {
	RoomCount() int
}

type resultsReader interface {
	Recent(ctx context.Context, code string, limit int) ([]*entity.Result, error)
	Stats(ctx context.Context) (*entity.Stats, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	logger  *slog.Logger
	rooms   roomCounter
	results resultsReader
	metrics http.Handler

	storage pinger
}

type Option func(*Server)

// WithStorage - makes /health report the storage connection as well.
func WithStorage(storage pinger) Option {
	return func(that *Server) {
		that.storage = storage
	}
}

func New(logger *slog.Logger, rooms roomCounter, results resultsReader, metrics http.Handler, opts ...Option) *Server {
	that := &Server{
		logger:  logger.With("component", "rest"),
		rooms:   rooms,
		results: results,
		metrics: metrics,
	}

	for _, opt := range opts {
		opt(that)
	}

	return that
}

func (that *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ping", that.pingHandler)
	mux.Handle("GET /health", that.HealthHandler())
	mux.HandleFunc("GET /stats", that.statsHandler)
	mux.HandleFunc("GET /results/{code}", that.resultsHandler)
	mux.Handle("GET /metrics", that.metrics)

	return mux
}

// Start - serves the health, stats, results and metrics endpoints on port until ctx is done.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      that.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shutdown http server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}

	return nil
}

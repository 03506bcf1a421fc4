package rest

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/pkg"
)

const (
	defaultResultsLimit = 10
	maxResultsLimit     = 50

	healthPingTimeout = 2 * time.Second
)

type healthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Rooms   int    `json:"rooms"`
	Storage string `json:"storage,omitempty"`
}

type resultsResponse struct {
	RoomCode string           `json:"roomCode"`
	Results  []*entity.Result `json:"results"`
}

func (that *Server) pingHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("pong")); err != nil {
		that.logger.Error("failed to write ping response", "error", err)
	}
}

// HealthHandler - liveness check with the live room count. Also mounted on the
// socket port. With storage configured an unreachable redis makes it 503.
func (that *Server) HealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		response := healthResponse{
			Status:  "OK",
			Message: "Game server is running",
			Rooms:   that.rooms.RoomCount(),
		}

		if that.storage != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
			defer cancel()

			response.Storage = "up"
			if err := that.storage.Ping(ctx); err != nil {
				that.logger.Warn("storage ping failed", "error", err)

				status = http.StatusServiceUnavailable
				response.Status = "DEGRADED"
				response.Storage = "down"
			}
		}

		if err := writeJSON(w, status, response); err != nil {
			that.logger.Error("failed to write health response", "error", err)
		}
	})
}

func (that *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "statsHandler")

	stats, err := that.results.Stats(r.Context())
	if err != nil {
		log.Error("failed to read stats", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if err = writeJSON(w, http.StatusOK, stats); err != nil {
		log.Error("failed to write stats response", "error", err)
	}
}

// resultsHandler - newest first finished rounds of one room; ?limit= caps the count.
func (that *Server) resultsHandler(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "resultsHandler")

	code, ok := pkg.NormalizeRoomCode(r.PathValue("code"))
	if !ok {
		http.Error(w, "invalid room code", http.StatusBadRequest)
		return
	}

	limit := defaultResultsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(parsed, maxResultsLimit)
	}

	results, err := that.results.Recent(r.Context(), code, limit)
	if err != nil {
		log.Error("failed to read results", "roomCode", code, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if results == nil {
		results = []*entity.Result{}
	}

	if err = writeJSON(w, http.StatusOK, resultsResponse{RoomCode: code, Results: results}); err != nil {
		log.Error("failed to write results response", "error", err)
	}
}

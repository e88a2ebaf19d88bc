package gtfs_api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"tarediiran-industries.com/gtfs-board/internal/logging"
)

const requestTimeout = 5 * time.Second

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Database  string    `json:"database"`
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error,omitempty"`
}

func writeJSON(writer http.ResponseWriter, status int, body any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	_ = json.NewEncoder(writer).Encode(body)
}

func (server *GtfsApiServer) handleStations(writer http.ResponseWriter, request *http.Request) {
	ctx, cancel := context.WithTimeout(request.Context(), requestTimeout)
	defer cancel()

	stations, err := server.repository.Stations(ctx)
	if err != nil {
		logging.LogError(logging.FromContext(ctx), "failed to load stations", err)
		writeJSON(writer, http.StatusInternalServerError, ErrorResponse{
			Error:   "Error loading stations",
			Details: err.Error(),
		})
		return
	}

	writeJSON(writer, http.StatusOK, stations)
}

func (server *GtfsApiServer) handleScheduled(writer http.ResponseWriter, request *http.Request) {
	ctx, cancel := context.WithTimeout(request.Context(), requestTimeout)
	defer cancel()

	stopID := chi.URLParam(request, "stop_id")
	fromTime := server.now().In(server.location).Format("15:04:05")

	trains, err := server.repository.ScheduledDepartures(ctx, stopID, fromTime, server.scheduledLimit)
	if err != nil {
		logging.LogError(logging.FromContext(ctx), "failed to load scheduled departures", err)
		writeJSON(writer, http.StatusInternalServerError, ErrorResponse{
			Error:   "Error loading scheduled trains",
			Details: err.Error(),
		})
		return
	}

	writeJSON(writer, http.StatusOK, trains)
}

func (server *GtfsApiServer) handleHealth(writer http.ResponseWriter, request *http.Request) {
	ctx, cancel := context.WithTimeout(request.Context(), 2*time.Second)
	defer cancel()

	if err := server.repository.Ping(ctx); err != nil {
		writeJSON(writer, http.StatusServiceUnavailable, HealthResponse{
			Status:    "error",
			Database:  "disconnected",
			Timestamp: server.now().UTC(),
			Error:     err.Error(),
		})
		return
	}

	writeJSON(writer, http.StatusOK, HealthResponse{
		Status:    "ok",
		Database:  "connected",
		Timestamp: server.now().UTC(),
	})
}

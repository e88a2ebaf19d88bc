package schedule

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tarediiran-industries.com/gtfs-board/internal/common"
	"tarediiran-industries.com/gtfs-board/internal/logging"
	"tarediiran-industries.com/gtfs-board/internal/transit"
)

const (
	metricsStations  = "api_stations"
	metricsScheduled = "api_scheduled"
)

// Client reads stations and scheduled departures from the backend API.
type Client struct {
	baseURL string
	client  *http.Client
	metrics *common.Metrics
	logger  *slog.Logger
}

func NewClient(baseURL string, httpClient *http.Client, metrics *common.Metrics, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpClient,
		metrics: metrics,
		logger:  logger.With(slog.String("component", "schedule_client")),
	}
}

func (client *Client) BaseURL() string {
	return client.baseURL
}

// Stations returns every station known to the backend.
func (client *Client) Stations(ctx context.Context) ([]transit.Station, error) {
	var stations []transit.Station
	if err := client.getJSON(ctx, metricsStations, "/api/stations", &stations); err != nil {
		client.metrics.CountError(metricsStations)
		return nil, fmt.Errorf("stations: %w", err)
	}
	return stations, nil
}

// ScheduledTrains returns the departures due at stopID in backend order.
// Failures are logged and yield an empty slice.
func (client *Client) ScheduledTrains(ctx context.Context, stopID string) []transit.ScheduledTrain {
	if strings.TrimSpace(stopID) == "" {
		return []transit.ScheduledTrain{}
	}

	path := "/api/station/" + url.PathEscape(stopID) + "/scheduled"
	var trains []transit.ScheduledTrain
	if err := client.getJSON(ctx, metricsScheduled, path, &trains); err != nil {
		client.metrics.CountError(metricsScheduled)
		logging.LogError(client.logger, "failed to fetch scheduled trains", err,
			slog.String("stop_id", stopID))
		return []transit.ScheduledTrain{}
	}
	if trains == nil {
		trains = []transit.ScheduledTrain{}
	}
	return trains
}

// Health returns the decoded body of the backend /health endpoint.
func (client *Client) Health(ctx context.Context) (map[string]any, error) {
	var health map[string]any
	if err := client.getJSON(ctx, "api_health", "/health", &health); err != nil {
		return nil, fmt.Errorf("health: %w", err)
	}
	return health, nil
}

func (client *Client) getJSON(ctx context.Context, endpoint, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, client.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := client.client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer logging.SafeCloseWithLogging(resp.Body, client.logger, "http_response_body")
	ttfb := time.Since(start)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status code %d", path, resp.StatusCode)
	}

	counter := &countingReader{reader: resp.Body}
	readStart := time.Now()
	if err := json.NewDecoder(counter).Decode(out); err != nil {
		return fmt.Errorf("GET %s: decode: %w", path, err)
	}

	client.metrics.ObserveFetch(endpoint, ttfb, time.Since(readStart), counter.n)
	return nil
}

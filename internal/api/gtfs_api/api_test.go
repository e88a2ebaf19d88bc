package gtfs_api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tarediiran-industries.com/gtfs-board/internal/db"
	"tarediiran-industries.com/gtfs-board/internal/transit"
)

var seedStatements = []string{
	`CREATE TABLE stops (stop_id TEXT, stop_name TEXT, stop_lat TEXT, stop_lon TEXT)`,
	`CREATE TABLE routes (route_id TEXT, route_short_name TEXT, route_long_name TEXT)`,
	`CREATE TABLE trips (route_id TEXT, service_id TEXT, trip_id TEXT, trip_headsign TEXT)`,
	`CREATE TABLE stop_times (trip_id TEXT, arrival_time TEXT, departure_time TEXT, stop_id TEXT, stop_sequence TEXT)`,
	`INSERT INTO stops VALUES ('79400', 'Tarragona', '41.111', '1.253'), ('71801', 'Barcelona-Sants', '41.379', ''),
		('72400', 'Aeroport', 'n/a', '2.07')`,
	`INSERT INTO routes VALUES ('R2S', 'R2S', 'Barcelona - Sant Vicenç'), ('R14', 'R14', 'Barcelona - Lleida')`,
	`INSERT INTO trips VALUES ('R2S', 'S1', 'T1', 'Sant Vicenç'), ('R14', 'S1', 'T2', ''), ('R2S', 'S1', 'T3', NULL),
		('R2S', 'S1', 'T4', 'Garraf')`,
	`INSERT INTO stop_times VALUES
		('T1', '08:00:00', '08:01:00', '71801', '1'),
		('T2', '07:59:00', '08:00:00', '71801', '1'),
		('T3', '09:30:00', '09:30:00', '71801', '1'),
		('T4', '07:00:00', '07:00:00', '71801', '1'),
		('T1', '08:40:00', '08:40:00', '79400', '2')`,
}

func seededDatabase(t *testing.T) *db.Database {
	t.Helper()
	ctx := context.Background()
	database, err := db.NewDatabaseConnection(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	for _, statement := range seedStatements {
		_, err := database.ExecContext(ctx, statement)
		require.NoError(t, err, statement)
	}
	return database
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedClock(hour, minute int) func() time.Time {
	return func() time.Time {
		return time.Date(2025, 3, 10, hour, minute, 0, 0, time.UTC)
	}
}

func newTestServer(repository Repository, limit int, now func() time.Time) *GtfsApiServer {
	return NewGtfsApiServer(repository, ServerOptions{
		Location:       time.UTC,
		ScheduledLimit: limit,
		Now:            now,
	}, discardLogger())
}

func serve(t *testing.T, server *GtfsApiServer, path string) *httptest.ResponseRecorder {
	t.Helper()
	recorder := httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, path, nil))
	return recorder
}

func TestStationsOrderedByName(t *testing.T) {
	server := newTestServer(NewSQLRepository(seededDatabase(t)), 10, fixedClock(8, 0))

	recorder := serve(t, server, "/api/stations")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "application/json", recorder.Header().Get("Content-Type"))

	var stations []transit.Station
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &stations))
	require.Len(t, stations, 3)
	assert.Equal(t, []string{"Aeroport", "Barcelona-Sants", "Tarragona"},
		[]string{stations[0].Name, stations[1].Name, stations[2].Name})

	// unparsable or empty coordinates degrade to zero
	assert.Equal(t, 0.0, stations[0].Lat)
	assert.Equal(t, 2.07, stations[0].Lon)
	assert.Equal(t, 41.379, stations[1].Lat)
	assert.Equal(t, 0.0, stations[1].Lon)
}

func TestStationsDatabaseFailure(t *testing.T) {
	database, err := db.NewDatabaseConnection(context.Background(), ":memory:")
	require.NoError(t, err)
	defer database.Close()

	server := newTestServer(NewSQLRepository(database), 10, fixedClock(8, 0))
	recorder := serve(t, server, "/api/stations")
	require.Equal(t, http.StatusInternalServerError, recorder.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Equal(t, "Error loading stations", body.Error)
	assert.Contains(t, body.Details, "stops")
}

func TestScheduledDepartures(t *testing.T) {
	server := newTestServer(NewSQLRepository(seededDatabase(t)), 10, fixedClock(8, 0))

	recorder := serve(t, server, "/api/station/71801/scheduled")
	require.Equal(t, http.StatusOK, recorder.Code)

	var trains []transit.ScheduledTrain
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &trains))
	require.Len(t, trains, 3)

	// T4 left at 07:00 and is excluded; the rest come in departure order.
	assert.Equal(t, transit.ScheduledTrain{
		TripID: "T2", StopID: "71801", Destination: "Barcelona - Lleida", Line: "R14", Scheduled: "08:00:00",
	}, trains[0])
	assert.Equal(t, "Sant Vicenç", trains[1].Destination)
	assert.Equal(t, "Barcelona - Sant Vicenç", trains[2].Destination)
	assert.Equal(t, "09:30:00", trains[2].Scheduled)
}

func TestScheduledDeparturesLimitAndTimezone(t *testing.T) {
	madrid, err := time.LoadLocation("Europe/Madrid")
	require.NoError(t, err)

	// 07:30 UTC is 08:30 in Madrid during winter time.
	server := NewGtfsApiServer(NewSQLRepository(seededDatabase(t)), ServerOptions{
		Location:       madrid,
		ScheduledLimit: 1,
		Now:            fixedClock(7, 30),
	}, discardLogger())

	recorder := serve(t, server, "/api/station/71801/scheduled")
	require.Equal(t, http.StatusOK, recorder.Code)

	var trains []transit.ScheduledTrain
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &trains))
	require.Len(t, trains, 1)
	assert.Equal(t, "T3", trains[0].TripID)
}

func TestScheduledUnknownStopIsEmptyList(t *testing.T) {
	server := newTestServer(NewSQLRepository(seededDatabase(t)), 10, fixedClock(8, 0))

	recorder := serve(t, server, "/api/station/00000/scheduled")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `[]`, recorder.Body.String())
}

type failingRepository struct{}

func (failingRepository) Stations(context.Context) ([]transit.Station, error) {
	return nil, errors.New("unavailable")
}

func (failingRepository) ScheduledDepartures(context.Context, string, string, int) ([]transit.ScheduledTrain, error) {
	return nil, errors.New("unavailable")
}

func (failingRepository) Ping(context.Context) error {
	return errors.New("unavailable")
}

func TestHealth(t *testing.T) {
	server := newTestServer(NewSQLRepository(seededDatabase(t)), 10, fixedClock(8, 0))
	recorder := serve(t, server, "/health")
	require.Equal(t, http.StatusOK, recorder.Code)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "connected", health.Database)

	failing := newTestServer(failingRepository{}, 10, fixedClock(8, 0))
	recorder = serve(t, failing, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"database":"disconnected"`)

	recorder = serve(t, failing, "/api/station/71801/scheduled")
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "Error loading scheduled trains")
}

func TestCORSPreflight(t *testing.T) {
	server := NewGtfsApiServer(failingRepository{}, ServerOptions{
		AllowedOrigins: []string{"http://localhost:3000"},
	}, discardLogger())

	request := httptest.NewRequest(http.MethodOptions, "/api/stations", nil)
	request.Header.Set("Origin", "http://localhost:3000")
	request.Header.Set("Access-Control-Request-Method", http.MethodGet)
	recorder := httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, request)

	assert.Equal(t, "http://localhost:3000", recorder.Header().Get("Access-Control-Allow-Origin"))
}

func TestParseArgs(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DATABASE_URL", "")

	t.Run("defaults", func(t *testing.T) {
		cfg, err := ParseArgs("gtfs-api", []string{"-env-file", ""}, io.Discard)
		require.NoError(t, err)
		assert.Equal(t, DefaultListenAddress, cfg.ListenAddress)
		assert.Equal(t, DefaultDatabase, cfg.DatabaseConnection)
		assert.Equal(t, DefaultTimezone, cfg.Timezone)
		assert.Equal(t, DefaultScheduledLimit, cfg.ScheduledLimit)
	})

	t.Run("toml then env then flags", func(t *testing.T) {
		// godotenv never overrides variables that are already set
		require.NoError(t, os.Unsetenv("DATABASE_URL"))

		dir := t.TempDir()
		tomlPath := filepath.Join(dir, "api.toml")
		require.NoError(t, os.WriteFile(tomlPath, []byte(
			"listen = \":9000\"\ndatabase = \"from-toml.db\"\nscheduled_limit = 5\nallowed_origins = [\"http://kiosk\"]\n"), 0o644))
		envPath := filepath.Join(dir, ".env")
		require.NoError(t, os.WriteFile(envPath, []byte("DATABASE_URL=from-env.db\n"), 0o644))

		cfg, err := ParseArgs("gtfs-api", []string{"-toml", tomlPath, "-env-file", envPath, "-limit", "3"}, io.Discard)
		require.NoError(t, err)
		assert.Equal(t, ":9000", cfg.ListenAddress)
		assert.Equal(t, "from-env.db", cfg.DatabaseConnection)
		assert.Equal(t, 3, cfg.ScheduledLimit)
		assert.Equal(t, []string{"http://kiosk"}, cfg.AllowedOrigins)
	})

	t.Run("invalid timezone", func(t *testing.T) {
		_, err := ParseArgs("gtfs-api", []string{"-env-file", "", "-timezone", "Mars/Olympus"}, io.Discard)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Timezone: failed timezone")
	})
}

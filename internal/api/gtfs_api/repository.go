package gtfs_api

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"tarediiran-industries.com/gtfs-board/internal/db"
	"tarediiran-industries.com/gtfs-board/internal/transit"
)

// Store is the subset of *db.Database the repository needs.
type Store interface {
	db.DBTX
	PingContext(ctx context.Context) error
}

type Repository interface {
	Stations(ctx context.Context) ([]transit.Station, error)
	ScheduledDepartures(ctx context.Context, stopID, fromTime string, limit int) ([]transit.ScheduledTrain, error)
	Ping(ctx context.Context) error
}

type SQLRepository struct {
	store Store
}

func NewSQLRepository(store Store) *SQLRepository {
	return &SQLRepository{store: store}
}

const stationsQuery = `
SELECT stop_id, stop_name, stop_lat, stop_lon
FROM stops
ORDER BY stop_name`

// Departure times are GTFS HH:MM:SS text, so string order is time order.
const scheduledQuery = `
SELECT st.trip_id,
       st.stop_id,
       COALESCE(NULLIF(t.trip_headsign, ''), r.route_long_name, '') AS destino,
       COALESCE(r.route_short_name, '') AS linea,
       st.departure_time
FROM stop_times st
JOIN trips t ON t.trip_id = st.trip_id
LEFT JOIN routes r ON r.route_id = t.route_id
WHERE st.stop_id = ? AND st.departure_time >= ?
ORDER BY st.departure_time
LIMIT ?`

func parseCoordinate(value sql.NullString) float64 {
	if !value.Valid {
		return 0
	}
	coordinate, err := strconv.ParseFloat(strings.TrimSpace(value.String), 64)
	if err != nil {
		return 0
	}
	return coordinate
}

func (repository *SQLRepository) Stations(ctx context.Context) ([]transit.Station, error) {
	rows, err := repository.store.QueryContext(ctx, stationsQuery)
	if err != nil {
		return nil, fmt.Errorf("query stops: %w", err)
	}
	defer rows.Close()

	stations := make([]transit.Station, 0)
	for rows.Next() {
		var stopID, name, lat, lon sql.NullString
		if err := rows.Scan(&stopID, &name, &lat, &lon); err != nil {
			return nil, fmt.Errorf("scan stop: %w", err)
		}
		stations = append(stations, transit.Station{
			StopID: stopID.String,
			Name:   name.String,
			Lat:    parseCoordinate(lat),
			Lon:    parseCoordinate(lon),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stops: %w", err)
	}
	return stations, nil
}

func (repository *SQLRepository) ScheduledDepartures(ctx context.Context, stopID, fromTime string, limit int) ([]transit.ScheduledTrain, error) {
	rows, err := repository.store.QueryContext(ctx, scheduledQuery, stopID, fromTime, limit)
	if err != nil {
		return nil, fmt.Errorf("query stop_times: %w", err)
	}
	defer rows.Close()

	trains := make([]transit.ScheduledTrain, 0, limit)
	for rows.Next() {
		var train transit.ScheduledTrain
		var tripID, stop, destination, line, departure sql.NullString
		if err := rows.Scan(&tripID, &stop, &destination, &line, &departure); err != nil {
			return nil, fmt.Errorf("scan stop_time: %w", err)
		}
		train.TripID = tripID.String
		train.StopID = stop.String
		train.Destination = destination.String
		train.Line = line.String
		train.Scheduled = departure.String
		trains = append(trains, train)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stop_times: %w", err)
	}
	return trains, nil
}

func (repository *SQLRepository) Ping(ctx context.Context) error {
	if err := repository.store.PingContext(ctx); err != nil {
		return err
	}
	// An empty database answers pings; the board is useless without stops.
	var count int
	return repository.store.QueryRowContext(ctx, "SELECT COUNT(*) FROM stops").Scan(&count)
}

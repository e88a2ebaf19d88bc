package board

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"tarediiran-industries.com/gtfs-board/internal/logging"
	"tarediiran-industries.com/gtfs-board/internal/transit"
)

const StationsErrorMessage = "Error connecting to the backend API."

var (
	ErrUnknownStation      = errors.New("unknown station")
	ErrStationsUnavailable = errors.New("station list unavailable")
)

type StationSource interface {
	Stations(ctx context.Context) ([]transit.Station, error)
}

type Selection interface {
	Select(station transit.Station)
}

// Selector loads the station list once and turns station picks into
// selections on the refresh loop.
type Selector struct {
	source    StationSource
	selection Selection
	logger    *slog.Logger

	once         sync.Once
	mu           sync.RWMutex
	stations     []transit.Station
	byStopID     map[string]transit.Station
	errorMessage string
	loadErr      error
}

func NewSelector(source StationSource, selection Selection, logger *slog.Logger) *Selector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Selector{
		source:    source,
		selection: selection,
		logger:    logger.With(slog.String("component", "station_selector")),
		byStopID:  map[string]transit.Station{},
	}
}

// Load fetches the station list. Only the first call does any work; a failure
// is kept and never retried.
func (selector *Selector) Load(ctx context.Context) error {
	selector.once.Do(func() {
		stations, err := selector.source.Stations(ctx)

		selector.mu.Lock()
		defer selector.mu.Unlock()

		if err != nil {
			logging.LogError(selector.logger, "failed to load stations", err)
			selector.errorMessage = StationsErrorMessage
			selector.loadErr = err
			return
		}

		selector.stations = stations
		for _, station := range stations {
			selector.byStopID[station.StopID] = station
		}
		logging.LogOperation(selector.logger, "stations_loaded", slog.Int("count", len(stations)))
	})

	selector.mu.RLock()
	defer selector.mu.RUnlock()
	return selector.loadErr
}

func (selector *Selector) Stations() []transit.Station {
	selector.mu.RLock()
	defer selector.mu.RUnlock()
	return append([]transit.Station(nil), selector.stations...)
}

// ErrorMessage is empty unless loading the station list failed.
func (selector *Selector) ErrorMessage() string {
	selector.mu.RLock()
	defer selector.mu.RUnlock()
	return selector.errorMessage
}

func (selector *Selector) Select(stopID string) (transit.Station, error) {
	selector.mu.RLock()
	failed := selector.loadErr != nil
	station, ok := selector.byStopID[stopID]
	selector.mu.RUnlock()

	if failed {
		return transit.Station{}, ErrStationsUnavailable
	}
	if !ok {
		return transit.Station{}, ErrUnknownStation
	}

	selector.selection.Select(station)
	return station, nil
}

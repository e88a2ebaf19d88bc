package gtfs_board

import (
	"sync"

	"tarediiran-industries.com/gtfs-board/internal/board"
	"tarediiran-industries.com/gtfs-board/internal/transit"
)

// BoardStore keeps the selected station and the latest board published for it.
type BoardStore struct {
	mu       sync.RWMutex
	selected *transit.Station
	latest   *board.Board
}

func NewBoardStore() *BoardStore {
	return &BoardStore{}
}

// Begin switches to station and drops the previous board until the first
// cycle for station publishes.
func (store *BoardStore) Begin(station transit.Station) {
	store.mu.Lock()
	defer store.mu.Unlock()

	selected := station
	store.selected = &selected
	store.latest = nil
}

// Publish keeps b if it belongs to the selected station.
func (store *BoardStore) Publish(b board.Board) {
	store.mu.Lock()
	defer store.mu.Unlock()

	if store.selected == nil || store.selected.StopID != b.Station.StopID {
		return
	}
	latest := b
	store.latest = &latest
}

type Snapshot struct {
	Station *transit.Station `json:"station"`
	Board   *board.Board     `json:"board"`
}

func (store *BoardStore) Snapshot() Snapshot {
	store.mu.RLock()
	defer store.mu.RUnlock()

	var snapshot Snapshot
	if store.selected != nil {
		station := *store.selected
		snapshot.Station = &station
	}
	if store.latest != nil {
		latest := *store.latest
		latest.Trains = append([]transit.AnnotatedTrain(nil), store.latest.Trains...)
		snapshot.Board = &latest
	}
	return snapshot
}

// stationSelection resets the store before handing the station to the
// controller. Both steps run under one lock so concurrent selections leave the
// store and the controller on the same station.
type stationSelection struct {
	mu         sync.Mutex
	store      *BoardStore
	controller *board.Controller
}

func newStationSelection(store *BoardStore, controller *board.Controller) *stationSelection {
	return &stationSelection{store: store, controller: controller}
}

func (selection *stationSelection) Select(station transit.Station) {
	selection.mu.Lock()
	defer selection.mu.Unlock()

	selection.store.Begin(station)
	selection.controller.Select(station)
}

package board

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"tarediiran-industries.com/gtfs-board/internal/common"
	"tarediiran-industries.com/gtfs-board/internal/logging"
	"tarediiran-industries.com/gtfs-board/internal/transit"
)

const DefaultRefreshInterval = 30 * time.Second

type Runner interface {
	Run(ctx context.Context, station transit.Station) Board
}

// Presenter receives every board that belongs to the current selection.
// Publish is called with the controller lock held and must not call back
// into the controller.
type Presenter interface {
	Publish(board Board)
}

type PresenterFunc func(board Board)

func (fn PresenterFunc) Publish(board Board) {
	fn(board)
}

// Controller owns the current station selection and its refresh timer.
// Selecting a station replaces the previous timer; results of cycles started
// for an earlier selection are dropped instead of published.
type Controller struct {
	runner    Runner
	presenter Presenter
	interval  time.Duration
	metrics   *common.Metrics
	logger    *slog.Logger

	mu         sync.Mutex
	generation uint64
	selected   *transit.Station
	cancel     context.CancelFunc
	done       chan struct{}

	active atomic.Int32
}

func NewController(runner Runner, presenter Presenter, interval time.Duration, metrics *common.Metrics, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &Controller{
		runner:    runner,
		presenter: presenter,
		interval:  interval,
		metrics:   metrics,
		logger:    logger.With(slog.String("component", "refresh_loop")),
	}
}

// Select makes station the current selection: the running timer is
// cancelled, one cycle runs right away and then one per interval.
func (controller *Controller) Select(station transit.Station) {
	controller.mu.Lock()
	defer controller.mu.Unlock()

	if controller.cancel != nil {
		controller.cancel()
	}

	controller.generation++
	generation := controller.generation
	selected := station
	controller.selected = &selected

	ctx, cancel := context.WithCancel(logging.WithLogger(context.Background(), controller.logger))
	previous := controller.done
	done := make(chan struct{})
	controller.cancel = cancel
	controller.done = done

	logging.LogOperation(controller.logger, "station_selected",
		slog.String("stop_id", station.StopID),
		slog.String("stop_name", station.Name),
		slog.Uint64("generation", generation))

	go controller.loop(ctx, generation, station, previous, done)
}

// Stop cancels the timer, clears the selection and waits for the loop to exit.
func (controller *Controller) Stop() {
	controller.mu.Lock()
	if controller.cancel != nil {
		controller.cancel()
		controller.cancel = nil
	}
	controller.generation++
	controller.selected = nil
	done := controller.done
	controller.mu.Unlock()

	if done != nil {
		<-done
	}
}

func (controller *Controller) Current() (transit.Station, bool) {
	controller.mu.Lock()
	defer controller.mu.Unlock()

	if controller.selected == nil {
		return transit.Station{}, false
	}
	return *controller.selected, true
}

// ActiveLoops reports how many refresh timers are running; never more than one.
func (controller *Controller) ActiveLoops() int {
	return int(controller.active.Load())
}

func (controller *Controller) loop(ctx context.Context, generation uint64, station transit.Station, previous <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	// The previous loop is already cancelled; its in-flight fetches abort
	// with the context, so this wait is short.
	if previous != nil {
		<-previous
	}
	if ctx.Err() != nil {
		return
	}

	controller.active.Add(1)
	defer controller.active.Add(-1)

	controller.runCycle(ctx, generation, station)

	ticker := time.NewTicker(controller.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			controller.runCycle(ctx, generation, station)
		}
	}
}

func (controller *Controller) runCycle(ctx context.Context, generation uint64, station transit.Station) {
	cycleID := uuid.NewString()
	benchmarker := common.NewBenchmarker(controller.logger, "reconciliation-cycle")

	board := controller.runner.Run(ctx, station)
	board.CycleID = cycleID
	board.Generation = generation

	published := controller.publish(board)
	elapsed := benchmarker.Close()

	outcome := "published"
	if !published {
		outcome = "discarded"
	}
	controller.metrics.CountCycle(outcome)
	controller.logger.Debug("cycle_finished",
		slog.String("cycle_id", cycleID),
		slog.String("stop_id", station.StopID),
		slog.String("outcome", outcome),
		slog.Int("trains", len(board.Trains)),
		slog.Duration("duration", elapsed))
}

func (controller *Controller) publish(board Board) bool {
	controller.mu.Lock()
	defer controller.mu.Unlock()

	if controller.selected == nil || board.Generation != controller.generation {
		return false
	}
	if controller.presenter != nil {
		controller.presenter.Publish(board)
	}
	return true
}

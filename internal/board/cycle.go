package board

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"tarediiran-industries.com/gtfs-board/internal/transit"
)

type ScheduleSource interface {
	ScheduledTrains(ctx context.Context, stopID string) []transit.ScheduledTrain
}

type FeedSource interface {
	Fetch(ctx context.Context) transit.RealtimeUpdate
	LastUpdate() time.Time
}

// Board is the result of one reconciliation cycle for a station.
type Board struct {
	CycleID     string                   `json:"cycle_id"`
	Generation  uint64                   `json:"-"`
	Station     transit.Station          `json:"station"`
	Trains      []transit.AnnotatedTrain `json:"trains"`
	LastUpdate  time.Time                `json:"last_update"`
	GeneratedAt time.Time                `json:"generated_at"`
}

// Cycle fetches the schedule and the feed for a station and reconciles them.
type Cycle struct {
	Schedule ScheduleSource
	Feed     FeedSource
	Now      func() time.Time
}

// Run issues both fetches concurrently and reconciles once both have returned.
// The sources degrade to empty results, so Run always yields a board.
func (cycle *Cycle) Run(ctx context.Context, station transit.Station) Board {
	var scheduled []transit.ScheduledTrain
	var realtime transit.RealtimeUpdate

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		scheduled = cycle.Schedule.ScheduledTrains(groupCtx, station.StopID)
		return nil
	})
	group.Go(func() error {
		realtime = cycle.Feed.Fetch(groupCtx)
		return nil
	})
	_ = group.Wait()

	now := time.Now
	if cycle.Now != nil {
		now = cycle.Now
	}

	return Board{
		Station:     station,
		Trains:      transit.Reconcile(scheduled, realtime),
		LastUpdate:  cycle.Feed.LastUpdate(),
		GeneratedAt: now(),
	}
}

package transit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chamartinTrain() ScheduledTrain {
	return ScheduledTrain{
		TripID:      "5477_00030_03",
		StopID:      "35307",
		Destination: "Chamartín",
		Line:        "C4",
		Scheduled:   "13:40:00",
	}
}

func TestReconcileRealtimeOverridesScheduledTime(t *testing.T) {
	realtime := RealtimeUpdate{"5477_00030_03": {"35307": "13:45:00"}}

	annotated := Reconcile([]ScheduledTrain{chamartinTrain()}, realtime)

	require.Len(t, annotated, 1)
	assert.Equal(t, chamartinTrain(), annotated[0].ScheduledTrain)
	assert.Equal(t, "13:45:00", annotated[0].Estimated)
	assert.Equal(t, StatusRealtime, annotated[0].Status)
	assert.Equal(t, ClassRealtime, annotated[0].StatusClass)
}

func TestReconcileFallsBackToSchedule(t *testing.T) {
	tests := []struct {
		name     string
		realtime RealtimeUpdate
	}{
		{"nil mapping", nil},
		{"empty mapping", RealtimeUpdate{}},
		{"trip absent", RealtimeUpdate{"other_trip": {"35307": "13:45:00"}}},
		{"stop absent for trip", RealtimeUpdate{"5477_00030_03": {"35407": "14:15:00"}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			annotated := Reconcile([]ScheduledTrain{chamartinTrain()}, tc.realtime)

			require.Len(t, annotated, 1)
			assert.Equal(t, "13:40:00", annotated[0].Estimated)
			assert.Equal(t, StatusScheduled, annotated[0].Status)
			assert.Equal(t, ClassScheduled, annotated[0].StatusClass)
		})
	}
}

func TestReconcilePreservesLengthAndOrder(t *testing.T) {
	scheduled := []ScheduledTrain{
		{TripID: "t3", StopID: "s", Scheduled: "09:00:00"},
		{TripID: "t1", StopID: "s", Scheduled: "08:00:00"},
		{TripID: "t2", StopID: "s", Scheduled: "08:30:00"},
		{TripID: "t1", StopID: "s", Scheduled: "08:00:00"},
	}
	realtime := RealtimeUpdate{
		"t1":       {"s": "08:05:00"},
		"t9":       {"s": "10:00:00"},
		"unlisted": {"x": "11:00:00"},
	}

	annotated := Reconcile(scheduled, realtime)

	require.Len(t, annotated, len(scheduled))
	for i, train := range annotated {
		assert.Equal(t, scheduled[i], train.ScheduledTrain, "row %d", i)
	}
	assert.Equal(t, StatusScheduled, annotated[0].Status)
	assert.Equal(t, StatusRealtime, annotated[1].Status)
	assert.Equal(t, "08:05:00", annotated[3].Estimated)
}

func TestReconcileEmptySchedule(t *testing.T) {
	annotated := Reconcile(nil, RealtimeUpdate{"t1": {"s": "08:05:00"}})
	assert.NotNil(t, annotated)
	assert.Empty(t, annotated)
}

func TestRealtimeUpdateCloneIsDeep(t *testing.T) {
	original := RealtimeUpdate{}
	original.Set("t1", "s1", "10:00:00")

	clone := original.Clone()
	clone.Set("t1", "s1", "11:00:00")
	clone.Set("t2", "s2", "12:00:00")

	estimated, ok := original.Estimate("t1", "s1")
	require.True(t, ok)
	assert.Equal(t, "10:00:00", estimated)
	_, ok = original.Estimate("t2", "s2")
	assert.False(t, ok)
}

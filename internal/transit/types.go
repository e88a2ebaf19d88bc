package transit

// Status labels shown next to every train on the board.
const (
	StatusScheduled = "Scheduled"
	StatusRealtime  = "Real-time"

	// StatusCancelled is reserved. The feed's cancellation signal and its
	// precedence over real-time estimates are not defined yet, so nothing
	// produces it.
	StatusCancelled = "Cancelled"
)

// Presentation classes paired with the status labels.
const (
	ClassScheduled = "status-prog"
	ClassRealtime  = "status-rt"
	ClassCancelled = "status-cancel"
)

type Station struct {
	StopID string  `json:"stop_id"`
	Name   string  `json:"stop_name"`
	Lat    float64 `json:"stop_lat"`
	Lon    float64 `json:"stop_lon"`
}

type ScheduledTrain struct {
	TripID      string `json:"trip_id"`
	StopID      string `json:"stop_id"`
	Destination string `json:"destino"`
	Line        string `json:"linea"`
	Scheduled   string `json:"programado"`
}

// RealtimeUpdate maps trip_id -> stop_id -> estimated time ("15:04:05").
type RealtimeUpdate map[string]map[string]string

// Estimate returns the real-time estimate for a trip at a stop, if any.
func (update RealtimeUpdate) Estimate(tripID, stopID string) (string, bool) {
	stops, ok := update[tripID]
	if !ok {
		return "", false
	}
	estimated, ok := stops[stopID]
	return estimated, ok
}

// Set records an estimate, creating the trip entry when needed.
func (update RealtimeUpdate) Set(tripID, stopID, estimated string) {
	stops, ok := update[tripID]
	if !ok {
		stops = make(map[string]string)
		update[tripID] = stops
	}
	stops[stopID] = estimated
}

// Clone returns a deep copy.
func (update RealtimeUpdate) Clone() RealtimeUpdate {
	out := make(RealtimeUpdate, len(update))
	for tripID, stops := range update {
		copied := make(map[string]string, len(stops))
		for stopID, estimated := range stops {
			copied[stopID] = estimated
		}
		out[tripID] = copied
	}
	return out
}

// AnnotatedTrain is a scheduled train after reconciliation with the feed.
type AnnotatedTrain struct {
	ScheduledTrain
	Estimated   string `json:"estimado"`
	Status      string `json:"estado"`
	StatusClass string `json:"statusClass"`
}

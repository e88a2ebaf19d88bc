package gtfs_board

import (
	"fmt"
	"time"

	"tarediiran-industries.com/gtfs-board/internal/transit"
)

const lastUpdateLayout = "15:04:05"

func BuildBoardPageVM(stations []transit.Station, errorMessage string, snapshot Snapshot, pollSeconds int) BoardPageVM {
	if pollSeconds <= 0 {
		pollSeconds = 1
	}

	selectedStopID := ""
	title := ""
	if snapshot.Station != nil {
		selectedStopID = snapshot.Station.StopID
		title = snapshot.Station.Name
	}

	out := make([]StationVM, 0, len(stations))
	for _, station := range stations {
		out = append(out, StationVM{
			StopID:      station.StopID,
			Name:        station.Name,
			Coordinates: fmt.Sprintf("%.4f, %.4f", station.Lat, station.Lon),
			Selected:    station.StopID == selectedStopID,
		})
	}

	return BoardPageVM{
		Stations:     out,
		StationTitle: title,
		ErrorMessage: errorMessage,
		PollSeconds:  pollSeconds,
	}
}

func BuildTrainsTableVM(snapshot Snapshot, location *time.Location) TrainsTableVM {
	if snapshot.Station == nil {
		return TrainsTableVM{}
	}
	if snapshot.Board == nil {
		return TrainsTableVM{Selected: true, Loading: true}
	}

	rows := make([]TrainRowVM, 0, len(snapshot.Board.Trains))
	for _, train := range snapshot.Board.Trains {
		rows = append(rows, TrainRowVM{
			Destination: train.Destination,
			Line:        train.Line,
			Scheduled:   train.Scheduled,
			Estimated:   train.Estimated,
			Status:      train.Status,
			StatusClass: train.StatusClass,
		})
	}

	return TrainsTableVM{
		Selected:   true,
		Rows:       rows,
		LastUpdate: FormatLastUpdate(snapshot.Board.LastUpdate, location),
	}
}

// FormatLastUpdate renders the last successful feed fetch, or "N/A" before the first one.
func FormatLastUpdate(lastUpdate time.Time, location *time.Location) string {
	if lastUpdate.IsZero() {
		return "N/A"
	}
	if location != nil {
		lastUpdate = lastUpdate.In(location)
	}
	return lastUpdate.Format(lastUpdateLayout)
}

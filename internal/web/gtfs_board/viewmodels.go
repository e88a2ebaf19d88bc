package gtfs_board

type BoardPageVM struct {
	Stations     []StationVM
	StationTitle string
	ErrorMessage string
	PollSeconds  int
}

type StationVM struct {
	StopID      string
	Name        string
	Coordinates string
	Selected    bool
}

type TrainsTableVM struct {
	Selected   bool
	Loading    bool
	Rows       []TrainRowVM
	LastUpdate string
}

type TrainRowVM struct {
	Destination string
	Line        string
	Scheduled   string
	Estimated   string
	Status      string
	StatusClass string
}

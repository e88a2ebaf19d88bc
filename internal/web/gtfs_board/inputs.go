package gtfs_board

import (
	"errors"
	"net/http"
	"strings"
)

var errMissingStopID = errors.New("stop_id is required")

type SelectInput struct {
	StopID string
}

func ParseSelectInput(request *http.Request) (SelectInput, error) {
	if err := request.ParseForm(); err != nil {
		return SelectInput{}, err
	}

	stopID := strings.TrimSpace(request.PostForm.Get("stop_id"))
	if stopID == "" {
		return SelectInput{}, errMissingStopID
	}
	return SelectInput{StopID: stopID}, nil
}

package gtfs_board

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"tarediiran-industries.com/gtfs-board/internal/board"
	"tarediiran-industries.com/gtfs-board/internal/logging"
)

func (server *GtfsBoardServer) render(writer http.ResponseWriter, request *http.Request, name string, data any) {
	writer.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := server.renderer.Render(writer, name, data); err != nil {
		logging.LogError(logging.FromContext(request.Context()), "template render failed", err,
			slog.String("template", name))
		http.Error(writer, err.Error(), http.StatusInternalServerError)
	}
}

func (server *GtfsBoardServer) handleBoardPage(writer http.ResponseWriter, request *http.Request) {
	viewmodel := BuildBoardPageVM(
		server.selector.Stations(),
		server.selector.ErrorMessage(),
		server.store.Snapshot(),
		server.pollSeconds,
	)
	server.render(writer, request, "layout.html", viewmodel)
}

func (server *GtfsBoardServer) handleSelect(writer http.ResponseWriter, request *http.Request) {
	input, err := ParseSelectInput(request)
	if err != nil {
		http.Error(writer, err.Error(), http.StatusBadRequest)
		return
	}

	station, err := server.selector.Select(input.StopID)
	switch {
	case errors.Is(err, board.ErrStationsUnavailable):
		http.Error(writer, board.StationsErrorMessage, http.StatusServiceUnavailable)
		return
	case errors.Is(err, board.ErrUnknownStation):
		http.Error(writer, "unknown station "+input.StopID, http.StatusNotFound)
		return
	case err != nil:
		http.Error(writer, err.Error(), http.StatusInternalServerError)
		return
	}

	logging.FromContext(request.Context()).Debug("station selected from board",
		slog.String("stop_id", station.StopID))
	http.Redirect(writer, request, "/board", http.StatusSeeOther)
}

func (server *GtfsBoardServer) handleTrainsPartial(writer http.ResponseWriter, request *http.Request) {
	viewmodel := BuildTrainsTableVM(server.store.Snapshot(), server.location)
	server.render(writer, request, "trains_table.html", viewmodel)
}

func (server *GtfsBoardServer) handleBoardSnapshot(writer http.ResponseWriter, request *http.Request) {
	writer.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(writer).Encode(server.store.Snapshot()); err != nil {
		logging.LogError(logging.FromContext(request.Context()), "failed to encode board snapshot", err)
	}
}

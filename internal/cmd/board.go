package cmd

import (
	"context"
	"fmt"
	"io"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"tarediiran-industries.com/gtfs-board/internal/board"
	"tarediiran-industries.com/gtfs-board/internal/transit"
	"tarediiran-industries.com/gtfs-board/internal/web/gtfs_board"
)

func NewBoardCmd(app *GtfsCtlApp) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "board <stop_id>",
		Short: "Show upcoming trains at a station with real-time estimates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := app.backend(cmd)
			if err != nil {
				return err
			}

			station := lookupStation(cmd.Context(), backend, args[0])
			cycle := &board.Cycle{Schedule: backend.schedule, Feed: backend.fetcher}
			out := cmd.OutOrStdout()

			if !watch {
				return printBoard(out, cycle.Run(cmd.Context(), station), backend.location)
			}

			var mu sync.Mutex
			controller := board.NewController(cycle, board.PresenterFunc(func(b board.Board) {
				mu.Lock()
				defer mu.Unlock()
				_ = printBoard(out, b, backend.location)
				fmt.Fprintln(out)
			}), backend.cfg.RefreshInterval(), nil, backend.logger)

			controller.Select(station)
			<-cmd.Context().Done()
			controller.Stop()
			return nil
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "Keep refreshing at the configured interval until interrupted")

	return cmd
}

// lookupStation resolves the station name; an unreachable station list still
// allows the board to be shown by id.
func lookupStation(ctx context.Context, backend *session, stopID string) transit.Station {
	stations, err := backend.schedule.Stations(ctx)
	if err == nil {
		for _, station := range stations {
			if station.StopID == stopID {
				return station
			}
		}
	}
	return transit.Station{StopID: stopID, Name: stopID}
}

func printBoard(out io.Writer, b board.Board, location *time.Location) error {
	fmt.Fprintf(out, "Station: %s (%s)\n", b.Station.Name, b.Station.StopID)
	if len(b.Trains) == 0 {
		fmt.Fprintln(out, "No upcoming trains in the available schedule.")
		return nil
	}

	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "DESTINATION\tLINE\tSCHEDULED\tESTIMATED\tSTATUS")
	for _, train := range b.Trains {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\n",
			train.Destination, train.Line, train.Scheduled, train.Estimated, train.Status)
	}
	if err := writer.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "Last real-time data update: %s\n", gtfs_board.FormatLastUpdate(b.LastUpdate, location))
	return nil
}

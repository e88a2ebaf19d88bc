package cmd

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"google.golang.org/protobuf/encoding/protojson"

	"tarediiran-industries.com/gtfs-board/internal/feeds"
	"tarediiran-industries.com/gtfs-board/internal/web/gtfs_board"
)

func NewFeedCmd(app *GtfsCtlApp) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Fetch the real-time feed and print its trip/stop estimates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := app.backend(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			data, err := backend.fetcher.FetchRaw(cmd.Context())
			if err != nil {
				return err
			}

			if raw {
				feedMessage, err := feeds.DecodeFeedMessage(data)
				if err != nil {
					return err
				}
				encoded, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(feedMessage)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, string(encoded))
				return err
			}

			update, err := gtfs_board.NewDecoder(backend.cfg, backend.location).Decode(data)
			if err != nil {
				return err
			}

			tripIDs := make([]string, 0, len(update))
			for tripID := range update {
				tripIDs = append(tripIDs, tripID)
			}
			sort.Strings(tripIDs)

			writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(writer, "TRIP_ID\tSTOP_ID\tESTIMATED")
			for _, tripID := range tripIDs {
				stops := update[tripID]
				stopIDs := make([]string, 0, len(stops))
				for stopID := range stops {
					stopIDs = append(stopIDs, stopID)
				}
				sort.Strings(stopIDs)
				for _, stopID := range stopIDs {
					fmt.Fprintf(writer, "%s\t%s\t%s\n", tripID, stopID, stops[stopID])
				}
			}
			return writer.Flush()
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Print the whole decoded FeedMessage as JSON")

	return cmd
}

package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func NewStationsCmd(app *GtfsCtlApp) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stations",
		Short: "List the stations served by the backend API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := app.backend(cmd)
			if err != nil {
				return err
			}

			stations, err := backend.schedule.Stations(cmd.Context())
			if err != nil {
				return err
			}

			writer := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(writer, "STOP_ID\tNAME\tLAT\tLON")
			for _, station := range stations {
				fmt.Fprintf(writer, "%s\t%s\t%.5f\t%.5f\n", station.StopID, station.Name, station.Lat, station.Lon)
			}
			return writer.Flush()
		},
	}

	return cmd
}

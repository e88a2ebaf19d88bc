package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func NewHealthCmd(app *GtfsCtlApp) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Inspect health of the backend API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := app.backend(cmd)
			if err != nil {
				return err
			}

			health, err := backend.schedule.Health(cmd.Context())
			if err != nil {
				return err
			}

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(health)
		},
	}

	return cmd
}

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/berth/internal/app"
)

// NewServeCmd creates the serve command
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long:  `Runs the HTTP API until SIGINT or SIGTERM. Configuration comes from BERTH_* environment variables.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(cmd.Context())
			if err != nil {
				return err
			}
			return a.Run()
		},
	}
}

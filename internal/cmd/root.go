package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/berth/internal/app"
	"github.com/MrSnakeDoc/berth/internal/config"
	"github.com/MrSnakeDoc/berth/internal/httpserver/deps"
	"github.com/MrSnakeDoc/berth/internal/logger"
	"github.com/MrSnakeDoc/berth/internal/utils"
	"github.com/MrSnakeDoc/berth/internal/version"
)

// session is the lifecycle surface a one-shot command drives.
type session struct {
	workspaces deps.Workspaces
	closer     io.Closer
}

func (s *session) Close() error { return s.closer.Close() }

// openSession wires the same core as the server. Tests replace it.
var openSession = func(ctx context.Context, logLevel string) (*session, error) {
	cfg := config.Load()
	core, err := app.NewCore(ctx, cfg, logger.New(logLevel, cfg.PrettyLog))
	if err != nil {
		return nil, err
	}
	return &session{workspaces: core.Manager, closer: core}, nil
}

// sessionRunner opens a session, runs fn and closes it.
type sessionRunner func(cmd *cobra.Command, fn func(*session) error) error

// NewRootCmd builds the berth command tree.
func NewRootCmd() *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:   "berth",
		Short: "Provision containerized desktop workspaces",
		Long: `berth runs catalog services as isolated container workspaces, each with
its own web port and data directory, and tracks them in a registry.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level for one-shot commands (debug, info, warn, error)")

	var withSession sessionRunner = func(cmd *cobra.Command, fn func(*session) error) error {
		s, err := openSession(cmd.Context(), logLevel)
		if err != nil {
			return fmt.Errorf("failed to initialize: %w", err)
		}
		defer utils.Close(s)
		return fn(s)
	}

	root.AddCommand(NewServeCmd())
	root.AddCommand(NewServicesCmd(withSession))
	root.AddCommand(NewCreateCmd(withSession))
	root.AddCommand(NewDeleteCmd(withSession))
	root.AddCommand(NewGetCmd(withSession))
	root.AddCommand(NewListCmd(withSession))
	root.AddCommand(NewLogsCmd(withSession))
	root.AddCommand(NewVersionCmd())

	return root
}

package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/berth/internal/domain"
)

const timeLayout = "2006-01-02 15:04:05"

// NewServicesCmd creates the services command
func NewServicesCmd(run sessionRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "services",
		Short: "List catalog services",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(s *session) error {
				services, err := s.workspaces.Services()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(services) == 0 {
					fmt.Fprintln(out, "No services in the catalog")
					return nil
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "NAME\tIMAGE\tDESCRIPTION")
				for _, svc := range services {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", svc.Name, svc.Image, svc.Description)
				}
				return tw.Flush()
			})
		},
	}
}

// NewCreateCmd creates the create command
func NewCreateCmd(run sessionRunner) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "create SERVICE",
		Short: "Create a workspace",
		Long: `Creates a workspace running SERVICE. Without --name the workspace is
named after the service with a random suffix.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(s *session) error {
				rec, err := s.workspaces.Create(cmd.Context(), args[0], name)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Workspace %s created (%s)\n", rec.Name, colorStatus(rec.LastKnownStatus))
				fmt.Fprintf(out, "  URL:   %s\n", rec.WebURL)
				fmt.Fprintf(out, "  Data:  %s\n", rec.DataDir)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Workspace name (defaults to SERVICE-xxxxxxxx)")

	return cmd
}

// NewDeleteCmd creates the delete command
func NewDeleteCmd(run sessionRunner) *cobra.Command {
	return &cobra.Command{
		Use:     "delete NAME",
		Aliases: []string{"rm"},
		Short:   "Stop and remove a workspace",
		Long:    `Stops and removes the workspace container and forgets it. The data directory is kept.`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(s *session) error {
				msg, err := s.workspaces.Delete(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), msg)
				return nil
			})
		},
	}
}

// NewGetCmd creates the get command
func NewGetCmd(run sessionRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "get NAME",
		Short: "Show one workspace with its live status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(s *session) error {
				view, err := s.workspaces.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printWorkspace(cmd.OutOrStdout(), view)
				return nil
			})
		},
	}
}

// NewListCmd creates the list command
func NewListCmd(run sessionRunner) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List workspaces with their live status",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(s *session) error {
				views, err := s.workspaces.List(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(views) == 0 {
					fmt.Fprintln(out, "No workspaces found")
					return nil
				}
				for _, v := range views {
					printWorkspace(out, v)
					fmt.Fprintln(out)
				}
				return nil
			})
		},
	}
}

// NewLogsCmd creates the logs command
func NewLogsCmd(run sessionRunner) *cobra.Command {
	var tail int

	cmd := &cobra.Command{
		Use:   "logs NAME",
		Short: "Print the last lines of a workspace's container log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if tail < 0 {
				return fmt.Errorf("--tail must not be negative")
			}
			return run(cmd, func(s *session) error {
				logs, err := s.workspaces.Logs(cmd.Context(), args[0], tail)
				if err != nil {
					return err
				}
				_, err = io.WriteString(cmd.OutOrStdout(), logs)
				return err
			})
		},
	}

	cmd.Flags().IntVar(&tail, "tail", 0, "Number of lines (0 = configured default)")

	return cmd
}

func printWorkspace(out io.Writer, v domain.WorkspaceView) {
	w := v.Workspace
	fmt.Fprintf(out, "%s (%s)\n", w.Name, colorStatus(v.CurrentStatus))
	fmt.Fprintf(out, "  Service:   %s\n", w.ServiceName)
	fmt.Fprintf(out, "  Image:     %s\n", w.Image)
	fmt.Fprintf(out, "  URL:       %s\n", w.WebURL)
	fmt.Fprintf(out, "  Data:      %s\n", w.DataDir)
	fmt.Fprintf(out, "  Created:   %s\n", w.CreatedAt.Local().Format(timeLayout))
	fmt.Fprintf(out, "  Accessed:  %s\n", w.LastAccessedAt.Local().Format(timeLayout))
}

func colorStatus(s domain.Status) string {
	switch s {
	case domain.StatusRunning:
		return color.GreenString(string(s))
	case domain.StatusCreating, domain.StatusStopped:
		return color.YellowString(string(s))
	case domain.StatusError, domain.StatusUnknown:
		return color.RedString(string(s))
	default:
		return string(s)
	}
}

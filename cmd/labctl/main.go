package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"lab-booking/internal/dashboard"
	"lab-booking/internal/observability"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	server   string
	timeout  time.Duration
	logLevel string
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &rootOptions{}
	var logger zerolog.Logger

	root := &cobra.Command{
		Use:          "labctl",
		Short:        "Client for the lab booking api",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), NoColor: true}).
				Level(observability.ParseLevel(opts.logLevel)).
				With().Timestamp().Str("app", "labctl").Logger()
		},
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&opts.server, "server", envOr("LAB_SERVER", "http://localhost:8080"), "lab-api base URL")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "request timeout")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level")

	root.AddCommand(
		newLabsCmd(opts),
		newDashboardCmd(opts, func() zerolog.Logger { return logger }),
		newRegisterCmd(opts),
	)
	return root
}

func newLabsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "labs",
		Short: "List available labs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := dashboard.NewClient(opts.server, opts.timeout)
			defer client.Close()

			labs, err := client.FetchLabs(cmd.Context())
			if err != nil {
				return fmt.Errorf("Error fetching labs: %w", err)
			}
			_, err = io.WriteString(cmd.OutOrStdout(), dashboard.RenderList(labs))
			return err
		},
	}
}

// newDashboardCmd prints the dashboard page with its labs list filled the
// same way the server fills it. A failed fetch is logged and the empty list
// is still printed.
func newDashboardCmd(opts *rootOptions, logger func() zerolog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Render the dashboard with the current labs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := dashboard.NewClient(opts.server, opts.timeout)
			defer client.Close()

			doc, err := dashboard.Parse(dashboard.Skeleton)
			if err != nil {
				return err
			}
			dashboard.NewPopulator(client, logger()).Populate(cmd.Context(), doc)

			html, err := dashboard.Render(doc)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), html)
			return err
		},
	}
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/crawlkit/origind/internal/crawlexec"
)

// newCrawlCmd creates and configures the 'crawl' subcommand: the full
// serve setup, plus one run of the external standard crawler against the
// live origins. Trailing arguments are handed to the crawler untouched.
func newCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [config] [-- crawler args...]",
		Short: "Run the external crawler against the origin environment",
		Long: `Stands up the origin environment exactly like 'serve', then executes the
configured standard-crawler binary with the transformed configuration.
The services are torn down once the crawler exits, and its exit status is
propagated.`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCommand,
	}
	return cmd
}

func runCrawlCommand(cmd *cobra.Command, args []string) error {
	app, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	transformed, err := prepareConfig(cmd.Context(), app)
	if err != nil {
		return err
	}

	extraArgs := args
	if len(extraArgs) > 0 {
		// First positional is the config path; the rest belongs to the
		// crawler.
		extraArgs = extraArgs[1:]
	}

	stack := buildServices(app)
	runner := crawlexec.New(app.Settings.Crawler.Binary, app.Logger.Named("crawlexec"))

	err = stack.orch.Run(cmd.Context(), app.Raw, -1, func(ctx context.Context) error {
		return runner.Run(ctx, transformed, extraArgs)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Package cmd defines and implements the CLI commands for the origind
// executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crawlkit/origind/internal/config"
	"github.com/crawlkit/origind/internal/logging"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App bundles everything the subcommands share: the typed settings, the raw
// configuration document, and the process logger.
type App struct {
	Settings config.Settings
	Raw      map[string]any
	Logger   *zap.Logger
	DryRun   bool
}

// Close flushes the logger.
func (a *App) Close() {
	if a.Logger != nil {
		_ = a.Logger.Sync() //nolint:errcheck // stderr sync failure is unactionable
	}
}

// newApp is the application factory. It's a variable so tests can replace it.
var newApp = func(configPath string, dryRun bool) (*App, error) {
	settings, raw, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(settings.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}
	return &App{Settings: settings, Raw: raw, Logger: logger, DryRun: dryRun}, nil
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "origind",
		Short: "Synthetic origin environment for crawler runs.",
		Long: `origind stands up a self-contained origin environment from a declarative
configuration: a local DNS answering service for the declared hostnames,
content acquired from git remotes or local directories, and a virtual-host
HTTP origin serving it all.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		// Unrecognized trailing flags belong to the external crawler.
		FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},

		// Runs before the subcommand's RunE: load config, build the logger,
		// and inject the application through the context.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			configPath := ""
			if len(args) > 0 {
				configPath = args[0]
			}
			appInstance, err := newApp(configPath, dryRun)
			if err != nil {
				return fmt.Errorf("initialize application: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(*App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	cmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false,
		"skip external validation and destructive filesystem/network side effects")

	cmd.AddCommand(newServeCmd(), newCrawlCmd(), newValidateCmd())
	return cmd
}

func resolveApp(ctx context.Context) (*App, error) {
	appInstance, ok := ctx.Value(appKey).(*App)
	if !ok || appInstance == nil {
		return nil, errors.New("application not initialized")
	}
	return appInstance, nil
}

// Execute is the main entry point. It returns the process exit code:
// 0 on graceful completion or interrupt, 1 on any surfaced error.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "origind: %v\n", err)
		return 1
	}
	return 0
}

package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crawlkit/origind/internal/config"
	"github.com/crawlkit/origind/internal/gitfetch"
	"github.com/crawlkit/origind/internal/metrics"
	"github.com/crawlkit/origind/internal/nameres"
	"github.com/crawlkit/origind/internal/orchestrator"
	"github.com/crawlkit/origind/internal/origin"
	"github.com/crawlkit/origind/internal/verify"
)

// newServeCmd creates and configures the 'serve' subcommand.
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [config]",
		Short: "Stand up the origin environment and hold it open",
		Long: `Validates and transforms the configuration, starts the DNS, origin, and
acquisition services, registers every declared origin, and holds everything
open for the configured inspection window (or until interrupted).`,
		Args: cobra.ArbitraryArgs,
		RunE: runServeCommand,
	}
	return cmd
}

func runServeCommand(cmd *cobra.Command, _ []string) error {
	app, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	if _, err := prepareConfig(cmd.Context(), app); err != nil {
		return err
	}

	stack := buildServices(app)
	stopMetrics := startMetricsListener(app)
	defer stopMetrics()

	hold := time.Duration(app.Settings.Serve.HoldSeconds) * time.Second
	err = stack.orch.Run(cmd.Context(), app.Raw, hold, verifyHook(app, stack.origin))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// serviceStack is the wired service set a run operates on.
type serviceStack struct {
	names  *nameres.Service
	fetch  *gitfetch.Service
	origin *origin.Server
	orch   *orchestrator.Orchestrator
}

func buildServices(app *App) *serviceStack {
	s := app.Settings
	names := nameres.New(nameres.Config{
		Addr:              s.DNS.Addr,
		TTL:               s.DNS.TTL,
		InstallResolvConf: s.DNS.InstallResolvConf,
		ResolvConfPath:    s.DNS.ResolvConfPath,
		DryRun:            app.DryRun,
	}, app.Logger.Named("nameres"))

	fetch := gitfetch.New(gitfetch.Config{
		RepositoryRoot: s.Git.RepositoryRoot,
		DryRun:         app.DryRun,
	}, nil, app.Logger.Named("gitfetch"))

	srv := origin.NewServer(origin.Config{
		Host:            s.Server.Host,
		Port:            s.Server.Port,
		ShutdownTimeout: time.Duration(s.Server.ShutdownTimeoutSeconds) * time.Second,
	}, nil, app.Logger.Named("origin"))

	return &serviceStack{
		names:  names,
		fetch:  fetch,
		origin: srv,
		orch:   orchestrator.New(names, fetch, srv, app.Logger.Named("orchestrator")),
	}
}

// prepareConfig transforms the raw document into the standard-crawler form
// and, outside of dry-run, has the external crawler validate it.
func prepareConfig(ctx context.Context, app *App) (map[string]any, error) {
	transformed, err := config.Transform(app.Raw)
	if err != nil {
		return nil, err
	}
	if app.DryRun {
		app.Logger.Info("dry run enabled, skipping external validation")
		return transformed, nil
	}
	if err := config.ValidateExternally(ctx, transformed, app.Settings.Crawler.Binary); err != nil {
		return nil, err
	}
	return transformed, nil
}

// verifyHook returns the post-setup smoke crawl, or nil when disabled.
func verifyHook(app *App, srv *origin.Server) func(context.Context) error {
	if !app.Settings.Verify.Enabled {
		return nil
	}
	checker := verify.New(verify.Config{
		Enabled: true,
		Timeout: time.Duration(app.Settings.Verify.TimeoutSeconds) * time.Second,
	}, app.Logger.Named("verify"))
	return func(ctx context.Context) error {
		_, err := checker.Crawl(ctx, srv.Addr(), srv.Mounts())
		return err
	}
}

// startMetricsListener exposes Prometheus metrics on the configured side
// address. The returned func shuts the listener down.
func startMetricsListener(app *App) func() {
	addr := app.Settings.Server.MetricsAddr
	if addr == "" {
		return func() {}
	}
	msrv := &http.Server{
		Addr:              addr,
		Handler:           metrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := msrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.Logger.Warn("metrics listener failed", zap.Error(err))
		}
	}()
	app.Logger.Info("metrics listener started", zap.String("addr", addr))
	return func() {
		_ = msrv.Close() //nolint:errcheck // teardown on exit
	}
}

// Package orchestrator wires the name resolution, content acquisition, and
// origin services together from the declarative origin description.
package orchestrator

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/crawlkit/origind/internal/config"
	"github.com/crawlkit/origind/internal/errs"
	"github.com/crawlkit/origind/internal/gitfetch"
	"github.com/crawlkit/origind/internal/lifecycle"
	"github.com/crawlkit/origind/internal/logging"
	"github.com/crawlkit/origind/internal/nameres"
	"github.com/crawlkit/origind/internal/origin"
)

// localhostAlias is registered alongside every declared hostname so the
// origins stay reachable without going through name resolution.
const localhostAlias = "localhost"

// Orchestrator drives the managed services through one serving run.
type Orchestrator struct {
	logger *zap.Logger
	names  *nameres.Service
	fetch  *gitfetch.Service
	origin *origin.Server
}

// New constructs an Orchestrator over already-constructed services.
func New(names *nameres.Service, fetch *gitfetch.Service, srv *origin.Server, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		logger: logging.OrNop(logger),
		names:  names,
		fetch:  fetch,
		origin: srv,
	}
}

// Run holds all three service lifecycles open around setup, the optional
// afterSetup hook, and the serving hold window. Services start in dependency
// order (names, origin, acquisition) and stop in reverse on unwind. A
// positive hold keeps the services up for that window, zero holds until ctx
// is canceled, and a negative hold tears down right after afterSetup.
func (o *Orchestrator) Run(ctx context.Context, raw map[string]any, hold time.Duration, afterSetup func(context.Context) error) error {
	services := []lifecycle.Service{o.names, o.origin, o.fetch}
	return lifecycle.WithAll(ctx, services, func(ctx context.Context) error {
		if err := o.Setup(ctx, raw); err != nil {
			return err
		}
		if afterSetup != nil {
			if err := afterSetup(ctx); err != nil {
				return err
			}
		}
		return o.holdOpen(ctx, hold)
	})
}

// Setup walks the raw origin description: every declared directory and
// repository gets a host entry, local content, and mounts on the origin
// server. Mount registration intentionally happens while the origin server
// is already accepting requests.
func (o *Orchestrator) Setup(ctx context.Context, raw map[string]any) error {
	directories, err := config.Directories(raw)
	if err != nil {
		return err
	}
	repositories, err := config.Repositories(raw)
	if err != nil {
		return err
	}

	for _, directory := range directories {
		if err := o.applyDirectory(directory); err != nil {
			return err
		}
	}
	for i, repository := range repositories {
		if err := o.applyRepository(ctx, i, repository); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) applyDirectory(directory config.DirectoryEntry) error {
	o.logger.Info("processing directory entry", zap.String("url", directory.URL))

	hostname, _, err := o.names.AddHostByURL(directory.URL, "")
	if err != nil {
		return err
	}

	for _, raw := range directory.Mounts {
		localPath, remoteURL, err := config.MountParts(raw)
		if err != nil {
			return err
		}
		urlPath, err := urlPathOf(remoteURL)
		if err != nil {
			return err
		}
		o.registerMount(hostname, urlPath, localPath)
	}
	return nil
}

func (o *Orchestrator) applyRepository(ctx context.Context, index int, repository config.RepositoryEntry) error {
	o.logger.Info("processing repository entry", zap.String("url", repository.URL))

	hostname, _, err := o.names.AddHostByURL(repository.URL, "")
	if err != nil {
		return err
	}

	for j, gitURL := range repository.GitURLs {
		destination := fmt.Sprintf("domain_%d_repository_%d", index, j)
		localPath, err := o.fetch.Fetch(ctx, gitURL, destination)
		if err != nil {
			return err
		}
		urlPath, err := urlPathOf(gitURL)
		if err != nil {
			return err
		}
		o.registerMount(hostname, urlPath, localPath)
	}
	return nil
}

// registerMount registers under the declared hostname and the localhost
// alias. Missing local paths are diagnosed by the origin server, not fatal.
func (o *Orchestrator) registerMount(hostname, urlPath, localPath string) {
	o.origin.RegisterMount(hostname, urlPath, localPath)
	o.origin.RegisterMount(localhostAlias, urlPath, localPath)
}

func urlPathOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", errs.Wrap(errs.KindConfiguration, fmt.Errorf("parse URL %q: %w", rawURL, err))
	}
	return u.Path, nil
}

// holdOpen keeps the services up for manual inspection: a positive hold
// returns after that window (or earlier on interrupt), zero means serve
// until interrupted, negative skips the hold entirely.
func (o *Orchestrator) holdOpen(ctx context.Context, hold time.Duration) error {
	if hold < 0 {
		return nil
	}
	if hold > 0 {
		o.logger.Info("holding services open for inspection", zap.Duration("window", hold))
		select {
		case <-ctx.Done():
		case <-time.After(hold):
		}
		return nil
	}
	o.logger.Info("serving until interrupted")
	<-ctx.Done()
	return nil
}

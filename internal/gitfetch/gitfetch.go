// Package gitfetch clones remote content sources into a managed repository
// root so the origin server can mount them.
package gitfetch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	git "github.com/go-git/go-git/v5"
	"go.uber.org/zap"

	"github.com/crawlkit/origind/internal/errs"
	"github.com/crawlkit/origind/internal/lifecycle"
	"github.com/crawlkit/origind/internal/logging"
	"github.com/crawlkit/origind/internal/metrics"
)

// Config controls the acquisition service.
type Config struct {
	// RepositoryRoot is the directory clones land under.
	RepositoryRoot string `mapstructure:"repository_root"`
	// DryRun makes Start pre-clear the repository root's subdirectories.
	DryRun bool `mapstructure:"-"`
}

// Cloner is the clone collaborator. The default implementation uses go-git.
type Cloner func(ctx context.Context, localPath, sourceURL string) error

// Service acquires remote content into deterministic local paths.
type Service struct {
	cfg     Config
	logger  *zap.Logger
	clone   Cloner
	tracker lifecycle.Tracker
}

// New constructs the service. A nil cloner defaults to go-git.
func New(cfg Config, cloner Cloner, logger *zap.Logger) *Service {
	if cfg.RepositoryRoot == "" {
		cfg.RepositoryRoot = "./web/repositories"
	}
	if cloner == nil {
		cloner = gitClone
	}
	return &Service{
		cfg:    cfg,
		logger: logging.OrNop(logger),
		clone:  cloner,
	}
}

func gitClone(ctx context.Context, localPath, sourceURL string) error {
	_, err := git.PlainCloneContext(ctx, localPath, false, &git.CloneOptions{
		URL:   sourceURL,
		Depth: 1,
	})
	return err
}

// RepositoryRoot returns the managed clone root.
func (s *Service) RepositoryRoot() string {
	return s.cfg.RepositoryRoot
}

// Start clears out the repository root's existing subdirectories in dry-run
// mode; otherwise it only marks the service running.
func (s *Service) Start(_ context.Context) error {
	if !s.tracker.MarkRunning() {
		return errs.New(errs.KindContentAcquisition, "acquisition service already %s", s.tracker.State())
	}
	if s.cfg.DryRun {
		if err := s.clearRepositoryRoot(); err != nil {
			return err
		}
	}
	metrics.ObserveTransition("gitfetch", "start")
	return nil
}

// Stop marks the service stopped. Clones already on disk are left in place
// for inspection.
func (s *Service) Stop(_ context.Context) error {
	if !s.tracker.MarkStopped() {
		return nil
	}
	metrics.ObserveTransition("gitfetch", "stop")
	return nil
}

// Fetch clones sourceURL into <repositoryRoot>/<destinationName> and returns
// the local path. Clone failures carry the content-acquisition kind.
func (s *Service) Fetch(ctx context.Context, sourceURL, destinationName string) (string, error) {
	localPath := filepath.Join(s.cfg.RepositoryRoot, destinationName)

	if err := os.MkdirAll(localPath, 0o750); err != nil {
		return "", errs.Wrap(errs.KindContentAcquisition,
			fmt.Errorf("create clone directory %s: %w", localPath, err))
	}

	s.logger.Info("cloning content source",
		zap.String("source", sourceURL),
		zap.String("destination", localPath),
	)

	start := time.Now()
	if err := s.clone(ctx, localPath, sourceURL); err != nil {
		metrics.ObserveClone("error", time.Since(start))
		return "", errs.Wrap(errs.KindContentAcquisition,
			fmt.Errorf("clone %q into %s: %w", sourceURL, localPath, err))
	}
	metrics.ObserveClone("ok", time.Since(start))

	s.logger.Info("content source cloned", zap.String("destination", localPath))
	return localPath, nil
}

// clearRepositoryRoot removes every subdirectory under the repository root,
// leaving loose files alone. Idempotent; a missing root is fine.
func (s *Service) clearRepositoryRoot() error {
	entries, err := os.ReadDir(s.cfg.RepositoryRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errs.Wrap(errs.KindContentAcquisition,
			fmt.Errorf("read repository root %s: %w", s.cfg.RepositoryRoot, err))
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		target := filepath.Join(s.cfg.RepositoryRoot, entry.Name())
		s.logger.Debug("clearing stale clone", zap.String("path", target))
		if err := os.RemoveAll(target); err != nil {
			return errs.Wrap(errs.KindContentAcquisition,
				fmt.Errorf("remove stale clone %s: %w", target, err))
		}
	}
	return nil
}

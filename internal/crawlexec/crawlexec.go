// Package crawlexec runs the external standard crawler as a child process
// against the transformed configuration.
package crawlexec

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"go.uber.org/zap"

	"github.com/crawlkit/origind/internal/errs"
	"github.com/crawlkit/origind/internal/logging"
)

// DefaultBinary is where the standard crawler is expected when the
// configuration does not say otherwise.
const DefaultBinary = "bin/crawler"

// Runner spawns the crawler, waits for it, and propagates its exit status.
type Runner struct {
	binary string
	logger *zap.Logger
	stdout io.Writer
	stderr io.Writer
}

// New constructs a Runner. The crawler's output is passed through to this
// process's stdout and stderr.
func New(binary string, logger *zap.Logger) *Runner {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Runner{
		binary: binary,
		logger: logging.OrNop(logger),
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
}

// SetOutput redirects the child's stdout and stderr.
func (r *Runner) SetOutput(stdout, stderr io.Writer) {
	r.stdout = stdout
	r.stderr = stderr
}

// Run writes the transformed configuration to a temporary JSON file and
// executes `<binary> --config <file> [extraArgs...]`. The child's exit
// status is propagated; use ExitCode to recover it.
func (r *Runner) Run(ctx context.Context, transformed map[string]any, extraArgs []string) error {
	payload, err := json.Marshal(transformed)
	if err != nil {
		return errs.Wrap(errs.KindConfiguration, fmt.Errorf("encode transformed config: %w", err))
	}

	tmp, err := os.CreateTemp("", "origind-crawl-*.json")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // best-effort cleanup
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close() //nolint:errcheck
		return fmt.Errorf("write temp config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp config: %w", err)
	}

	args := append([]string{"--config", tmp.Name()}, extraArgs...)
	cmd := exec.CommandContext(ctx, r.binary, args...)
	cmd.Stdout = r.stdout
	cmd.Stderr = r.stderr

	r.logger.Info("starting external crawler",
		zap.String("binary", r.binary),
		zap.Strings("args", args),
	)

	start := time.Now()
	err = cmd.Run()
	r.logger.Info("external crawler finished",
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err),
	)
	if err != nil {
		return fmt.Errorf("run %s: %w", r.binary, err)
	}
	return nil
}

// ExitCode extracts the child's exit code from a Run error. It returns 0 for
// nil and -1 when the error is not an exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

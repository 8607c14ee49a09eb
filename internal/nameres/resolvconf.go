package nameres

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/crawlkit/origind/internal/errs"
)

const resolvConfPath = "/etc/resolv.conf"

// localNameserverLine is the line installed into the resolver configuration
// while the service runs, and the one removed again on stop.
const localNameserverLine = "nameserver 127.0.0.1"

// installResolvConf points the system resolver at the local listener by
// prepending the loopback nameserver line. No-op in dry-run mode.
func (s *Service) installResolvConf() error {
	if s.cfg.DryRun {
		s.logger.Debug("dry run: skipping resolver configuration install")
		return nil
	}

	existing, err := os.ReadFile(s.cfg.ResolvConfPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("read %s: %w", s.cfg.ResolvConfPath, err)
	}

	content := localNameserverLine + "\n" + string(existing)
	if err := os.WriteFile(s.cfg.ResolvConfPath, []byte(content), 0o644); err != nil { //nolint:gosec // resolv.conf is world-readable
		return fmt.Errorf("write %s: %w", s.cfg.ResolvConfPath, err)
	}

	s.logger.Info("resolver configuration installed", zap.String("path", s.cfg.ResolvConfPath))
	return nil
}

// removeResolvConf drops the line pointing at the local listener, leaving the
// rest of the file untouched. No-op in dry-run mode.
func (s *Service) removeResolvConf() error {
	if s.cfg.DryRun {
		s.logger.Debug("dry run: skipping resolver configuration restore")
		return nil
	}

	data, err := os.ReadFile(s.cfg.ResolvConfPath)
	if err != nil {
		return errs.Wrap(errs.KindCleanup, fmt.Errorf("read %s: %w", s.cfg.ResolvConfPath, err))
	}

	var kept []string
	for _, line := range strings.Split(string(data), "\n") {
		if strings.Contains(line, localNameserverLine) {
			continue
		}
		kept = append(kept, line)
	}

	content := strings.Join(kept, "\n")
	if err := os.WriteFile(s.cfg.ResolvConfPath, []byte(content), 0o644); err != nil { //nolint:gosec // resolv.conf is world-readable
		return errs.Wrap(errs.KindCleanup, fmt.Errorf("write %s: %w", s.cfg.ResolvConfPath, err))
	}

	s.logger.Info("resolver configuration restored", zap.String("path", s.cfg.ResolvConfPath))
	return nil
}

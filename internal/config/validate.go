package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/crawlkit/origind/internal/errs"
)

// failureKeywords mark a validation run as failed even when the process
// exits zero.
var failureKeywords = []string{"Error:", "Failed:", "Invalid"}

// ValidateExternally writes the transformed configuration to a temporary
// JSON file and runs `<crawlerBin> validate <file>`. A non-zero exit or a
// failure keyword in the combined output rejects the configuration.
func ValidateExternally(ctx context.Context, transformed map[string]any, crawlerBin string) error {
	payload, err := json.Marshal(transformed)
	if err != nil {
		return errs.Wrap(errs.KindConfigValidation, fmt.Errorf("encode transformed config: %w", err))
	}

	tmp, err := os.CreateTemp("", "origind-config-*.json")
	if err != nil {
		return errs.Wrap(errs.KindConfigValidation, fmt.Errorf("create temp config: %w", err))
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // best-effort cleanup

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close() //nolint:errcheck
		return errs.Wrap(errs.KindConfigValidation, fmt.Errorf("write temp config: %w", err))
	}
	if err := tmp.Close(); err != nil {
		return errs.Wrap(errs.KindConfigValidation, fmt.Errorf("close temp config: %w", err))
	}

	cmd := exec.CommandContext(ctx, crawlerBin, "validate", tmp.Name())
	output, err := cmd.CombinedOutput()
	if err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return errs.New(errs.KindConfigValidation,
				"external validation failed: %v\noutput: %s", err, output)
		}
		return errs.Wrap(errs.KindConfigValidation,
			fmt.Errorf("run %s: %w (is it installed and on PATH?)", crawlerBin, err))
	}

	text := string(output)
	for _, keyword := range failureKeywords {
		if strings.Contains(text, keyword) {
			return errs.New(errs.KindConfigValidation,
				"external validation output indicates failure:\n%s", text)
		}
	}
	return nil
}

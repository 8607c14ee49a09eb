package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/crawlkit/origind/internal/errs"
)

// validSchemes are the URL schemes accepted on the remote half of a mount
// string and in seed URLs.
var validSchemes = map[string]bool{
	"http":  true,
	"https": true,
	"ftp":   true,
	"file":  true,
	"git":   true,
	"ssh":   true,
}

// ValidateURL checks that raw has an accepted scheme and a non-empty host.
func ValidateURL(raw string) error {
	if raw == "" {
		return errs.New(errs.KindConfiguration, "URL must not be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return errs.Wrap(errs.KindConfiguration, fmt.Errorf("parse URL %q: %w", raw, err))
	}
	if !validSchemes[u.Scheme] {
		return errs.New(errs.KindConfiguration, "URL %q has invalid scheme %q", raw, u.Scheme)
	}
	if u.Host == "" {
		return errs.New(errs.KindConfiguration, "URL %q is missing a host", raw)
	}
	return nil
}

// ValidateGitURL accepts http(s)/git URLs outright; anything else must look
// like an SSH remote (user@host:path).
func ValidateGitURL(raw string) error {
	if err := ValidateURL(raw); err != nil {
		return err
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") || strings.HasPrefix(raw, "git://") {
		return nil
	}
	if !strings.Contains(raw, "@") || !strings.Contains(raw, ":") {
		return errs.New(errs.KindConfiguration, "git URL %q is not SSH-form (needs @ and :)", raw)
	}
	return nil
}

// validateLocalPath requires an absolute path naming an existing, non-empty
// directory.
func validateLocalPath(path string) error {
	if path == "" {
		return errs.New(errs.KindConfiguration, "local path must not be empty")
	}
	if !strings.HasPrefix(path, "/") {
		return errs.New(errs.KindConfiguration, "local path %q must be absolute", path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return errs.Wrap(errs.KindConfiguration, fmt.Errorf("local path %q: %w", path, err))
	}
	if !info.IsDir() {
		return errs.New(errs.KindConfiguration, "local path %q is not a directory", path)
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return errs.Wrap(errs.KindConfiguration, fmt.Errorf("local path %q: %w", path, err))
	}
	if len(entries) == 0 {
		return errs.New(errs.KindConfiguration, "local path %q is empty", path)
	}
	return nil
}

// MountParts splits a "<localPath>:<remoteURL>" mount string on the first
// colon and validates both halves.
func MountParts(mount string) (localPath, remoteURL string, err error) {
	localPath, remoteURL, found := strings.Cut(mount, ":")
	if !found {
		return "", "", errs.New(errs.KindConfiguration, "mount string %q is missing the ':' separator", mount)
	}
	if err := validateLocalPath(localPath); err != nil {
		return "", "", err
	}
	if err := ValidateURL(remoteURL); err != nil {
		return "", "", err
	}
	return localPath, remoteURL, nil
}

// Package errs defines the error kinds surfaced by origind components.
package errs

import (
	"errors"
	"fmt"
)

// Kind is a sentinel that classifies an error. Wrap errors with one of the
// package-level kinds so callers can match with errors.Is without depending
// on concrete component types.
type Kind struct {
	name string
}

func (k *Kind) Error() string {
	return k.name
}

var (
	// KindConfiguration covers malformed mount strings, URLs, and missing
	// required fields in the declarative config.
	KindConfiguration = &Kind{name: "configuration error"}

	// KindConfigValidation is raised when the external validation process
	// rejects the transformed configuration.
	KindConfigValidation = &Kind{name: "config validation error"}

	// KindNameResolution covers missing hostnames and listener start failures
	// in the name resolution service.
	KindNameResolution = &Kind{name: "name resolution error"}

	// KindContentAcquisition covers clone failures and unexpected acquisition
	// failures.
	KindContentAcquisition = &Kind{name: "content acquisition error"}

	// KindOriginServerStart indicates the origin HTTP listener could not bind.
	KindOriginServerStart = &Kind{name: "origin server start error"}

	// KindCleanup covers teardown-time failures.
	KindCleanup = &Kind{name: "cleanup error"}
)

type kindError struct {
	kind *Kind
	err  error
}

func (e *kindError) Error() string {
	return fmt.Sprintf("%s: %v", e.kind.name, e.err)
}

func (e *kindError) Unwrap() error {
	return e.err
}

func (e *kindError) Is(target error) bool {
	return target == e.kind
}

// Wrap tags err with the given kind. A nil err returns nil.
func Wrap(kind *Kind, err error) error {
	if err == nil {
		return nil
	}
	return &kindError{kind: kind, err: err}
}

// New creates a fresh error of the given kind from a format string.
func New(kind *Kind, format string, args ...any) error {
	return &kindError{kind: kind, err: fmt.Errorf(format, args...)}
}

// IsAny reports whether err matches one of the known kinds, meaning it was
// raised by an origind component rather than leaking from a dependency.
func IsAny(err error) bool {
	for _, k := range []*Kind{
		KindConfiguration,
		KindConfigValidation,
		KindNameResolution,
		KindContentAcquisition,
		KindOriginServerStart,
		KindCleanup,
	} {
		if errors.Is(err, k) {
			return true
		}
	}
	return false
}

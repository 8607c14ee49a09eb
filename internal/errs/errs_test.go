package errs

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestWrapMatchesKind(t *testing.T) {
	t.Parallel()

	base := errors.New("listener bind failed")
	err := Wrap(KindNameResolution, base)

	if !errors.Is(err, KindNameResolution) {
		t.Fatal("expected wrapped error to match its kind")
	}
	if errors.Is(err, KindConfiguration) {
		t.Fatal("wrapped error matched a foreign kind")
	}
	if !errors.Is(err, base) {
		t.Fatal("expected wrapped error to unwrap to the cause")
	}
}

func TestWrapNil(t *testing.T) {
	t.Parallel()

	if err := Wrap(KindCleanup, nil); err != nil {
		t.Fatalf("Wrap(nil) = %v, want nil", err)
	}
}

func TestNewFormatsAndWraps(t *testing.T) {
	t.Parallel()

	err := New(KindContentAcquisition, "clone %q: %w", "http://host/repo.git", io.ErrUnexpectedEOF)
	if !errors.Is(err, KindContentAcquisition) {
		t.Fatal("expected kind match")
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatal("expected cause to survive %w through New")
	}
}

func TestIsAny(t *testing.T) {
	t.Parallel()

	if IsAny(errors.New("plain")) {
		t.Fatal("plain error should not be classified")
	}
	wrapped := fmt.Errorf("outer: %w", New(KindConfigValidation, "rejected"))
	if !IsAny(wrapped) {
		t.Fatal("kind should be found through further wrapping")
	}
}

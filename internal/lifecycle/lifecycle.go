// Package lifecycle defines the start/stop contract shared by the long-running
// origind services and the scoped-acquisition helpers that guarantee teardown.
package lifecycle

import (
	"context"
	"sync"
)

// Service is implemented by every managed component. Start must be called
// before the service is used; Stop must be idempotent.
type Service interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// State tracks where a service is in its lifecycle.
type State int32

const (
	StateNotStarted State = iota
	StateRunning
	StateStopped
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not-started"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Tracker is embedded by services to get the NotStarted -> Running -> Stopped
// transitions and idempotent Stop for free.
type Tracker struct {
	mu    sync.Mutex
	state State
}

// State returns the current lifecycle state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// MarkRunning transitions to Running. It returns false if the service is not
// in the NotStarted state.
func (t *Tracker) MarkRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateNotStarted {
		return false
	}
	t.state = StateRunning
	return true
}

// MarkStopped transitions to Stopped. It returns false when the service was
// not Running, in which case Stop should be a no-op.
func (t *Tracker) MarkStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateRunning {
		return false
	}
	t.state = StateStopped
	return true
}

// With starts svc, runs body, and stops svc on every exit path once Start has
// succeeded. If Start fails the failure is returned and Stop is never called.
// A body failure takes precedence over a Stop failure.
func With(ctx context.Context, svc Service, body func(ctx context.Context) error) error {
	if err := svc.Start(ctx); err != nil {
		return err
	}
	bodyErr := body(ctx)
	stopErr := svc.Stop(ctx)
	if bodyErr != nil {
		return bodyErr
	}
	return stopErr
}

// WithAll starts the given services in order, runs body, then stops the
// started services in reverse order. A Start failure unwinds the services
// that already started and surfaces the Start failure. During the unwind a
// Stop failure never prevents the remaining Stop calls from running; the
// first failure encountered is the one returned, with a body failure taking
// precedence over any Stop failure.
func WithAll(ctx context.Context, services []Service, body func(ctx context.Context) error) error {
	started := make([]Service, 0, len(services))
	for _, svc := range services {
		if err := svc.Start(ctx); err != nil {
			// The start failure is the primary cause.
			_ = stopAll(ctx, started) //nolint:errcheck
			return err
		}
		started = append(started, svc)
	}

	bodyErr := body(ctx)
	stopErr := stopAll(ctx, started)
	if bodyErr != nil {
		return bodyErr
	}
	return stopErr
}

// stopAll stops services in reverse order, returning the first failure.
func stopAll(ctx context.Context, started []Service) error {
	var first error
	for i := len(started) - 1; i >= 0; i-- {
		if err := started[i].Stop(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}

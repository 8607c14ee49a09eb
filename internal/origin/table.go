// Package origin implements the virtual-host routing table and the HTTP
// serving surface of the synthetic origin.
package origin

import (
	"strings"
	"sync"
)

// Mount binds one local filesystem root under a URL prefix on a virtual host.
// Immutable once registered.
type Mount struct {
	URLPath   string
	LocalPath string
}

// VirtualHost is a named, ordered collection of mounts. Order is insertion
// order and is the tie-break for equal-length prefix matches.
type VirtualHost struct {
	Name   string
	Mounts []Mount
}

// Table maps hostnames to virtual hosts. Registration races with request
// resolution, so every access goes through the lock.
type Table struct {
	mu     sync.RWMutex
	vhosts map[string]*VirtualHost
}

// NewTable returns an empty routing table.
func NewTable() *Table {
	return &Table{vhosts: make(map[string]*VirtualHost)}
}

// Add appends a mount to hostname's virtual host, creating the host on first
// registration. Re-registering a hostname appends, it never replaces.
// An empty URL path is normalized to the root mount "/".
func (t *Table) Add(hostname string, m Mount) {
	if m.URLPath == "" {
		m.URLPath = "/"
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	vh, ok := t.vhosts[hostname]
	if !ok {
		vh = &VirtualHost{Name: hostname}
		t.vhosts[hostname] = vh
	}
	vh.Mounts = append(vh.Mounts, m)
}

// Match resolves (hostHeader, requestPath) to the winning mount and the
// request path relative to it. The host lookup strips any port suffix. The
// winning mount is the one whose URL path is the longest raw string prefix of
// requestPath; equal lengths go to the earliest-registered mount. Matching is
// deliberately not segment-aware: a mount at /app also matches /appliance/x.
func (t *Table) Match(hostHeader, requestPath string) (Mount, string, bool) {
	hostname := stripPort(hostHeader)

	t.mu.RLock()
	defer t.mu.RUnlock()

	vh, ok := t.vhosts[hostname]
	if !ok {
		return Mount{}, "", false
	}

	var (
		best    Mount
		bestLen = -1
	)
	for _, m := range vh.Mounts {
		if strings.HasPrefix(requestPath, m.URLPath) && len(m.URLPath) > bestLen {
			best = m
			bestLen = len(m.URLPath)
		}
	}
	if bestLen < 0 {
		return Mount{}, "", false
	}

	rel := strings.TrimPrefix(requestPath, best.URLPath)
	rel = strings.TrimPrefix(rel, "/")
	return best, rel, true
}

// MountCount returns the number of mounts registered across all hosts.
func (t *Table) MountCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, vh := range t.vhosts {
		n += len(vh.Mounts)
	}
	return n
}

// Hosts returns the registered hostnames.
func (t *Table) Hosts() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	hosts := make([]string, 0, len(t.vhosts))
	for name := range t.vhosts {
		hosts = append(hosts, name)
	}
	return hosts
}

// Snapshot returns a copy of a host's mounts, or nil when the host is
// unknown.
func (t *Table) Snapshot(hostname string) []Mount {
	t.mu.RLock()
	defer t.mu.RUnlock()
	vh, ok := t.vhosts[hostname]
	if !ok {
		return nil
	}
	mounts := make([]Mount, len(vh.Mounts))
	copy(mounts, vh.Mounts)
	return mounts
}

// Clear discards every virtual host. Called on origin server stop.
func (t *Table) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.vhosts = make(map[string]*VirtualHost)
}

func stripPort(hostHeader string) string {
	host, _, found := strings.Cut(hostHeader, ":")
	if found {
		return host
	}
	return hostHeader
}

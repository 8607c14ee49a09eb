package origin

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// appFixture builds the layout used across resolver tests:
//
//	<tmp>/app/file.txt
//	<tmp>/app/a.txt
//	<tmp>/app/index.html
//	<tmp>/app/sub/inner.txt
//	<tmp>/secret.txt  (outside the mount root)
func appFixture(t *testing.T) (tmp string, appDir string) {
	t.Helper()
	tmp = t.TempDir()
	appDir = filepath.Join(tmp, "app")
	if err := os.MkdirAll(filepath.Join(appDir, "sub"), 0o750); err != nil {
		t.Fatal(err)
	}
	files := []struct {
		name string
		data string
	}{
		{filepath.Join(appDir, "file.txt"), "hello from file.txt"},
		{filepath.Join(appDir, "a.txt"), "contents of a"},
		{filepath.Join(appDir, "index.html"), "<html></html>"},
		{filepath.Join(appDir, "sub", "inner.txt"), "inner"},
		{filepath.Join(tmp, "secret.txt"), "top secret"},
	}
	for _, f := range files {
		if err := os.WriteFile(f.name, []byte(f.data), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return tmp, appDir
}

func newAppResolver(t *testing.T) (*Resolver, string) {
	t.Helper()
	_, appDir := appFixture(t)
	table := NewTable()
	table.Add("x.test", Mount{URLPath: "/app", LocalPath: appDir})
	return NewResolver(table, nil), appDir
}

func TestResolveFile(t *testing.T) {
	t.Parallel()

	r, _ := newAppResolver(t)
	res := r.Resolve("x.test", "/app/file.txt")

	if res.Outcome != OutcomeFile || res.Status != 200 {
		t.Fatalf("outcome = %v status = %d", res.Outcome, res.Status)
	}
	if res.ContentType != "text/plain" {
		t.Fatalf("content type = %q", res.ContentType)
	}
	if string(res.Body) != "hello from file.txt" {
		t.Fatalf("body = %q", res.Body)
	}
}

func TestResolveFileContentTypes(t *testing.T) {
	t.Parallel()

	r, _ := newAppResolver(t)

	cases := []struct {
		path string
		want string
	}{
		{"/app/index.html", "text/html"},
		{"/app/file.txt", "text/plain"},
	}
	for _, tc := range cases {
		res := r.Resolve("x.test", tc.path)
		if res.ContentType != tc.want {
			t.Fatalf("Resolve(%q) content type = %q, want %q", tc.path, res.ContentType, tc.want)
		}
	}
}

func TestContentTypeTable(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"page.html": "text/html",
		"page.HTM":  "text/html",
		"style.css": "text/css",
		"app.js":    "application/javascript",
		"data.json": "application/json",
		"notes.txt": "text/plain",
		"image.png": "text/plain", // default is not binary-safe, by contract
		"Makefile":  "text/plain",
	}
	for name, want := range cases {
		if got := contentTypeFor(name); got != want {
			t.Fatalf("contentTypeFor(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestResolveDirectoryListing(t *testing.T) {
	t.Parallel()

	r, _ := newAppResolver(t)
	res := r.Resolve("x.test", "/app/")

	if res.Outcome != OutcomeDirectory || res.Status != 200 {
		t.Fatalf("outcome = %v status = %d", res.Outcome, res.Status)
	}
	if res.ContentType != "text/html" {
		t.Fatalf("content type = %q", res.ContentType)
	}
	body := string(res.Body)
	if !strings.Contains(body, `href="/app/sub/"`) {
		t.Fatalf("listing missing directory link:\n%s", body)
	}
	if !strings.Contains(body, `href="/app/a.txt"`) {
		t.Fatalf("listing missing file link:\n%s", body)
	}
	if !strings.Contains(body, "Index of /app/") {
		t.Fatalf("listing missing heading:\n%s", body)
	}
	// Root of the mount has no parent entry.
	if strings.Contains(body, ">..</a>") {
		t.Fatalf("unexpected parent link at mount root:\n%s", body)
	}
}

func TestResolveSubdirectoryListingHasParentLink(t *testing.T) {
	t.Parallel()

	r, _ := newAppResolver(t)
	res := r.Resolve("x.test", "/app/sub/")

	if res.Outcome != OutcomeDirectory {
		t.Fatalf("outcome = %v", res.Outcome)
	}
	body := string(res.Body)
	if !strings.Contains(body, "Index of /app/sub/") {
		t.Fatalf("listing heading wrong:\n%s", body)
	}
	if !strings.Contains(body, `<li><a href="/app">..</a></li>`) {
		t.Fatalf("listing missing parent link:\n%s", body)
	}
	if !strings.Contains(body, `href="/app/sub/inner.txt"`) {
		t.Fatalf("listing missing entry:\n%s", body)
	}
}

func TestRootMountParentsToRoot(t *testing.T) {
	t.Parallel()

	_, appDir := appFixture(t)
	table := NewTable()
	table.Add("x.test", Mount{URLPath: "/", LocalPath: appDir})
	r := NewResolver(table, nil)

	res := r.Resolve("x.test", "/sub/")
	if res.Outcome != OutcomeDirectory {
		t.Fatalf("outcome = %v", res.Outcome)
	}
	if !strings.Contains(string(res.Body), `<li><a href="/">..</a></li>`) {
		t.Fatalf("root mount must parent to /:\n%s", res.Body)
	}
}

func TestListingEntriesSorted(t *testing.T) {
	t.Parallel()

	body := renderListing(Mount{URLPath: "/app"}, "", []listEntry{
		{Name: "zeta.txt"},
		{Name: "alpha.txt"},
		{Name: "mid", IsDir: true},
	})
	alpha := strings.Index(body, "alpha.txt")
	mid := strings.Index(body, "mid/")
	zeta := strings.Index(body, "zeta.txt")
	if alpha < 0 || mid < 0 || zeta < 0 || !(alpha < mid && mid < zeta) {
		t.Fatalf("entries not lexicographically sorted:\n%s", body)
	}
}

func TestResolveTraversalForbidden(t *testing.T) {
	t.Parallel()

	r, _ := newAppResolver(t)

	// Escapes the mount root and the target exists.
	res := r.Resolve("x.test", "/app/../secret.txt")
	if res.Outcome != OutcomeForbidden || res.Status != 403 {
		t.Fatalf("outcome = %v status = %d, want forbidden", res.Outcome, res.Status)
	}
	if string(res.Body) != "Forbidden" {
		t.Fatalf("body = %q", res.Body)
	}

	// Stays inside the mount root, still rejected by the substring guard.
	res = r.Resolve("x.test", "/app/sub/../a.txt")
	if res.Outcome != OutcomeForbidden {
		t.Fatalf("in-root traversal outcome = %v, want forbidden", res.Outcome)
	}
}

func TestResolveUnknownHostIsNotFound(t *testing.T) {
	t.Parallel()

	r, _ := newAppResolver(t)
	for _, path := range []string{"/", "/app/file.txt", "/anything/at/all"} {
		res := r.Resolve("unknown.test", path)
		if res.Outcome != OutcomeNotFound || res.Status != 404 {
			t.Fatalf("Resolve(unknown, %q) = %v/%d, want not found", path, res.Outcome, res.Status)
		}
	}
}

func TestResolveMissingTargetIsNotFound(t *testing.T) {
	t.Parallel()

	r, _ := newAppResolver(t)
	res := r.Resolve("x.test", "/app/missing.txt")
	if res.Outcome != OutcomeNotFound || res.Status != 404 {
		t.Fatalf("outcome = %v status = %d", res.Outcome, res.Status)
	}
}

func TestResolveRoundTrip(t *testing.T) {
	t.Parallel()

	tmp, appDir := appFixture(t)

	table := NewTable()
	table.Add("x.test", Mount{URLPath: "/app", LocalPath: appDir})
	table.Add("x.test", Mount{URLPath: "/one.txt", LocalPath: filepath.Join(tmp, "secret.txt")})
	r := NewResolver(table, nil)

	// Directory target yields a listing.
	if res := r.Resolve("x.test", "/app"); res.Outcome != OutcomeDirectory {
		t.Fatalf("directory round-trip outcome = %v", res.Outcome)
	}
	// File target yields a file.
	res := r.Resolve("x.test", "/one.txt")
	if res.Outcome != OutcomeFile {
		t.Fatalf("file round-trip outcome = %v", res.Outcome)
	}
	if string(res.Body) != "top secret" {
		t.Fatalf("file round-trip body = %q", res.Body)
	}
}

func TestResolveShadowedMounts(t *testing.T) {
	t.Parallel()

	tmp, appDir := appFixture(t)
	docs := filepath.Join(tmp, "docs")
	if err := os.MkdirAll(docs, 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(docs, "readme.txt"), []byte("docs readme"), 0o600); err != nil {
		t.Fatal(err)
	}

	table := NewTable()
	table.Add("x.test", Mount{URLPath: "/app", LocalPath: appDir})
	table.Add("x.test", Mount{URLPath: "/app/docs", LocalPath: docs})
	r := NewResolver(table, nil)

	res := r.Resolve("x.test", "/app/docs/readme.txt")
	if res.Outcome != OutcomeFile {
		t.Fatalf("outcome = %v", res.Outcome)
	}
	if string(res.Body) != "docs readme" {
		t.Fatalf("body = %q, want the longer mount's file", res.Body)
	}
}

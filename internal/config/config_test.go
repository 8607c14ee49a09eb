package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/crawlkit/origind/internal/errs"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

// populatedDir returns an absolute, existing, non-empty directory.
func populatedDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "index.html"), "<html></html>")
	return dir
}

func TestLoadDefaults(t *testing.T) {
	s, _, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.Server.Port != 80 {
		t.Fatalf("server.port default = %d", s.Server.Port)
	}
	if s.DNS.Addr != "127.0.0.1:53" {
		t.Fatalf("dns.addr default = %q", s.DNS.Addr)
	}
	if s.Git.RepositoryRoot != "./web/repositories" {
		t.Fatalf("git.repository_root default = %q", s.Git.RepositoryRoot)
	}
	if s.Crawler.Binary != "bin/crawler" {
		t.Fatalf("crawler.binary default = %q", s.Crawler.Binary)
	}
}

func TestLoadWithFileOverridesAndRawDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	writeFile(t, path, `
server:
  port: 8080
dns:
  addr: 127.0.0.1:5353
repositories:
  - url: http://repo.test
    git_urls: ["http://host/repo.git"]
directories:
  - url: http://dir.test
    mounts: ["/srv/x:http://dir.test/x"]
`)

	s, raw, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.Server.Port != 8080 {
		t.Fatalf("server.port = %d", s.Server.Port)
	}
	if s.DNS.Addr != "127.0.0.1:5353" {
		t.Fatalf("dns.addr = %q", s.DNS.Addr)
	}

	repos, err := Repositories(raw)
	if err != nil {
		t.Fatalf("Repositories() error = %v", err)
	}
	if len(repos) != 1 || repos[0].URL != "http://repo.test" || repos[0].GitURLs[0] != "http://host/repo.git" {
		t.Fatalf("Repositories() = %+v", repos)
	}
	dirs, err := Directories(raw)
	if err != nil {
		t.Fatalf("Directories() error = %v", err)
	}
	if len(dirs) != 1 || dirs[0].Mounts[0] != "/srv/x:http://dir.test/x" {
		t.Fatalf("Directories() = %+v", dirs)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	if !errors.Is(err, errs.KindConfiguration) {
		t.Fatalf("error = %v, want configuration kind", err)
	}
}

func TestMountParts(t *testing.T) {
	dir := populatedDir(t)

	local, remote, err := MountParts(dir + ":http://host/y")
	if err != nil {
		t.Fatalf("MountParts() error = %v", err)
	}
	if local != dir || remote != "http://host/y" {
		t.Fatalf("MountParts() = (%q, %q)", local, remote)
	}
}

func TestMountPartsRejectsRelativeLocalPath(t *testing.T) {
	t.Parallel()

	_, _, err := MountParts("relative:http://host/y")
	if !errors.Is(err, errs.KindConfiguration) {
		t.Fatalf("error = %v, want configuration kind", err)
	}
}

func TestMountPartsRejectsBadMounts(t *testing.T) {
	dir := populatedDir(t)
	empty := t.TempDir()

	cases := []struct {
		name  string
		mount string
	}{
		{"no separator", "/just/a/path"},
		{"missing local dir", "/does/not/exist:http://host/y"},
		{"empty local dir", empty + ":http://host/y"},
		{"bad remote scheme", dir + ":telnet://host/y"},
		{"remote missing host", dir + ":http:///y"},
	}
	for _, tc := range cases {
		if _, _, err := MountParts(tc.mount); err == nil {
			t.Fatalf("%s: expected error for %q", tc.name, tc.mount)
		}
	}
}

func TestValidateURL(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{
		"http://host/y", "https://host", "ftp://host/z", "file://host/p", "git://host/r", "ssh://host/r",
	} {
		if err := ValidateURL(raw); err != nil {
			t.Fatalf("ValidateURL(%q) error = %v", raw, err)
		}
	}
	for _, raw := range []string{
		"", "telnet://host", "http://", "just-text", "/a/path",
	} {
		if err := ValidateURL(raw); err == nil {
			t.Fatalf("ValidateURL(%q) should fail", raw)
		}
	}
}

func TestValidateGitURL(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{
		"http://host/repo.git", "https://host/repo.git", "git://host/repo.git",
		"ssh://git@host:22/repo.git",
	} {
		if err := ValidateGitURL(raw); err != nil {
			t.Fatalf("ValidateGitURL(%q) error = %v", raw, err)
		}
	}
	if err := ValidateGitURL("ftp://host/repo.git"); err == nil {
		t.Fatal("ftp remote without SSH form should fail")
	}
}

func TestSettingsValidate(t *testing.T) {
	t.Parallel()

	good := Settings{
		Server: ServerSettings{Port: 80, ShutdownTimeoutSeconds: 10},
		DNS:    DNSSettings{Addr: "127.0.0.1:53"},
		Git:    GitSettings{RepositoryRoot: "./web/repositories"},
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	bad := good
	bad.Server.Port = 700000
	if err := bad.Validate(); err == nil {
		t.Fatal("out-of-range port should fail validation")
	}

	bad = good
	bad.Verify.Enabled = true
	if err := bad.Validate(); err == nil {
		t.Fatal("verify without timeout should fail validation")
	}
}

package gitfetch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/crawlkit/origind/internal/errs"
)

func TestFetchReturnsDeterministicPath(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	var gotPath, gotURL string
	svc := New(Config{RepositoryRoot: root}, func(_ context.Context, localPath, sourceURL string) error {
		gotPath = localPath
		gotURL = sourceURL
		return nil
	}, nil)

	localPath, err := svc.Fetch(context.Background(), "http://host/repo.git", "domain_0_repository_1")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	want := filepath.Join(root, "domain_0_repository_1")
	if localPath != want {
		t.Fatalf("Fetch() = %q, want %q", localPath, want)
	}
	if gotPath != want || gotURL != "http://host/repo.git" {
		t.Fatalf("cloner called with (%q, %q)", gotPath, gotURL)
	}
	if info, statErr := os.Stat(want); statErr != nil || !info.IsDir() {
		t.Fatalf("clone directory not created: %v", statErr)
	}
}

func TestFetchPropagatesCloneFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("remote hung up")
	svc := New(Config{RepositoryRoot: t.TempDir()}, func(context.Context, string, string) error {
		return boom
	}, nil)

	_, err := svc.Fetch(context.Background(), "http://host/repo.git", "dest")
	if !errors.Is(err, errs.KindContentAcquisition) {
		t.Fatalf("error = %v, want content acquisition kind", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want clone cause preserved", err)
	}
}

func TestDryRunStartClearsSubdirectories(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	stale := filepath.Join(root, "domain_0_repository_0")
	if err := os.MkdirAll(filepath.Join(stale, "nested"), 0o750); err != nil {
		t.Fatal(err)
	}
	loose := filepath.Join(root, "notes.txt")
	if err := os.WriteFile(loose, []byte("keep me"), 0o600); err != nil {
		t.Fatal(err)
	}

	svc := New(Config{RepositoryRoot: root, DryRun: true}, nil, nil)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatal("stale clone directory should be removed")
	}
	if _, err := os.Stat(loose); err != nil {
		t.Fatal("loose files must survive the pre-clean")
	}
}

func TestStartWithMissingRootIsFine(t *testing.T) {
	t.Parallel()

	svc := New(Config{
		RepositoryRoot: filepath.Join(t.TempDir(), "does-not-exist"),
		DryRun:         true,
	}, nil, nil)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	t.Parallel()

	svc := New(Config{RepositoryRoot: t.TempDir()}, nil, nil)
	ctx := context.Background()

	if err := svc.Stop(ctx); err != nil {
		t.Fatalf("Stop before Start error = %v", err)
	}
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := svc.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := svc.Stop(ctx); err != nil {
		t.Fatalf("second Stop() error = %v", err)
	}
}

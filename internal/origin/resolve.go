package origin

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FS is the filesystem collaborator consulted during resolution. The default
// implementation reads the real filesystem.
type FS interface {
	Stat(name string) (fs.FileInfo, error)
	ReadDir(name string) ([]fs.DirEntry, error)
	ReadFile(name string) ([]byte, error)
}

type osFS struct{}

func (osFS) Stat(name string) (fs.FileInfo, error)      { return os.Stat(name) }
func (osFS) ReadDir(name string) ([]fs.DirEntry, error) { return os.ReadDir(name) }
func (osFS) ReadFile(name string) ([]byte, error)       { return os.ReadFile(name) }

// OSFS returns the real-filesystem collaborator.
func OSFS() FS { return osFS{} }

// Outcome tags the result of resolving one request.
type Outcome int

const (
	OutcomeNotFound Outcome = iota
	OutcomeForbidden
	OutcomeFile
	OutcomeDirectory
	OutcomeInternalError
)

// String returns the metrics label for the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeNotFound:
		return "not_found"
	case OutcomeForbidden:
		return "forbidden"
	case OutcomeFile:
		return "file"
	case OutcomeDirectory:
		return "directory"
	case OutcomeInternalError:
		return "internal_error"
	default:
		return "unknown"
	}
}

// Resolution is the complete, writable result of a resolve call: status,
// content type and body are final. Per-request failures never escalate past
// this struct.
type Resolution struct {
	Outcome     Outcome
	Status      int
	ContentType string
	Body        []byte
}

// Resolver turns (host, path) pairs into resolutions against a routing table
// and a filesystem collaborator. It is synchronously callable and carries no
// HTTP dependency.
type Resolver struct {
	table *Table
	fsys  FS
}

// NewResolver builds a Resolver. A nil fsys defaults to the real filesystem.
func NewResolver(table *Table, fsys FS) *Resolver {
	if fsys == nil {
		fsys = OSFS()
	}
	return &Resolver{table: table, fsys: fsys}
}

// Resolve maps an inbound (hostHeader, requestPath) pair to one of the four
// responses: file, directory listing, forbidden, or not found.
func (r *Resolver) Resolve(hostHeader, requestPath string) Resolution {
	mount, rel, ok := r.table.Match(hostHeader, requestPath)
	if !ok {
		return notFound()
	}

	fullPath := filepath.Join(mount.LocalPath, rel)
	info, err := r.fsys.Stat(fullPath)
	if err != nil {
		return notFound()
	}

	if info.IsDir() {
		return r.listDirectory(mount, rel, fullPath)
	}
	return r.serveFile(mount, rel, fullPath)
}

func (r *Resolver) listDirectory(mount Mount, rel, fullPath string) Resolution {
	dirents, err := r.fsys.ReadDir(fullPath)
	if err != nil {
		return internalError()
	}
	entries := make([]listEntry, 0, len(dirents))
	for _, de := range dirents {
		entries = append(entries, listEntry{Name: de.Name(), IsDir: de.IsDir()})
	}
	body := renderListing(mount, rel, entries)
	return Resolution{
		Outcome:     OutcomeDirectory,
		Status:      200,
		ContentType: "text/html",
		Body:        []byte(body),
	}
}

func (r *Resolver) serveFile(_ Mount, rel, fullPath string) Resolution {
	// Coarse traversal guard: any ".." anywhere in the relative path is
	// rejected, even when the joined path stays inside the mount root.
	if strings.Contains(rel, "..") {
		return Resolution{
			Outcome:     OutcomeForbidden,
			Status:      403,
			ContentType: "text/plain",
			Body:        []byte("Forbidden"),
		}
	}

	data, err := r.fsys.ReadFile(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return notFound()
		}
		return internalError()
	}
	return Resolution{
		Outcome:     OutcomeFile,
		Status:      200,
		ContentType: contentTypeFor(fullPath),
		Body:        data,
	}
}

func notFound() Resolution {
	return Resolution{
		Outcome:     OutcomeNotFound,
		Status:      404,
		ContentType: "text/plain",
		Body:        []byte("Not Found"),
	}
}

func internalError() Resolution {
	return Resolution{
		Outcome:     OutcomeInternalError,
		Status:      500,
		ContentType: "text/plain",
		Body:        []byte("Internal Server Error"),
	}
}

// Package artifact manages uploaded source archives on disk. An artifact is
// scoped to one saga execution: stashed before the saga runs, renamed to its
// permanent path on success, and deleted on every failure path.
package artifact

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrUnsupportedType is returned for uploads that are not zip archives.
	ErrUnsupportedType = errors.New("unsupported archive type")

	// ErrEntryNotFound is returned when a path does not exist inside the archive.
	ErrEntryNotFound = errors.New("entry not found in archive")
)

// allowedMimeTypes are the accepted upload content types.
var allowedMimeTypes = map[string]bool{
	"application/zip":              true,
	"application/x-zip-compressed": true,
}

// maxEntryBytes bounds how much of a single archive entry is read into
// memory during verification.
const maxEntryBytes = 10 << 20 // 10 MB

// =============================================================================
// Artifact
// =============================================================================

// Artifact is the ephemeral handle of one uploaded archive.
type Artifact struct {
	TempPath string
	MimeType string
}

// =============================================================================
// Staging
// =============================================================================

// Staging stores uploads under a staging directory as <random-id>.zip and
// promotes them to <project-id>.zip in the same root on success.
type Staging struct {
	dir    string
	logger *slog.Logger
}

// NewStaging creates the staging directory if needed.
func NewStaging(dir string, logger *slog.Logger) (*Staging, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create staging directory %s: %w", dir, err)
	}
	return &Staging{dir: dir, logger: logger.With("component", "artifact")}, nil
}

// Dir returns the staging root.
func (s *Staging) Dir() string {
	return s.dir
}

// Stash writes the upload to a temporary path inside the staging directory.
// The MIME type must identify a zip archive.
func (s *Staging) Stash(r io.Reader, mimeType string) (*Artifact, error) {
	if !allowedMimeTypes[mimeType] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}

	tempPath := filepath.Join(s.dir, uuid.New().String()+".zip")
	f, err := os.Create(tempPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create staging file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(tempPath)
		return nil, fmt.Errorf("failed to write staging file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tempPath)
		return nil, fmt.Errorf("failed to close staging file: %w", err)
	}

	return &Artifact{TempPath: tempPath, MimeType: mimeType}, nil
}

// Finalize renames the artifact to its permanent path keyed by the project
// ID and returns that path.
func (s *Staging) Finalize(a *Artifact, projectID string) (string, error) {
	finalPath := filepath.Join(s.dir, projectID+".zip")
	if err := os.Rename(a.TempPath, finalPath); err != nil {
		return "", fmt.Errorf("failed to finalize artifact: %w", err)
	}
	return finalPath, nil
}

// Remove deletes the file at path, best-effort. Failures are logged only:
// cleanup must never mask the error that triggered it.
func (s *Staging) Remove(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to remove artifact", "path", path, "error", err)
	}
}

// ReadEntry returns the contents of one file inside the stashed archive.
func (s *Staging) ReadEntry(a *Artifact, entryPath string) ([]byte, error) {
	zr, err := zip.OpenReader(a.TempPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != entryPath {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open archive entry %s: %w", entryPath, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(io.LimitReader(rc, maxEntryBytes))
		if err != nil {
			return nil, fmt.Errorf("failed to read archive entry %s: %w", entryPath, err)
		}
		return data, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, entryPath)
}

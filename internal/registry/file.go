package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/MrSnakeDoc/berth/internal/domain"
)

// FileStore keeps the document as one JSON file.
//
// Saves go to a temp file in the same directory, are fsynced and renamed
// over the previous file, so a crash leaves either the old or the new
// document, never a torn one. An advisory flock on "<path>.lock" lets the
// CLI and the server share the same file.
type FileStore struct {
	path string
}

// NewFileStore prepares a file store at path, creating its directory.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create registry directory: %w", err)
	}
	return &FileStore{path: path}, nil
}

// Path returns the document path.
func (s *FileStore) Path() string { return s.path }

// Load reads the document. A missing file is an empty registry.
func (s *FileStore) Load(_ context.Context) (*domain.RegistryDocument, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return domain.NewRegistryDocument(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read registry: %w", err)
	}
	if len(data) == 0 {
		return domain.NewRegistryDocument(), nil
	}

	var doc domain.RegistryDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode registry %s: %w", s.path, err)
	}
	if doc.Version > domain.RegistryDocumentVersion {
		return nil, fmt.Errorf("registry %s has version %d, newer than supported %d",
			s.path, doc.Version, domain.RegistryDocumentVersion)
	}
	if doc.Workspaces == nil {
		doc.Workspaces = []domain.WorkspaceRecord{}
	}
	doc.Version = domain.RegistryDocumentVersion
	return &doc, nil
}

// Save writes the whole document through a temp file + rename.
func (s *FileStore) Save(_ context.Context, doc *domain.RegistryDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode registry: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp registry file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }() // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write registry: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync registry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close registry: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace registry: %w", err)
	}
	return nil
}

// Lock takes an exclusive advisory lock shared with other processes.
func (s *FileStore) Lock(ctx context.Context) (func(), error) {
	f, err := os.OpenFile(s.path+".lock", os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry lock: %w", err)
	}

	done := make(chan error, 1)
	go func() { done <- unix.Flock(int(f.Fd()), unix.LOCK_EX) }()

	select {
	case err := <-done:
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to lock registry: %w", err)
		}
	case <-ctx.Done():
		// The goroutine still owns f; release whatever it ends up with.
		go func() {
			if <-done == nil {
				_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
			}
			_ = f.Close()
		}()
		return nil, ctx.Err()
	}

	return func() {
		_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
		_ = f.Close()
	}, nil
}

// Close is a no-op; the file is only open during Load/Save.
func (s *FileStore) Close() error { return nil }

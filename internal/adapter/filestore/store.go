// Package filestore keeps pipeline artifacts as files in a data directory.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/couchcryptid/neo-risk-etl/internal/domain"
)

const tempPattern = ".tmp-*"

// Store reads and writes artifacts under a single directory.
type Store struct {
	dir string
}

// New creates the directory if needed and returns a Store rooted at it.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create data dir %s: %w", domain.ErrPersistence, dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the root directory.
func (s *Store) Dir() string { return s.dir }

// Put writes data under name. The content goes to a temporary file in the
// same directory which is then renamed over the target, so readers see
// either the previous artifact or the complete new one.
func (s *Store) Put(_ context.Context, name string, data []byte) error {
	if err := validName(name); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, tempPattern)
	if err != nil {
		return fmt.Errorf("%w: put %s: %w", domain.ErrPersistence, name, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("%w: put %s: %w", domain.ErrPersistence, name, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("%w: put %s: %w", domain.ErrPersistence, name, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("%w: put %s: %w", domain.ErrPersistence, name, err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		cleanup()
		return fmt.Errorf("%w: put %s: %w", domain.ErrPersistence, name, err)
	}
	return nil
}

// Get returns the artifact stored under name, or ErrArtifactNotFound.
func (s *Store) Get(_ context.Context, name string) ([]byte, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrArtifactNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %w", domain.ErrPersistence, name, err)
	}
	return data, nil
}

// List returns the stored artifact names in lexical order, skipping
// directories, hidden files and in-flight temporaries.
func (s *Store) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %w", domain.ErrPersistence, s.dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func validName(name string) error {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: invalid artifact name %q", domain.ErrPersistence, name)
	}
	return nil
}

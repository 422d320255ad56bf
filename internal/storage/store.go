// Package storage is the filesystem-as-database layer: one directory per
// project under a storage root, each holding the uploaded files plus a JSON
// sidecar. Every read re-derives its answer from disk.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"freehost/internal/fsutil"
	"freehost/internal/project"
)

type Store struct {
	root  string
	locks *Locker
	log   *zap.Logger
	now   func() time.Time
}

// New opens (creating if needed) the storage root.
func New(root string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create storage root: %v", project.ErrFilesystem, err)
	}
	return &Store{root: abs, locks: NewLocker(), log: log, now: time.Now}, nil
}

func (s *Store) Root() string { return s.root }

// Dir returns the directory of a canonical project name. Anything that is not
// a valid canonical name is reported as not found.
func (s *Store) Dir(name string) (string, error) {
	if !project.ValidName(name) {
		return "", fmt.Errorf("%w: project %q", project.ErrNotFound, name)
	}
	return fsutil.JoinWithinRoot(s.root, name)
}

func sidecarPath(dir string) string {
	return filepath.Join(dir, project.SidecarName)
}

func readSidecar(dir string) (project.Project, error) {
	var p project.Project
	b, err := os.ReadFile(sidecarPath(dir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return p, fmt.Errorf("%w: no sidecar in %s", project.ErrNotFound, filepath.Base(dir))
		}
		return p, fmt.Errorf("%w: read sidecar: %v", project.ErrFilesystem, err)
	}
	if err := json.Unmarshal(b, &p); err != nil {
		return p, fmt.Errorf("%w: sidecar of %s: %v", project.ErrParse, filepath.Base(dir), err)
	}
	return p, nil
}

func writeSidecar(dir string, p project.Project) error {
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(sidecarPath(dir), b, 0o644)
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"freehost/internal/fsutil"
	"freehost/internal/project"
)

// moveFile is swapped in tests to simulate a failing disk.
var moveFile = fsutil.MoveFile

// StagedFile is an uploaded file waiting in the staging area.
type StagedFile struct {
	// Name is the original upload file name (base name only).
	Name string
	// Path is the staging file holding the bytes.
	Path     string
	Size     int64
	Checksum string
}

// PublishRequest describes one upload to be made visible under a project.
type PublishRequest struct {
	// RawName is the user-supplied project name; it is sanitized here.
	RawName string
	Type    string
	BaseURL string
	Files   []StagedFile
}

// Publish moves staged files into the project directory and replaces its
// sidecar. Publishes to the same canonical name are serialized.
//
// If a move fails part way, files moved so far stay in the directory next to
// the previous sidecar (or none) until a later upload succeeds.
func (s *Store) Publish(ctx context.Context, req PublishRequest) (project.Project, error) {
	if len(req.Files) == 0 {
		return project.Project{}, fmt.Errorf("%w: no files uploaded", project.ErrValidation)
	}
	name := project.Sanitize(req.RawName)
	if !project.ValidName(name) {
		return project.Project{}, fmt.Errorf("%w: project name %q has no usable characters", project.ErrValidation, req.RawName)
	}
	dir, err := s.Dir(name)
	if err != nil {
		return project.Project{}, err
	}

	unlock := s.locks.Lock(name)
	defer unlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return project.Project{}, fmt.Errorf("%w: create project dir: %v", project.ErrFilesystem, err)
	}

	names := make([]string, 0, len(req.Files))
	sums := make(map[string]string, len(req.Files))
	for _, f := range req.Files {
		if err := ctx.Err(); err != nil {
			s.logPartial(name, names, err)
			return project.Project{}, err
		}
		if err := moveFile(f.Path, filepath.Join(dir, f.Name)); err != nil {
			s.logPartial(name, names, err)
			return project.Project{}, fmt.Errorf("%w: store %q: %v", project.ErrFilesystem, f.Name, err)
		}
		names = append(names, f.Name)
		if f.Checksum != "" {
			sums[f.Name] = f.Checksum
		}
	}

	now := s.now()
	p := project.New(name, req.Type, req.BaseURL, names, now)
	if len(sums) > 0 {
		p.Checksums = sums
	}
	if prev, err := readSidecar(dir); err == nil && !prev.CreatedAt.IsZero() {
		p.CreatedAt = prev.CreatedAt
	} else if err != nil && !errors.Is(err, project.ErrNotFound) {
		s.log.Warn("previous sidecar unreadable, resetting createdAt",
			zap.String("project", name), zap.Error(err))
	}

	if err := writeSidecar(dir, p); err != nil {
		s.logPartial(name, names, err)
		return project.Project{}, fmt.Errorf("%w: write sidecar: %v", project.ErrFilesystem, err)
	}
	s.log.Info("project published",
		zap.String("project", name),
		zap.String("type", p.Type),
		zap.Int("files", p.FileCount))
	return p, nil
}

func (s *Store) logPartial(name string, moved []string, err error) {
	s.log.Error("publish failed, project directory left without a matching sidecar",
		zap.String("project", name),
		zap.Strings("moved", moved),
		zap.Error(err))
}

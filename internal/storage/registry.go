package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"freehost/internal/project"
)

// FileEntry is one served file of a project.
type FileEntry struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
	Checksum string `json:"checksum,omitempty"`
}

// List returns every project whose sidecar parses. Directories without a
// sidecar are skipped silently; a corrupt sidecar is logged and skipped so one
// bad project never hides the others. Order follows directory enumeration.
func (s *Store) List(ctx context.Context) ([]project.Project, error) {
	ents, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []project.Project{}, nil
		}
		return nil, fmt.Errorf("%w: read storage root: %v", project.ErrFilesystem, err)
	}
	out := make([]project.Project, 0, len(ents))
	for _, e := range ents {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		p, err := readSidecar(filepath.Join(s.root, e.Name()))
		if err != nil {
			if !errors.Is(err, project.ErrNotFound) {
				s.log.Warn("skipping unlistable project", zap.String("dir", e.Name()), zap.Error(err))
			}
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// Get reads one project's sidecar.
func (s *Store) Get(name string) (project.Project, error) {
	dir, err := s.Dir(name)
	if err != nil {
		return project.Project{}, err
	}
	return readSidecar(dir)
}

// Files lists the served files of a project with public URLs under baseURL.
// Dot entries (sidecar, temp files) are internal and left out.
func (s *Store) Files(name, baseURL string) ([]FileEntry, error) {
	dir, err := s.Dir(name)
	if err != nil {
		return nil, err
	}
	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		return nil, fmt.Errorf("%w: project %q", project.ErrNotFound, name)
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: read project %q: %v", project.ErrFilesystem, name, err)
	}

	var sums map[string]string
	if p, err := readSidecar(dir); err == nil {
		sums = p.Checksums
	} else if !errors.Is(err, project.ErrNotFound) {
		s.log.Warn("sidecar unreadable, listing without checksums", zap.String("project", name), zap.Error(err))
	}

	base := project.URLFor(baseURL, name)
	out := make([]FileEntry, 0, len(ents))
	for _, e := range ents {
		if strings.HasPrefix(e.Name(), ".") || !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, FileEntry{
			Name:     e.Name(),
			URL:      base + "/" + url.PathEscape(e.Name()),
			Size:     info.Size(),
			Checksum: sums[e.Name()],
		})
	}
	return out, nil
}

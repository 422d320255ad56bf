package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"freehost/internal/project"
)

// Stats aggregates the storage tree.
type Stats struct {
	Projects   int   `json:"projects"`
	TotalFiles int   `json:"totalFiles"`
	TotalBytes int64 `json:"totalBytes"`
}

// Stats walks the whole storage root. Every non-hidden directory counts as a
// project and every non-hidden regular file is counted and summed; dot entries
// are internal. Cost is O(total files) per call.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == s.root && errors.Is(err, os.ErrNotExist) {
				return fs.SkipAll
			}
			// unreadable subtree: count what we can
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if p == s.root {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			st.Projects++
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		st.TotalFiles++
		st.TotalBytes += info.Size()
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return Stats{}, err
		}
		return Stats{}, fmt.Errorf("%w: walk storage: %v", project.ErrFilesystem, err)
	}
	return st, nil
}

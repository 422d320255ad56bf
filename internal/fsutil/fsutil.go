package fsutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrInvalidPath = errors.New("invalid path")
	ErrPathEscape  = errors.New("path escape")
)

// CleanRelPath takes a user path like "", ".", "/a/b", "a//b", and returns a
// safe, slash-based, no-leading-slash relative path ("" means root).
func CleanRelPath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || p == "." || p == "/" {
		return ""
	}
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean("/" + p) // force absolute for stable cleaning
	p = strings.TrimPrefix(p, "/")
	if p == "." {
		return ""
	}
	return p
}

// JoinWithinRoot returns an absolute filesystem path under root for a given rel
// path. It rejects escapes (..).
func JoinWithinRoot(rootAbs string, rel string) (string, error) {
	if strings.Contains(rel, "\x00") {
		return "", ErrInvalidPath
	}
	rel = CleanRelPath(rel)
	if rel == "" {
		return filepath.Clean(rootAbs), nil
	}
	abs := filepath.Clean(filepath.Join(rootAbs, filepath.FromSlash(rel)))
	if !Within(rootAbs, abs) {
		return "", ErrPathEscape
	}
	return abs, nil
}

// ResolveWithinRoot is JoinWithinRoot plus symlink resolution: the target must
// exist and its real path must still be inside the real root.
func ResolveWithinRoot(rootAbs string, rel string) (string, error) {
	abs, err := JoinWithinRoot(rootAbs, rel)
	if err != nil {
		return "", err
	}
	realRoot, err := filepath.EvalSymlinks(rootAbs)
	if err != nil {
		return "", err
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	if !Within(realRoot, real) {
		return "", ErrPathEscape
	}
	return real, nil
}

// Within reports whether p is root or lies beneath it. Both are cleaned first.
func Within(root, p string) bool {
	root = filepath.Clean(root)
	p = filepath.Clean(p)
	return p == root || strings.HasPrefix(p, root+string(filepath.Separator))
}

// HasHiddenSegment reports whether any segment of a slash path starts with ".".
func HasHiddenSegment(rel string) bool {
	for _, seg := range strings.Split(rel, "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}

// WriteFileAtomic writes b to a hidden temp file next to dst and renames it
// into place, so readers see either the old or the new content.
func WriteFileAtomic(dst string, b []byte, perm os.FileMode) error {
	tmp := filepath.Join(filepath.Dir(dst), "."+filepath.Base(dst)+"."+uuid.NewString()+".tmp")
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_EXCL, perm)
	if err != nil {
		return err
	}
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// MoveFile renames src to dst, replacing dst. If rename fails (e.g. staging on
// another device) it copies and fsyncs, then removes src.
func MoveFile(src, dst string) error {
	if err := os.Rename(src, dst); err != nil {
		if err2 := CopyFile(src, dst); err2 != nil {
			return fmt.Errorf("move file: rename=%v copy=%v", err, err2)
		}
		_ = os.Remove(src)
	}
	return nil
}

func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()
	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	if err := out.Sync(); err != nil {
		return err
	}
	return out.Close()
}

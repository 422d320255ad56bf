package httpserver

import (
	"context"
	"net/http"
	"os"
	"path"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/webdav"

	"freehost/internal/fsutil"
)

// davHandler exposes the storage root over WebDAV for browsing and mounting.
// Uploads only go through /api/upload, so every write method is refused.
func (s *Server) davHandler() http.Handler {
	dav := &webdav.Handler{
		Prefix:     "/dav",
		FileSystem: readOnlyFS{fs: webdav.Dir(s.store.Root())},
		LockSystem: webdav.NewMemLS(),
		Logger: func(r *http.Request, err error) {
			if err != nil {
				s.log.Debug("webdav", zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
			}
		},
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions, "PROPFIND":
			dav.ServeHTTP(w, r)
		default:
			w.Header().Set("Allow", "GET, HEAD, OPTIONS, PROPFIND")
			http.Error(w, "read-only", http.StatusMethodNotAllowed)
		}
	})
}

// readOnlyFS hides dot entries (sidecars, state dir) and rejects writes.
type readOnlyFS struct {
	fs webdav.FileSystem
}

func davHidden(name string) bool {
	return fsutil.HasHiddenSegment(strings.TrimPrefix(path.Clean("/"+name), "/"))
}

func (f readOnlyFS) Mkdir(ctx context.Context, name string, perm os.FileMode) error {
	return os.ErrPermission
}

func (f readOnlyFS) OpenFile(ctx context.Context, name string, flag int, perm os.FileMode) (webdav.File, error) {
	if flag&(os.O_WRONLY|os.O_RDWR|os.O_CREATE|os.O_TRUNC|os.O_APPEND) != 0 {
		return nil, os.ErrPermission
	}
	if davHidden(name) {
		return nil, os.ErrNotExist
	}
	file, err := f.fs.OpenFile(ctx, name, flag, perm)
	if err != nil {
		return nil, err
	}
	return visibleFile{File: file}, nil
}

func (f readOnlyFS) RemoveAll(ctx context.Context, name string) error {
	return os.ErrPermission
}

func (f readOnlyFS) Rename(ctx context.Context, oldName, newName string) error {
	return os.ErrPermission
}

func (f readOnlyFS) Stat(ctx context.Context, name string) (os.FileInfo, error) {
	if davHidden(name) {
		return nil, os.ErrNotExist
	}
	return f.fs.Stat(ctx, name)
}

type visibleFile struct {
	webdav.File
}

func (f visibleFile) Readdir(count int) ([]os.FileInfo, error) {
	infos, err := f.File.Readdir(count)
	out := infos[:0]
	for _, fi := range infos {
		if !strings.HasPrefix(fi.Name(), ".") {
			out = append(out, fi)
		}
	}
	return out, err
}

func (f visibleFile) Write(p []byte) (int, error) {
	return 0, os.ErrPermission
}

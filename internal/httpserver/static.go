package httpserver

import (
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"freehost/internal/fsutil"
	"freehost/internal/project"
)

func (s *Server) handleProjectRoot(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/projects/"+r.PathValue("name")+"/", http.StatusMovedPermanently)
}

// handleProjectFile serves /projects/{name}/{path...}. The resolved file must
// stay inside the project directory after cleaning and symlink resolution;
// directories serve their index.html.
func (s *Server) handleProjectFile(w http.ResponseWriter, r *http.Request) {
	dir, err := s.store.Dir(r.PathValue("name"))
	if err != nil {
		notFound(w)
		return
	}
	rel := fsutil.CleanRelPath(r.PathValue("path"))
	if fsutil.HasHiddenSegment(rel) {
		notFound(w)
		return
	}
	abs, err := fsutil.ResolveWithinRoot(dir, rel)
	if err != nil {
		notFound(w)
		return
	}
	st, err := os.Stat(abs)
	if err != nil {
		notFound(w)
		return
	}
	if st.IsDir() {
		if rel != "" && !strings.HasSuffix(r.URL.Path, "/") {
			http.Redirect(w, r, r.URL.Path+"/", http.StatusMovedPermanently)
			return
		}
		abs, err = fsutil.ResolveWithinRoot(dir, path.Join(rel, project.IndexFile))
		if err != nil {
			notFound(w)
			return
		}
		st, err = os.Stat(abs)
		if err != nil || st.IsDir() {
			notFound(w)
			return
		}
	}

	f, err := os.Open(abs)
	if err != nil {
		notFound(w)
		return
	}
	defer f.Close()

	if ct := contentTypeForName(st.Name()); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	http.ServeContent(w, r, st.Name(), st.ModTime(), f)
}

func notFound(w http.ResponseWriter) {
	http.Error(w, "File not found", http.StatusNotFound)
}

func isImageExt(ext string) bool {
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return true
	default:
		return false
	}
}

func contentTypeForName(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return ""
	}
	// Fallbacks first for what the upload allow-list accepts, so hosted sites
	// behave the same on systems with sparse mime tables.
	switch ext {
	case ".html", ".htm":
		return "text/html; charset=utf-8"
	case ".css":
		return "text/css; charset=utf-8"
	case ".js", ".mjs":
		return "text/javascript; charset=utf-8"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".mp4":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	case ".zip":
		return "application/zip"
	case ".apk":
		return "application/vnd.android.package-archive"
	}
	return mime.TypeByExtension(ext)
}

package httpserver

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	// decoders
	_ "image/gif"
	_ "image/png"

	"go.uber.org/zap"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"freehost/internal/fsutil"
)

const (
	defaultThumbSize = 256
	minThumbSize     = 16
	maxThumbSize     = 1024
	thumbQuality     = 82
)

// handleThumb serves a cached JPEG thumbnail of an image file in a project.
func (s *Server) handleThumb(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	dir, err := s.store.Dir(name)
	if err != nil {
		notFound(w)
		return
	}
	rel := fsutil.CleanRelPath(r.PathValue("file"))
	if rel == "" || fsutil.HasHiddenSegment(rel) || !isImageExt(strings.ToLower(filepath.Ext(rel))) {
		notFound(w)
		return
	}
	abs, err := fsutil.ResolveWithinRoot(dir, rel)
	if err != nil {
		notFound(w)
		return
	}
	st, err := os.Stat(abs)
	if err != nil || st.IsDir() {
		notFound(w)
		return
	}

	size := defaultThumbSize
	if v := r.URL.Query().Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < minThumbSize || n > maxThumbSize {
			http.Error(w, "bad size", http.StatusBadRequest)
			return
		}
		size = n
	}

	thumbDir := filepath.Join(s.cfg.StateDir, "thumbs")
	key := fmt.Sprintf("%s-%s-%d-%d.jpg", name, safeKey(rel), st.ModTime().UnixNano(), size)
	thumbPath := filepath.Join(thumbDir, key)
	if b, err := os.ReadFile(thumbPath); err == nil {
		writeThumb(w, b)
		return
	}
	b, err := thumbFile(abs, size)
	if err != nil {
		s.log.Debug("thumbnail failed", zap.String("project", name), zap.String("file", rel), zap.Error(err))
		notFound(w)
		return
	}
	if err := os.MkdirAll(thumbDir, 0o755); err == nil {
		_ = fsutil.WriteFileAtomic(thumbPath, b, 0o644)
	}
	writeThumb(w, b)
}

func writeThumb(w http.ResponseWriter, b []byte) {
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(b)
}

// thumbnail decodes any registered image format from r and encodes a JPEG
// whose longer edge is at most edge pixels. Smaller images keep their size.
func thumbnail(r io.Reader, edge int) ([]byte, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return nil, err
	}
	b := src.Bounds()
	nw, nh, err := fitWithin(b.Dx(), b.Dy(), edge)
	if err != nil {
		return nil, err
	}
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, dst, &jpeg.Options{Quality: thumbQuality}); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// fitWithin scales w x h down so neither side exceeds edge, keeping the
// aspect ratio and never returning a zero side.
func fitWithin(w, h, edge int) (int, int, error) {
	if w <= 0 || h <= 0 {
		return 0, 0, os.ErrInvalid
	}
	if edge <= 0 {
		edge = defaultThumbSize
	}
	long := max(w, h)
	if long <= edge {
		return w, h, nil
	}
	return max(1, w*edge/long), max(1, h*edge/long), nil
}

func thumbFile(absPath string, edge int) ([]byte, error) {
	f, err := os.Open(absPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return thumbnail(f, edge)
}

var keyReplacer = strings.NewReplacer("/", "_", "\\", "_", "..", "_")

// safeKey flattens a project-relative path into one cache file name segment.
func safeKey(rel string) string {
	return keyReplacer.Replace(rel)
}

package httpserver

import (
	"embed"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzhttp"
	"go.uber.org/zap"

	"freehost/internal/config"
	"freehost/internal/project"
	"freehost/internal/storage"
	"freehost/internal/upload"
)

// ServerName is reported by /api/stats.
const ServerName = "FreeHost File Server"

type Options struct {
	Config config.Config
	Logger *zap.Logger
}

type Server struct {
	cfg     config.Config
	log     *zap.Logger
	store   *storage.Store
	intake  *upload.Intake
	metrics *metrics
	started time.Time

	webFS fs.FS
}

//go:embed web/*.html
var embeddedWeb embed.FS

// New wires the storage root and upload staging area described by
// opts.Config, which must already be validated.
func New(opts Options) (*Server, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	store, err := storage.New(opts.Config.Root, log.Named("storage"))
	if err != nil {
		return nil, err
	}
	intake, err := upload.New(upload.Options{
		StateDir:       opts.Config.StateDir,
		MaxFileSize:    opts.Config.MaxFileSize,
		MaxRequestSize: opts.Config.MaxRequestSize,
	}, log.Named("upload"))
	if err != nil {
		return nil, err
	}
	sub, err := fs.Sub(embeddedWeb, "web")
	if err != nil {
		return nil, err
	}
	return &Server{
		cfg:     opts.Config,
		log:     log,
		store:   store,
		intake:  intake,
		metrics: newMetrics(),
		started: time.Now(),
		webFS:   sub,
	}, nil
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	handle := func(pattern string, h http.Handler) {
		mux.Handle(pattern, s.metrics.instrument(pattern, h))
	}

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, "ok\n")
	})
	mux.Handle("GET /metrics", s.metrics.handler())

	// presentation
	handle("GET /{$}", s.page("index.html"))
	handle("GET /help", s.page("help.html"))

	// api
	handle("POST /api/upload", http.HandlerFunc(s.handleUpload))
	handle("GET /api/projects", gzhttp.GzipHandler(http.HandlerFunc(s.handleProjects)))
	handle("GET /api/projects/{name}/files", gzhttp.GzipHandler(http.HandlerFunc(s.handleFiles)))
	handle("GET /api/projects/{name}/thumb/{file...}", http.HandlerFunc(s.handleThumb))
	handle("GET /api/projects/{name}/qr", http.HandlerFunc(s.handleQR))
	handle("GET /api/stats", gzhttp.GzipHandler(http.HandlerFunc(s.handleStats)))

	// hosted content
	handle("GET /projects/{name}", http.HandlerFunc(s.handleProjectRoot))
	handle("GET /projects/{name}/{path...}", http.HandlerFunc(s.handleProjectFile))

	// read-only WebDAV view of the storage root
	handle("/dav/", s.davHandler())

	return s.withRequestLog(withHeaders(mux))
}

func (s *Server) page(name string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, err := fs.ReadFile(s.webFS, name)
		if err != nil {
			http.Error(w, "missing ui", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(b)
	})
}

func withHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "no-referrer")

		// uploads and hosted files are public
		h.Set("Access-Control-Allow-Origin", "*")
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" &&
			!strings.HasPrefix(r.URL.Path, "/dav/") {
			h.Set("Access-Control-Allow-Methods", "GET,HEAD,POST,OPTIONS")
			if v := r.Header.Get("Access-Control-Request-Headers"); v != "" {
				h.Set("Access-Control-Allow-Headers", v)
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}

		if strings.HasPrefix(r.URL.Path, "/api/") {
			h.Set("Cache-Control", "no-store")
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := uuid.NewString()
		w.Header().Set("X-Request-ID", id)
		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)

		s.log.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", sw.code()),
			zap.Int64("bytes", sw.bytes),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", id),
		)
	})
}

// baseURL is the public scheme://host every returned URL is built on.
func (s *Server) baseURL(r *http.Request) string {
	if s.cfg.PublicURL != "" {
		return s.cfg.PublicURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	host := r.Host
	if s.cfg.TrustProxy {
		if v := firstHeaderValue(r.Header.Get("X-Forwarded-Proto")); v == "http" || v == "https" {
			scheme = v
		}
		if v := firstHeaderValue(r.Header.Get("X-Forwarded-Host")); v != "" {
			host = v
		}
	}
	return scheme + "://" + host
}

func firstHeaderValue(v string) string {
	if i := strings.IndexByte(v, ','); i >= 0 {
		v = v[:i]
	}
	return strings.TrimSpace(v)
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

// errorStatus maps an error kind to a status code and a client-safe message.
// Server-side failures get a generic message; the caller logs the detail.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, project.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, err.Error()
	case errors.Is(err, project.ErrUnsupportedMedia):
		return http.StatusUnsupportedMediaType, err.Error()
	case errors.Is(err, project.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, project.ErrNotFound):
		return http.StatusNotFound, "Project not found"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// writeAPIError answers with {error} and logs 5xx causes.
func (s *Server) writeAPIError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := errorStatus(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += int64(n)
	return n, err
}

func (w *statusWriter) code() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

package httpserver

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"freehost/internal/project"
	"freehost/internal/storage"
)

type uploadResponse struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Project *project.Project `json:"project,omitempty"`
	URL     string           `json:"url,omitempty"`
}

type statsResponse struct {
	Server     string  `json:"server"`
	Uptime     float64 `json:"uptime"`
	Projects   int     `json:"projects"`
	TotalFiles int     `json:"totalFiles"`
	TotalSize  string  `json:"totalSize"`
	TotalBytes int64   `json:"totalBytes"`
	PublicURL  string  `json:"publicUrl"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	form, err := s.intake.Receive(w, r)
	if err != nil {
		s.uploadFailed(w, r, err)
		return
	}
	// staged files still present after Publish were not moved
	defer form.Cleanup()

	if len(form.Files) == 0 {
		s.uploadFailed(w, r, fmt.Errorf("%w: No files uploaded", project.ErrValidation))
		return
	}

	p, err := s.store.Publish(r.Context(), storage.PublishRequest{
		RawName: form.ProjectName,
		Type:    form.ProjectType,
		BaseURL: s.baseURL(r),
		Files:   form.Files,
	})
	if err != nil {
		s.uploadFailed(w, r, err)
		return
	}

	var size int64
	for _, f := range form.Files {
		size += f.Size
	}
	s.metrics.uploadSucceeded(len(form.Files), size)

	writeJSON(w, http.StatusOK, uploadResponse{
		Success: true,
		Message: "Files uploaded successfully",
		Project: &p,
		URL:     p.URL,
	})
}

func (s *Server) uploadFailed(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := errorStatus(err)
	if status >= http.StatusInternalServerError {
		msg = "Upload failed"
		s.log.Error("upload failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
	} else {
		s.log.Info("upload rejected", zap.String("remote", r.RemoteAddr), zap.Int("status", status), zap.Error(err))
	}
	s.metrics.uploadFailed(status)
	writeJSON(w, status, uploadResponse{Success: false, Message: msg})
}

func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.List(r.Context())
	if err != nil {
		s.writeAPIError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.store.Files(r.PathValue("name"), s.baseURL(r))
	if err != nil {
		s.writeAPIError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, files)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.store.Stats(r.Context())
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		s.writeAPIError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		Server:     ServerName,
		Uptime:     time.Since(s.started).Seconds(),
		Projects:   st.Projects,
		TotalFiles: st.TotalFiles,
		TotalSize:  FormatMB(st.TotalBytes),
		TotalBytes: st.TotalBytes,
		PublicURL:  s.baseURL(r),
	})
}

// FormatMB renders a byte count the way the stats endpoint reports it.
func FormatMB(n int64) string {
	return fmt.Sprintf("%.2f MB", float64(n)/(1024*1024))
}

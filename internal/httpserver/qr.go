package httpserver

import (
	"net/http"
	"strconv"

	qrcode "github.com/skip2/go-qrcode"

	"freehost/internal/project"
)

// handleQR renders a PNG QR code of a project's share link, built on the
// current request's base URL.
func (s *Server) handleQR(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.Get(r.PathValue("name"))
	if err != nil {
		s.writeAPIError(w, r, err)
		return
	}
	size := 256
	if v := r.URL.Query().Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 128 || n > 1024 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "size must be between 128 and 1024"})
			return
		}
		size = n
	}

	link := project.New(p.Name, p.Type, s.baseURL(r), p.Files, p.CreatedAt).ShareURL()
	png, err := qrcode.Encode(link, qrcode.Medium, size)
	if err != nil {
		s.writeAPIError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(png)
}

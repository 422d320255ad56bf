// Package project holds the project data model shared by the upload and read
// paths: the sidecar record, the canonical-name rules, the accepted media types
// and the error kinds the HTTP layer maps to status codes.
package project

import (
	"strings"
	"time"
)

// SidecarName is the metadata file kept inside every project directory. The
// leading dot marks it internal: it is hidden from file listings and stats.
const SidecarName = ".project-info.json"

// Advisory project types. Type is free text and never checked against content.
const (
	TypeWebsite = "website"
	TypeImages  = "images"
	TypeVideos  = "videos"
	TypeAPK     = "apk"
	TypeZip     = "zip"
)

// IndexFile is the page served for a bare project path.
const IndexFile = "index.html"

// Project is the sidecar record and the API representation of a project.
type Project struct {
	Name      string            `json:"name"`
	Type      string            `json:"type"`
	Files     []string          `json:"files"`
	FileCount int               `json:"fileCount"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt,omitempty"`
	URL       string            `json:"url"`
	MainURL   string            `json:"mainUrl,omitempty"`
	Checksums map[string]string `json:"checksums,omitempty"`
}

// URLFor returns the public URL of a project under baseURL.
func URLFor(baseURL, name string) string {
	return strings.TrimRight(baseURL, "/") + "/projects/" + name
}

// IndexName returns the entry of files matching index.html case-insensitively.
func IndexName(files []string) (string, bool) {
	for _, f := range files {
		if strings.EqualFold(f, IndexFile) {
			return f, true
		}
	}
	return "", false
}

// New builds the record for an upload of files under name.
func New(name, typ, baseURL string, files []string, now time.Time) Project {
	p := Project{
		Name:      name,
		Type:      typ,
		Files:     append([]string(nil), files...),
		FileCount: len(files),
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
		URL:       URLFor(baseURL, name),
	}
	if idx, ok := IndexName(files); ok {
		p.MainURL = p.URL + "/" + idx
	}
	return p
}

// ShareURL is what a share link should point at: the site entry page when the
// project has one, else the project URL.
func (p Project) ShareURL() string {
	if p.MainURL != "" {
		return p.MainURL
	}
	return p.URL
}

package project

import (
	"mime"
	"strings"
)

// allowedTypes is the upload allow-list, keyed by media type without parameters.
var allowedTypes = map[string]struct{}{
	"image/jpeg":                              {},
	"image/png":                               {},
	"image/gif":                               {},
	"image/webp":                              {},
	"text/html":                               {},
	"text/css":                                {},
	"application/javascript":                  {},
	"text/javascript":                         {},
	"application/zip":                         {},
	"application/x-zip-compressed":            {},
	"video/mp4":                               {},
	"video/webm":                              {},
	"application/x-apk":                       {},
	"application/vnd.android.package-archive": {},
}

// AllowedMediaType reports whether a part's declared Content-Type may be
// uploaded. Parameters such as charset are ignored; matching is case-insensitive.
func AllowedMediaType(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	_, ok := allowedTypes[strings.ToLower(mt)]
	return ok
}

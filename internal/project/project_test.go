package project

import (
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var canonical = regexp.MustCompile(`^[a-z0-9-]*$`)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"already canonical", "my-site", "my-site"},
		{"uppercase", "MySite", "mysite"},
		{"spaces and punctuation", "My Cool Site!", "my-cool-site-"},
		{"empty", "", ""},
		{"all punctuation", "!!!", "---"},
		{"digits kept", "v2 release", "v2-release"},
		{"unicode letter", "café", "caf-"},
		{"emoji is one rune", "a😀b", "a-b"},
		{"path separators", "../etc/passwd", "---etc-passwd"},
		{"dots", "site.example.com", "site-example-com"},
		{"invalid utf8", "a\xffb", "a-b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.input))
		})
	}
}

func TestSanitize_Properties(t *testing.T) {
	inputs := []string{
		"", " ", "-", "A", "My Cool Site!", "日本語のサイト", "\x00\x01\x02",
		"UPPER_lower-123", strings.Repeat("ab", 300), strings.Repeat("é", 400),
		"\xff\xfe", "tab\tnew\nline", "../../..",
	}
	for i, in := range inputs {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			once := Sanitize(in)
			assert.Equal(t, once, Sanitize(once), "idempotent")
			assert.Equal(t, once, Sanitize(in), "deterministic")
			assert.Regexp(t, canonical, once)
			assert.LessOrEqual(t, len(once), MaxNameLength)
		})
	}
}

func TestValidName(t *testing.T) {
	assert.True(t, ValidName("my-cool-site-"))
	assert.True(t, ValidName("a"))
	assert.False(t, ValidName(""))
	assert.False(t, ValidName("---"))
	assert.False(t, ValidName("MySite"))
	assert.False(t, ValidName(".."))
	assert.False(t, ValidName("a/b"))
}

func TestNew(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	p := New("site", TypeWebsite, "http://example.test/", []string{"Index.HTML", "a.css"}, now)
	assert.Equal(t, "http://example.test/projects/site", p.URL)
	assert.Equal(t, "http://example.test/projects/site/Index.HTML", p.MainURL)
	assert.Equal(t, 2, p.FileCount)
	assert.Equal(t, now, p.CreatedAt)
	assert.Equal(t, p.MainURL, p.ShareURL())

	p = New("pics", TypeImages, "http://example.test", []string{"a.png"}, now)
	assert.Empty(t, p.MainURL)
	assert.Equal(t, p.URL, p.ShareURL())
}

func TestAllowedMediaType(t *testing.T) {
	for _, ct := range []string{
		"image/jpeg", "image/png", "image/gif", "image/webp",
		"text/html; charset=utf-8", "TEXT/CSS", "application/javascript", "text/javascript",
		"application/zip", "application/x-zip-compressed", "video/mp4",
		"video/webm", "application/x-apk", "application/vnd.android.package-archive",
	} {
		assert.True(t, AllowedMediaType(ct), ct)
	}
	for _, ct := range []string{
		"application/x-msdownload", "application/octet-stream", "text/plain", "", "not a type",
	} {
		assert.False(t, AllowedMediaType(ct), ct)
	}
}

func TestErrTooLargeIsUnsupportedMedia(t *testing.T) {
	err := fmt.Errorf("part %q: %w", "big.mp4", ErrTooLarge)
	require.ErrorIs(t, err, ErrTooLarge)
	assert.ErrorIs(t, err, ErrUnsupportedMedia)
}

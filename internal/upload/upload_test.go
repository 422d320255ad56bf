package upload

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"freehost/internal/project"
)

type filePart struct {
	name        string
	contentType string
	body        io.Reader
}

func writeForm(t *testing.T, mw *multipart.Writer, fields map[string]string, files []filePart) {
	t.Helper()
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename="%s"`, f.name))
		h.Set("Content-Type", f.contentType)
		pw, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = io.Copy(pw, f.body)
		require.NoError(t, err)
	}
	// fields after files: intake must not depend on part order
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
}

func newRequest(t *testing.T, fields map[string]string, files ...filePart) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	writeForm(t, mw, fields, files)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func newIntake(t *testing.T, opts Options) *Intake {
	t.Helper()
	if opts.StateDir == "" {
		opts.StateDir = t.TempDir()
	}
	in, err := New(opts, zap.NewNop())
	require.NoError(t, err)
	return in
}

func stagedCount(t *testing.T, in *Intake) int {
	t.Helper()
	ents, err := os.ReadDir(in.dir)
	require.NoError(t, err)
	return len(ents)
}

func TestReceive(t *testing.T) {
	in := newIntake(t, Options{})
	req := newRequest(t,
		map[string]string{FieldProjectName: "My Site", FieldProjectType: " website "},
		filePart{"index.html", "text/html; charset=utf-8", strings.NewReader("<p>hello</p>")},
		filePart{"app.js", "application/javascript", strings.NewReader("1")},
	)

	form, err := in.Receive(httptest.NewRecorder(), req)
	require.NoError(t, err)
	t.Cleanup(form.Cleanup)

	assert.Equal(t, "My Site", form.ProjectName)
	assert.Equal(t, "website", form.ProjectType)
	require.Len(t, form.Files, 2)
	assert.Equal(t, "index.html", form.Files[0].Name)
	assert.Equal(t, "app.js", form.Files[1].Name)
	assert.Equal(t, int64(12), form.Files[0].Size)

	sum := blake2b.Sum256([]byte("<p>hello</p>"))
	assert.Equal(t, hex.EncodeToString(sum[:]), form.Files[0].Checksum)

	b, err := os.ReadFile(form.Files[0].Path)
	require.NoError(t, err)
	assert.Equal(t, "<p>hello</p>", string(b))
	assert.Equal(t, in.dir, filepath.Dir(form.Files[0].Path))

	form.Cleanup()
	assert.Equal(t, 0, stagedCount(t, in))
}

func TestReceive_RejectsDisallowedType(t *testing.T) {
	in := newIntake(t, Options{})
	req := newRequest(t,
		map[string]string{FieldProjectName: "evil"},
		filePart{"ok.png", "image/png", strings.NewReader("png")},
		filePart{"setup.exe", "application/x-msdownload", strings.NewReader("MZ")},
	)

	_, err := in.Receive(httptest.NewRecorder(), req)
	require.ErrorIs(t, err, project.ErrUnsupportedMedia)
	assert.NotErrorIs(t, err, project.ErrTooLarge)
	assert.Equal(t, 0, stagedCount(t, in), "earlier parts are unstaged")
}

func TestReceive_SizeCap(t *testing.T) {
	in := newIntake(t, Options{MaxFileSize: 1 << 10})

	req := newRequest(t, map[string]string{FieldProjectName: "cap"},
		filePart{"exact.png", "image/png", bytes.NewReader(make([]byte, 1<<10))})
	form, err := in.Receive(httptest.NewRecorder(), req)
	require.NoError(t, err)
	form.Cleanup()

	req = newRequest(t, map[string]string{FieldProjectName: "cap"},
		filePart{"big.png", "image/png", bytes.NewReader(make([]byte, 2<<10))})
	_, err = in.Receive(httptest.NewRecorder(), req)
	require.ErrorIs(t, err, project.ErrTooLarge)
	assert.Equal(t, 0, stagedCount(t, in))
}

func TestReceive_DefaultCapRejects60MiB(t *testing.T) {
	if testing.Short() {
		t.Skip("streams 60 MiB")
	}
	in := newIntake(t, Options{})
	require.Equal(t, int64(DefaultMaxFileSize), in.MaxFileSize())

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="files"; filename="movie.mp4"`)
		h.Set("Content-Type", "video/mp4")
		part, err := mw.CreatePart(h)
		if err == nil {
			_, err = io.CopyN(part, zeros{}, 60<<20)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()
	req := httptest.NewRequest(http.MethodPost, "/api/upload", pr)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	_, err := in.Receive(httptest.NewRecorder(), req)
	require.ErrorIs(t, err, project.ErrTooLarge)
	_ = pr.Close()
	assert.Equal(t, 0, stagedCount(t, in))
}

type zeros struct{}

func (zeros) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}

func TestReceive_RequestCap(t *testing.T) {
	in := newIntake(t, Options{MaxRequestSize: 512})
	req := newRequest(t, map[string]string{FieldProjectName: "cap"},
		filePart{"a.png", "image/png", bytes.NewReader(make([]byte, 4<<10))})

	_, err := in.Receive(httptest.NewRecorder(), req)
	require.ErrorIs(t, err, project.ErrTooLarge)
	assert.Equal(t, 0, stagedCount(t, in))
}

func TestReceive_NotMultipart(t *testing.T) {
	in := newIntake(t, Options{})
	req := httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader(`{"projectName":"x"}`))
	req.Header.Set("Content-Type", "application/json")

	_, err := in.Receive(httptest.NewRecorder(), req)
	assert.ErrorIs(t, err, project.ErrValidation)
}

func TestReceive_NoFiles(t *testing.T) {
	in := newIntake(t, Options{})
	req := newRequest(t, map[string]string{FieldProjectName: "empty"},
		filePart{"", "application/octet-stream", strings.NewReader("")})

	form, err := in.Receive(httptest.NewRecorder(), req)
	require.NoError(t, err)
	assert.Empty(t, form.Files)
}

func TestFileName(t *testing.T) {
	ok := map[string]string{
		"index.html":         "index.html",
		`C:\Users\me\a.png`:  "a.png",
		"dir/sub/photo.jpg":  "photo.jpg",
		" spaced name.css ":  "spaced name.css",
		"Index.HTML":         "Index.HTML",
		"../../../etc/x.png": "x.png",
	}
	for in, want := range ok {
		got, err := fileName(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	for _, in := range []string{"", ".", "..", "a/..", project.SidecarName, ".htaccess", "dir/"} {
		_, err := fileName(in)
		assert.ErrorIs(t, err, project.ErrValidation, in)
	}
}

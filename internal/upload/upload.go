package upload

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"freehost/internal/project"
	"freehost/internal/storage"
)

// Multipart form field names.
const (
	FieldProjectName = "projectName"
	FieldProjectType = "projectType"
	FieldFiles       = "files"
)

const (
	DefaultMaxFileSize = 50 << 20
	maxFieldSize       = 4 << 10
)

// Intake streams multipart uploads into a staging directory. Every file part
// is checked against the media allow-list and the per-file size cap as it
// arrives; the first rejected part fails the whole request and removes
// everything staged so far.
//
// Staging files live in <stateDir>/uploads/mp-<uuid>.part until the storage
// layer moves them into a project.
type Intake struct {
	dir        string
	maxFile    int64
	maxRequest int64
	log        *zap.Logger
}

type Options struct {
	StateDir string
	// MaxFileSize caps each file part. Zero means DefaultMaxFileSize.
	MaxFileSize int64
	// MaxRequestSize caps the whole body. Zero means unlimited.
	MaxRequestSize int64
}

// Form is a fully received upload.
type Form struct {
	ProjectName string
	ProjectType string
	Files       []storage.StagedFile
}

func New(opts Options, log *zap.Logger) (*Intake, error) {
	if log == nil {
		log = zap.NewNop()
	}
	dir := filepath.Join(opts.StateDir, "uploads")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	maxFile := opts.MaxFileSize
	if maxFile <= 0 {
		maxFile = DefaultMaxFileSize
	}
	return &Intake{
		dir:        dir,
		maxFile:    maxFile,
		maxRequest: opts.MaxRequestSize,
		log:        log,
	}, nil
}

func (in *Intake) MaxFileSize() int64 { return in.maxFile }

// Receive reads the whole multipart body. On error nothing stays staged.
func (in *Intake) Receive(w http.ResponseWriter, r *http.Request) (*Form, error) {
	if in.maxRequest > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, in.maxRequest)
	}
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("%w: expected multipart/form-data: %v", project.ErrValidation, err)
	}

	form := &Form{}
	if err := in.readParts(r, mr, form); err != nil {
		form.Cleanup()
		return nil, err
	}
	return form, nil
}

func (in *Intake) readParts(r *http.Request, mr *multipart.Reader, form *Form) error {
	for {
		if err := r.Context().Err(); err != nil {
			return err
		}
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return bodyError(err)
		}
		err = in.readPart(part, form)
		_ = part.Close()
		if err != nil {
			return err
		}
	}
}

func (in *Intake) readPart(part *multipart.Part, form *Form) error {
	switch part.FormName() {
	case FieldProjectName:
		v, err := readField(part)
		if err != nil {
			return err
		}
		form.ProjectName = v
	case FieldProjectType:
		v, err := readField(part)
		if err != nil {
			return err
		}
		form.ProjectType = strings.TrimSpace(v)
	case FieldFiles, FieldFiles + "[]":
		// browsers send an empty part when no file was picked
		if part.FileName() == "" {
			return nil
		}
		f, err := in.stage(part)
		if err != nil {
			return err
		}
		form.Files = append(form.Files, f)
	}
	return nil
}

func (in *Intake) stage(part *multipart.Part) (storage.StagedFile, error) {
	name, err := fileName(part.FileName())
	if err != nil {
		return storage.StagedFile{}, err
	}
	ct := part.Header.Get("Content-Type")
	if !project.AllowedMediaType(ct) {
		return storage.StagedFile{}, fmt.Errorf("%w: %q has type %q", project.ErrUnsupportedMedia, name, ct)
	}

	tmp := filepath.Join(in.dir, "mp-"+uuid.NewString()+".part")
	dst, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return storage.StagedFile{}, fmt.Errorf("%w: staging: %v", project.ErrFilesystem, err)
	}
	h, _ := blake2b.New256(nil)
	n, err := io.Copy(io.MultiWriter(dst, h), io.LimitReader(part, in.maxFile+1))
	cerr := dst.Close()
	if err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return storage.StagedFile{}, bodyError(err)
		}
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, multipart.ErrMessageTooLarge) {
			return storage.StagedFile{}, fmt.Errorf("%w: truncated part %q: %v", project.ErrValidation, name, err)
		}
		return storage.StagedFile{}, fmt.Errorf("%w: staging %q: %v", project.ErrFilesystem, name, err)
	}
	if n > in.maxFile {
		_ = os.Remove(tmp)
		return storage.StagedFile{}, fmt.Errorf("%w: %q exceeds %d bytes", project.ErrTooLarge, name, in.maxFile)
	}
	return storage.StagedFile{
		Name:     name,
		Path:     tmp,
		Size:     n,
		Checksum: hex.EncodeToString(h.Sum(nil)),
	}, nil
}

// Cleanup removes staging files that were not moved into a project.
func (f *Form) Cleanup() {
	if f == nil {
		return
	}
	for _, sf := range f.Files {
		_ = os.Remove(sf.Path)
	}
}

func readField(part *multipart.Part) (string, error) {
	b, err := io.ReadAll(io.LimitReader(part, maxFieldSize+1))
	if err != nil {
		return "", bodyError(err)
	}
	if len(b) > maxFieldSize {
		return "", fmt.Errorf("%w: field %q too long", project.ErrValidation, part.FormName())
	}
	return string(b), nil
}

// fileName keeps the base name of a client-supplied file name and rejects
// names that would escape the project directory or clash with internal files.
func fileName(raw string) (string, error) {
	name := raw
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSpace(name)
	switch {
	case name == "", name == ".", name == "..":
		return "", fmt.Errorf("%w: invalid file name %q", project.ErrValidation, raw)
	case strings.HasPrefix(name, "."):
		return "", fmt.Errorf("%w: hidden file name %q not allowed", project.ErrValidation, raw)
	case strings.ContainsRune(name, 0):
		return "", fmt.Errorf("%w: invalid file name %q", project.ErrValidation, raw)
	}
	return name, nil
}

func bodyError(err error) error {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return fmt.Errorf("%w: request body exceeds %d bytes", project.ErrTooLarge, mbe.Limit)
	}
	return fmt.Errorf("%w: malformed multipart body: %v", project.ErrValidation, err)
}

package project

import (
	"errors"
	"fmt"
)

// Error kinds. Callers wrap them with context and match with errors.Is.
var (
	ErrValidation       = errors.New("validation error")
	ErrUnsupportedMedia = errors.New("unsupported media")
	ErrNotFound         = errors.New("not found")
	ErrFilesystem       = errors.New("filesystem error")
	ErrParse            = errors.New("parse error")
)

// ErrTooLarge is the size-cap flavour of ErrUnsupportedMedia.
var ErrTooLarge = fmt.Errorf("%w: file too large", ErrUnsupportedMedia)

package notes

import "errors"

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("note not found")
	ErrForbidden    = errors.New("forbidden")
)

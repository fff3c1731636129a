package tasks

import "errors"

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("task not found")
	ErrForbidden    = errors.New("forbidden")
)

package activity

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
)

// ReferenceNotFoundError: una escritura apunta a una tarea/nota/usuario inexistente.
type ReferenceNotFoundError struct {
	Kind EntityKind
	ID   string
}

func (e *ReferenceNotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// IsReferenceNotFound es azúcar sobre errors.As para handlers de otros módulos.
func IsReferenceNotFound(err error) bool {
	var ref *ReferenceNotFoundError
	return errors.As(err, &ref)
}

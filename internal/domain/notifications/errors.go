package notifications

import "errors"

var ErrInvalidInput = errors.New("invalid input")

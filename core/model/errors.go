package model

import (
	"errors"
)

var (
	ErrUnknownFormat = errors.New("unknown model format")
	ErrMissingField  = errors.New("missing field")
	ErrMalformed     = errors.New("malformed entry")
	ErrDuplicateVar  = errors.New("duplicate variable")
)

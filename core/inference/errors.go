package inference

import (
	"errors"
)

var (
	ErrInvalidResolution = errors.New("resolution out of range")
	ErrUnknownOperator   = errors.New("unknown operator")
	ErrRuleCycle         = errors.New("rules depend on their own consequent")
)

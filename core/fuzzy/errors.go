package fuzzy

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownShape       = errors.New("unknown membership function type")
	ErrParamCount         = errors.New("wrong number of membership function parameters")
	ErrUnorderedParams    = errors.New("membership function parameters not in ascending order")
	ErrInvalidParam       = errors.New("membership function parameter is not a number")
	ErrEmptyRange         = errors.New("variable range is empty")
	ErrEmptyName          = errors.New("empty name")
	ErrDuplicateTerm      = errors.New("duplicate term")
	ErrNoConditions       = errors.New("rule has no conditions")
	ErrDuplicateCondition = errors.New("variable appears twice in rule conditions")
	ErrUnknownVariable    = errors.New("unknown variable")
	ErrUnknownTerm        = errors.New("unknown term")
)

// ConfigError reports a model that cannot be built. Item names the offending
// part of the model, Err is the cause.
type ConfigError struct {
	Item string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Item == "" {
		return "invalid model: " + e.Err.Error()
	}
	return "invalid model: " + e.Item + ": " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error { return e.Err }

func NewConfigError(item string, err error) *ConfigError {
	return &ConfigError{Item: item, Err: err}
}

func ConfigErrorf(item string, cause error, format string, args ...any) *ConfigError {
	return &ConfigError{Item: item, Err: fmt.Errorf("%w: "+format, append([]any{cause}, args...)...)}
}

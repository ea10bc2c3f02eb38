package prefectc

import (
	"errors"
	"fmt"
)

// Sentinel errors for the two configuration-time failure kinds.
// Both are raised synchronously before any output is produced; the compiler
// never retries internally.
var (
	// ErrNotSupported indicates the workflow uses a construct this
	// compiler does not lower. The user must remove or substitute it.
	ErrNotSupported = errors.New("not supported")

	// ErrConfig indicates malformed or missing configuration.
	ErrConfig = errors.New("invalid configuration")
)

// NotSupportedError reports an unsupported graph or flow construct,
// naming the offending step or policy.
type NotSupportedError struct {
	// Reason is the human-readable explanation shown to the user.
	Reason string
}

// Error implements the error interface.
func (e *NotSupportedError) Error() string {
	return e.Reason
}

// Unwrap returns ErrNotSupported for errors.Is support.
func (e *NotSupportedError) Unwrap() error {
	return ErrNotSupported
}

// notSupportedf builds a NotSupportedError from a format string.
func notSupportedf(format string, args ...any) *NotSupportedError {
	return &NotSupportedError{Reason: fmt.Sprintf(format, args...)}
}

// ConfigError reports malformed or missing required configuration,
// e.g. an unresolvable parameter default or a colliding output path.
type ConfigError struct {
	// Reason is the human-readable explanation shown to the user.
	Reason string
	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

// Unwrap returns ErrConfig for errors.Is support.
func (e *ConfigError) Unwrap() error {
	return ErrConfig
}

// configf builds a ConfigError from a format string.
func configf(format string, args ...any) *ConfigError {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// NewConfigError builds a ConfigError wrapping err, for use by callers
// (such as the CLI layer) reporting boundary configuration problems.
func NewConfigError(reason string, err error) *ConfigError {
	return &ConfigError{Reason: reason, Err: err}
}

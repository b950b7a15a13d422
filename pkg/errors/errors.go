// Package errors provides the error types used across the reconciler.
// Fatal conditions (bad schema, unreadable source) are reported through these
// types so callers can tell them apart with errors.Is / errors.As.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
var New = errors.New

// Is reports whether any error in err's chain matches target.
var Is = errors.Is

// As finds the first error in err's chain that matches target.
var As = errors.As

// Sentinel errors
var (
	// ErrMissingSection indicates a required top-level schema section is absent
	ErrMissingSection = errors.New("missing required section")

	// ErrNotFound indicates that a requested sheet or file was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")
)

// ConfigError represents a schema or settings problem. It is always fatal.
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	msg := "configuration error"
	if e.Component != "" {
		msg += " in " + e.Component
	}
	msg += ": " + e.Message
	if e.Err != nil && !errors.Is(e.Err, ErrMissingSection) {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Err:       err,
	}
}

// MissingSection creates the ConfigError returned when a schema section is absent.
func MissingSection(section string) *ConfigError {
	return NewConfigError("schema", fmt.Sprintf("missing required section: %s", section), ErrMissingSection)
}

// LoadError represents a failure to read a source table.
type LoadError struct {
	Sheet string
	Path  string
	Err   error
}

// Error implements the error interface
func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load sheet %s from %s: %v", e.Sheet, e.Path, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *LoadError) Unwrap() error {
	return e.Err
}

// NewLoadError creates a new LoadError
func NewLoadError(sheet, path string, err error) *LoadError {
	return &LoadError{Sheet: sheet, Path: path, Err: err}
}

// ValidationError represents a single schema validation failure
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsConfigError checks if an error is a configuration error
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsLoadError checks if an error is a load error
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}

// IsMissingSection checks if an error reports a missing schema section
func IsMissingSection(err error) bool {
	return errors.Is(err, ErrMissingSection)
}

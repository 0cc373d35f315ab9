// Package errors provides custom error types for the annotation loader.
// These errors separate the fatal conditions that abort a run (bad mode,
// bad annotation type, bad deletion scope, sink failures) from the
// recoverable line-level rejections that accumulate in the error report,
// and enable programmatic checking with errors.Is throughout the pipeline.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Common sentinel errors for the loader.
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrDuplicate indicates an evidence statement that collides with an
	// earlier line or a pre-existing store row
	ErrDuplicate = errors.New("duplicate evidence")

	// ErrInvalidMode indicates an unrecognized processing mode
	ErrInvalidMode = errors.New("invalid mode")

	// ErrInvalidScope indicates a deletion scope token that does not resolve
	ErrInvalidScope = errors.New("invalid deletion scope")

	// ErrPreview indicates an operation suppressed by preview mode
	ErrPreview = errors.New("suppressed by preview mode")
)

// ParseError represents a malformed input line or file.
type ParseError struct {
	File    string
	Line    int
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error at %s:%d: %s", e.File, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error in %s: %s", e.File, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error { return e.Err }

// Is implements errors.Is support
func (e *ParseError) Is(target error) bool { return target == ErrInvalidInput }

// NewParseError creates a new ParseError
func NewParseError(file string, line int, message string) *ParseError {
	return &ParseError{File: file, Line: line, Message: message}
}

// ConfigError represents a configuration error: an unknown annotation type,
// an unknown load-type strategy, a bad profile file, an invalid mode.
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{Component: component, Message: message, Err: err}
}

// ScopeError represents an invalid deletion scope target. Supplying a
// reference or curator token that does not resolve is fatal before any
// deletion is attempted.
type ScopeError struct {
	Kind  string // "reference" or "curator"
	Token string
}

// Error implements the error interface
func (e *ScopeError) Error() string {
	return fmt.Sprintf("invalid deletion scope %s: %q", e.Kind, e.Token)
}

// Is implements errors.Is support
func (e *ScopeError) Is(target error) bool { return target == ErrInvalidScope }

// NewScopeError creates a new ScopeError
func NewScopeError(kind, token string) *ScopeError {
	return &ScopeError{Kind: kind, Token: token}
}

// StoreError represents a failure talking to the annotation store.
type StoreError struct {
	Operation string // "query", "delete", "sequence", "snapshot"
	Message   string
	Err       error
}

// Error implements the error interface
func (e *StoreError) Error() string {
	return fmt.Sprintf("store error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *StoreError) Unwrap() error { return e.Err }

// NewStoreError creates a new StoreError
func NewStoreError(operation string, err error) *StoreError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &StoreError{Operation: operation, Message: message, Err: err}
}

// IOError represents an error during I/O operations. A sink that cannot be
// created aborts the run immediately.
type IOError struct {
	Operation string // "read", "write", "create", "open", "close"
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error { return e.Err }

// NewIOError creates a new IOError
func NewIOError(operation, path string, err error) *IOError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &IOError{Operation: operation, Path: path, Message: message, Err: err}
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicate checks if an error is a duplicate evidence error
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// IsInvalidScope checks if an error is a deletion scope error
func IsInvalidScope(err error) bool {
	return errors.Is(err, ErrInvalidScope)
}

// Helper wrapping functions for common patterns

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapStore wraps an error as a StoreError
func WrapStore(operation string, err error) error {
	if err == nil {
		return nil
	}
	return NewStoreError(operation, err)
}

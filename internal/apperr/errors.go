// Package apperr defines the sentinel errors shared across the vault layers.
// Callers wrap them with context and branch with errors.Is.
package apperr

import "errors"

// Path errors: caller input that can never be resolved inside a namespace.
var (
	ErrEmptyPath       = errors.New("empty path")
	ErrAbsolutePath    = errors.New("absolute path not allowed")
	ErrPathEscapesRoot = errors.New("path escapes namespace root")
)

// IO errors.
var (
	ErrNotFound         = errors.New("not found")
	ErrIsDirectory      = errors.New("is a directory")
	ErrNotADirectory    = errors.New("not a directory")
	ErrPermissionDenied = errors.New("permission denied")
)

// Validation errors.
var (
	ErrInvalidLineNumber = errors.New("invalid line number")
	ErrInvalidCategory   = errors.New("invalid category")
	ErrEmptyText         = errors.New("text is required")
)

// ErrInvalidNamespace is returned when a namespace is not one of the
// configured set or is not a single path segment.
var ErrInvalidNamespace = errors.New("invalid namespace")

// IsPathError reports whether err is one of the path errors.
func IsPathError(err error) bool {
	return errors.Is(err, ErrEmptyPath) ||
		errors.Is(err, ErrAbsolutePath) ||
		errors.Is(err, ErrPathEscapesRoot)
}

// IsValidation reports whether err is caused by malformed caller input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidLineNumber) ||
		errors.Is(err, ErrInvalidCategory) ||
		errors.Is(err, ErrEmptyText)
}

// Package storage implements namespace-scoped file access inside the vault.
package storage

import "github.com/starford/dailyvault/internal/models"

// Provider is the interface for vault file operations. Every path is
// relative to the namespace subtree VaultRoot/<namespace>.
type Provider interface {
	// Read returns the text content of the file at path.
	Read(namespace, path string) (string, error)
	// Write atomically replaces the file at path, creating parent directories.
	Write(namespace, path, content string) error
	// Append adds content to the end of the file, creating it when absent.
	Append(namespace, path, content string) error
	// Delete removes the file at path. Deleting a missing file succeeds.
	Delete(namespace, path string) error
	// List returns the visible entries of the directory at path.
	List(namespace, path string) ([]models.FileEntry, error)
	// Exists reports whether a file or directory exists at path.
	Exists(namespace, path string) (bool, error)
}

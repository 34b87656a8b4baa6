// Package models defines the domain types shared by the vault layers.
package models

import "time"

// FileEntry is one item of a directory listing.
type FileEntry struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	IsDir bool   `json:"is_dir"`
}

// DailyNote is the raw content of one day's note.
type DailyNote struct {
	Date    string `json:"date"`
	Path    string `json:"path"`
	Content string `json:"content"`
}

// FileMetadata describes a text file found while walking a namespace.
type FileMetadata struct {
	Namespace string    `json:"namespace"`
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

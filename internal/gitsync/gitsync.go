// Package gitsync keeps the vault working copy in step with its git remote.
//
// Failures of the network or of merging are never returned as errors: every
// operation reports an Outcome, and a push that fails after a local commit
// is a soft failure that leaves the commit in place.
package gitsync

import (
	"context"
	"strings"
)

// Outcome is the result of a sync operation.
type Outcome struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// VersionControl is the narrow surface the rest of the application uses.
type VersionControl interface {
	Pull(ctx context.Context) Outcome
	CommitAndPush(ctx context.Context, message string) Outcome
	HasChanges(ctx context.Context) (bool, error)
}

func join(parts ...string) string {
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "; ")
}

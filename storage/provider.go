// Package storage persists encoded outputs and enumerates image sources.
// The pipeline only talks to the Provider interface so a remote backend can
// be substituted for the local filesystem.
package storage

import (
	"context"
)

// Provider abstracts where outputs land and where sources are found.
type Provider interface {
	// Write persists data at path, creating missing parent directories and
	// silently overwriting an existing file.
	Write(ctx context.Context, path string, data []byte) error
	// Exists reports whether path exists.
	Exists(ctx context.Context, path string) (bool, error)
	// ListImages returns the image file names directly inside dir, sorted.
	ListImages(ctx context.Context, dir string) ([]string, error)
	// Name identifies the provider in logs.
	Name() string
}

package storage

import (
	"context"
	"os"
	"path/filepath"

	"github.com/mano8/imgtools-m8/errors"
	"github.com/mano8/imgtools-m8/utils"
)

// LocalProvider implements Provider on the local filesystem.
type LocalProvider struct{}

// NewLocalProvider creates a local filesystem provider.
func NewLocalProvider() *LocalProvider {
	return &LocalProvider{}
}

// Write saves data at path. Parent directories are created on demand and a
// pre-existing file is overwritten, which is the documented behavior for
// re-running a conversion.
func (p *LocalProvider) Write(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return errors.NewIO(path, err)
	}
	if err := utils.CreateDir(filepath.Dir(path)); err != nil {
		return errors.NewIO(path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.NewIO(path, err)
	}
	return nil
}

// Exists reports whether path exists.
func (p *LocalProvider) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, errors.NewIO(path, err)
	}
	_, exists, err := utils.Exists(path)
	if err != nil {
		return false, errors.NewIO(path, err)
	}
	return exists, nil
}

// ListImages returns the full paths of the recognized image files directly
// inside dir, in deterministic order.
func (p *LocalProvider) ListImages(ctx context.Context, dir string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewIO(dir, err)
	}
	names, err := utils.ListFiles(dir, utils.ImageExtensions())
	if err != nil {
		return nil, errors.NewIO(dir, err)
	}
	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(dir, name)
	}
	return paths, nil
}

func (p *LocalProvider) Name() string {
	return "local"
}

var _ Provider = (*LocalProvider)(nil)

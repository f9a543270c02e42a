package io

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/OFFIS-RIT/threatmap/pkg/loader"
)

// IOGraphFileLoader loads files directly from the local filesystem with caching.
type IOGraphFileLoader struct {
	cache *loader.Cache
}

// NewIOGraphFileLoader creates a new filesystem-based file loader.
func NewIOGraphFileLoader() *IOGraphFileLoader {
	return &IOGraphFileLoader{
		cache: loader.NewCache(),
	}
}

// GetFileText reads the file content from the filesystem. Results are cached.
// Missing files yield an error wrapping loader.ErrNotFound.
func (l *IOGraphFileLoader) GetFileText(ctx context.Context, file loader.GraphFile) ([]byte, error) {
	return l.cache.Load(file, func() ([]byte, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b, err := os.ReadFile(file.FilePath)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", loader.ErrNotFound, file.FilePath)
		}
		return b, err
	})
}

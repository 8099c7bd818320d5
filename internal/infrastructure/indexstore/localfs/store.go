// Package localfs reads index artifacts from a directory on disk, the
// default deployment where the indexing job and the service share a volume.
package localfs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

type Store struct {
	basePath string
}

func New(basePath string) (*Store, error) {
	if basePath == "" {
		basePath = "./data/index"
	}
	info, err := os.Stat(basePath)
	if err != nil {
		return nil, fmt.Errorf("stat index dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("index path %s is not a directory", basePath)
	}
	return &Store{basePath: basePath}, nil
}

func (s *Store) Open(_ context.Context, key string) (io.ReadCloser, error) {
	clean := filepath.Clean(key)
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return nil, fmt.Errorf("artifact key %q escapes the index dir", key)
	}
	f, err := os.Open(filepath.Join(s.basePath, clean))
	if err != nil {
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	return f, nil
}

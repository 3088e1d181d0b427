package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

type LocalStorage struct {
	dir       string
	publicURL string
}

func NewLocal(dir, publicURL string) *LocalStorage {
	return &LocalStorage{
		dir:       dir,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

func (s *LocalStorage) Upload(ctx context.Context, name string, contentType string, r io.Reader) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("local storage: mkdir: %w", err)
	}

	// name is server-generated; Base guards against traversal anyway.
	name = filepath.Base(name)
	path := filepath.Join(s.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("local storage: create %s: %w", name, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("local storage: write %s: %w", name, err)
	}

	return fmt.Sprintf("%s/%s", s.publicURL, name), nil
}

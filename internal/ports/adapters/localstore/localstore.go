// Package localstore is an ObjectStore backed by a directory tree. Keys are
// slash separated paths below the root.
package localstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

type Store struct {
	root string
}

func New(root string) *Store {
	return &Store{root: root}
}

func (s *Store) Path(key string) (string, error) {
	clean := path.Clean("/" + strings.TrimSpace(key))
	if clean == "/" {
		return "", fmt.Errorf("localstore: empty key")
	}
	return filepath.Join(s.root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

func (s *Store) Download(ctx context.Context, key, dst string) error {
	src, err := s.Path(key)
	if err != nil {
		return err
	}
	if err := copyFile(ctx, src, dst); err != nil {
		return fmt.Errorf("localstore download %s: %w", key, err)
	}
	return nil
}

// Upload publishes src under key. The object appears atomically.
func (s *Store) Upload(ctx context.Context, src, key string) error {
	dst, err := s.Path(key)
	if err != nil {
		return err
	}
	if err := copyFile(ctx, src, dst); err != nil {
		return fmt.Errorf("localstore upload %s: %w", key, err)
	}
	return nil
}

func copyFile(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, in); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

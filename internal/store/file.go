package store

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/unkn0wn-root/restbench/internal/errdef"
	"github.com/unkn0wn-root/restbench/internal/util"
)

// FileStore keeps one JSON document per key under dir. Writes go through
// a temp file and rename.
type FileStore struct {
	dir string
	mu  sync.RWMutex
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errdef.Wrap(errdef.CodeFilesystem, err, "create store dir %q", dir)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) Dir() string { return f.dir }

func (f *FileStore) path(key string) (string, error) {
	if err := validKey(key); err != nil {
		return "", err
	}
	if strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", errdef.New(errdef.CodeStore, "invalid store key %q", key)
	}
	return filepath.Join(f.dir, key+".json"), nil
}

func (f *FileStore) Get(_ context.Context, key string, dst any) (bool, error) {
	p, err := f.path(key)
	if err != nil {
		return false, err
	}
	f.mu.RLock()
	data, err := os.ReadFile(p)
	f.mu.RUnlock()
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, errdef.Wrap(errdef.CodeFilesystem, err, "read %q", p)
	}
	if len(data) == 0 {
		return false, nil
	}
	return true, decode(key, data, dst)
}

func (f *FileStore) Set(_ context.Context, key string, value any) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}
	data, err := encode(key, value)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := util.WriteFileAtomic(p, data, 0o600); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "write %q", p)
	}
	return nil
}

func (f *FileStore) Delete(_ context.Context, key string) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errdef.Wrap(errdef.CodeFilesystem, err, "remove %q", p)
	}
	return nil
}

func (f *FileStore) Close() error { return nil }

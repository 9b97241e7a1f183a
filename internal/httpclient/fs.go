package httpclient

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/unkn0wn-root/restbench/internal/errdef"
)

type FileSystem interface {
	ReadFile(name string) ([]byte, error)
}

type OSFileSystem struct{}

func (OSFileSystem) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name)
}

func resolvePath(baseDir, path string) string {
	path = strings.TrimSpace(path)
	if path == "" || filepath.IsAbs(path) || baseDir == "" {
		return path
	}
	return filepath.Join(baseDir, path)
}

func readFile(fsys FileSystem, baseDir, path, label string) ([]byte, string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, "", errdef.New(errdef.CodeFilesystem, "%s path is empty", label)
	}
	full := resolvePath(baseDir, path)
	data, err := fsys.ReadFile(full)
	if err != nil {
		return nil, full, errdef.Wrap(errdef.CodeFilesystem, err, "read %s %s", label, full)
	}
	return data, full, nil
}

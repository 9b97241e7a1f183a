package store

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"

	"github.com/unkn0wn-root/restbench/internal/errdef"
)

// Store is a key/value document store. Values are JSON encoded, so Get
// always decodes into a fresh copy.
type Store interface {
	// Get decodes the value under key into dst and reports whether it
	// existed. dst is left untouched when it did not.
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Open picks an implementation from location: "" or "memory" keeps
// everything in process, a path ending in .db, .sqlite or .sqlite3 opens
// a SQLite database, anything else is a directory of JSON files.
func Open(ctx context.Context, location string) (Store, error) {
	loc := strings.TrimSpace(location)
	switch {
	case loc == "" || strings.EqualFold(loc, "memory"):
		return NewMemoryStore(), nil
	case isSQLitePath(loc):
		return OpenSQLite(ctx, loc)
	default:
		return NewFileStore(loc)
	}
}

func isSQLitePath(p string) bool {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	}
	return false
}

func validKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return errdef.New(errdef.CodeStore, "empty store key")
	}
	return nil
}

func encode(key string, value any) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeStore, err, "encode %q", key)
	}
	return data, nil
}

func decode(key string, data []byte, dst any) error {
	if err := json.Unmarshal(data, dst); err != nil {
		return errdef.Wrap(errdef.CodeStore, err, "decode %q", key)
	}
	return nil
}

package storage

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
)

// Open returns the backend named by rawURL:
//
//	mem://                  in-memory (tests/dev)
//	sqlite://<path>, <path> SQLite file
//	leveldb://<path>        LevelDB directory
//
// maxRecords caps the number of stored keys (0 = unlimited).
func Open(rawURL string, maxRecords int) (Store, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse store URL: %w", err)
	}
	switch u.Scheme {
	case "mem", "memory":
		return NewMemoryStore(maxRecords), nil
	case "sqlite", "":
		path := localPath(u)
		if err := ensureDir(filepath.Dir(path)); err != nil {
			return nil, err
		}
		return OpenSQLite(path, maxRecords)
	case "leveldb":
		path := localPath(u)
		if err := ensureDir(filepath.Dir(path)); err != nil {
			return nil, err
		}
		return OpenLevelDB(path, maxRecords)
	default:
		return nil, fmt.Errorf("unsupported store scheme %q", u.Scheme)
	}
}

// localPath accepts sqlite:///abs/path, sqlite://./rel/path and
// sqlite:rel/path forms.
func localPath(u *url.URL) string {
	if u.Opaque != "" {
		return u.Opaque
	}
	return u.Host + u.Path
}

func ensureDir(dir string) error {
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create store dir %s: %w", dir, err)
	}
	return nil
}

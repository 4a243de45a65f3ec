package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sort"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type SQLiteStore struct {
	DB         *sql.DB
	maxRecords int
}

// OpenSQLite opens (or creates) the database at path and applies the
// embedded migrations.
func OpenSQLite(path string, maxRecords int) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// one connection: a single writer, and Put's transaction sees a stable count
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA busy_timeout=5000;`,
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite %q: %w", p, err)
		}
	}
	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite migrations: %w", err)
	}
	return &SQLiteStore{DB: db, maxRecords: maxRecords}, nil
}

// RunMigrations executes every embedded migration in name order. Each
// migration must be idempotent.
func RunMigrations(db *sql.DB) error {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return err
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, name := range files {
		sqlBytes, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return err
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func (s *SQLiteStore) Get(key string) (string, bool, error) {
	var value string
	err := s.DB.QueryRow(`SELECT Value FROM KVStore WHERE Key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

func (s *SQLiteStore) Put(key, value string) error {
	tx, err := s.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if s.maxRecords > 0 {
		var exists int
		if err := tx.QueryRow(`SELECT COUNT(*) FROM KVStore WHERE Key = ?`, key).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			var n int
			if err := tx.QueryRow(`SELECT COUNT(*) FROM KVStore`).Scan(&n); err != nil {
				return err
			}
			if n >= s.maxRecords {
				return capacityError(n, s.maxRecords)
			}
		}
	}

	if _, err := tx.Exec(`INSERT OR REPLACE INTO KVStore (Key, Value) VALUES (?, ?)`, key, value); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) Count() (int, error) {
	var n int
	err := s.DB.QueryRow(`SELECT COUNT(*) FROM KVStore`).Scan(&n)
	return n, err
}

func (s *SQLiteStore) ListPrefix(prefix string) ([]string, error) {
	// substr instead of LIKE: '%' and '_' in a prefix are literal
	rows, err := s.DB.Query(
		`SELECT Key FROM KVStore
		 WHERE substr(Key, 1, length(?)) = ?
		 ORDER BY Key`, prefix, prefix,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k[len(prefix):])
	}
	return keys, rows.Err()
}

func (s *SQLiteStore) All() ([]Record, error) {
	rows, err := s.DB.Query(`SELECT Key, Value FROM KVStore ORDER BY Key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.Key, &rec.Value); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.DB.Close()
}

package storage

import (
	"errors"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelDBStore keeps records in a LevelDB directory. LevelDB allows one
// process per database, so the cached count is authoritative.
type LevelDBStore struct {
	db         *leveldb.DB
	maxRecords int

	mu    sync.Mutex // serializes writes and guards count
	count int
}

func OpenLevelDB(path string, maxRecords int) (*LevelDBStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}

	n := 0
	iter := db.NewIterator(nil, nil)
	for iter.Next() {
		n++
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		db.Close()
		return nil, err
	}

	return &LevelDBStore{db: db, maxRecords: maxRecords, count: n}, nil
}

func (s *LevelDBStore) Get(key string) (string, bool, error) {
	v, err := s.db.Get([]byte(key), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return string(v), true, nil
}

func (s *LevelDBStore) Put(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := s.db.Has([]byte(key), nil)
	if err != nil {
		return err
	}
	if !exists && s.maxRecords > 0 && s.count >= s.maxRecords {
		return capacityError(s.count, s.maxRecords)
	}
	if err := s.db.Put([]byte(key), []byte(value), nil); err != nil {
		return err
	}
	if !exists {
		s.count++
	}
	return nil
}

func (s *LevelDBStore) Count() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count, nil
}

func (s *LevelDBStore) ListPrefix(prefix string) ([]string, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	defer iter.Release()

	keys := []string{}
	for iter.Next() {
		keys = append(keys, string(iter.Key()[len(prefix):]))
	}
	return keys, iter.Error()
}

func (s *LevelDBStore) All() ([]Record, error) {
	iter := s.db.NewIterator(nil, nil)
	defer iter.Release()

	out := []Record{}
	for iter.Next() {
		out = append(out, Record{Key: string(iter.Key()), Value: string(iter.Value())})
	}
	return out, iter.Error()
}

func (s *LevelDBStore) Close() error {
	return s.db.Close()
}

// Package storage implements the single key/value table behind jsonpdb.
//
// Owns:
//   - the Store contract (get, upsert, count, prefix listing, full dump)
//   - the record limit (ErrCapacityExceeded on writes of new keys)
//   - backends: in-memory, SQLite (modernc) and LevelDB, selected by URL
//
// Does not own:
//   - request parsing, modification keys, response rendering
//
// Invariants:
//   - at most one value per key, last write wins
//   - overwriting an existing key is never refused by the record limit
//   - prefix matching is literal and results are sorted by key
package storage

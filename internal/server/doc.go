// Package server implements the jsonpdb HTTP surface.
//
// Owns:
//   - request parsing (query string and form body parameters)
//   - request validation and the read/create/update decision (Logic)
//   - modification-key gating of updates
//   - the error taxonomy and its HTTP status mapping
//   - JSONP / HTML response rendering
//
// Does not own:
//   - storage internals (storage.Store implementations)
//   - process bootstrap, configuration loading, log setup
//
// Invariants:
//   - the request body is consumed once, before any other component reads it
//   - errors are classified and rendered exactly once, in API.ServeHTTP
//   - the modification key handed back is always server-derived
//   - every response carries an X-Request-Id header
package server

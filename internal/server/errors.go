package server

import (
	"errors"
	"fmt"
	"net/http"

	"jsonpdb/internal/storage"
)

// Kind classifies a request failure; each kind maps to one HTTP status.
type Kind int

const (
	KindUnclassified Kind = iota
	KindBadSyntax
	KindKeyTooLong
	KindValueTooLong
	KindCapacityExceeded
	KindUnauthorized
)

var kindNames = map[Kind]string{
	KindUnclassified:     "unclassified",
	KindBadSyntax:        "bad_syntax",
	KindKeyTooLong:       "key_too_long",
	KindValueTooLong:     "value_too_long",
	KindCapacityExceeded: "capacity_exceeded",
	KindUnauthorized:     "unauthorized",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func (k Kind) Status() int {
	switch k {
	case KindBadSyntax, KindKeyTooLong, KindValueTooLong, KindCapacityExceeded:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

type httpError struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e httpError) Error() string {
	if e.Detail == "" && e.Err != nil {
		return e.Err.Error()
	}
	return e.Detail
}

func (e httpError) Unwrap() error { return e.Err }

func (e httpError) Status() int { return e.Kind.Status() }

// StatusLine is "<code> <reason>", e.g. "401 Unauthorized".
func (e httpError) StatusLine() string {
	code := e.Status()
	return fmt.Sprintf("%d %s", code, http.StatusText(code))
}

// FullMessage is the text shown to the client: "<status line> : <detail>".
func (e httpError) FullMessage() string {
	return e.StatusLine() + " : " + e.Error()
}

func badSyntax(format string, args ...any) httpError {
	return httpError{Kind: KindBadSyntax, Detail: fmt.Sprintf(format, args...)}
}

// classify maps any error returned below the HTTP boundary to an httpError.
func classify(err error) httpError {
	var he httpError
	if errors.As(err, &he) {
		return he
	}
	if errors.Is(err, storage.ErrCapacityExceeded) {
		return httpError{Kind: KindCapacityExceeded, Detail: err.Error(), Err: err}
	}
	return httpError{Kind: KindUnclassified, Detail: err.Error(), Err: err}
}

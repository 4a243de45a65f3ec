package server

import (
	"encoding/json"

	"github.com/bitmark-inc/logger"

	"jsonpdb/internal/shared"
	"jsonpdb/internal/storage"
)

type State string

const (
	StateRead     State = "READ"
	StateCreate   State = "CREATE"
	StateUpdate   State = "UPDATE"
	StateList     State = "LIST"
	StateRejected State = "REJECTED"
)

// Result is a successful outcome. Values are already JavaScript
// expressions, ready to be joined into the response.
type Result struct {
	State  State
	Key    string
	Values []string
}

// Logic decides whether a request is a read, a create or a guarded update
// and applies it to the store.
type Logic struct {
	Store                  storage.Store
	Limits                 Limits
	RequireModificationKey bool
	Secret                 []byte
	Log                    *logger.L
}

func (l *Logic) Handle(path string, query, form Params) (Result, error) {
	if prefix, ok := listPrefix(path); ok {
		keys, err := l.Store.ListPrefix(prefix)
		if err != nil {
			return Result{}, err
		}
		return Result{State: StateList, Values: []string{jsArray(keys)}}, nil
	}

	req, err := extractRequest(l.Limits, path, query, form)
	if err != nil {
		return Result{}, err
	}
	if len(req.Extra) > 0 {
		l.Log.Debugf("extra params for key=%q: %v", req.Key, req.Extra)
	}

	l.Log.Debugf("GET key=%q", req.Key)
	current, found, err := l.Store.Get(req.Key)
	if err != nil {
		return Result{}, err
	}

	// an empty value cannot be told apart from no value on the wire
	if req.NewValue == "" {
		if !found || current == "" {
			return Result{State: StateRead, Key: req.Key, Values: []string{shared.Undefined}}, nil
		}
		return Result{State: StateRead, Key: req.Key, Values: []string{current}}, nil
	}

	state := StateCreate
	if found {
		state = StateUpdate
	}

	var token string
	if l.RequireModificationKey {
		if found && !shared.VerifyModificationKey(l.Secret, req.Key, req.ModificationKey) {
			if req.ModificationKey == "" {
				return Result{}, httpError{Kind: KindUnauthorized, Detail: "No modification-key provided, update forbidden"}
			}
			return Result{}, httpError{Kind: KindUnauthorized, Detail: "Invalid modification-key, update forbidden: " + req.ModificationKey}
		}
		token = shared.ModificationKey(l.Secret, req.Key)
	}

	l.Log.Debugf("PUT key=%q (%s)", req.Key, state)
	if err := l.Store.Put(req.Key, req.NewValue); err != nil {
		return Result{}, err
	}

	values := []string{req.NewValue}
	if token != "" {
		values = append(values, jsString(token))
	}
	return Result{State: state, Key: req.Key, Values: values}, nil
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func jsArray(items []string) string {
	if items == nil {
		items = []string{}
	}
	b, _ := json.Marshal(items)
	return string(b)
}

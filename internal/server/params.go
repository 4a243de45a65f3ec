package server

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"jsonpdb/internal/shared"
)

// Params is one parsed parameter source. A parameter with an empty value
// is positional and its name is the value ("?hello" passes "hello");
// anything else is named.
type Params struct {
	Args   []string
	Kwargs map[string]string
}

func newParams(values url.Values) Params {
	p := Params{Args: []string{}, Kwargs: map[string]string{}}
	for name, vs := range values {
		v := ""
		if len(vs) > 0 {
			v = vs[len(vs)-1]
		}
		if v == "" {
			p.Args = append(p.Args, name)
		} else {
			p.Kwargs[name] = v
		}
	}
	sort.Strings(p.Args)
	return p
}

// Pop removes a named parameter and returns its value.
func (p *Params) Pop(name string) string {
	v, ok := p.Kwargs[name]
	if ok {
		delete(p.Kwargs, name)
	}
	return v
}

func ParseQuery(raw string) (Params, error) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return Params{}, badSyntax("Malformed query string %q: %v", raw, err)
	}
	return newParams(values), nil
}

func ParseForm(body string) (Params, error) {
	values, err := url.ParseQuery(body)
	if err != nil {
		return Params{}, badSyntax("Malformed form body: %v", err)
	}
	return newParams(values), nil
}

// readForm consumes the request body. It must run before anything else
// touches r.Body.
func readForm(r *http.Request, limit int64) (Params, error) {
	empty := newParams(nil)
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
	default:
		return empty, nil
	}
	if r.Body == nil || r.Body == http.NoBody {
		return empty, nil
	}
	defer r.Body.Close()

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		r.Body = http.MaxBytesReader(nil, r.Body, limit)
		if err := r.ParseMultipartForm(limit); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return empty, badSyntax("Request body exceeds %d bytes", limit)
			}
			return empty, badSyntax("Malformed multipart body: %v", err)
		}
		defer r.MultipartForm.RemoveAll()
		return newParams(url.Values(r.MultipartForm.Value)), nil
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return empty, err
	}
	if int64(len(body)) > limit {
		return empty, badSyntax("Request body exceeds %d bytes", limit)
	}
	if len(body) == 0 {
		return empty, nil
	}
	return ParseForm(string(body))
}

var callbackPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*(\.[A-Za-z_$][A-Za-z0-9_$]*)*$`)

func validCallback(name string) bool {
	return len(name) <= 256 && callbackPattern.MatchString(name)
}

// Limits are the request-shape limits; 0 disables a limit.
type Limits struct {
	MaxKeyLength   int
	MaxValueLength int
}

type Request struct {
	Key             string
	NewValue        string
	ModificationKey string
	// Extra holds named parameters that play no part in the logic.
	Extra map[string]string
}

// extractRequest validates the path and both parameter sources and returns
// the (key, new value, modification key) triple. An empty NewValue is a read.
func extractRequest(limits Limits, path string, query, form Params) (Request, error) {
	if !strings.HasPrefix(path, "/") || strings.Count(path, "/") != 1 || len(path) == 1 {
		return Request{}, badSyntax("Incorrect request syntax, expecting /<key> and got: %q", path)
	}
	key := path[1:]
	if n := utf8.RuneCountInString(key); limits.MaxKeyLength > 0 && n > limits.MaxKeyLength {
		return Request{}, httpError{
			Kind:   KindKeyTooLong,
			Detail: fmtLimit("Key length exceeded maximum", n, limits.MaxKeyLength),
		}
	}

	modKey := query.Pop(shared.ParamModificationKey)
	if modKey == "" {
		modKey = form.Pop(shared.ParamModificationKey)
	}

	if len(query.Args)+len(form.Args) > 1 {
		return Request{}, badSyntax("Incorrect request syntax, extra args: query_params=%q - form_params=%q", query.Args, form.Args)
	}

	var newValue string
	switch {
	case len(form.Args) > 0:
		newValue = form.Args[0]
	case len(query.Args) > 0:
		newValue = query.Args[0]
	}
	if n := utf8.RuneCountInString(newValue); limits.MaxValueLength > 0 && n > limits.MaxValueLength {
		return Request{}, httpError{
			Kind:   KindValueTooLong,
			Detail: fmtLimit("Value length exceeded maximum", n, limits.MaxValueLength),
		}
	}

	extra := map[string]string{}
	for k, v := range query.Kwargs {
		extra["query."+k] = v
	}
	for k, v := range form.Kwargs {
		extra["form."+k] = v
	}

	return Request{
		Key:             key,
		NewValue:        newValue,
		ModificationKey: modKey,
		Extra:           extra,
	}, nil
}

func fmtLimit(msg string, n, max int) string {
	return fmt.Sprintf("%s: %d > %d", msg, n, max)
}

// listPrefix reports whether path is /list_by_prefix/<prefix>.
func listPrefix(path string) (string, bool) {
	if !strings.HasPrefix(path, shared.ListByPrefixPath) || strings.Count(path, "/") != 2 {
		return "", false
	}
	return path[len(shared.ListByPrefixPath):], true
}

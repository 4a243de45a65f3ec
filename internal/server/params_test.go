package server

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuery(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantArgs   []string
		wantKwargs map[string]string
		wantErr    bool
	}{
		{name: "empty", raw: "", wantArgs: []string{}, wantKwargs: map[string]string{}},
		{name: "bare value is positional", raw: "hello", wantArgs: []string{"hello"}, wantKwargs: map[string]string{}},
		{name: "empty assignment is positional", raw: "hello=", wantArgs: []string{"hello"}, wantKwargs: map[string]string{}},
		{
			name:       "mixed",
			raw:        "world&modification-key=abc&callback=cb",
			wantArgs:   []string{"world"},
			wantKwargs: map[string]string{"modification-key": "abc", "callback": "cb"},
		},
		{name: "escaped json value", raw: "%7B%22hp%22%3A12%7D", wantArgs: []string{`{"hp":12}`}, wantKwargs: map[string]string{}},
		{name: "duplicate name keeps last", raw: "a=1&a=2", wantArgs: []string{}, wantKwargs: map[string]string{"a": "2"}},
		{name: "two positionals", raw: "b&a", wantArgs: []string{"a", "b"}, wantKwargs: map[string]string{}},
		{name: "bad escape", raw: "%zz", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParseQuery(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, KindBadSyntax, classify(err).Kind)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantArgs, p.Args)
			assert.Equal(t, tt.wantKwargs, p.Kwargs)
		})
	}
}

func TestReadForm(t *testing.T) {
	t.Run("urlencoded body", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/alice", strings.NewReader("hello&note=x"))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		p, err := readForm(r, 1024)
		require.NoError(t, err)
		assert.Equal(t, []string{"hello"}, p.Args)
		assert.Equal(t, map[string]string{"note": "x"}, p.Kwargs)
	})

	t.Run("missing content type is treated as urlencoded", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/alice", strings.NewReader("hello"))
		p, err := readForm(r, 1024)
		require.NoError(t, err)
		assert.Equal(t, []string{"hello"}, p.Args)
	})

	t.Run("multipart body", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.WriteField("hello world", ""))
		require.NoError(t, mw.Close())
		r := httptest.NewRequest(http.MethodPost, "/bob", &buf)
		r.Header.Set("Content-Type", mw.FormDataContentType())
		p, err := readForm(r, 1<<20)
		require.NoError(t, err)
		assert.Equal(t, []string{"hello world"}, p.Args)
	})

	t.Run("GET body is ignored", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/alice", strings.NewReader("hello"))
		p, err := readForm(r, 1024)
		require.NoError(t, err)
		assert.Empty(t, p.Args)
	})

	t.Run("body over limit", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/alice", strings.NewReader(strings.Repeat("a", 20)))
		_, err := readForm(r, 10)
		require.Error(t, err)
		assert.Equal(t, KindBadSyntax, classify(err).Kind)
	})
}

func mustParams(t *testing.T, raw string) Params {
	t.Helper()
	p, err := ParseQuery(raw)
	require.NoError(t, err)
	return p
}

func TestExtractRequest(t *testing.T) {
	tests := []struct {
		name     string
		limits   Limits
		path     string
		query    string
		form     string
		want     Request
		wantKind Kind
	}{
		{
			name: "read",
			path: "/alice",
			want: Request{Key: "alice"},
		},
		{
			name:  "write from query",
			path:  "/alice",
			query: "hello&modification-key=tok",
			want:  Request{Key: "alice", NewValue: "hello", ModificationKey: "tok"},
		},
		{
			name: "write from form",
			path: "/alice",
			form: "hello",
			want: Request{Key: "alice", NewValue: "hello"},
		},
		{
			name: "modification key from form",
			path: "/alice",
			form: "hello&modification-key=tok",
			want: Request{Key: "alice", NewValue: "hello", ModificationKey: "tok"},
		},
		{
			name:     "two positionals across sources",
			path:     "/alice",
			query:    "one",
			form:     "two",
			wantKind: KindBadSyntax,
		},
		{
			name:     "two positionals in query",
			path:     "/alice",
			query:    "one&two",
			wantKind: KindBadSyntax,
		},
		{name: "two segments", path: "/a/b", query: "x", wantKind: KindBadSyntax},
		{name: "no leading slash", path: "alice", wantKind: KindBadSyntax},
		{name: "empty key", path: "/", wantKind: KindBadSyntax},
		{
			name:     "key too long",
			limits:   Limits{MaxKeyLength: 3},
			path:     "/alice",
			wantKind: KindKeyTooLong,
		},
		{
			name:   "key length counts runes",
			limits: Limits{MaxKeyLength: 3},
			path:   "/été",
			want:   Request{Key: "été"},
		},
		{
			name:     "value too long",
			limits:   Limits{MaxValueLength: 4},
			path:     "/alice",
			query:    "hello",
			wantKind: KindValueTooLong,
		},
		{
			name:   "value at limit",
			limits: Limits{MaxValueLength: 5},
			path:   "/alice",
			query:  "hello",
			want:   Request{Key: "alice", NewValue: "hello"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractRequest(tt.limits, tt.path, mustParams(t, tt.query), mustParams(t, tt.form))
			if tt.wantKind != KindUnclassified {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, classify(err).Kind)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.Key, got.Key)
			assert.Equal(t, tt.want.NewValue, got.NewValue)
			assert.Equal(t, tt.want.ModificationKey, got.ModificationKey)
		})
	}
}

func TestExtractRequestRecordsExtraParams(t *testing.T) {
	got, err := extractRequest(Limits{}, "/alice", mustParams(t, "v&debug=1"), mustParams(t, "mode=x"))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"query.debug": "1", "form.mode": "x"}, got.Extra)
}

func TestListPrefix(t *testing.T) {
	p, ok := listPrefix("/list_by_prefix/dnd_")
	assert.True(t, ok)
	assert.Equal(t, "dnd_", p)

	p, ok = listPrefix("/list_by_prefix/")
	assert.True(t, ok)
	assert.Equal(t, "", p)

	_, ok = listPrefix("/list_by_prefix/a/b")
	assert.False(t, ok)

	_, ok = listPrefix("/list_by_prefix")
	assert.False(t, ok)
}

func TestValidCallback(t *testing.T) {
	for _, ok := range []string{"cb", "jQuery123_456", "$", "window.app.cb"} {
		assert.True(t, validCallback(ok), ok)
	}
	for _, bad := range []string{"alert(1)", "a b", "1abc", "a..b", "cb;", "</script>"} {
		assert.False(t, validCallback(bad), bad)
	}
}

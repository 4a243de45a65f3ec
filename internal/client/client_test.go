package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bitmark-inc/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jsonpdb/internal/server"
	"jsonpdb/internal/shared"
	"jsonpdb/internal/storage"
)

var secret = []byte("client-test-secret")

func newServer(t *testing.T, protect bool, prefix string) *httptest.Server {
	t.Helper()
	store := storage.NewMemoryStore(0)
	api := &server.API{
		Logic: &server.Logic{
			Store:                  store,
			Limits:                 server.Limits{MaxKeyLength: 32},
			RequireModificationKey: protect,
			Secret:                 secret,
			Log:                    logger.New("logic"),
		},
		MaxBody: 1 << 20,
		Metrics: server.NewMetrics(store),
		Log:     logger.New("server"),
	}
	srv := httptest.NewServer(api.Routes(prefix))
	t.Cleanup(srv.Close)
	return srv
}

func TestClientRoundTrip(t *testing.T) {
	srv := newServer(t, true, "")
	c := New(srv.URL, time.Second)
	ctx := context.Background()

	_, found, err := c.Get(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, found)

	value := `{"name": "Alice", "tags": ["a&b", "x=y"]}`
	token, err := c.Put(ctx, "alice", value, "")
	require.NoError(t, err)
	assert.Equal(t, shared.ModificationKey(secret, "alice"), token)

	got, found, err := c.Get(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, value, got)

	_, err = c.Put(ctx, "alice", "evil", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnauthorized))
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnauthorized, se.Code)
	assert.Equal(t, "401 Unauthorized : No modification-key provided, update forbidden", se.Message)
	assert.NotEmpty(t, se.RequestID)

	again, err := c.Put(ctx, "alice", "v2", token)
	require.NoError(t, err)
	assert.Equal(t, token, again)
}

func TestClientUnprotected(t *testing.T) {
	srv := newServer(t, false, "/jsonp_db/")
	c := New(srv.URL+"/jsonp_db/", time.Second)
	ctx := context.Background()

	token, err := c.Put(ctx, "dnd_bob", "1", "")
	require.NoError(t, err)
	assert.Empty(t, token)
	_, err = c.Put(ctx, "dnd_alice", "2", "")
	require.NoError(t, err)

	keys, err := c.ListPrefix(ctx, "dnd_")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, keys)

	keys, err = c.ListPrefix(ctx, "none")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestClientErrors(t *testing.T) {
	srv := newServer(t, false, "")
	c := New(srv.URL, time.Second)
	ctx := context.Background()

	_, _, err := c.Get(ctx, "this-key-is-far-too-long-for-the-server-limit")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadRequest, se.Code)
	assert.Contains(t, se.Message, "Key length exceeded maximum")
	assert.False(t, errors.Is(err, ErrUnauthorized))

	_, err = c.Put(ctx, "k", "", "")
	require.Error(t, err)
}

func TestParseWriteReply(t *testing.T) {
	tok, err := parseWriteReply("v", "v")
	require.NoError(t, err)
	assert.Empty(t, tok)

	tok, err = parseWriteReply(`[1,2]`, `[[1,2], "AbCdEfGh-_"]`)
	require.NoError(t, err)
	assert.Equal(t, "AbCdEfGh-_", tok)

	_, err = parseWriteReply("v", "something else")
	require.Error(t, err)
}

func TestErrorMessage(t *testing.T) {
	page := "<html><body><pre>\n400 Bad Request : a &lt; b\n    </pre></body></html>"
	assert.Equal(t, "400 Bad Request : a < b", errorMessage(page))
	assert.Equal(t, "plain", errorMessage(" plain\n"))
}

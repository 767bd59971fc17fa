package mattermost

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	path string
	auth string
	body json.RawMessage
}

type recorder struct {
	mu    sync.Mutex
	calls []recorded
}

func (r *recorder) all() []recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recorded(nil), r.calls...)
}

func newServer(t *testing.T, status int) (*httptest.Server, *recorder) {
	t.Helper()
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body json.RawMessage
		_ = json.NewDecoder(r.Body).Decode(&body)
		rec.mu.Lock()
		rec.calls = append(rec.calls, recorded{path: r.URL.Path, auth: r.Header.Get("Authorization"), body: body})
		rec.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status >= 400 {
			_, _ = w.Write([]byte(`{"message":"channel not found"}`))
			return
		}
		if r.URL.Path == "/api/v4/channels/direct" {
			_, _ = w.Write([]byte(`{"id":"dm-channel"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"post-1"}`))
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func TestPostMessage(t *testing.T) {
	srv, rec := newServer(t, http.StatusCreated)
	p := NewHTTP(Config{BaseURL: srv.URL + "/api/v4/", BotToken: "bot-token", BotID: "bot"})

	require.NoError(t, p.PostMessage(context.Background(), "chan-1", "hello"))
	calls := rec.all()
	require.Len(t, calls, 1)
	got := calls[0]
	assert.Equal(t, "/api/v4/posts", got.path)
	assert.Equal(t, "Bearer bot-token", got.auth)
	assert.JSONEq(t, `{"channel_id":"chan-1","message":"hello"}`, string(got.body))
}

func TestDirectChannel(t *testing.T) {
	srv, rec := newServer(t, http.StatusCreated)
	p := NewHTTP(Config{BaseURL: srv.URL + "/api/v4", BotToken: "bot-token", BotID: "bot"})

	id, err := p.DirectChannel(context.Background(), "mm-user")
	require.NoError(t, err)
	assert.Equal(t, "dm-channel", id)
	assert.JSONEq(t, `["bot","mm-user"]`, string(rec.all()[0].body))
}

func TestDirectChannelRequiresBotID(t *testing.T) {
	p := NewHTTP(Config{BaseURL: "http://unused", BotToken: "t"})
	_, err := p.DirectChannel(context.Background(), "mm-user")
	assert.ErrorIs(t, err, ErrNoBotID)
}

func TestErrorStatus(t *testing.T) {
	srv, _ := newServer(t, http.StatusForbidden)
	p := NewHTTP(Config{BaseURL: srv.URL + "/api/v4", BotToken: "bot-token"})

	err := p.PostMessage(context.Background(), "chan-1", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403 channel not found")
}

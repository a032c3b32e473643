package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	name   string
	err    error
	titles []string
}

func (r *recordingSender) Send(_ context.Context, title, _ string) error {
	r.titles = append(r.titles, title)
	return r.err
}

func (r *recordingSender) Name() string { return r.name }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifier_FiltersEvents(t *testing.T) {
	s := &recordingSender{name: "rec"}
	n := NewNotifier([]Sender{s}, []string{EventFeedStale, " month_closed "}, quietLogger())

	require.NoError(t, n.Notify(context.Background(), EventFeedStale, "stale", ""))
	require.NoError(t, n.Notify(context.Background(), EventMonthClosed, "closed", ""))
	require.NoError(t, n.Notify(context.Background(), EventAccountDeleted, "deleted", ""))
	require.NoError(t, n.NotifyAll(context.Background(), "all", ""))

	assert.Equal(t, []string{"stale", "closed", "all"}, s.titles)
}

func TestNotifier_EmptyFilterAllowsEverything(t *testing.T) {
	s := &recordingSender{name: "rec"}
	n := NewNotifier([]Sender{s}, nil, quietLogger())

	require.NoError(t, n.Notify(context.Background(), EventError, "boom", ""))
	assert.Equal(t, []string{"boom"}, s.titles)
	assert.True(t, n.Enabled())
	assert.False(t, NewNotifier(nil, nil, quietLogger()).Enabled())
}

func TestNotifier_CollectsSenderErrors(t *testing.T) {
	cause := errors.New("down")
	bad := &recordingSender{name: "bad", err: cause}
	good := &recordingSender{name: "good"}
	n := NewNotifier([]Sender{bad, good}, nil, quietLogger())

	err := n.Notify(context.Background(), EventError, "t", "m")
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "1 sender(s) failed")
	assert.Equal(t, []string{"t"}, good.titles)
}

func TestTelegramSender_Send(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	s := NewTelegramSender("TOKEN", "42")
	s.apiBase = srv.URL

	require.NoError(t, s.Send(context.Background(), "Month closed", "2026-09 at $60,000.00"))
	assert.Equal(t, "42", got["chat_id"])
	assert.Equal(t, "*Month closed*\n2026-09 at $60,000.00", got["text"])
	assert.Equal(t, "Markdown", got["parse_mode"])
}

func TestDiscordSender_Send(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "**Feed stale**\nno ticks", body["content"])
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	require.NoError(t, NewDiscordSender(srv.URL).Send(context.Background(), "Feed stale", "no ticks"))
}

func TestDiscordSender_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewDiscordSender(srv.URL).Send(context.Background(), "t", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "discord: unexpected status 400")
}

package directory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"badgepass/internal/badge/ports"
	id "badgepass/pkg/domain"
	"badgepass/pkg/platform/circuit"
	"badgepass/pkg/platform/sentinel"
)

func TestInMemory(t *testing.T) {
	ctx := context.Background()
	dir := NewInMemory(ports.Participant{ID: "p-1", Name: "Grace Hopper", Category: "Presenter", Confirmed: true})

	p, err := dir.FindParticipant(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, "Grace Hopper", p.Name)

	p.Name = "mutated"
	again, err := dir.FindParticipant(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, "Grace Hopper", again.Name, "callers get copies")

	dir.Delete("p-1")
	_, err = dir.FindParticipant(ctx, "p-1")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	dir.Put(ports.Participant{ID: "p-2", Name: "Alan Turing", Category: "Student"})
	p, err = dir.FindParticipant(ctx, "p-2")
	require.NoError(t, err)
	assert.False(t, p.Confirmed)
}

func TestHTTPDirectory(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch r.URL.Path {
		case "/participants/p-1":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"p-1","name":"Grace Hopper","category":"Presenter","confirmed":true}`))
		case "/participants/p-wrong":
			_, _ = w.Write([]byte(`{"id":"someone-else","name":"X","category":"Y","confirmed":true}`))
		case "/participants/p-down":
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		dir, err := NewHTTPDirectory(srv.URL + "/")
		require.NoError(t, err)
		p, err := dir.FindParticipant(ctx, "p-1")
		require.NoError(t, err)
		assert.Equal(t, ports.Participant{ID: "p-1", Name: "Grace Hopper", Category: "Presenter", Confirmed: true}, *p)
	})

	t.Run("404 is not found", func(t *testing.T) {
		dir, err := NewHTTPDirectory(srv.URL)
		require.NoError(t, err)
		_, err = dir.FindParticipant(ctx, "p-missing")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("mismatched id is unavailable", func(t *testing.T) {
		dir, err := NewHTTPDirectory(srv.URL)
		require.NoError(t, err)
		_, err = dir.FindParticipant(ctx, "p-wrong")
		assert.ErrorIs(t, err, sentinel.ErrUnavailable)
	})

	t.Run("breaker opens after repeated failures", func(t *testing.T) {
		now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
		breaker := circuit.New("test",
			circuit.WithFailureThreshold(2),
			circuit.WithCooldown(time.Minute),
			circuit.WithClock(func() time.Time { return now }),
		)
		dir, err := NewHTTPDirectory(srv.URL, WithBreaker(breaker))
		require.NoError(t, err)

		for range 2 {
			_, err = dir.FindParticipant(ctx, "p-down")
			assert.ErrorIs(t, err, sentinel.ErrUnavailable)
		}
		assert.True(t, breaker.IsOpen())

		before := calls.Load()
		_, err = dir.FindParticipant(ctx, "p-1")
		assert.ErrorIs(t, err, sentinel.ErrUnavailable)
		assert.Equal(t, before, calls.Load(), "open circuit must not reach the server")

		now = now.Add(2 * time.Minute)
		_, err = dir.FindParticipant(ctx, "p-1")
		assert.NoError(t, err, "calls resume after the cooldown")
	})

	t.Run("cancelled lookups leave the breaker closed", func(t *testing.T) {
		breaker := circuit.New("test", circuit.WithFailureThreshold(1), circuit.WithCooldown(time.Minute))
		dir, err := NewHTTPDirectory(srv.URL, WithBreaker(breaker))
		require.NoError(t, err)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		for range 3 {
			_, err = dir.FindParticipant(cancelled, "p-1")
			assert.ErrorIs(t, err, sentinel.ErrUnavailable)
		}
		assert.False(t, breaker.IsOpen())

		_, err = dir.FindParticipant(ctx, "p-1")
		assert.NoError(t, err)
	})

	t.Run("deadline exceeded still counts as a failure", func(t *testing.T) {
		breaker := circuit.New("test", circuit.WithFailureThreshold(1), circuit.WithCooldown(time.Minute))
		dir, err := NewHTTPDirectory(srv.URL, WithBreaker(breaker))
		require.NoError(t, err)

		expired, cancel := context.WithDeadline(ctx, time.Now().Add(-time.Second))
		defer cancel()
		_, err = dir.FindParticipant(expired, "p-1")
		assert.ErrorIs(t, err, sentinel.ErrUnavailable)
		assert.True(t, breaker.IsOpen())
	})

	t.Run("unreachable server is unavailable", func(t *testing.T) {
		dir, err := NewHTTPDirectory("http://127.0.0.1:1", WithHTTPClient(&http.Client{Timeout: time.Second}))
		require.NoError(t, err)
		_, err = dir.FindParticipant(ctx, id.ParticipantID("p-1"))
		assert.ErrorIs(t, err, sentinel.ErrUnavailable)
	})

	t.Run("invalid base URL", func(t *testing.T) {
		_, err := NewHTTPDirectory("not a url")
		assert.Error(t, err)
	})
}

func TestParseSeed(t *testing.T) {
	participants, err := ParseSeed(`[
		{"id":"p-ada","name":"Ada Lovelace","category":"Presenter","confirmed":true},
		{"id":"p-wait","name":"Waitlisted","category":"Attendee"}
	]`)
	require.NoError(t, err)
	require.Len(t, participants, 2)
	assert.Equal(t, id.ParticipantID("p-ada"), participants[0].ID)
	assert.True(t, participants[0].Confirmed)
	assert.False(t, participants[1].Confirmed)

	empty, err := ParseSeed("")
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = ParseSeed(`[{"id":"has spaces"}]`)
	require.Error(t, err)
	_, err = ParseSeed(`{`)
	require.Error(t, err)
}

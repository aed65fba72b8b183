package tool

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastBackOff() backoff.BackOff {
	return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, searchMaxAttempts-1)
}

func TestGoogleProviderFromEnvRequiresCredentials(t *testing.T) {
	t.Setenv("GOOGLE_CSE_API_KEY", "")
	t.Setenv("GOOGLE_CSE_ID", "cx")

	_, err := NewGoogleProviderFromEnv(nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPrerequisite)

	t.Setenv("GOOGLE_CSE_API_KEY", "key")
	g, err := NewGoogleProviderFromEnv(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultGoogleEndpoint, g.endpoint)
}

func TestGoogleProviderSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "go channels & select", q.Get("q"))
		assert.Equal(t, "key", q.Get("key"))
		assert.Equal(t, "cx", q.Get("cx"))
		assert.Equal(t, "10", q.Get("start"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"items":[{"link":"https://a.example","snippet":"a"},{"link":"https://b.example","snippet":"b"}]}`)
	}))
	defer server.Close()

	g := NewGoogleProvider(server.Client(), "key", "cx", server.URL)
	links, err := g.Search(context.Background(), "go channels & select", 10)
	require.NoError(t, err)
	assert.Equal(t, []SearchLink{
		{URL: "https://a.example", Snippet: "a"},
		{URL: "https://b.example", Snippet: "b"},
	}, links)
}

func TestGoogleProviderNoItems(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	defer server.Close()

	g := NewGoogleProvider(server.Client(), "key", "cx", server.URL)
	links, err := g.Search(context.Background(), "nothing", 0)
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestGoogleProviderRetries(t *testing.T) {
	tests := []struct {
		name     string
		failures int32
		status   int
		wantErr  bool
		wantHits int32
	}{
		{"recovers after 503", 2, http.StatusServiceUnavailable, false, 3},
		{"recovers after 429", 1, http.StatusTooManyRequests, false, 2},
		{"gives up after five attempts", 10, http.StatusBadGateway, true, 5},
		{"does not retry 403", 10, http.StatusForbidden, true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if atomic.AddInt32(&hits, 1) <= tt.failures {
					w.WriteHeader(tt.status)
					return
				}
				fmt.Fprint(w, `{"items":[{"link":"https://ok.example"}]}`)
			}))
			defer server.Close()

			g := NewGoogleProvider(server.Client(), "key", "cx", server.URL)
			g.newBackOff = fastBackOff

			links, err := g.Search(context.Background(), "q", 0)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), fmt.Sprintf("status %d", tt.status))
			} else {
				require.NoError(t, err)
				assert.Len(t, links, 1)
			}
			assert.Equal(t, tt.wantHits, atomic.LoadInt32(&hits))
		})
	}
}

func TestGoogleProviderCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := NewGoogleProvider(server.Client(), "key", "cx", server.URL)
	_, err := g.Search(ctx, "q", 0)
	assert.ErrorIs(t, err, context.Canceled)
}

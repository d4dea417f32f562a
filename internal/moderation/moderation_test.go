package moderation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScreen(t *testing.T) {
	ctx := context.Background()

	t.Run("clean text passes through", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "hello world", r.URL.Query().Get("text"))
			w.Write([]byte(`{"result": "hello world"}`))
		}))
		defer server.Close()

		client := NewClient(server.URL, time.Second)
		result, err := client.Screen(ctx, "hello world")
		require.NoError(t, err)
		assert.Equal(t, "hello world", result.Text)
		assert.False(t, result.Censored)
	})

	t.Run("profanity is replaced", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"result": "what the ****"}`))
		}))
		defer server.Close()

		client := NewClient(server.URL, time.Second)
		result, err := client.Screen(ctx, "what the heck")
		require.NoError(t, err)
		assert.Equal(t, "what the ****", result.Text)
		assert.True(t, result.Censored)
	})

	t.Run("server error returns passthrough with error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := NewClient(server.URL, time.Second)
		result, err := client.Screen(ctx, "hello")
		assert.Error(t, err)
		assert.Equal(t, "hello", result.Text)
		assert.False(t, result.Censored)
	})

	t.Run("unreachable endpoint returns passthrough with error", func(t *testing.T) {
		client := NewClient("http://127.0.0.1:1", 100*time.Millisecond)
		result, err := client.Screen(ctx, "hello")
		assert.Error(t, err)
		assert.Equal(t, "hello", result.Text)
	})

	t.Run("malformed response returns passthrough with error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`not json`))
		}))
		defer server.Close()

		client := NewClient(server.URL, time.Second)
		result, err := client.Screen(ctx, "hello")
		assert.Error(t, err)
		assert.Equal(t, "hello", result.Text)
	})

	t.Run("empty base URL disables screening", func(t *testing.T) {
		client := NewClient("", time.Second)
		result, err := client.Screen(ctx, "anything at all")
		require.NoError(t, err)
		assert.Equal(t, "anything at all", result.Text)
		assert.False(t, result.Censored)
	})
}

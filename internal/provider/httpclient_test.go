package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientDoJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id": 101, "title": "Test Post"}`))
	}))
	defer srv.Close()

	c := NewClient(5 * time.Second)
	resp, err := c.Do(context.Background(), Request{
		Method: "POST",
		URL:    srv.URL,
		Params: map[string]string{"limit": "5"},
		Data:   map[string]any{"title": "Test Post"},
	})
	require.NoError(t, err)

	assert.Equal(t, 201, resp.StatusCode)
	assert.Greater(t, resp.DurationMS, 0.0)

	body, ok := resp.Body.(map[string]any)
	require.True(t, ok, "body should decode as a JSON object")
	assert.Equal(t, float64(101), body["id"])
}

func TestClientDoNonJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("plain text, not json"))
	}))
	defer srv.Close()

	c := NewClient(0)
	resp, err := c.Do(context.Background(), Request{Method: "GET", URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, "plain text, not json", resp.Body)
}

func TestClientFollowsRedirects(t *testing.T) {
	var target *httptest.Server
	target = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/old" {
			http.Redirect(w, r, "/new", http.StatusFound)
			return
		}
		w.Write([]byte(`[1,2,3]`))
	}))
	defer target.Close()

	c := NewClient(0)
	resp, err := c.Do(context.Background(), Request{Method: "GET", URL: target.URL + "/old"})
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	body, ok := resp.Body.([]any)
	require.True(t, ok)
	assert.Len(t, body, 3)
}

func TestClientInvalidURL(t *testing.T) {
	c := NewClient(0)
	_, err := c.Do(context.Background(), Request{Method: "GET", URL: "http://\x7f"})
	assert.Error(t, err)
}

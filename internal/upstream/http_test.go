package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPCallDecodesJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/u1", r.URL.Path)
		assert.Equal(t, "acme", r.Header.Get("X-Tenant"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"name": "ada"}`))
	}))
	defer srv.Close()

	up := NewHTTP(time.Second)
	got, err := up.Call(context.Background(), Request{
		Method:  "GET",
		URL:     srv.URL + "/users/u1",
		Headers: map[string]string{"X-Tenant": "acme"},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "ada"}, got)
}

func TestHTTPCallPostsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Write([]byte(`true`))
	}))
	defer srv.Close()

	up := NewHTTP(time.Second)
	got, err := up.Call(context.Background(), Request{Method: "POST", URL: srv.URL, Body: `{"a":1}`})
	require.NoError(t, err)
	assert.Equal(t, true, got)
}

func TestHTTPCallNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	up := NewHTTP(time.Second)
	_, err := up.Call(context.Background(), Request{Method: "GET", URL: srv.URL})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestHTTPCallEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	up := NewHTTP(time.Second)
	got, err := up.Call(context.Background(), Request{Method: "DELETE", URL: srv.URL})
	require.NoError(t, err)
	assert.Nil(t, got)
}

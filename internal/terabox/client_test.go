package terabox

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 5*time.Second, nil)
}

func TestResolve(t *testing.T) {
	c := newTestResolver(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "1abc", r.URL.Query().Get("shorturl"))
		switch r.URL.Path {
		case "/api/get-info":
			w.Write([]byte(`{"ok":true,"info":{"filename":"movie.mkv","size":734003200,"is_dir":false}}`))
		case "/api/get-download":
			w.Write([]byte(`{"ok":true,"download_url":"https://dl.example.com/movie.mkv"}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))

	file, err := c.Resolve(context.Background(), "https://terabox.com/s/1abc")
	require.NoError(t, err)
	assert.Equal(t, "movie.mkv", file.Name)
	assert.Equal(t, int64(734003200), file.SizeBytes)
	assert.Equal(t, "https://dl.example.com/movie.mkv", file.DownloadURL)
	assert.False(t, file.IsFolder)
	assert.Equal(t, "1abc", file.ShareID)
}

func TestResolveInvalidURL(t *testing.T) {
	c := NewClient("http://unused", time.Second, nil)

	_, err := c.Resolve(context.Background(), "https://terabox.com/")
	assert.ErrorIs(t, err, ErrInvalidURL)
}

func TestResolveRejectedShare(t *testing.T) {
	c := newTestResolver(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":false,"msg":"share not found"}`))
	}))

	_, err := c.Resolve(context.Background(), "https://terabox.com/s/1gone")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "share not found")
}

func TestResolveRetriesServerErrors(t *testing.T) {
	attempts := 0
	c := newTestResolver(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		switch r.URL.Path {
		case "/api/get-info":
			w.Write([]byte(`{"ok":true,"info":{"filename":"a.zip","size":1,"is_dir":false}}`))
		default:
			w.Write([]byte(`{"ok":true,"download_url":"https://dl.example.com/a.zip"}`))
		}
	}))

	file, err := c.Resolve(context.Background(), "https://terabox.com/s/1retry")
	require.NoError(t, err)
	assert.Equal(t, "a.zip", file.Name)
	assert.GreaterOrEqual(t, attempts, 2)
}

func TestResolveGivesUpAfterRetries(t *testing.T) {
	attempts := 0
	c := newTestResolver(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := c.Resolve(context.Background(), "https://terabox.com/s/1dead")
	require.Error(t, err)
	assert.Equal(t, maxAttempts, attempts)
}

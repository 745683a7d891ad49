package crawl

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"log/slog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCrawler_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Write([]byte("# page\n[story](http://x/a)"))
	}))
	defer srv.Close()

	c := NewCrawler(5*time.Second, 1<<20, testLogger())
	got, err := c.Fetch(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Contains(t, got, "[story](http://x/a)")
}

func TestCrawler_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewCrawler(5*time.Second, 1<<20, testLogger())
	_, err := c.Fetch(context.Background(), srv.URL)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad status")
}

func TestCrawler_SizeLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 2048)))
	}))
	defer srv.Close()

	c := NewCrawler(5*time.Second, 1024, testLogger())
	_, err := c.Fetch(context.Background(), srv.URL)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "size limit")
}

func TestCrawler_TransportError(t *testing.T) {
	c := NewCrawler(time.Second, 1<<20, testLogger())
	_, err := c.Fetch(context.Background(), "http://127.0.0.1:1/unreachable")
	assert.Error(t, err)
}

package fetch_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/geo-pipeline/internal/fetch"
)

func TestFetch(t *testing.T) {
	t.Parallel()

	payload := strings.Repeat("archive-bytes", 4096)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "geo-pipeline-test", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(payload))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "GSE1", "archive")
	fetcher := fetch.New(srv.URL+"/geo/download/", fetch.WithUserAgent("geo-pipeline-test"), fetch.WithChunkSize(100))

	err := fetcher.Fetch(context.Background(), "GSE1", dest)
	require.NoError(t, err)

	content, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, payload, string(content))
	assert.NoFileExists(t, dest+".part")
}

func TestFetchQuery(t *testing.T) {
	t.Parallel()

	queries := make(chan string, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries <- r.URL.Query().Get("acc") + "|" + r.URL.Query().Get("format")
		_, _ = w.Write([]byte("x"))
	}))
	defer srv.Close()

	err := fetch.New(srv.URL).Fetch(context.Background(), "GSE68849", filepath.Join(t.TempDir(), "archive"))
	require.NoError(t, err)
	assert.Equal(t, "GSE68849|file", <-queries)
}

func TestFetchOverwrites(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			_, _ = w.Write([]byte("first, longer body"))

			return
		}

		_, _ = w.Write([]byte("second"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "archive")
	fetcher := fetch.New(srv.URL)

	require.NoError(t, fetcher.Fetch(context.Background(), "GSE1", dest))
	require.NoError(t, fetcher.Fetch(context.Background(), "GSE1", dest))

	content, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "second", string(content))
}

func TestFetchStatus(t *testing.T) {
	t.Parallel()

	tcs := map[string]int{
		"not found":    http.StatusNotFound,
		"server error": http.StatusInternalServerError,
		"not modified": http.StatusNotModified,
	}

	for name, status := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var calls atomic.Int32

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				w.WriteHeader(status)
			}))
			defer srv.Close()

			dest := filepath.Join(t.TempDir(), "archive")

			err := fetch.New(srv.URL).Fetch(context.Background(), "GSE1", dest)
			require.ErrorIs(t, err, fetch.ErrUnexpectedStatus)
			assert.NoFileExists(t, dest)
			assert.Equal(t, int32(1), calls.Load(), "no retry")
		})
	}
}

func TestFetchTransportError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := fetch.New(url).Fetch(context.Background(), "GSE1", filepath.Join(t.TempDir(), "archive"))
	assert.Error(t, err)
}

func TestFetchTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	err := fetch.New(srv.URL, fetch.WithTimeout(50*time.Millisecond)).
		Fetch(context.Background(), "GSE1", filepath.Join(t.TempDir(), "archive"))
	assert.Error(t, err)
}

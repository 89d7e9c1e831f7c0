package fetcher

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/folio/internal/config"
	"github.com/IshaanNene/folio/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

const testPage = `<html><head><title>Lesson (1)</title></head><body><p>hi</p></body></html>`

func newTestFetcher(t *testing.T) *HTTPFetcher {
	t.Helper()
	f, err := NewHTTPFetcher(config.DefaultConfig(), testLogger)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func fetch(t *testing.T, f *HTTPFetcher, url string) (*types.Response, error) {
	t.Helper()
	req, err := types.NewRequest(url)
	require.NoError(t, err)
	return f.Fetch(context.Background(), req)
}

func TestHTTPFetcherPlain(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("Accept-Encoding"), "br")
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(testPage))
	}))
	defer srv.Close()

	resp, err := fetch(t, newTestFetcher(t), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, testPage, string(resp.Body))
	assert.True(t, resp.IsSuccess())

	doc, err := resp.Document()
	require.NoError(t, err)
	assert.Equal(t, "Lesson (1)", doc.Find("title").Text())
}

func TestHTTPFetcherDecodesBodies(t *testing.T) {
	encoders := map[string]func(*bytes.Buffer) []byte{
		"gzip": func(buf *bytes.Buffer) []byte {
			var out bytes.Buffer
			zw := gzip.NewWriter(&out)
			zw.Write(buf.Bytes())
			zw.Close()
			return out.Bytes()
		},
		"deflate": func(buf *bytes.Buffer) []byte {
			var out bytes.Buffer
			fw, _ := flate.NewWriter(&out, flate.DefaultCompression)
			fw.Write(buf.Bytes())
			fw.Close()
			return out.Bytes()
		},
		"br": func(buf *bytes.Buffer) []byte {
			var out bytes.Buffer
			bw := brotli.NewWriter(&out)
			bw.Write(buf.Bytes())
			bw.Close()
			return out.Bytes()
		},
	}

	for encoding, encode := range encoders {
		t.Run(encoding, func(t *testing.T) {
			payload := encode(bytes.NewBufferString(testPage))
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Encoding", encoding)
				w.Write(payload)
			}))
			defer srv.Close()

			resp, err := fetch(t, newTestFetcher(t), srv.URL)
			require.NoError(t, err)
			assert.Equal(t, testPage, string(resp.Body))
		})
	}
}

func TestDecompressReaderCloses(t *testing.T) {
	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	zw.Write([]byte(testPage))
	zw.Close()

	tests := []struct {
		encoding string
		body     []byte
	}{
		{"gzip", gz.Bytes()},
		{"", []byte(testPage)},
	}

	for _, tt := range tests {
		t.Run("encoding="+tt.encoding, func(t *testing.T) {
			resp := &http.Response{Header: http.Header{}}
			resp.Header.Set("Content-Encoding", tt.encoding)

			rc, err := decompressReader(resp, bytes.NewReader(tt.body))
			require.NoError(t, err)
			data, err := io.ReadAll(rc)
			require.NoError(t, err)
			assert.Equal(t, testPage, string(data))
			assert.NoError(t, rc.Close())
		})
	}
}

func TestHTTPFetcherCorruptGzip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		w.Write([]byte("not gzip at all"))
	}))
	defer srv.Close()

	_, err := fetch(t, newTestFetcher(t), srv.URL)
	var fe *types.FetchError
	assert.True(t, errors.As(err, &fe))
}

func TestHTTPFetcherStatusIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := fetch(t, newTestFetcher(t), srv.URL)
	require.Error(t, err)

	var fe *types.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusNotFound, fe.StatusCode)
}

func TestNewSelectsFetcher(t *testing.T) {
	cfg := config.DefaultConfig()
	f, err := New(cfg, testLogger)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, "http", f.Type())

	cfg.Fetcher.Type = "carrier-pigeon"
	_, err = New(cfg, testLogger)
	assert.Error(t, err)
}

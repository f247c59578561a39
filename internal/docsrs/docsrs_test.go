package docsrs

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dangattringer/rust-rag/internal/crate"
	"github.com/dangattringer/rust-rag/internal/progress"
	"github.com/dangattringer/rust-rag/internal/transport"
)

const latestPage = `<html><body>
<div class="nav"><h1 id="crate-title">serde 1.0.210 <span>docs</span></h1></div>
</body></html>`

func newTestClient() *transport.Client {
	return transport.NewClient(zerolog.Nop(), transport.WithUserAgent("rust-rag-test"))
}

func TestURLs(t *testing.T) {
	assert.Equal(t, "https://docs.rs/crate/serde/latest", LatestURL("https://docs.rs/", "serde"))
	assert.Equal(t, "https://docs.rs/crate/serde/1.0.210/download", DownloadURL("https://docs.rs", "serde", "1.0.210"))
}

func TestResolver_ResolveLatest(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		want      string
		wantErr   error
		noVersion bool
		wantState int
	}{
		{name: "title with version", status: http.StatusOK, body: latestPage, want: "1.0.210"},
		{name: "first version wins", status: http.StatusOK, body: `<h1 id="crate-title">tokio 1.40.0 (was 1.39.0)</h1>`, want: "1.40.0"},
		{name: "missing heading", status: http.StatusOK, body: `<h1>serde 1.0.210</h1>`, wantErr: crate.ErrNotFound, noVersion: true},
		{name: "no version in heading", status: http.StatusOK, body: `<h1 id="crate-title">serde</h1>`, wantErr: crate.ErrNotFound, noVersion: true},
		{name: "missing crate", status: http.StatusNotFound, wantErr: crate.ErrNotFound},
		{name: "server error", status: http.StatusBadGateway, wantErr: crate.ErrTransientNetwork, wantState: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/crate/serde/latest", r.URL.Path)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			r := NewResolver(newTestClient(), server.URL, zerolog.Nop())
			got, err := r.ResolveLatest(context.Background(), "serde")

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.noVersion, errors.Is(err, crate.ErrNoVersion))
				if tt.wantState != 0 {
					var netErr *crate.TransientNetworkError
					require.True(t, errors.As(err, &netErr))
					assert.Equal(t, tt.wantState, netErr.StatusCode)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolver_ResolveLatestUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := server.URL
	server.Close()

	r := NewResolver(newTestClient(), baseURL, zerolog.Nop())
	_, err := r.ResolveLatest(context.Background(), "serde")
	assert.ErrorIs(t, err, crate.ErrTransientNetwork)
}

func TestResolver_Resolve(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/crate/serde/latest":
			w.Write([]byte(latestPage))
		case "/crate/flaky/latest":
			w.WriteHeader(http.StatusServiceUnavailable)
		case "/crate/untitled/latest":
			w.Write([]byte(`<html><h1>untitled</h1></html>`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	var logs bytes.Buffer
	r := NewResolver(newTestClient(), server.URL, zerolog.New(&logs))
	ctx := context.Background()

	t.Run("latest", func(t *testing.T) {
		c, err := r.Resolve(ctx, "serde", "")
		require.NoError(t, err)
		assert.Equal(t, "1.0.210", c.Version)
		assert.Equal(t, "1.0.210", c.LatestVersion)
		assert.True(t, c.IsLatest())
	})

	t.Run("older requested version warns", func(t *testing.T) {
		logs.Reset()
		c, err := r.Resolve(ctx, "serde", "0.9.0")
		require.NoError(t, err)
		assert.Equal(t, "0.9.0", c.Version)
		assert.Equal(t, "1.0.210", c.LatestVersion)
		assert.False(t, c.IsLatest())
		assert.Contains(t, logs.String(), "requested version 0.9.0 is older than latest 1.0.210")
	})

	t.Run("requested version with unparsable latest page", func(t *testing.T) {
		c, err := r.Resolve(ctx, "untitled", "0.1.0")
		require.NoError(t, err)
		assert.Equal(t, "0.1.0", c.Version)
		assert.Empty(t, c.LatestVersion)
	})

	t.Run("requested version of a missing crate", func(t *testing.T) {
		_, err := r.Resolve(ctx, "yanked", "0.1.0")
		assert.ErrorIs(t, err, crate.ErrNotFound)
		assert.NotErrorIs(t, err, crate.ErrNoVersion)
	})

	t.Run("unknown crate", func(t *testing.T) {
		_, err := r.Resolve(ctx, "ghost-pkg", "")
		assert.ErrorIs(t, err, crate.ErrNotFound)
	})

	t.Run("transient failure aborts", func(t *testing.T) {
		_, err := r.Resolve(ctx, "flaky", "1.0.0")
		assert.ErrorIs(t, err, crate.ErrTransientNetwork)
	})

	t.Run("invalid input", func(t *testing.T) {
		_, err := r.Resolve(ctx, "", "")
		assert.ErrorIs(t, err, crate.ErrInvalidCrate)
		for _, v := range []string{"1.0/../x", ".", ".."} {
			_, err = r.Resolve(ctx, "serde", v)
			assert.ErrorIs(t, err, crate.ErrInvalidCrate, v)
		}
	})
}

func TestFetcher_FetchArtifact(t *testing.T) {
	payload := bytes.Repeat([]byte("docs"), 5000) // spans several chunks

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/crate/serde/1.0.210/download", r.URL.Path)
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		w.Write(payload)
	}))
	defer server.Close()

	var updates []int64
	var total int64
	observer := progress.ObserverFunc(func(event progress.EventType, a progress.Activity) {
		switch event {
		case progress.EventTypeStarted:
			total = a.Total
		case progress.EventTypeUpdate:
			updates = append(updates, a.Current)
		}
	})

	tempDir := t.TempDir()
	f := NewFetcher(newTestClient(), server.URL, tempDir, observer, zerolog.Nop())

	path, err := f.FetchArtifact(context.Background(), "serde", "1.0.210")
	require.NoError(t, err)

	assert.Equal(t, tempDir, filepath.Dir(path))
	assert.True(t, strings.HasPrefix(filepath.Base(path), "serde-1.0.210-"))
	assert.True(t, strings.HasSuffix(path, TempSuffix))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, payload, data)

	assert.Equal(t, int64(len(payload)), total)
	require.NotEmpty(t, updates)
	assert.Equal(t, int64(len(payload)), updates[len(updates)-1])
	for i := 1; i < len(updates); i++ {
		assert.Greater(t, updates[i], updates[i-1])
		assert.LessOrEqual(t, updates[i]-updates[i-1], int64(ChunkSize))
	}
}

func TestFetcher_Failures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/crate/ghost-pkg/1.0.0/download":
			http.NotFound(w, r)
		case "/crate/busy/1.0.0/download":
			w.WriteHeader(http.StatusTooManyRequests)
		case "/crate/cut/1.0.0/download":
			// Announce more bytes than are sent so the body ends early.
			w.Header().Set("Content-Length", "100000")
			w.Write([]byte("partial"))
		}
	}))
	defer server.Close()

	tests := []struct {
		name    string
		crate   string
		wantErr error
	}{
		{"not found", "ghost-pkg", crate.ErrNotFound},
		{"unexpected status", "busy", crate.ErrTransientNetwork},
		{"truncated body", "cut", crate.ErrTransientNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tempDir := t.TempDir()
			f := NewFetcher(newTestClient(), server.URL, tempDir, nil, zerolog.Nop())

			path, err := f.FetchArtifact(context.Background(), tt.crate, "1.0.0")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, path)

			entries, readErr := os.ReadDir(tempDir)
			require.NoError(t, readErr)
			assert.Empty(t, entries, "no temp file is left behind")
		})
	}
}

func TestFetcher_NotFoundMessage(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	f := NewFetcher(newTestClient(), server.URL, t.TempDir(), nil, zerolog.Nop())
	_, err := f.FetchArtifact(context.Background(), "ghost-pkg", "1.0.0")

	var nf *crate.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Contains(t, err.Error(), "documentation not found for ghost-pkg@1.0.0")
}

func TestFetcher_TempDirUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("zip"))
	}))
	defer server.Close()

	missing := filepath.Join(t.TempDir(), "missing")
	f := NewFetcher(newTestClient(), server.URL, missing, nil, zerolog.Nop())

	_, err := f.FetchArtifact(context.Background(), "serde", "1.0.210")
	require.Error(t, err)
	assert.NotErrorIs(t, err, crate.ErrTransientNetwork, "disk failures are not network failures")
	assert.NotErrorIs(t, err, crate.ErrNotFound)
}

func TestFetcher_InvalidInput(t *testing.T) {
	f := NewFetcher(newTestClient(), "http://127.0.0.1:0", t.TempDir(), nil, zerolog.Nop())
	_, err := f.FetchArtifact(context.Background(), "serde", "")
	assert.ErrorIs(t, err, crate.ErrInvalidCrate)
}

func TestFetcher_CanceledMidDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1048576")
		w.Write(bytes.Repeat([]byte("x"), 4096))
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	observer := progress.ObserverFunc(func(event progress.EventType, _ progress.Activity) {
		if event == progress.EventTypeUpdate {
			cancel()
		}
	})

	tempDir := t.TempDir()
	f := NewFetcher(newTestClient(), server.URL, tempDir, observer, zerolog.Nop())

	_, err := f.FetchArtifact(ctx, "serde", "1.0.210")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, crate.ErrTransientNetwork, "cancellation is not a network failure")

	entries, readErr := os.ReadDir(tempDir)
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}

func TestResolver_Canceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(latestPage))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewResolver(newTestClient(), server.URL, zerolog.Nop())
	_, err := r.ResolveLatest(ctx, "serde")
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, crate.ErrTransientNetwork)
}

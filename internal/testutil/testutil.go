// Package testutil provides a fake docs.rs and archive fixtures for tests.
package testutil

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/rs/zerolog"
)

// DocsServer is a fake documentation host. It serves a latest page per
// crate and a download per name@version; everything else is a 404.
type DocsServer struct {
	URL string

	mu       sync.Mutex
	latest   map[string]string
	archives map[string][]byte
	statuses map[string]int
	requests []string
}

// NewDocsServer starts a DocsServer that is closed when the test ends.
func NewDocsServer(t *testing.T) *DocsServer {
	t.Helper()

	s := &DocsServer{
		latest:   make(map[string]string),
		archives: make(map[string][]byte),
		statuses: make(map[string]int),
	}
	server := httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(server.Close)
	s.URL = server.URL
	return s
}

// AddCrate publishes name with latest as its newest version.
func (s *DocsServer) AddCrate(name, latest string) *DocsServer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest[name] = latest
	return s
}

// AddArchive serves data as the documentation archive of name@version.
func (s *DocsServer) AddArchive(name, version string, data []byte) *DocsServer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.archives[name+"@"+version] = data
	return s
}

// SetStatus makes every request for name answer with status.
func (s *DocsServer) SetStatus(name string, status int) *DocsServer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[name] = status
	return s
}

// Requests returns the paths requested so far.
func (s *DocsServer) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

func (s *DocsServer) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, r.URL.Path)

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 3 || parts[0] != "crate" {
		http.NotFound(w, r)
		return
	}
	name := parts[1]

	if status, ok := s.statuses[name]; ok {
		w.WriteHeader(status)
		return
	}

	switch {
	case len(parts) == 3 && parts[2] == "latest":
		version, ok := s.latest[name]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, `<html><body><h1 id="crate-title">%s %s</h1></body></html>`, name, version)
	case len(parts) == 4 && parts[3] == "download":
		data, ok := s.archives[name+"@"+parts[2]]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/zip")
		w.Write(data)
	default:
		http.NotFound(w, r)
	}
}

// ZipArchive builds a zip holding files, written in name order.
func ZipArchive(t *testing.T, files map[string]string) []byte {
	t.Helper()

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("Failed to add %s to zip: %v", name, err)
		}
		if _, err := w.Write([]byte(files[name])); err != nil {
			t.Fatalf("Failed to write %s to zip: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("Failed to close zip: %v", err)
	}
	return buf.Bytes()
}

// NewTestLogger creates a test logger that outputs to t.Log.
func NewTestLogger(t *testing.T) zerolog.Logger {
	t.Helper()
	return zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.DebugLevel)
}

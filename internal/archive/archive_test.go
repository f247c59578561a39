package archive

import (
	"archive/tar"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"

	"github.com/dangattringer/rust-rag/internal/crate"
	"github.com/dangattringer/rust-rag/internal/progress"
)

type entry struct {
	name string
	body string
	dir  bool
}

var docsTree = []entry{
	{name: "serde/", dir: true},
	{name: "serde/index.html", body: "<html>serde</html>"},
	{name: "serde/de/index.html", body: "<html>de</html>"},
	{name: "static.files/main.js", body: "console.log(1)"},
}

func writeZip(t *testing.T, entries []entry) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.Create(e.name)
		require.NoError(t, err)
		if !e.dir {
			_, err = w.Write([]byte(e.body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, zw.Close())
	return writeTemp(t, "docs-*.archive", buf.Bytes())
}

func tarBytes(t *testing.T, entries []entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, e := range entries {
		hdr := &tar.Header{Name: e.name, Mode: 0o644, Size: int64(len(e.body)), Typeflag: tar.TypeReg}
		if e.dir {
			hdr = &tar.Header{Name: e.name, Mode: 0o755, Typeflag: tar.TypeDir}
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if !e.dir {
			_, err := tw.Write([]byte(e.body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
	return buf.Bytes()
}

func writeTarGz(t *testing.T, entries []entry) string {
	t.Helper()
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	_, err := gw.Write(tarBytes(t, entries))
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	return writeTemp(t, "docs-*.archive", buf.Bytes())
}

func writeTarXz(t *testing.T, entries []entry) string {
	t.Helper()
	var buf bytes.Buffer
	xw, err := xz.NewWriter(&buf)
	require.NoError(t, err)
	_, err = xw.Write(tarBytes(t, entries))
	require.NoError(t, err)
	require.NoError(t, xw.Close())
	return writeTemp(t, "docs-*.archive", buf.Bytes())
}

func writeTemp(t *testing.T, pattern string, data []byte) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), pattern)
	require.NoError(t, err)
	_, err = f.Write(data)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	return f.Name()
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name   string
		header []byte
		want   Format
	}{
		{"zip", []byte("PK\x03\x04rest"), FormatZip},
		{"empty zip", []byte("PK\x05\x06"), FormatZip},
		{"gzip", []byte{0x1f, 0x8b, 0x08}, FormatTarGz},
		{"xz", []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}, FormatTarXz},
		{"html error page", []byte("<html>"), FormatUnknown},
		{"empty", nil, FormatUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.header))
		})
	}
}

func TestExtract_Formats(t *testing.T) {
	tests := []struct {
		name    string
		archive func(*testing.T, []entry) string
	}{
		{"zip", writeZip},
		{"tar.gz", writeTarGz},
		{"tar.xz", writeTarXz},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			archivePath := tt.archive(t, docsTree)
			dest := filepath.Join(t.TempDir(), "serde", "1.0.210")

			var events []progress.EventType
			var last progress.Activity
			obs := progress.ObserverFunc(func(e progress.EventType, a progress.Activity) {
				events = append(events, e)
				last = a
			})

			n, err := New(obs).Extract(archivePath, dest)
			require.NoError(t, err)
			assert.Equal(t, len(docsTree), n)

			data, err := os.ReadFile(filepath.Join(dest, "serde", "de", "index.html"))
			require.NoError(t, err)
			assert.Equal(t, "<html>de</html>", string(data))
			assert.FileExists(t, filepath.Join(dest, "static.files", "main.js"))

			assert.Equal(t, progress.EventTypeStarted, events[0])
			assert.Equal(t, progress.EventTypeCompleted, events[len(events)-1])
			assert.Equal(t, int64(len(docsTree)), last.Current)

			_, err = os.Stat(archivePath)
			assert.NoError(t, err, "archive is left in place")
		})
	}
}

func TestExtract_ZipReportsTotal(t *testing.T) {
	archivePath := writeZip(t, docsTree)

	var total int64
	obs := progress.ObserverFunc(func(e progress.EventType, a progress.Activity) {
		if e == progress.EventTypeStarted {
			total = a.Total
		}
	})

	_, err := New(obs).Extract(archivePath, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, int64(len(docsTree)), total)
}

func TestExtract_EmptyZip(t *testing.T) {
	archivePath := writeZip(t, nil)

	n, err := New(nil).Extract(archivePath, t.TempDir())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestExtract_Corrupt(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"not an archive", []byte("<html>Service Unavailable</html>")},
		{"truncated zip", []byte("PK\x03\x04\x14\x00\x00\x00")},
		{"truncated gzip", []byte{0x1f, 0x8b, 0x08, 0x00}},
		{"empty file", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			archivePath := writeTemp(t, "bad-*.archive", tt.data)

			_, err := New(nil).Extract(archivePath, filepath.Join(t.TempDir(), "out"))
			require.Error(t, err)
			assert.ErrorIs(t, err, crate.ErrCorruptArchive)

			var cerr *crate.CorruptArchiveError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, archivePath, cerr.Archive)
		})
	}
}

func TestExtract_MissingArchive(t *testing.T) {
	_, err := New(nil).Extract(filepath.Join(t.TempDir(), "gone.zip"), t.TempDir())
	assert.ErrorIs(t, err, crate.ErrCorruptArchive)
}

func TestExtract_RejectsEscapingEntries(t *testing.T) {
	tests := []struct {
		name  string
		entry string
	}{
		{"parent", "../evil.html"},
		{"nested parent", "docs/../../evil.html"},
		{"backslash parent", "docs\\..\\..\\evil.html"},
		{"absolute", "/etc/evil.html"},
		{"colon", "C:/evil.html"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			archivePath := writeTarGz(t, []entry{
				{name: "ok.html", body: "fine"},
				{name: tt.entry, body: "evil"},
			})
			dest := filepath.Join(t.TempDir(), "out")

			n, err := New(nil).Extract(archivePath, dest)
			require.Error(t, err)

			var cerr *crate.CorruptArchiveError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tt.entry, cerr.Entry)

			assert.Equal(t, 1, n)
			assert.FileExists(t, filepath.Join(dest, "ok.html"), "earlier entries stay on disk")
		})
	}
}

func TestCleanJoin(t *testing.T) {
	root := t.TempDir()

	got, err := cleanJoin(root, "serde/index.html")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "serde", "index.html"), got)

	got, err = cleanJoin(root, "serde\\de\\index.html")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "serde", "de", "index.html"), got)

	_, err = cleanJoin(root, "../x")
	assert.Error(t, err)
}

package testsupport

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

const xbrlInstance = "\xEF\xBB\xBF\n<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<xbrli:xbrl xmlns:xbrli=\"http://www.xbrl.org/2003/instance\"></xbrli:xbrl>\n"

// WriteFile writes size filler bytes to path. Sizes below one write a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()
	writeBytes(t, path, bytes.Repeat([]byte{'B'}, int(max(size, 1))))
}

// WriteEmpty creates a zero-byte file, as a downloader placeholder would.
func WriteEmpty(t testing.TB, path string) {
	t.Helper()
	writeBytes(t, path, nil)
}

// WriteXBRL writes a minimal XBRL instance document.
func WriteXBRL(t testing.TB, path string) {
	t.Helper()
	writeBytes(t, path, []byte(xbrlInstance))
}

// WriteFilingZip writes a ZIP archive holding a minimal XBRL instance, the
// shape of a complete filing download.
func WriteFilingZip(t testing.TB, path string) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	entry, err := zw.Create("instance.xbrl")
	if err == nil {
		_, err = entry.Write([]byte(xbrlInstance))
	}
	if err == nil {
		err = zw.Close()
	}
	if err != nil {
		t.Fatalf("build zip for %s: %v", path, err)
	}
	writeBytes(t, path, buf.Bytes())
}

func writeBytes(t testing.TB, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

package periods

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// partialSuffixes mark files that a downloader is still writing.
var partialSuffixes = []string{".part", ".partial", ".tmp", ".crdownload", ".download"}

// pendingMarkers inside a period directory flag it as not yet complete.
var pendingMarkers = map[string]struct{}{
	"pending":     {},
	".pending":    {},
	".incomplete": {},
	"incomplete":  {},
}

// trailingTokenPattern finds a period token at the end of a file stem, after a
// separator, e.g. 91297000_202412 or cap-2024-Q4.
var trailingTokenPattern = regexp.MustCompile(`(?i)(?:^|[^0-9a-z])(\d{4}[-_./]?\d{2}|\d{2}[-_.]\d{4}|\d{4}[-_]?q[1-4]|q[1-4][-_]?\d{4})$`)

const xmlSniffBytes = 512

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// IsPartialName reports whether name looks like a download still in
// progress or a hidden temporary file.
func IsPartialName(name string) bool {
	lower := strings.ToLower(name)
	if strings.HasPrefix(lower, "~") || strings.HasPrefix(lower, ".") {
		return true
	}
	for _, suffix := range partialSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

func isPendingMarker(name string) bool {
	_, ok := pendingMarkers[strings.ToLower(name)]
	return ok
}

// hasPartialSibling reports whether a partial download of name sits next to it.
func hasPartialSibling(name string, siblings map[string]struct{}) bool {
	for _, suffix := range partialSuffixes {
		if _, ok := siblings[name+suffix]; ok {
			return true
		}
	}
	return false
}

// tokenFromFileName extracts the trailing period token from a file stem.
func tokenFromFileName(stem string) (string, bool) {
	m := trailingTokenPattern.FindStringSubmatch(stem)
	if m == nil {
		return "", false
	}
	return m[1], true
}

type artifactValidator struct {
	extensions map[string]struct{}
	minBytes   int64
}

func newArtifactValidator(extensions []string, minBytes int64) artifactValidator {
	set := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = struct{}{}
	}
	return artifactValidator{extensions: set, minBytes: minBytes}
}

func (v artifactValidator) accepts(name string) bool {
	if IsPartialName(name) {
		return false
	}
	_, ok := v.extensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// validate confirms path holds a complete artifact. A nil error means the
// file can be counted as a finished filing.
func (v artifactValidator) validate(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("not a regular file")
	}
	if info.Size() < v.minBytes || info.Size() == 0 {
		return fmt.Errorf("size %d below minimum %d", info.Size(), v.minBytes)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".zip":
		return validateZip(path)
	case ".xbrl", ".xml":
		return validateXML(path)
	default:
		return nil
	}
}

func validateZip(path string) error {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}
	defer reader.Close()
	if len(reader.File) == 0 {
		return fmt.Errorf("zip archive is empty")
	}
	return nil
}

func validateXML(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	head := make([]byte, xmlSniffBytes)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		return fmt.Errorf("read header: %w", err)
	}
	head = bytes.TrimPrefix(head[:n], utf8BOM)
	head = bytes.TrimLeft(head, " \t\r\n")
	if len(head) == 0 || head[0] != '<' {
		return fmt.Errorf("does not look like XML")
	}
	return nil
}

package registry

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v2"

	"filingsync/internal/tracker"
)

// Entry is one registry row after normalization.
type Entry struct {
	Name string `json:"name"`
	RUT  string `json:"rut"`
}

// Entity converts the entry into the descriptor the tracker loads.
func (e Entry) Entity() tracker.Entity {
	return tracker.Entity{Name: e.Name, ID: e.RUT}
}

// Display returns the dotted RUT with verifier, e.g. 91.297.000-0.
func (e Entry) Display() string {
	return FormatRUT(e.RUT)
}

type rawEntry struct {
	Name string `toml:"name" yaml:"name"`
	RUT  string `toml:"rut" yaml:"rut"`
}

type tomlFile struct {
	Entity []rawEntry `toml:"entity"`
}

type yamlFile struct {
	Entities []rawEntry `yaml:"entities"`
}

// Load reads the registry file at path, picking the format from its extension.
func Load(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}
	return Parse(filepath.Base(path), data)
}

// Parse decodes registry data. name supplies the extension and is used as the
// source in error messages.
func Parse(name string, data []byte) ([]Entry, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".toml":
		return parseTOML(name, data)
	case ".yaml", ".yml":
		return parseYAML(name, data)
	case ".csv":
		return parseCSV(name, bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
}

func parseTOML(source string, data []byte) ([]Entry, error) {
	var file tomlFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", source, err)
	}
	return build(source, file.Entity, nil)
}

func parseYAML(source string, data []byte) ([]Entry, error) {
	var file yamlFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", source, err)
	}
	return build(source, file.Entities, nil)
}

func parseCSV(source string, r io.Reader) ([]Entry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", source, err)
	}
	nameCol, rutCol := -1, -1
	for i, col := range header {
		col = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")))
		switch col {
		case "name", "nombre", "razon_social":
			nameCol = i
		case "rut":
			rutCol = i
		}
	}
	if nameCol < 0 || rutCol < 0 {
		return nil, fmt.Errorf("parse %s: header must name the name and rut columns", source)
	}

	var (
		rows  []rawEntry
		lines []int
	)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", source, err)
		}
		line, _ := reader.FieldPos(0)
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}
		if nameCol >= len(record) || rutCol >= len(record) {
			return nil, &EntryError{Source: source, Line: line, Err: errors.New("missing name or rut column")}
		}
		rows = append(rows, rawEntry{Name: record[nameCol], RUT: record[rutCol]})
		lines = append(lines, line)
	}
	return build(source, rows, lines)
}

// build normalizes rows in order and rejects blank names, bad RUTs, and
// duplicates. lines, when non-nil, gives the source line of each row.
func build(source string, rows []rawEntry, lines []int) ([]Entry, error) {
	entries := make([]Entry, 0, len(rows))
	seen := make(map[string]int, len(rows))
	for i, row := range rows {
		line := i + 1
		if lines != nil {
			line = lines[i]
		}
		name := NormalizeName(row.Name)
		if name == "" {
			return nil, &EntryError{Source: source, Line: line, Err: errors.New("name is required")}
		}
		rut, err := CanonicalRUT(row.RUT)
		if err != nil {
			return nil, &EntryError{Source: source, Line: line, Err: err}
		}
		if first, dup := seen[rut]; dup {
			return nil, &EntryError{
				Source: source,
				Line:   line,
				Err:    fmt.Errorf("%w %s (first seen at %d)", ErrDuplicateRUT, rut, first),
			}
		}
		seen[rut] = line
		entries = append(entries, Entry{Name: name, RUT: rut})
	}
	return entries, nil
}

// Entities converts entries into tracker descriptors, preserving order.
func Entities(entries []Entry) []tracker.Entity {
	out := make([]tracker.Entity, len(entries))
	for i, e := range entries {
		out[i] = e.Entity()
	}
	return out
}

// Find returns the entry whose RUT matches raw after normalization.
func Find(entries []Entry, raw string) (Entry, bool) {
	rut, err := CanonicalRUT(raw)
	if err != nil {
		return Entry{}, false
	}
	for _, e := range entries {
		if e.RUT == rut {
			return e, true
		}
	}
	return Entry{}, false
}

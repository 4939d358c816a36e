package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRUT reports a RUT that is malformed or fails its verifier check.
	ErrInvalidRUT = errors.New("invalid rut")
	// ErrUnsupportedFormat reports a registry file with an unknown extension.
	ErrUnsupportedFormat = errors.New("unsupported registry format")
	// ErrDuplicateRUT reports two registry rows for the same entity.
	ErrDuplicateRUT = errors.New("duplicate rut")
)

// EntryError locates a problem within a registry file. Line is the 1-based
// line for CSV files and the 1-based entry position for TOML and YAML.
type EntryError struct {
	Source string
	Line   int
	Err    error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.Source, e.Line, e.Err)
}

func (e *EntryError) Unwrap() error { return e.Err }

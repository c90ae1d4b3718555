// Package profile holds per-sheet layout overrides.
//
// Most sheets follow the default layout (one header row, data immediately
// below), but a handful of legacy sheets start their header mid-page or stack
// several header rows. Rather than guessing, the pipeline ships a small JSON
// profile document keyed by sheet name.
package profile

import (
	"encoding/json"
	"fmt"
	"os"
)

// Layout describes where a sheet's header block and data region start.
// Zero values mean "use the reader's default".
type Layout struct {
	// HeaderRowCount is how many stacked header rows to concatenate per
	// column (joined with " > ").
	HeaderRowCount int `json:"headerRowCount,omitempty"`

	// HeaderStartRow is the 1-based row the header block starts on.
	HeaderStartRow int `json:"headerStartRow,omitempty"`

	// DataStartRow is the 1-based row the data region starts on.
	DataStartRow int `json:"dataStartRow,omitempty"`
}

// Store is a read-only lookup of layout overrides by sheet name.
type Store map[string]Layout

// Lookup returns the override for sheetName, or a zero Layout if none is
// configured. The second return reports whether an override existed.
func (s Store) Lookup(sheetName string) (Layout, bool) {
	if s == nil {
		return Layout{}, false
	}
	l, ok := s[sheetName]
	return l, ok
}

// Load reads a profile document from path. A missing file yields an empty
// store, not an error: overrides are optional.
func Load(path string) (Store, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Store{}, nil
		}
		return nil, fmt.Errorf("read profile file: %w", err)
	}

	var s Store
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse profile json: %w", err)
	}
	return s, nil
}

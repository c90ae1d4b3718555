package sheetio

import (
	"fmt"
	"strconv"
	"strings"
)

// MergedCellIndex maps every covered coordinate of a merge range, except the
// top-left one, to the top-left cell's resolved value.
//
// Spreadsheet readers report all non-top-left merged cells as blank. Without
// this index, every multi-row label block and merged header would read as
// empty. Keys are "row:col", 1-based.
type MergedCellIndex map[string]any

// CellResolver reads and resolves one cell by 1-based coordinates.
type CellResolver func(row, col int) any

// BuildMergedCellIndex precomputes the index for a sheet's merge ranges
// (each an "A1:C3"-style reference). The top-left cell of each range is
// resolved exactly once.
//
// Malformed range references are an error; a sheet with no merges yields an
// empty, usable index.
func BuildMergedCellIndex(refs []string, resolve CellResolver) (MergedCellIndex, error) {
	ix := make(MergedCellIndex)
	for _, ref := range refs {
		r1, c1, r2, c2, err := ParseRangeRef(ref)
		if err != nil {
			return nil, err
		}
		topLeft := resolve(r1, c1)
		for r := r1; r <= r2; r++ {
			for c := c1; c <= c2; c++ {
				if r == r1 && c == c1 {
					continue
				}
				ix[mergeKey(r, c)] = topLeft
			}
		}
	}
	return ix, nil
}

// Value reads the cell at (row, col): the merge index first, then a direct
// resolve if the coordinate is not covered by any merge range.
func (ix MergedCellIndex) Value(row, col int, resolve CellResolver) any {
	if v, ok := ix[mergeKey(row, col)]; ok {
		return v
	}
	return resolve(row, col)
}

func mergeKey(row, col int) string {
	return strconv.Itoa(row) + ":" + strconv.Itoa(col)
}

// ParseRangeRef parses an "A1:C3"-style range reference into 1-based
// (startRow, startCol, endRow, endCol).
func ParseRangeRef(ref string) (int, int, int, int, error) {
	start, end, ok := strings.Cut(ref, ":")
	if !ok {
		// A single-cell "merge" degenerates to a 1x1 range.
		end = start
	}
	r1, c1, err := parseCellRef(start)
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("range %q: %w", ref, err)
	}
	r2, c2, err := parseCellRef(end)
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("range %q: %w", ref, err)
	}
	return r1, c1, r2, c2, nil
}

// parseCellRef parses "AB12" into (row=12, col=28).
func parseCellRef(ref string) (int, int, error) {
	ref = strings.TrimSpace(strings.ToUpper(ref))
	i := 0
	for i < len(ref) && ref[i] >= 'A' && ref[i] <= 'Z' {
		i++
	}
	if i == 0 || i == len(ref) {
		return 0, 0, fmt.Errorf("malformed cell ref %q", ref)
	}
	col := ColumnNumber(ref[:i])
	row, err := strconv.Atoi(ref[i:])
	if err != nil || row < 1 {
		return 0, 0, fmt.Errorf("malformed cell ref %q", ref)
	}
	return row, col, nil
}

// ColumnNumber converts a column-letter reference to its 1-based number
// (base 26, 'A' = 1, so "AA" = 27).
func ColumnNumber(letters string) int {
	n := 0
	for i := 0; i < len(letters); i++ {
		n = n*26 + int(letters[i]-'A') + 1
	}
	return n
}

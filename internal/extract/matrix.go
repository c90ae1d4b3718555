package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"sheetetl/internal/normalize"
	"sheetetl/internal/sheetio"
)

// The participation matrix sheet has a fixed vertical geometry: project
// metadata stacked in rows 4-8, column headers in row 9, data from row 10.
// A people×metric block of exactly three columns (name, rate, period)
// repeats horizontally, and a narrow side table in columns 1-4 carries
// per-member totals.
const (
	matrixProjectRow   = 4
	matrixClientRow    = 5
	matrixDeptRow      = 6
	matrixNoteRow      = 7
	matrixStageRow     = 8
	matrixHeaderRow    = 9
	matrixDataStartRow = 10

	matrixFirstGroupCol = 5
	matrixGroupSpan     = 3

	// matrixEmptyRowLimit bounds the scan against trailing allocated-but-empty
	// sheet rows: after this many consecutive rows with no payload in any
	// group, scanning stops.
	matrixEmptyRowLimit = 30

	// footnoteMarker prefixes annotation entries in the name column; they are
	// never emitted as data.
	footnoteMarker = "※"
)

// matrixSheetRe matches sheet names carrying the participation matrix layout.
var matrixSheetRe = regexp.MustCompile(`참여\s*(율|현황|매트릭스)`)

// rateHeaderRe matches the participation/input-rate column label inside a
// repeating group.
var rateHeaderRe = regexp.MustCompile(`참여\s*율|투입\s*[율률]`)

// IsMatrixSheet reports whether sheetName should take the matrix extraction
// path instead of the generic per-row pipeline.
func IsMatrixSheet(sheetName string) bool {
	return matrixSheetRe.MatchString(sheetName)
}

// MatrixSheet is the raw sheet access the matrix path needs. *sheetio.Sheet
// satisfies it; tests use in-memory fakes.
type MatrixSheet interface {
	CellValue(row, col int) any
	MergeRefs() []string
	RowCount() int
	ColCount() int
}

// memberSummary is one row of the side table in columns 1-4, keyed by
// normalized member name. A later row with the same name overwrites an
// earlier one; the source data's convention, kept as-is.
type memberSummary struct {
	nickname     string
	totalRate    any
	projectCount any
}

// ExtractMatrix runs the participation-matrix extraction over one sheet and
// returns the result for it.
//
// Unlike the generic path there is no per-row error capture here: the layout
// is fixed, so a failure means the sheet as a whole does not match and the
// caller converts the error into a single-error result.
func ExtractMatrix(sheet MatrixSheet, sheetName, targetCollection string) (*Result, error) {
	resolve := func(row, col int) any {
		return sheetio.ResolveValue(sheet.CellValue(row, col))
	}
	merges, err := sheetio.BuildMergedCellIndex(sheet.MergeRefs(), resolve)
	if err != nil {
		return nil, fmt.Errorf("matrix sheet %q: %w", sheetName, err)
	}

	cell := func(row, col int) any {
		return merges.Value(row, col, resolve)
	}
	cellText := func(row, col int) string {
		return asText(cell(row, col))
	}

	rowCount := sheet.RowCount()
	colCount := sheet.ColCount()

	// Group discovery along the header row. Each hit owns exactly three
	// columns, so the cursor skips past the rest of the group's span.
	var groups []int
	for c := matrixFirstGroupCol; c <= colCount-2; c++ {
		name := collapseSpace(cellText(matrixHeaderRow, c))
		if strings.Contains(name, "이름") && rateHeaderRe.MatchString(cellText(matrixHeaderRow, c+1)) {
			groups = append(groups, c)
			c += matrixGroupSpan - 1
		}
	}

	// Side table: per-member totals, last row wins on duplicate names.
	summaries := make(map[string]memberSummary)
	for r := matrixDataStartRow; r <= rowCount; r++ {
		name := asText(cell(r, 1))
		if name == "" {
			continue
		}
		count, err := normalize.NormalizeAmount(cell(r, 4))
		if err != nil {
			return nil, fmt.Errorf("matrix sheet %q: summary row %d: %w", sheetName, r, err)
		}
		summaries[name] = memberSummary{
			nickname:     asText(cell(r, 2)),
			totalRate:    normalize.NormalizeRate(cell(r, 3)),
			projectCount: count,
		}
	}

	result := &Result{
		SheetName:        sheetName,
		TargetCollection: targetCollection,
		Stats:            Stats{Total: max(0, rowCount-matrixDataStartRow+1)},
	}

	emptyRun := 0
	for r := matrixDataStartRow; r <= rowCount; r++ {
		rowHasEntry := false

		for _, c := range groups {
			name := asText(cell(r, c))
			rateRaw := cell(r, c+1)
			period := asText(cell(r, c+2))

			if name == "" && isBlank(rateRaw) && period == "" {
				continue
			}
			rowHasEntry = true

			// Empty name with payload elsewhere in the triplet: skip the
			// cell, the row still counts as active.
			if name == "" {
				continue
			}
			// Footnote entries are annotations, never data.
			if strings.HasPrefix(name, footnoteMarker) {
				continue
			}

			rec := Record{
				"memberName":  name,
				"nickname":    nil,
				"totalRate":   nil,
				"projectName": orNil(cellText(matrixProjectRow, c)),
				"clientOrg":   orNil(cellText(matrixClientRow, c)),
				"department":  orNil(cellText(matrixDeptRow, c)),
				"note":        orNil(cellText(matrixNoteRow, c)),
				"stage":       orNil(cellText(matrixStageRow, c)),
				"rate":        normalize.NormalizeRate(rateRaw),
				"period":      orNil(period),
				SourceKey:     Source{Sheet: sheetName, Row: r},
			}
			rec["totalProjectCount"] = nil
			if sum, ok := summaries[name]; ok {
				rec["nickname"] = orNil(sum.nickname)
				rec["totalRate"] = sum.totalRate
				rec["totalProjectCount"] = truncateCount(sum.projectCount)
			}
			result.Records = append(result.Records, rec)
		}

		if rowHasEntry {
			emptyRun = 0
			continue
		}
		emptyRun++
		if emptyRun >= matrixEmptyRowLimit {
			break
		}
	}

	result.Stats.Extracted = len(result.Records)
	return result, nil
}

// asText renders a resolved cell value as a trimmed string; numbers are
// formatted, nil and blanks become "".
func asText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

func orNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// truncateCount truncates a numeric project count to an integer.
func truncateCount(v any) any {
	f, ok := v.(float64)
	if !ok {
		return nil
	}
	return int(f)
}

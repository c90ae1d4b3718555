package sheetio

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrSheetNotFound indicates the requested sheet does not exist in the workbook.
var ErrSheetNotFound = errors.New("sheet not found")

// ParsedSheet is the generic reader's output: composite headers plus one
// map per data row, keyed by those headers.
type ParsedSheet struct {
	Headers []string
	Rows    []map[string]any
}

// ParseOptions controls where a sheet's header block and data region start.
// Zero values apply the defaults: a single header row at row 1, data
// immediately below the header block.
type ParseOptions struct {
	HeaderRowCount int
	HeaderStartRow int
	DataStartRow   int
}

func (o ParseOptions) withDefaults() ParseOptions {
	if o.HeaderStartRow <= 0 {
		o.HeaderStartRow = 1
	}
	if o.HeaderRowCount <= 0 {
		o.HeaderRowCount = 1
	}
	if o.DataStartRow <= 0 {
		o.DataStartRow = o.HeaderStartRow + o.HeaderRowCount
	}
	return o
}

// ParseSheet reads one sheet into headers and row maps.
//
// Multi-row headers are concatenated per column with " > " (blank segments
// skipped), so a two-row header "지출 | 금액" becomes "지출 > 금액". Merged
// header cells are propagated from their top-left value first, otherwise
// every spanned column would get an empty segment.
//
// Columns whose composite header ends up empty are dropped. Cell values are
// parsed into int64/float64 where they look numeric, strings otherwise, nil
// when blank.
func ParseSheet(path, sheetName string, opt ParseOptions) (*ParsedSheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if idx, err := f.GetSheetIndex(sheetName); err != nil || idx < 0 {
		return nil, fmt.Errorf("sheet %q: %w", sheetName, ErrSheetNotFound)
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheetName, err)
	}

	opt = opt.withDefaults()

	cellAt := func(row, col int) any {
		if row-1 < 0 || row-1 >= len(rows) {
			return nil
		}
		r := rows[row-1]
		if col-1 < 0 || col-1 >= len(r) {
			return nil
		}
		if r[col-1] == "" {
			return nil
		}
		return r[col-1]
	}

	refs, err := mergeRefs(f, sheetName)
	if err != nil {
		return nil, err
	}
	merges, err := BuildMergedCellIndex(refs, cellAt)
	if err != nil {
		return nil, fmt.Errorf("merge ranges for %q: %w", sheetName, err)
	}

	width := 0
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}

	headers := make([]string, width)
	for c := 1; c <= width; c++ {
		var segs []string
		for hr := opt.HeaderStartRow; hr < opt.HeaderStartRow+opt.HeaderRowCount; hr++ {
			v := merges.Value(hr, c, cellAt)
			s, _ := v.(string)
			s = strings.TrimSpace(s)
			// A vertically merged header cell repeats its value on every
			// spanned row; collapsing equal consecutive segments keeps the
			// composite from reading "날짜 > 날짜".
			if s != "" && (len(segs) == 0 || segs[len(segs)-1] != s) {
				segs = append(segs, s)
			}
		}
		headers[c-1] = strings.Join(segs, " > ")
	}

	parsed := &ParsedSheet{}
	for _, h := range headers {
		if h != "" {
			parsed.Headers = append(parsed.Headers, h)
		}
	}

	for ri := opt.DataStartRow - 1; ri < len(rows); ri++ {
		row := make(map[string]any, len(parsed.Headers))
		for c := 1; c <= width; c++ {
			h := headers[c-1]
			if h == "" {
				continue
			}
			v := cellAt(ri+1, c)
			if s, ok := v.(string); ok {
				row[h] = parseScalar(s)
			} else {
				row[h] = nil
			}
		}
		parsed.Rows = append(parsed.Rows, row)
	}
	return parsed, nil
}

// parseScalar parses a cell string into int64 or float64 when it looks
// numeric, otherwise returns it unchanged.
func parseScalar(s string) any {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

func mergeRefs(f *excelize.File, sheetName string) ([]string, error) {
	cells, err := f.GetMergeCells(sheetName)
	if err != nil {
		return nil, fmt.Errorf("merge cells for %q: %w", sheetName, err)
	}
	refs := make([]string, 0, len(cells))
	for _, mc := range cells {
		refs = append(refs, mc.GetStartAxis()+":"+mc.GetEndAxis())
	}
	return refs, nil
}

// Sheet is raw cell/merge access to one sheet, used by layouts (the
// participation matrix) that need exact row and column geometry rather than
// the header/row view of ParseSheet.
type Sheet struct {
	f      *excelize.File
	name   string
	rows   [][]string
	width  int
	merges []string
}

// OpenSheet opens the workbook at path and binds to sheetName.
// The caller owns the returned Sheet and must Close it.
func OpenSheet(path, sheetName string) (*Sheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}

	if idx, err := f.GetSheetIndex(sheetName); err != nil || idx < 0 {
		_ = f.Close()
		return nil, fmt.Errorf("sheet %q: %w", sheetName, ErrSheetNotFound)
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("read sheet %q: %w", sheetName, err)
	}
	width := 0
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}

	refs, err := mergeRefs(f, sheetName)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	return &Sheet{f: f, name: sheetName, rows: rows, width: width, merges: refs}, nil
}

// Name returns the sheet name.
func (s *Sheet) Name() string { return s.name }

// RowCount returns the number of populated rows.
func (s *Sheet) RowCount() int { return len(s.rows) }

// ColCount returns the widest populated row's column count.
func (s *Sheet) ColCount() int { return s.width }

// MergeRefs returns the sheet's merge ranges as "A1:C3"-style references.
func (s *Sheet) MergeRefs() []string { return s.merges }

// Close releases the underlying workbook handle.
func (s *Sheet) Close() error { return s.f.Close() }

// CellValue reads the raw value at 1-based (row, col).
//
// The value keeps as much structure as the file format exposes: formula
// cells come back as FormulaCell with their cached result, multi-run rich
// text as RichText, error cells as ErrorValue. Callers normalize through
// ResolveValue.
func (s *Sheet) CellValue(row, col int) any {
	if row < 1 || col < 1 {
		return nil
	}
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return nil
	}

	raw := ""
	if row-1 < len(s.rows) && col-1 < len(s.rows[row-1]) {
		raw = s.rows[row-1][col-1]
	}

	if formula, err := s.f.GetCellFormula(s.name, name); err == nil && formula != "" {
		return FormulaCell{Formula: formula, Result: formulaResult(raw)}
	}

	if runs, err := s.f.GetCellRichText(s.name, name); err == nil && len(runs) > 1 {
		rt := RichText{Runs: make([]RichTextRun, 0, len(runs))}
		for _, run := range runs {
			rt.Runs = append(rt.Runs, RichTextRun{Text: run.Text})
		}
		return rt
	}

	if raw == "" {
		return nil
	}
	if isErrorCode(raw) {
		return ErrorValue{Code: raw}
	}
	return parseScalar(raw)
}

func formulaResult(raw string) any {
	if raw == "" {
		return nil
	}
	if isErrorCode(raw) {
		return ErrorValue{Code: raw}
	}
	return parseScalar(raw)
}

var errorCodes = map[string]bool{
	"#NULL!":  true,
	"#DIV/0!": true,
	"#VALUE!": true,
	"#REF!":   true,
	"#NAME?":  true,
	"#NUM!":   true,
	"#N/A":    true,
}

func isErrorCode(s string) bool {
	return errorCodes[s]
}

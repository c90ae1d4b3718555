// Package sheetio reads spreadsheet data into the shapes the extraction
// engine works with: parsed header/row tables for the generic path, and raw
// cell/merge access for layouts that need exact geometry.
package sheetio

import "time"

// RichTextRun is one run of a rich-text cell.
type RichTextRun struct {
	Text string
}

// RichText is a cell value composed of styled text runs.
type RichText struct {
	Runs []RichTextRun
}

// FormulaCell is a formula cell, possibly carrying a cached result from the
// last time the workbook was recalculated.
type FormulaCell struct {
	Formula string
	Shared  bool
	Result  any
}

// TextCell is a plain-text cell that carries extra structure the engine does
// not care about (hyperlinks, phonetic hints). Only Text survives resolution.
type TextCell struct {
	Text string
	Link string
}

// ErrorValue is a spreadsheet error cell ("#DIV/0!", "#N/A", ...).
type ErrorValue struct {
	Code string
}

// ResolveValue normalizes one raw cell value into a scalar
// (string, number, or nil).
//
// Order matters: richer or cached representations are preferred over raising
// ambiguous values to callers.
//
// Semantics:
//   - nil stays nil.
//   - A native date becomes its ISO calendar date "YYYY-MM-DD" (UTC date
//     portion only).
//   - Rich text collapses to the concatenation of its runs.
//   - A formula cell yields its cached result (resolved recursively, so a
//     date-valued formula still comes back as an ISO date); an error-shaped
//     or absent result yields nil.
//   - A text cell yields its text; an error cell yields nil.
//   - Anything else passes through unchanged.
func ResolveValue(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case time.Time:
		return t.UTC().Format("2006-01-02")
	case *time.Time:
		if t == nil {
			return nil
		}
		return t.UTC().Format("2006-01-02")
	case RichText:
		s := ""
		for _, run := range t.Runs {
			s += run.Text
		}
		return s
	case FormulaCell:
		if t.Result == nil {
			return nil
		}
		if _, isErr := t.Result.(ErrorValue); isErr {
			return nil
		}
		return ResolveValue(t.Result)
	case TextCell:
		return t.Text
	case ErrorValue:
		return nil
	default:
		return v
	}
}

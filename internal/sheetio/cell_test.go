package sheetio

import (
	"testing"
	"time"
)

// TestResolveValue_Order pins the resolution rules and their precedence:
// cached/rich representations win over raising ambiguous values to callers.
func TestResolveValue_Order(t *testing.T) {
	t.Parallel()

	date := time.Date(2024, 3, 15, 23, 30, 0, 0, time.UTC)

	cases := []struct {
		name string
		in   any
		want any
	}{
		{"nil", nil, nil},
		{"date drops time portion", date, "2024-03-15"},
		{"rich text concatenates runs", RichText{Runs: []RichTextRun{{Text: "영업"}, {Text: "1팀"}}}, "영업1팀"},
		{"formula with cached result", FormulaCell{Formula: "A1*2", Result: float64(70)}, float64(70)},
		{"formula with error result", FormulaCell{Formula: "A1/B1", Result: ErrorValue{Code: "#DIV/0!"}}, nil},
		{"formula without result", FormulaCell{Formula: "SUM(A:A)"}, nil},
		{"formula with date result", FormulaCell{Formula: "TODAY()", Result: date}, "2024-03-15"},
		{"text cell", TextCell{Text: "홍길동", Link: "mailto:x@y.z"}, "홍길동"},
		{"error cell", ErrorValue{Code: "#N/A"}, nil},
		{"number passes through", float64(0.35), float64(0.35)},
		{"string passes through", "그대로", "그대로"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := ResolveValue(tc.in); got != tc.want {
				t.Fatalf("ResolveValue(%#v) = %#v, want %#v", tc.in, got, tc.want)
			}
		})
	}
}

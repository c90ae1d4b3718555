package normalize

import (
	"math"
	"strconv"
	"strings"
)

// NormalizeRate normalizes a participation-rate cell into a fraction, or nil
// when the cell is empty or unparseable.
//
// The source cells store the same quantity three ways: an Excel
// percent-formatted cell reads as a fraction (0.35), a plain numeric cell as
// percentage points (35), and some cells as a percent string ("35%").
//
// Policy:
//   - Numbers in [0, 2] are taken as already fractional.
//   - Numbers above 2 are divided by 100, whatever their magnitude: 35 and
//     150 go through the same branch, so an overallocated person still comes
//     out above 1.0. The boundary at 2 is a convention of the source data.
//   - A "%"-suffixed string is divided by 100 unconditionally; other strings
//     follow the numeric policy after stripping separators.
func NormalizeRate(v any) any {
	if v == nil {
		return nil
	}

	if f, ok := toFloat(v); ok {
		return bracketRate(f)
	}

	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = foldTrim(s)
	if s == "" {
		return nil
	}

	hadPct := strings.Contains(s, "%")
	s = strings.ReplaceAll(s, "%", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.Join(strings.Fields(s), "")

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	if hadPct {
		return f / 100
	}
	return bracketRate(f)
}

func bracketRate(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	if f >= 0 && f <= 2 {
		return f
	}
	return f / 100
}

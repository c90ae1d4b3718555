// Package normalize implements the named cell-value normalizers the
// extraction engine applies per column mapping, plus the participation-rate
// heuristic used by the matrix path.
//
// The source workbooks are Korean business spreadsheets: full-width digits
// and punctuation, currency suffixes ("원", "₩"), and label enums (결제수단,
// 진행상태, ...) all appear in raw cells. Everything here folds width first,
// then normalizes.
package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/width"
)

// Func is a pure unary normalizer. A returned error aborts assembly of the
// current row only; the orchestrator records it and moves on.
type Func func(v any) (any, error)

// registry is populated once at init and read-only afterwards.
// Dispatch is a plain name lookup: no reflection, no dynamic code.
var registry = map[string]Func{
	"normalizeDate":           NormalizeDate,
	"normalizeAmount":         NormalizeAmount,
	"normalizePercent":        NormalizePercent,
	"normalizePaymentMethod":  enumFunc(paymentMethods),
	"normalizeProjectStatus":  enumFunc(projectStatuses),
	"normalizeProjectType":    enumFunc(projectTypes),
	"normalizeSettlementType": enumFunc(settlementTypes),
	"normalizeAccountType":    enumFunc(accountTypes),
	"normalizeString":         NormalizeString,
	"normalizeWeekCode":       NormalizeWeekCode,
}

// Lookup returns the registered normalizer for name.
func Lookup(name string) (Func, bool) {
	f, ok := registry[name]
	return f, ok
}

// Apply runs the named normalizer on v. An unregistered name is a no-op:
// the value passes through unchanged.
func Apply(name string, v any) (any, error) {
	f, ok := registry[name]
	if !ok {
		return v, nil
	}
	return f(v)
}

// foldTrim folds full-width characters to their narrow forms and trims
// surrounding whitespace.
func foldTrim(s string) string {
	return strings.TrimSpace(width.Fold.String(s))
}

// toFloat coerces the numeric types cells produce into float64.
func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	default:
		return 0, false
	}
}

var dateRe = regexp.MustCompile(`(\d{4})\s*[.\-/년]\s*(\d{1,2})\s*[.\-/월]\s*(\d{1,2})`)

// NormalizeDate normalizes date cells to ISO "YYYY-MM-DD".
//
// Accepted inputs: native dates (UTC date portion kept), Excel serial
// numbers, and strings in the forms "2024-01-05", "2024.1.5", "2024/01/05",
// "2024년 1월 5일". Empty input is nil; a non-empty string that does not
// look like a date is an error so the row gets captured instead of silently
// carrying a bogus date.
func NormalizeDate(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return t.UTC().Format("2006-01-02"), nil
	}

	if f, ok := toFloat(v); ok {
		// Excel serial date, 1900 date system.
		if f < 1 {
			return nil, fmt.Errorf("normalizeDate: serial %v out of range", v)
		}
		epoch := time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
		return epoch.AddDate(0, 0, int(f)).Format("2006-01-02"), nil
	}

	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("normalizeDate: unsupported type %T", v)
	}
	s = foldTrim(s)
	if s == "" {
		return nil, nil
	}

	m := dateRe.FindStringSubmatch(s)
	if m == nil {
		return nil, fmt.Errorf("normalizeDate: unparseable date %q", s)
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return nil, fmt.Errorf("normalizeDate: invalid date %q", s)
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day), nil
}

var amountStrip = strings.NewReplacer(",", "", "₩", "", "원", "", " ", "", " ", "")

// NormalizeAmount normalizes money cells to a float64.
//
// Strings may carry thousands-commas, a currency sign, or a "원" suffix.
// Empty input is nil; a non-empty string that is not a number is an error.
func NormalizeAmount(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if f, ok := toFloat(v); ok {
		return f, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("normalizeAmount: unsupported type %T", v)
	}
	s = amountStrip.Replace(foldTrim(s))
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("normalizeAmount: unparseable amount %q", s)
	}
	return f, nil
}

// NormalizePercent normalizes percent cells to a fraction.
//
// A "%"-suffixed string is always divided by 100. Bare numbers above 1 are
// treated as percentage points ("35" → 0.35); numbers in [0,1] are assumed
// already fractional (an Excel percent-formatted cell reads as 0.35).
func NormalizePercent(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if f, ok := toFloat(v); ok {
		if f > 1 {
			return f / 100, nil
		}
		return f, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("normalizePercent: unsupported type %T", v)
	}
	s = foldTrim(s)
	if s == "" {
		return nil, nil
	}
	hadPct := strings.Contains(s, "%")
	s = amountStrip.Replace(strings.ReplaceAll(s, "%", ""))
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("normalizePercent: unparseable percent %q", s)
	}
	if hadPct || f > 1 {
		return f / 100, nil
	}
	return f, nil
}

// NormalizeString folds width, trims, and collapses internal runs of
// whitespace to single spaces. Non-strings pass through.
func NormalizeString(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return v, nil
	}
	s = foldTrim(s)
	if s == "" {
		return nil, nil
	}
	return strings.Join(strings.Fields(s), " "), nil
}

var weekRe = regexp.MustCompile(`^(?:(\d{4})\s*[.\-/년]?\s*)?[wW]?\s*(\d{1,2})\s*(?:주차?)?$`)

// NormalizeWeekCode canonicalizes week labels: "2024년 5주차", "2024-W5",
// "W5", "5주차" all normalize to "2024-W05" / "W05". A label that does not
// look like a week code passes through trimmed.
func NormalizeWeekCode(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return v, nil
	}
	s = foldTrim(s)
	if s == "" {
		return nil, nil
	}
	m := weekRe.FindStringSubmatch(s)
	if m == nil {
		return s, nil
	}
	week, _ := strconv.Atoi(m[2])
	if week < 1 || week > 53 {
		return s, nil
	}
	if m[1] != "" {
		return fmt.Sprintf("%s-W%02d", m[1], week), nil
	}
	return fmt.Sprintf("W%02d", week), nil
}

// Enum label tables. Unknown labels pass through normalized rather than
// erroring: the guardrails downstream decide whether a row is usable.

var paymentMethods = map[string]string{
	"카드":     "card",
	"법인카드": "card",
	"신용카드": "card",
	"현금":     "cash",
	"이체":     "transfer",
	"계좌이체": "transfer",
	"자동이체": "auto_transfer",
	"간편결제": "easy_pay",
}

var projectStatuses = map[string]string{
	"진행":   "in_progress",
	"진행중": "in_progress",
	"완료":   "completed",
	"종료":   "completed",
	"보류":   "on_hold",
	"중단":   "cancelled",
	"취소":   "cancelled",
	"예정":   "planned",
}

var projectTypes = map[string]string{
	"용역":     "service",
	"개발":     "development",
	"유지보수": "maintenance",
	"컨설팅":   "consulting",
	"연구":     "research",
	"내부":     "internal",
}

var settlementTypes = map[string]string{
	"선금":   "advance",
	"착수금": "advance",
	"중도금": "interim",
	"잔금":   "balance",
	"일시불": "lump_sum",
	"월정산": "monthly",
}

var accountTypes = map[string]string{
	"법인":   "corporate",
	"법인통장": "corporate",
	"개인":   "personal",
	"공용":   "shared",
}

// enumFunc builds a normalizer over a label table. Matching is done on the
// width-folded, whitespace-trimmed label.
func enumFunc(table map[string]string) Func {
	return func(v any) (any, error) {
		s, ok := v.(string)
		if !ok {
			return v, nil
		}
		s = foldTrim(s)
		if s == "" {
			return nil, nil
		}
		if canon, ok := table[s]; ok {
			return canon, nil
		}
		return s, nil
	}
}

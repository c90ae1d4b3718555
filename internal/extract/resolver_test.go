package extract

import "testing"

// TestResolveColumns_ExactWins verifies precedence: when the actual header
// list contains both an exact match and a fuzzy last-segment match for the
// same expected column, the exact match wins.
func TestResolveColumns_ExactWins(t *testing.T) {
	t.Parallel()

	actual := []string{"지출 > 금액", "금액"}
	got := ResolveColumns(actual, []string{"금액"})

	if got["금액"] != "금액" {
		t.Fatalf("resolved = %#v, want exact match", got)
	}
}

// TestResolveColumns_LastSegment verifies the unique last-segment tier.
func TestResolveColumns_LastSegment(t *testing.T) {
	t.Parallel()

	actual := []string{"지출 > 금액", "날짜"}
	got := ResolveColumns(actual, []string{"집행 > 금액"})

	if got["집행 > 금액"] != "지출 > 금액" {
		t.Fatalf("resolved = %#v", got)
	}
}

// TestResolveColumns_ParentDisambiguation verifies that multiple last-segment
// candidates are narrowed by second-to-last segment containment.
func TestResolveColumns_ParentDisambiguation(t *testing.T) {
	t.Parallel()

	actual := []string{"수입 내역 > 금액", "지출 내역 > 금액"}
	got := ResolveColumns(actual, []string{"지출 > 금액"})

	if got["지출 > 금액"] != "지출 내역 > 금액" {
		t.Fatalf("resolved = %#v", got)
	}
}

// TestResolveColumns_SubstringContainment verifies the whitespace-collapsed
// containment tier, taking the first hit in original header order.
func TestResolveColumns_SubstringContainment(t *testing.T) {
	t.Parallel()

	actual := []string{"합계  금액 (원)", "비고"}
	got := ResolveColumns(actual, []string{"합계 금액"})

	if got["합계 금액"] != "합계  금액 (원)" {
		t.Fatalf("resolved = %#v", got)
	}
}

// TestResolveColumns_Unresolved verifies an expected header with no match in
// any tier gets no entry: downstream uses the expected string verbatim, a
// silent best-effort fallback rather than an error.
func TestResolveColumns_Unresolved(t *testing.T) {
	t.Parallel()

	got := ResolveColumns([]string{"날짜"}, []string{"거래처명"})
	if _, ok := got["거래처명"]; ok {
		t.Fatalf("expected no entry, got %#v", got)
	}
}

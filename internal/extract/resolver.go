package extract

import "strings"

// hierarchySep joins multi-row header segments in composite headers, both in
// discovery output and in re-parsed sheets.
const hierarchySep = " > "

// ResolveColumns reconciles the composite headers the discovery stage
// recorded against the headers actually present after re-parsing. The two
// can drift: whitespace differences, reordered multi-row concatenation, a
// header row boundary guessed one row off.
//
// The returned map has one entry per expected header that resolved to an
// actual header; an expected header with no entry is used verbatim as the
// row key downstream (silent best-effort fallback, not an error).
//
// Tiers, first match wins:
//  1. exact match
//  2. unique last-segment match
//  3. multiple last-segment matches disambiguated by the second-to-last
//     segment (substring containment)
//  4. whitespace-collapsed substring containment, in header order
func ResolveColumns(actualHeaders []string, expected []string) map[string]string {
	resolved := make(map[string]string, len(expected))

	actualSet := make(map[string]bool, len(actualHeaders))
	for _, h := range actualHeaders {
		actualSet[h] = true
	}

	for _, exp := range expected {
		if actualSet[exp] {
			resolved[exp] = exp
			continue
		}

		expSegs := strings.Split(exp, hierarchySep)
		expLast := lastSegment(exp)

		var candidates []string
		for _, h := range actualHeaders {
			if lastSegment(h) == expLast {
				candidates = append(candidates, h)
			}
		}
		if len(candidates) == 1 {
			resolved[exp] = candidates[0]
			continue
		}
		if len(candidates) > 1 && len(expSegs) >= 2 {
			expParent := expSegs[len(expSegs)-2]
			for _, h := range candidates {
				segs := strings.Split(h, hierarchySep)
				if len(segs) >= 2 && strings.Contains(segs[len(segs)-2], expParent) {
					resolved[exp] = h
					break
				}
			}
			if _, ok := resolved[exp]; ok {
				continue
			}
		}

		expFlat := collapseSpace(exp)
		for _, h := range actualHeaders {
			hFlat := collapseSpace(h)
			if strings.Contains(hFlat, expFlat) || strings.Contains(expFlat, hFlat) {
				resolved[exp] = h
				break
			}
		}
	}
	return resolved
}

func lastSegment(h string) string {
	segs := strings.Split(h, hierarchySep)
	return segs[len(segs)-1]
}

// collapseSpace removes all whitespace, the loosest comparison form used by
// the final resolution tier.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), "")
}

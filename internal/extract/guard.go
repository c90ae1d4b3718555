package extract

import "strings"

// AdmitRecord applies collection-specific admission rules to an assembled
// record (before provenance is attached). Collections without rules always
// admit.
//
// The rules exist to drop spreadsheet summary and subtotal rows: those carry
// numeric totals but no row-level identity, and would otherwise pollute the
// target collections.
func AdmitRecord(rec Record, collection string) bool {
	switch collection {
	case "transactions":
		return admitTransaction(rec)
	case "projects":
		return admitProject(rec)
	default:
		return true
	}
}

// admitTransaction requires a time anchor (dateTime or weekCode), a payment
// method, and at least one amount.
func admitTransaction(rec Record) bool {
	if !present(rec.at("dateTime")) && !present(rec.at("weekCode")) {
		return false
	}
	if !present(rec.at("method")) {
		return false
	}
	for _, p := range []string{
		"amounts.expenseAmount",
		"amounts.depositAmount",
		"amounts.bankAmount",
		"amounts.balanceAfter",
	} {
		if rec.at(p) != nil {
			return true
		}
	}
	return false
}

// admitProject requires at least one identity-bearing field.
func admitProject(rec Record) bool {
	for _, p := range []string{
		"name",
		"clientOrg",
		"budgetCategory",
		"budgetSubCategory",
		"budgetDetail",
		"expenseCategory",
	} {
		if present(rec.at(p)) {
			return true
		}
	}
	return false
}

// at reads a dot-path out of the record, nil when any segment is missing.
func (r Record) at(path string) any {
	var node any = map[string]any(r)
	for _, seg := range strings.Split(path, ".") {
		m, ok := node.(map[string]any)
		if !ok {
			return nil
		}
		node = m[seg]
	}
	return node
}

// present reports whether v carries a usable value: non-nil, and for strings
// not blank after trimming.
func present(v any) bool {
	if v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) != ""
	}
	return true
}

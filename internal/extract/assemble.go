package extract

import (
	"fmt"
	"strings"

	"sheetetl/internal/normalize"
	"sheetetl/internal/schema"
)

// AssembleRecord applies a sheet's column mappings to one parsed row and
// builds the nested record. Provenance is attached by the caller.
//
// Per mapping: unmapped or low-confidence mappings are skipped entirely; the
// row key is the resolved actual header, falling back to the mapping's own
// header when unresolved; the named transform (if registered) runs on the
// raw value; the result lands at the mapping's dot-path, with intermediate
// objects created along the way.
//
// Assembly is fault-tolerant per row, not per field: the first transform
// error aborts this record and surfaces to the caller.
func AssembleRecord(row map[string]any, mappings []schema.ColumnMapping, resolved map[string]string) (Record, error) {
	rec := make(Record)

	for _, cm := range mappings {
		if cm.TargetField == schema.UnmappedField || cm.Confidence < schema.MinConfidence {
			continue
		}

		key := cm.ExcelColumn
		if actual, ok := resolved[cm.ExcelColumn]; ok {
			key = actual
		}
		value := row[key]

		if cm.Transform != "" {
			v, err := normalize.Apply(cm.Transform, value)
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", cm.ExcelColumn, err)
			}
			value = v
		}

		setPath(rec, cm.TargetField, value)
	}
	return rec, nil
}

// setPath assigns value at the dot-path in rec, creating intermediate plain
// maps for every segment except the last. An existing non-map intermediate
// is overwritten; last mapping wins, mirroring how the discovery stage
// orders its output.
func setPath(rec Record, path string, value any) {
	segs := strings.Split(path, ".")
	node := map[string]any(rec)
	for _, seg := range segs[:len(segs)-1] {
		child, ok := node[seg].(map[string]any)
		if !ok {
			child = make(map[string]any)
			node[seg] = child
		}
		node = child
	}
	node[segs[len(segs)-1]] = value
}

// allNull reports whether every non-provenance field of rec is nil,
// descending into nested objects. Rows that assemble to nothing are dropped
// silently, not errored.
func allNull(rec Record) bool {
	for k, v := range rec {
		if k == SourceKey {
			continue
		}
		if !valueIsNull(v) {
			return false
		}
	}
	return true
}

func valueIsNull(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case map[string]any:
		for _, child := range t {
			if !valueIsNull(child) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

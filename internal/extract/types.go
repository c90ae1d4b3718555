// Package extract turns parsed spreadsheet rows into typed, provenance-tagged
// records, driven by the column mappings the discovery stage produced.
package extract

// Source is the provenance every emitted record carries: the sheet it came
// from and its 1-based row number.
type Source struct {
	Sheet string `json:"sheet"`
	Row   int    `json:"row"`
}

// SourceKey is the record key the provenance is stored under.
const SourceKey = "_source"

// Record is one extracted record: an open-ended nested object plus the
// mandatory provenance under SourceKey. Built fresh per row, never mutated
// after assembly.
type Record map[string]any

// Stats summarizes one sheet's extraction.
//
// Extracted always equals len(Result.Records). Errored counts only rows
// whose assembly failed, not rows dropped by null-filtering or guardrails.
type Stats struct {
	Total     int `json:"total"`
	Extracted int `json:"extracted"`
	Errored   int `json:"errored"`
}

// Result is the outcome for one sheet mapping, success or not. Failed sheets
// carry their error message and zero records; the run as a whole never
// aborts.
type Result struct {
	SheetName        string   `json:"sheetName"`
	TargetCollection string   `json:"targetCollection"`
	Records          []Record `json:"records"`
	Errors           []string `json:"errors"`
	Stats            Stats    `json:"stats"`
}

package schema

// UnmappedField is the sentinel the discovery stage writes for columns it
// could not map to any target field. Mappings carrying it are skipped.
const UnmappedField = "unmapped"

// MinConfidence is the minimum discovery confidence required for a column
// mapping to be applied during extraction.
const MinConfidence = 0.3

// ColumnMapping represents one column-to-field rule produced by the
// schema-discovery stage.
type ColumnMapping struct {
	// ExcelColumn is the composite header the discovery stage saw. For
	// multi-row headers the segments are joined with " > ".
	ExcelColumn string `json:"excelColumn"`

	// TargetField is a dot-path into the output record ("amounts.bankAmount"),
	// or UnmappedField when discovery gave up on this column. The discovery
	// stage writes it under the key "firestoreField"; kept on the wire for
	// compatibility with existing mapping documents.
	TargetField string `json:"firestoreField"`

	// Confidence is the discovery stage's score for this mapping, in [0,1].
	Confidence float64 `json:"confidence"`

	// Transform optionally names a registered normalizer to apply to the raw
	// cell value. An unregistered name is a pass-through, not an error.
	Transform string `json:"transform,omitempty"`
}

// SheetMapping binds one physical sheet to a target collection.
type SheetMapping struct {
	SheetName        string          `json:"sheetName"`
	TargetCollection string          `json:"targetCollection"`
	Skipped          bool            `json:"skipped,omitempty"`
	ColumnMappings   []ColumnMapping `json:"columnMappings"`
}

// SchemaFile describes the discovery stage's output document.
type SchemaFile struct {
	SheetMappings []SheetMapping `json:"sheetMappings"`
}

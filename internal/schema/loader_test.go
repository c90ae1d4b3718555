package schema

import (
	"os"
	"path/filepath"
	"testing"
)

// TestLoadSchemaFile_HappyPath verifies we can parse a discovery document and
// that camelCase json keys land in the right fields.
func TestLoadSchemaFile_HappyPath(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	p := filepath.Join(tmp, "schema.json")

	doc := `{"sheetMappings":[{"sheetName":"거래내역","targetCollection":"transactions",
		"columnMappings":[{"excelColumn":"날짜","firestoreField":"dateTime","confidence":0.95,"transform":"normalizeDate"}]}]}`
	if err := os.WriteFile(p, []byte(doc), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	sf, err := LoadSchemaFile(p)
	if err != nil {
		t.Fatalf("LoadSchemaFile: %v", err)
	}
	if len(sf.SheetMappings) != 1 {
		t.Fatalf("expected 1 sheet mapping, got %d", len(sf.SheetMappings))
	}
	cm := sf.SheetMappings[0].ColumnMappings[0]
	if cm.TargetField != "dateTime" || cm.Transform != "normalizeDate" {
		t.Fatalf("unexpected column mapping: %#v", cm)
	}
}

// TestLoadSchemaFile_NoSheets verifies we reject documents with zero sheet
// mappings. This protects downstream code from silent "no-op" extractions.
func TestLoadSchemaFile_NoSheets(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	p := filepath.Join(tmp, "schema.json")

	if err := os.WriteFile(p, []byte(`{"sheetMappings":[]}`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := LoadSchemaFile(p); err == nil {
		t.Fatalf("expected error, got nil")
	}
}

// TestLoadSchemaFile_BadConfidence verifies the [0,1] confidence guard.
func TestLoadSchemaFile_BadConfidence(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	p := filepath.Join(tmp, "schema.json")

	doc := `{"sheetMappings":[{"sheetName":"s","targetCollection":"projects",
		"columnMappings":[{"excelColumn":"A","firestoreField":"name","confidence":1.5}]}]}`
	if err := os.WriteFile(p, []byte(doc), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := LoadSchemaFile(p); err == nil {
		t.Fatalf("expected error, got nil")
	}
}

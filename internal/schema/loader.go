package schema

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadSchemaFile loads and validates a JSON schema-discovery document.
func LoadSchemaFile(path string) (*SchemaFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file: %w", err)
	}

	var sf SchemaFile
	if err := json.Unmarshal(b, &sf); err != nil {
		return nil, fmt.Errorf("parse schema json: %w", err)
	}

	if len(sf.SheetMappings) == 0 {
		return nil, fmt.Errorf("schema file has no sheet mappings")
	}
	for _, sm := range sf.SheetMappings {
		if sm.SheetName == "" {
			return nil, fmt.Errorf("sheet mapping with empty sheetName")
		}
		for _, cm := range sm.ColumnMappings {
			if cm.Confidence < 0 || cm.Confidence > 1 {
				return nil, fmt.Errorf("sheet %q column %q: confidence %v out of [0,1]",
					sm.SheetName, cm.ExcelColumn, cm.Confidence)
			}
		}
	}
	return &sf, nil
}

// Package mapping converts flat sheet rows into nested API-shaped records.
//
// A record kind declares its layout as an ordered list of ColumnMapping
// entries binding one source column to one dot-delimited target path. The
// mapper applies those entries to each row, building nested structure as it
// goes and collecting a Diagnostic for every required column that is
// missing or empty. A row with diagnostics still produces its partial
// record; whether that blocks submission is the orchestrator's decision.
package mapping

import (
	"fmt"
	"strings"
)

// Transform normalizes a raw cell value before it is written to a record.
type Transform func(value string) any

// ColumnMapping binds one source column to one nested target field.
type ColumnMapping struct {
	Column    string    // Source column header, case- and spelling-exact
	Path      string    // Dot-delimited target path, e.g. "trainee.idType.code"
	Required  bool      // Missing/empty value yields a Diagnostic
	Transform Transform // Optional normalization, applied to present values only
}

// Record is a nested mapped record: objects and scalars only, no cycles.
type Record map[string]any

// Diagnostic describes one mapping or validation failure.
// Row is the 1-indexed display row (header row accounted for) when the
// diagnostic originates from a sheet; zero for programmatically built
// records.
type Diagnostic struct {
	Row     int    `json:"row,omitempty"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Verdict is the outcome of validating one record.
type Verdict struct {
	Valid  bool         `json:"valid"`
	Errors []Diagnostic `json:"errors"`
}

// MapSheet maps every row of a sheet through the given mappings.
// Records are returned in row order, one per input row. Display row
// numbers in diagnostics are the row index plus two: one for the header
// row and one for 1-based spreadsheet numbering.
func MapSheet(rows []RawRow, mappings []ColumnMapping) ([]Record, []Diagnostic) {
	records := make([]Record, 0, len(rows))
	var diags []Diagnostic

	for i, row := range rows {
		rec, rowDiags := mapRow(row, mappings, i+2)
		records = append(records, rec)
		diags = append(diags, rowDiags...)
	}

	return records, diags
}

// RawRow mirrors the decoder's row shape: column header to cell value.
type RawRow map[string]string

// MapRow maps a single row without sheet positioning; diagnostics carry
// no row number.
func MapRow(row RawRow, mappings []ColumnMapping) (Record, []Diagnostic) {
	return mapRow(row, mappings, 0)
}

func mapRow(row RawRow, mappings []ColumnMapping, displayRow int) (Record, []Diagnostic) {
	rec := Record{}
	var diags []Diagnostic

	for _, m := range mappings {
		raw := strings.TrimSpace(row[m.Column])

		if raw == "" {
			if m.Required {
				diags = append(diags, Diagnostic{
					Row:     displayRow,
					Field:   m.Column,
					Message: fmt.Sprintf("Required field %q is missing", m.Column),
				})
			}
			// Optional absent fields are omitted entirely, not set to "".
			continue
		}

		var value any = raw
		if m.Transform != nil {
			value = m.Transform(raw)
		}
		setPath(rec, m.Path, value)
	}

	return rec, diags
}

// setPath writes value at a dot-delimited path, creating intermediate
// objects as needed. Containers are only ever created here, so a nested
// object appears in a record exactly when one of its fields was populated.
func setPath(rec Record, path string, value any) {
	keys := strings.Split(path, ".")
	current := rec

	for _, key := range keys[:len(keys)-1] {
		next, ok := current[key].(Record)
		if !ok {
			next = Record{}
			current[key] = next
		}
		current = next
	}

	current[keys[len(keys)-1]] = value
}

// CheckMappings verifies that a mapping set is internally consistent:
// no blank columns or paths, no duplicate target paths, and no path that
// addresses through another mapping's scalar slot. Mapping sets are fixed
// configuration, so a failure here is a defect caught at registration
// time, never during row processing.
func CheckMappings(mappings []ColumnMapping) error {
	paths := make(map[string]string, len(mappings))

	for _, m := range mappings {
		if m.Column == "" {
			return fmt.Errorf("mapping for path %q has no source column", m.Path)
		}
		if m.Path == "" {
			return fmt.Errorf("mapping for column %q has no target path", m.Column)
		}
		if prev, dup := paths[m.Path]; dup {
			return fmt.Errorf("target path %q bound to both %q and %q", m.Path, prev, m.Column)
		}
		paths[m.Path] = m.Column
	}

	for path := range paths {
		for prefix := range paths {
			if strings.HasPrefix(path, prefix+".") {
				return fmt.Errorf("target path %q collides with scalar path %q", path, prefix)
			}
		}
	}

	return nil
}

// GetPath reads the value at a dot-delimited path.
func GetPath(rec Record, path string) (any, bool) {
	keys := strings.Split(path, ".")
	var current any = rec

	for _, key := range keys {
		obj, ok := current.(Record)
		if !ok {
			return nil, false
		}
		current, ok = obj[key]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

// GetString reads the value at path as a string; returns "" when the path
// is absent or holds a non-string value.
func GetString(rec Record, path string) string {
	v, ok := GetPath(rec, path)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

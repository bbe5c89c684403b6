package mapping

import (
	"reflect"
	"testing"
)

var testMappings = []ColumnMapping{
	{Column: "Reference", Path: "referenceNumber", Required: true},
	{Column: "Trainee Name", Path: "trainee.fullName", Required: true},
	{Column: "Trainee Email", Path: "trainee.emailAddress", Required: false},
	{Column: "Venue Room", Path: "venue.room", Required: false},
	{Column: "Intake", Path: "intakeSize", Required: false, Transform: func(v string) any { return len(v) }},
}

// ----------------------------------------------------------------------------
// MapRow Tests
// ----------------------------------------------------------------------------

func TestMapRow_NestedStructure(t *testing.T) {
	row := RawRow{
		"Reference":     "TGS-001",
		"Trainee Name":  "Tan Ah Kow",
		"Trainee Email": "tan@example.com",
	}

	rec, diags := MapRow(row, testMappings)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}

	want := Record{
		"referenceNumber": "TGS-001",
		"trainee": Record{
			"fullName":     "Tan Ah Kow",
			"emailAddress": "tan@example.com",
		},
	}
	if !reflect.DeepEqual(rec, want) {
		t.Errorf("record = %v, want %v", rec, want)
	}
}

func TestMapRow_OptionalAbsentFieldsOmitted(t *testing.T) {
	row := RawRow{
		"Reference":    "TGS-001",
		"Trainee Name": "Tan Ah Kow",
	}

	rec, diags := MapRow(row, testMappings)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}

	if _, ok := rec["venue"]; ok {
		t.Error("venue container should be absent when no venue field is populated")
	}
	trainee := rec["trainee"].(Record)
	if _, ok := trainee["emailAddress"]; ok {
		t.Error("optional absent field should be omitted, not empty")
	}
}

func TestMapRow_RequiredMissing(t *testing.T) {
	row := RawRow{
		"Trainee Name": "Tan Ah Kow",
	}

	rec, diags := MapRow(row, testMappings)
	if len(diags) != 1 {
		t.Fatalf("diagnostics = %v, want exactly one", diags)
	}

	d := diags[0]
	if d.Field != "Reference" {
		t.Errorf("Field = %q, want %q", d.Field, "Reference")
	}
	if d.Message != `Required field "Reference" is missing` {
		t.Errorf("Message = %q", d.Message)
	}
	if d.Row != 0 {
		t.Errorf("Row = %d, want 0 for MapRow", d.Row)
	}

	// Rest of the row is still mapped
	if got := GetString(rec, "trainee.fullName"); got != "Tan Ah Kow" {
		t.Errorf("trainee.fullName = %q", got)
	}
}

func TestMapRow_WhitespaceOnlyIsMissing(t *testing.T) {
	row := RawRow{
		"Reference":    "   ",
		"Trainee Name": "Tan Ah Kow",
	}

	_, diags := MapRow(row, testMappings)
	if len(diags) != 1 || diags[0].Field != "Reference" {
		t.Errorf("diagnostics = %v, want one for Reference", diags)
	}
}

func TestMapRow_TransformApplied(t *testing.T) {
	row := RawRow{
		"Reference":    "TGS-001",
		"Trainee Name": "Tan Ah Kow",
		"Intake":       "abcd",
	}

	rec, _ := MapRow(row, testMappings)
	v, ok := GetPath(rec, "intakeSize")
	if !ok || v != 4 {
		t.Errorf("intakeSize = %v, want transform output 4", v)
	}
}

func TestMapRow_Deterministic(t *testing.T) {
	row := RawRow{
		"Reference":     "TGS-001",
		"Trainee Name":  "Tan Ah Kow",
		"Trainee Email": "tan@example.com",
	}

	first, _ := MapRow(row, testMappings)
	for i := 0; i < 10; i++ {
		rec, _ := MapRow(row, testMappings)
		if !reflect.DeepEqual(rec, first) {
			t.Fatal("mapping the same row twice produced different records")
		}
	}
}

// ----------------------------------------------------------------------------
// MapSheet Tests
// ----------------------------------------------------------------------------

func TestMapSheet_DisplayRowNumbers(t *testing.T) {
	rows := []RawRow{
		{"Reference": "TGS-001", "Trainee Name": "A"},
		{"Trainee Name": "B"}, // missing Reference
		{"Reference": "TGS-003"}, // missing Trainee Name
	}

	records, diags := MapSheet(rows, testMappings)
	if len(records) != 3 {
		t.Fatalf("records = %d, want one per input row", len(records))
	}
	if len(diags) != 2 {
		t.Fatalf("diagnostics = %v, want 2", diags)
	}

	// Row 0 of the data is display row 2: one for the header, one for
	// 1-based numbering.
	if diags[0].Row != 3 || diags[0].Field != "Reference" {
		t.Errorf("first diagnostic = %+v, want Reference at row 3", diags[0])
	}
	if diags[1].Row != 4 || diags[1].Field != "Trainee Name" {
		t.Errorf("second diagnostic = %+v, want Trainee Name at row 4", diags[1])
	}
}

func TestMapSheet_Empty(t *testing.T) {
	records, diags := MapSheet(nil, testMappings)
	if len(records) != 0 || len(diags) != 0 {
		t.Errorf("empty sheet: records=%d diags=%d, want 0/0", len(records), len(diags))
	}
}

// ----------------------------------------------------------------------------
// CheckMappings Tests
// ----------------------------------------------------------------------------

func TestCheckMappings(t *testing.T) {
	tests := []struct {
		name     string
		mappings []ColumnMapping
		wantErr  bool
	}{
		{
			name:     "valid set",
			mappings: testMappings,
			wantErr:  false,
		},
		{
			name: "blank column",
			mappings: []ColumnMapping{
				{Column: "", Path: "a"},
			},
			wantErr: true,
		},
		{
			name: "blank path",
			mappings: []ColumnMapping{
				{Column: "A", Path: ""},
			},
			wantErr: true,
		},
		{
			name: "duplicate path",
			mappings: []ColumnMapping{
				{Column: "A", Path: "x.y"},
				{Column: "B", Path: "x.y"},
			},
			wantErr: true,
		},
		{
			name: "path through scalar slot",
			mappings: []ColumnMapping{
				{Column: "A", Path: "x"},
				{Column: "B", Path: "x.y"},
			},
			wantErr: true,
		},
		{
			name: "shared prefix is fine",
			mappings: []ColumnMapping{
				{Column: "A", Path: "venue.room"},
				{Column: "B", Path: "venue.block"},
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckMappings(tt.mappings)
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckMappings() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// Path Helper Tests
// ----------------------------------------------------------------------------

func TestGetPath(t *testing.T) {
	rec := Record{
		"a": Record{"b": Record{"c": "deep"}},
		"s": "shallow",
	}

	if v, ok := GetPath(rec, "a.b.c"); !ok || v != "deep" {
		t.Errorf("GetPath(a.b.c) = %v, %v", v, ok)
	}
	if v, ok := GetPath(rec, "s"); !ok || v != "shallow" {
		t.Errorf("GetPath(s) = %v, %v", v, ok)
	}
	if _, ok := GetPath(rec, "a.missing"); ok {
		t.Error("GetPath(a.missing) should report absent")
	}
	if _, ok := GetPath(rec, "s.through"); ok {
		t.Error("GetPath through a scalar should report absent")
	}
}

func TestGetString(t *testing.T) {
	rec := Record{"n": float64(5), "s": "text"}

	if got := GetString(rec, "s"); got != "text" {
		t.Errorf("GetString(s) = %q", got)
	}
	if got := GetString(rec, "n"); got != "" {
		t.Errorf("GetString on non-string = %q, want empty", got)
	}
	if got := GetString(rec, "missing"); got != "" {
		t.Errorf("GetString on absent = %q, want empty", got)
	}
}

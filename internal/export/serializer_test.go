package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func flatRecordFrom(pairs ...any) *FlatRecord {
	r := NewFlatRecord()
	for i := 0; i < len(pairs); i += 2 {
		r.Set(pairs[i].(string), pairs[i+1])
	}
	return r
}

func TestParseFormat(t *testing.T) {
	for _, valid := range []string{"json", "csv", "xml"} {
		if _, err := ParseFormat(valid); err != nil {
			t.Errorf("ParseFormat(%q) failed: %v", valid, err)
		}
	}

	_, err := ParseFormat("yaml")
	if err == nil {
		t.Fatal("expected error for yaml format")
	}
	var unsupported ErrUnsupportedFormat
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected ErrUnsupportedFormat, got %T", err)
	}
	if unsupported.Format != "yaml" {
		t.Errorf("expected format 'yaml' in error, got %s", unsupported.Format)
	}
}

func TestRender_UnsupportedFormat(t *testing.T) {
	batch := Batch{flatRecordFrom("id", int64(1))}

	out, err := Render(batch, Format("yaml"))
	if err == nil {
		t.Fatal("expected error for unsupported format")
	}
	if out != nil {
		t.Error("no partial output may be produced for an unsupported format")
	}
}

func TestRenderJSON_RoundTrip(t *testing.T) {
	batch := Batch{
		flatRecordFrom("id", int64(1), "email", "alice@example.com", "created_at", "2024-03-01 10:00:00", "roles", []string{"1", "2"}),
		flatRecordFrom("id", int64(2), "email", "bob@example.com", "created_at", nil),
	}

	out, err := Render(batch, FormatJSON)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	var parsed []map[string]any
	if err := json.Unmarshal(out, &parsed); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(parsed) != 2 {
		t.Fatalf("expected 2 records, got %d", len(parsed))
	}

	// Numbers come back as float64, lists as []any
	if parsed[0]["id"] != float64(1) {
		t.Errorf("expected id 1, got %v", parsed[0]["id"])
	}
	if parsed[0]["email"] != "alice@example.com" {
		t.Errorf("unexpected email: %v", parsed[0]["email"])
	}
	if !reflect.DeepEqual(parsed[0]["roles"], []any{"1", "2"}) {
		t.Errorf("unexpected roles: %v", parsed[0]["roles"])
	}
	if parsed[1]["created_at"] != nil {
		t.Errorf("null must round-trip as null, got %v", parsed[1]["created_at"])
	}
}

func TestRenderJSON_PreservesKeyOrder(t *testing.T) {
	batch := Batch{flatRecordFrom("zeta", int64(1), "alpha", int64(2), "mid", int64(3))}

	out, err := Render(batch, FormatJSON)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	text := string(out)
	zeta := strings.Index(text, `"zeta"`)
	alpha := strings.Index(text, `"alpha"`)
	mid := strings.Index(text, `"mid"`)
	if zeta < 0 || alpha < 0 || mid < 0 {
		t.Fatalf("missing keys in output: %s", text)
	}
	if !(zeta < alpha && alpha < mid) {
		t.Errorf("key order not preserved: %s", text)
	}
}

func TestRenderJSON_EmptyBatch(t *testing.T) {
	out, err := Render(Batch{}, FormatJSON)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if string(out) != "[]" {
		t.Errorf("expected empty array, got %s", out)
	}
}

func TestRenderCSV_HeterogeneousKeysPadded(t *testing.T) {
	batch := Batch{
		flatRecordFrom("id", int64(1), "email", "alice@example.com"),
		flatRecordFrom("id", int64(2), "phone", "555-0100"),
	}

	out, err := Render(batch, FormatCSV)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	rows, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}

	expected := [][]string{
		{"id", "email", "phone"},
		{"1", "alice@example.com", ""},
		{"2", "", "555-0100"},
	}
	if !reflect.DeepEqual(rows, expected) {
		t.Errorf("expected rows %v, got %v", expected, rows)
	}
}

func TestRenderCSV_IdentifierListJoin(t *testing.T) {
	batch := Batch{
		flatRecordFrom("id", int64(1), "roles", []string{"admin", "semi;colon", `back\slash`}),
	}

	out, err := Render(batch, FormatCSV)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	rows, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	// The delimiter inside a member is escaped so the join stays reversible
	if rows[1][1] != `admin;semi\;colon;back\\slash` {
		t.Errorf("unexpected joined cell: %q", rows[1][1])
	}
}

func TestRenderCSV_EmptyBatch(t *testing.T) {
	out, err := Render(Batch{}, FormatCSV)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("expected empty document, got %q", out)
	}
}

func TestRenderXML(t *testing.T) {
	batch := Batch{
		flatRecordFrom("id", int64(1), "email", "alice@example.com", "roles", []string{"1", "2"}),
	}

	out, err := Render(batch, FormatXML)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	text := string(out)
	if !strings.HasPrefix(text, `<?xml version="1.0" encoding="UTF-8"?>`) {
		t.Errorf("missing XML header: %s", text)
	}
	for _, want := range []string{
		"<records>",
		"<record>",
		"<id>1</id>",
		"<email>alice@example.com</email>",
		"<roles>1</roles>",
		"<roles>2</roles>",
		"</record>",
		"</records>",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in output:\n%s", want, text)
		}
	}
}

func TestRenderXML_EscapesContent(t *testing.T) {
	batch := Batch{flatRecordFrom("id", int64(1), "note", "a < b & c")}

	out, err := Render(batch, FormatXML)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(string(out), "a &lt; b &amp; c") {
		t.Errorf("special characters must be escaped:\n%s", out)
	}
}

func TestRenderXML_EmptyBatch(t *testing.T) {
	out, err := Render(Batch{}, FormatXML)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	text := string(out)
	if !strings.Contains(text, "<records></records>") {
		t.Errorf("expected empty root element, got %s", text)
	}
}

func TestFormatHelpers(t *testing.T) {
	if FormatCSV.Extension() != "csv" {
		t.Errorf("unexpected extension: %s", FormatCSV.Extension())
	}
	if FormatJSON.MIMEType() != "application/json" {
		t.Errorf("unexpected MIME type: %s", FormatJSON.MIMEType())
	}
}

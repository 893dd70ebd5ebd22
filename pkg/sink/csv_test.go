package sink

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func testRow(key, id string) Row {
	return Row{
		Key:       key,
		ID:        id,
		Summary:   "Test issue " + key,
		Status:    "Done",
		IssueType: "Bug",
		Priority:  "High",
		Reporter:  "Alice Smith",
		Assignee:  "Bob Jones",
		Created:   time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC),
		Updated:   time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC),
		Labels:    []string{"backend", "urgent"},
		URL:       "https://example.atlassian.net/browse/" + key,
	}
}

func readAll(t *testing.T, path string) [][]string {
	t.Helper()

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open output: %v", err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("Failed to read CSV: %v", err)
	}
	return records
}

func TestCSVWritesHeaderAndRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "issues.csv")

	out, err := NewCSV(path)
	if err != nil {
		t.Fatalf("Failed to create sink: %v", err)
	}

	if err := out.Append([]Row{testRow("PROJ-1", "10001")}); err != nil {
		t.Fatalf("Failed to append: %v", err)
	}
	if err := out.Close(); err != nil {
		t.Fatalf("Failed to close: %v", err)
	}

	records := readAll(t, path)
	if len(records) != 2 {
		t.Fatalf("Expected header + 1 row, got %d records", len(records))
	}
	if !reflect.DeepEqual(records[0], Header) {
		t.Errorf("Unexpected header: %v", records[0])
	}

	row := records[1]
	if row[0] != "PROJ-1" || row[1] != "10001" {
		t.Errorf("Unexpected key/id: %v", row[:2])
	}
	if row[8] != "2024-03-14T09:00:00Z" || row[9] != "2024-03-15T10:30:00Z" {
		t.Errorf("Unexpected timestamps: %v", row[8:10])
	}
	if row[10] != "backend|urgent" {
		t.Errorf("Expected joined labels, got %q", row[10])
	}
	if row[11] != "https://example.atlassian.net/browse/PROJ-1" {
		t.Errorf("Unexpected URL: %q", row[11])
	}
}

func TestCSVHeaderOnceAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "issues.csv")

	// First session
	out, err := NewCSV(path)
	if err != nil {
		t.Fatalf("Failed to create sink: %v", err)
	}
	if err := out.Append([]Row{testRow("PROJ-1", "10001")}); err != nil {
		t.Fatalf("Failed to append: %v", err)
	}
	if err := out.Close(); err != nil {
		t.Fatalf("Failed to close: %v", err)
	}

	// Second session appends without repeating the header
	out, err = NewCSV(path)
	if err != nil {
		t.Fatalf("Failed to reopen sink: %v", err)
	}
	if err := out.Append([]Row{testRow("PROJ-2", "10002")}); err != nil {
		t.Fatalf("Failed to append after reopen: %v", err)
	}
	if err := out.Close(); err != nil {
		t.Fatalf("Failed to close: %v", err)
	}

	records := readAll(t, path)
	if len(records) != 3 {
		t.Fatalf("Expected header + 2 rows, got %d records", len(records))
	}

	headerCount := 0
	for _, record := range records {
		if reflect.DeepEqual(record, Header) {
			headerCount++
		}
	}
	if headerCount != 1 {
		t.Errorf("Expected exactly 1 header, got %d", headerCount)
	}
	if records[1][0] != "PROJ-1" || records[2][0] != "PROJ-2" {
		t.Errorf("Rows out of order or missing: %v", records[1:])
	}
}

func TestCSVAppendOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "issues.csv")

	out, err := NewCSV(path)
	if err != nil {
		t.Fatalf("Failed to create sink: %v", err)
	}
	if err := out.Append([]Row{testRow("PROJ-1", "10001")}); err != nil {
		t.Fatalf("Failed to append: %v", err)
	}
	if err := out.Close(); err != nil {
		t.Fatalf("Failed to close: %v", err)
	}

	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}

	out, err = NewCSV(path)
	if err != nil {
		t.Fatalf("Failed to reopen sink: %v", err)
	}
	if err := out.Append([]Row{testRow("PROJ-2", "10002")}); err != nil {
		t.Fatalf("Failed to append: %v", err)
	}
	if err := out.Close(); err != nil {
		t.Fatalf("Failed to close: %v", err)
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}

	// Existing bytes are never rewritten
	if string(after[:len(before)]) != string(before) {
		t.Error("Reopening and appending modified existing content")
	}
}

func TestCSVFlushMakesRowsVisible(t *testing.T) {
	path := filepath.Join(t.TempDir(), "issues.csv")

	out, err := NewCSV(path)
	if err != nil {
		t.Fatalf("Failed to create sink: %v", err)
	}
	defer out.Close()

	if err := out.Append([]Row{testRow("PROJ-1", "10001")}); err != nil {
		t.Fatalf("Failed to append: %v", err)
	}
	if err := out.Flush(); err != nil {
		t.Fatalf("Failed to flush: %v", err)
	}

	// Rows must be on disk after Flush, before Close
	records := readAll(t, path)
	if len(records) != 2 {
		t.Errorf("Expected header + 1 row after flush, got %d records", len(records))
	}
}

func TestCSVEmptyOptionalColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "issues.csv")

	out, err := NewCSV(path)
	if err != nil {
		t.Fatalf("Failed to create sink: %v", err)
	}

	row := Row{Key: "PROJ-1", ID: "10001", Summary: "Bare minimum"}
	if err := out.Append([]Row{row}); err != nil {
		t.Fatalf("Failed to append: %v", err)
	}
	if err := out.Close(); err != nil {
		t.Fatalf("Failed to close: %v", err)
	}

	records := readAll(t, path)
	got := records[1]
	if len(got) != len(Header) {
		t.Fatalf("Expected %d columns, got %d", len(Header), len(got))
	}
	// Absent fields, zero times and nil labels all serialize empty
	for i := 3; i < len(got); i++ {
		if got[i] != "" {
			t.Errorf("Expected empty %s column, got %q", Header[i], got[i])
		}
	}
}

func TestCSVSummaryWithCommasAndQuotes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "issues.csv")

	out, err := NewCSV(path)
	if err != nil {
		t.Fatalf("Failed to create sink: %v", err)
	}

	summary := `Crash when input contains "quotes", commas, and
newlines`
	row := testRow("PROJ-1", "10001")
	row.Summary = summary

	if err := out.Append([]Row{row}); err != nil {
		t.Fatalf("Failed to append: %v", err)
	}
	if err := out.Close(); err != nil {
		t.Fatalf("Failed to close: %v", err)
	}

	records := readAll(t, path)
	if records[1][2] != summary {
		t.Errorf("Summary not round-tripped: %q", records[1][2])
	}
}

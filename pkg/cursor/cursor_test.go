package cursor

import (
	"encoding/json"
	"testing"
	"time"
)

func TestCursorMarshalJSON(t *testing.T) {
	t.Run("ZeroValue", func(t *testing.T) {
		cur := &Cursor{}
		data, err := json.Marshal(cur)
		if err != nil {
			t.Fatalf("Failed to marshal: %v", err)
		}

		expected := `{"last_updated":"","last_issue_id":"","next_page_token":null,"done":false}`
		if string(data) != expected {
			t.Errorf("Expected %s, got %s", expected, string(data))
		}
	})

	t.Run("PopulatedCursor", func(t *testing.T) {
		cur := &Cursor{
			LastUpdated:   time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC),
			LastIssueID:   "PROJ-42",
			NextPageToken: "tok2",
		}
		data, err := json.Marshal(cur)
		if err != nil {
			t.Fatalf("Failed to marshal: %v", err)
		}

		expected := `{"last_updated":"2024-03-15T10:30:00Z","last_issue_id":"PROJ-42","next_page_token":"tok2","done":false}`
		if string(data) != expected {
			t.Errorf("Expected %s, got %s", expected, string(data))
		}
	})

	t.Run("FractionalSecondsPreserved", func(t *testing.T) {
		cur := &Cursor{
			LastUpdated: time.Date(2024, 3, 15, 10, 0, 30, 500_000_000, time.UTC),
			LastIssueID: "PROJ-1",
		}
		data, err := json.Marshal(cur)
		if err != nil {
			t.Fatalf("Failed to marshal: %v", err)
		}

		var wire struct {
			LastUpdated string `json:"last_updated"`
		}
		if err := json.Unmarshal(data, &wire); err != nil {
			t.Fatalf("Failed to parse wire format: %v", err)
		}
		if wire.LastUpdated != "2024-03-15T10:00:30.5Z" {
			t.Errorf("Expected fractional seconds on the wire, got %s", wire.LastUpdated)
		}
	})

	t.Run("EmptyTokenIsNull", func(t *testing.T) {
		cur := &Cursor{
			LastUpdated: time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC),
			LastIssueID: "PROJ-42",
			Done:        true,
		}
		data, err := json.Marshal(cur)
		if err != nil {
			t.Fatalf("Failed to marshal: %v", err)
		}

		var wire map[string]interface{}
		if err := json.Unmarshal(data, &wire); err != nil {
			t.Fatalf("Failed to parse wire format: %v", err)
		}
		if wire["next_page_token"] != nil {
			t.Errorf("Expected null next_page_token, got %v", wire["next_page_token"])
		}
		if wire["done"] != true {
			t.Errorf("Expected done=true, got %v", wire["done"])
		}
	})

	t.Run("NonUTCTimesNormalized", func(t *testing.T) {
		loc := time.FixedZone("UTC+3", 3*3600)
		cur := &Cursor{
			LastUpdated: time.Date(2024, 3, 15, 13, 30, 0, 0, loc),
			LastIssueID: "PROJ-1",
		}
		data, err := json.Marshal(cur)
		if err != nil {
			t.Fatalf("Failed to marshal: %v", err)
		}

		var wire struct {
			LastUpdated string `json:"last_updated"`
		}
		if err := json.Unmarshal(data, &wire); err != nil {
			t.Fatalf("Failed to parse wire format: %v", err)
		}
		if wire.LastUpdated != "2024-03-15T10:30:00Z" {
			t.Errorf("Expected UTC timestamp, got %s", wire.LastUpdated)
		}
	})
}

func TestCursorUnmarshalJSON(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		original := &Cursor{
			LastUpdated:   time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC),
			LastIssueID:   "PROJ-42",
			NextPageToken: "tok2",
			Done:          false,
		}

		data, err := json.Marshal(original)
		if err != nil {
			t.Fatalf("Failed to marshal: %v", err)
		}

		var loaded Cursor
		if err := json.Unmarshal(data, &loaded); err != nil {
			t.Fatalf("Failed to unmarshal: %v", err)
		}

		if !loaded.LastUpdated.Equal(original.LastUpdated) {
			t.Errorf("Expected LastUpdated %v, got %v", original.LastUpdated, loaded.LastUpdated)
		}
		if loaded.LastIssueID != original.LastIssueID {
			t.Errorf("Expected LastIssueID %s, got %s", original.LastIssueID, loaded.LastIssueID)
		}
		if loaded.NextPageToken != original.NextPageToken {
			t.Errorf("Expected NextPageToken %s, got %s", original.NextPageToken, loaded.NextPageToken)
		}
	})

	t.Run("MillisecondRoundTrip", func(t *testing.T) {
		// Records updated within the same second must not be seen as
		// new again after the cursor is reloaded.
		updated := time.Date(2024, 3, 15, 10, 0, 30, 500_000_000, time.UTC)
		original := &Cursor{}
		original.Advance(updated, "PROJ-1")

		data, err := json.Marshal(original)
		if err != nil {
			t.Fatalf("Failed to marshal: %v", err)
		}

		var loaded Cursor
		if err := json.Unmarshal(data, &loaded); err != nil {
			t.Fatalf("Failed to unmarshal: %v", err)
		}

		if !loaded.LastUpdated.Equal(updated) {
			t.Errorf("Expected LastUpdated %v, got %v", updated, loaded.LastUpdated)
		}
		if loaded.Behind(updated, "PROJ-1") {
			t.Error("Reloaded cursor should not be behind the record it was advanced to")
		}
	})

	t.Run("NullToken", func(t *testing.T) {
		var cur Cursor
		data := `{"last_updated":"2024-03-15T10:30:00Z","last_issue_id":"PROJ-42","next_page_token":null,"done":true}`
		if err := json.Unmarshal([]byte(data), &cur); err != nil {
			t.Fatalf("Failed to unmarshal: %v", err)
		}
		if cur.NextPageToken != "" {
			t.Errorf("Expected empty token, got %s", cur.NextPageToken)
		}
		if !cur.Done {
			t.Error("Expected Done to be true")
		}
	})

	t.Run("EmptyTimestamp", func(t *testing.T) {
		var cur Cursor
		data := `{"last_updated":"","last_issue_id":"","next_page_token":null,"done":false}`
		if err := json.Unmarshal([]byte(data), &cur); err != nil {
			t.Fatalf("Failed to unmarshal: %v", err)
		}
		if !cur.LastUpdated.IsZero() {
			t.Errorf("Expected zero LastUpdated, got %v", cur.LastUpdated)
		}
	})

	t.Run("InvalidTimestamp", func(t *testing.T) {
		var cur Cursor
		data := `{"last_updated":"not-a-timestamp","last_issue_id":"PROJ-1"}`
		if err := json.Unmarshal([]byte(data), &cur); err == nil {
			t.Error("Expected error for invalid timestamp")
		}
	})
}

func TestCursorBehind(t *testing.T) {
	boundary := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	cur := &Cursor{
		LastUpdated: boundary,
		LastIssueID: "PROJ-42",
	}

	tests := []struct {
		name    string
		updated time.Time
		key     string
		want    bool
	}{
		{"StrictlyAfter", boundary.Add(time.Minute), "PROJ-1", true},
		{"SameTimeGreaterKey", boundary, "PROJ-43", true},
		{"SameTimeGreaterKeyNumeric", boundary, "PROJ-100", true},
		{"SameTimeSameKey", boundary, "PROJ-42", false},
		{"SameTimeSmallerKey", boundary, "PROJ-41", false},
		{"StrictlyBefore", boundary.Add(-time.Minute), "PROJ-99", false},
		{"BeforeWithGreaterKey", boundary.Add(-time.Second), "ZZZZ-9999", false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := cur.Behind(test.updated, test.key); got != test.want {
				t.Errorf("Behind(%v, %s) = %v, want %v", test.updated, test.key, got, test.want)
			}
		})
	}
}

func TestCursorBehindZeroValue(t *testing.T) {
	// A fresh cursor must be behind every real record
	cur := &Cursor{}
	if !cur.Behind(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), "PROJ-1") {
		t.Error("Zero cursor should be behind all records")
	}
}

func TestCursorAdvance(t *testing.T) {
	cur := &Cursor{}

	first := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	cur.Advance(first, "PROJ-1")

	if !cur.LastUpdated.Equal(first) || cur.LastIssueID != "PROJ-1" {
		t.Errorf("Expected (%v, PROJ-1), got (%v, %s)", first, cur.LastUpdated, cur.LastIssueID)
	}

	second := first.Add(time.Minute)
	cur.Advance(second, "PROJ-2")

	if !cur.LastUpdated.Equal(second) || cur.LastIssueID != "PROJ-2" {
		t.Errorf("Expected (%v, PROJ-2), got (%v, %s)", second, cur.LastUpdated, cur.LastIssueID)
	}
}

func TestCursorCompare(t *testing.T) {
	base := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

	a := &Cursor{LastUpdated: base, LastIssueID: "PROJ-10"}
	b := &Cursor{LastUpdated: base, LastIssueID: "PROJ-9"}
	c := &Cursor{LastUpdated: base.Add(time.Minute), LastIssueID: "PROJ-1"}

	if a.Compare(b) <= 0 {
		t.Error("PROJ-10 should sort after PROJ-9 at the same timestamp")
	}
	if a.Compare(c) >= 0 {
		t.Error("Earlier timestamp should sort before later regardless of key")
	}
	if a.Compare(a.Clone()) != 0 {
		t.Error("Cursor should equal its clone")
	}
}

func TestCursorString(t *testing.T) {
	var nilCur *Cursor
	if nilCur.String() != "null" {
		t.Errorf("Expected null for nil cursor, got %s", nilCur.String())
	}

	cur := &Cursor{
		LastUpdated: time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC),
		LastIssueID: "PROJ-42",
	}
	if cur.String() != "2024-03-15T10:30:00Z_PROJ-42" {
		t.Errorf("Unexpected string form: %s", cur.String())
	}

	empty := &Cursor{}
	if empty.String() != "_" {
		t.Errorf("Unexpected string form for zero cursor: %s", empty.String())
	}
}

func TestCompareKeys(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"PROJ-9", "PROJ-10", -1},
		{"PROJ-10", "PROJ-9", 1},
		{"PROJ-42", "PROJ-42", 0},
		{"PROJ-100", "PROJ-99", 1},
		{"ABC-5", "XYZ-1", -1},  // Different prefixes fall back to string order
		{"10024", "10025", -1},  // Bare numeric IDs
		{"PROJ-1", "", 1},       // Empty key sorts first
		{"alpha", "beta", -1},   // Non-numeric fallback
	}

	for _, test := range tests {
		got := CompareKeys(test.a, test.b)
		if sign(got) != test.want {
			t.Errorf("CompareKeys(%q, %q) = %d, want sign %d", test.a, test.b, got, test.want)
		}
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}

package cursor

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Cursor marks how far the export has progressed through the ordered
// result set. The pair (LastUpdated, LastIssueID) is the composite sort
// key of the last record fully processed; NextPageToken continues the
// current server-side result set; Done is set once the API reports no
// further pages.
type Cursor struct {
	LastUpdated   time.Time
	LastIssueID   string
	NextPageToken string
	Done          bool
}

// cursorJSON is the persisted checkpoint format: last_updated is an
// ISO-8601 string (empty when unset), next_page_token is null when the
// next run should start from the beginning of the filtered result set.
type cursorJSON struct {
	LastUpdated   string  `json:"last_updated"`
	LastIssueID   string  `json:"last_issue_id"`
	NextPageToken *string `json:"next_page_token"`
	Done          bool    `json:"done"`
}

// MarshalJSON implements json.Marshaler for the checkpoint format
func (c *Cursor) MarshalJSON() ([]byte, error) {
	wire := cursorJSON{
		LastIssueID: c.LastIssueID,
		Done:        c.Done,
	}
	if !c.LastUpdated.IsZero() {
		// RFC3339Nano keeps fractional seconds. The API reports updated
		// times at millisecond precision, and rounding them away here
		// would put a reloaded cursor behind records it already covers.
		wire.LastUpdated = c.LastUpdated.UTC().Format(time.RFC3339Nano)
	}
	if c.NextPageToken != "" {
		token := c.NextPageToken
		wire.NextPageToken = &token
	}
	return json.Marshal(wire)
}

// UnmarshalJSON implements json.Unmarshaler for the checkpoint format
func (c *Cursor) UnmarshalJSON(data []byte) error {
	var wire cursorJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	*c = Cursor{
		LastIssueID: wire.LastIssueID,
		Done:        wire.Done,
	}
	if wire.LastUpdated != "" {
		ts, err := time.Parse(time.RFC3339, wire.LastUpdated)
		if err != nil {
			return fmt.Errorf("invalid last_updated timestamp: %w", err)
		}
		c.LastUpdated = ts
	}
	if wire.NextPageToken != nil {
		c.NextPageToken = *wire.NextPageToken
	}
	return nil
}

// Behind reports whether a record with the given sort key sorts
// strictly after the cursor, i.e. has not been processed yet. This is
// the boundary filter: a compound inequality over the composite key,
// not a single timestamp comparison, because multiple records can
// share the same updated value.
func (c *Cursor) Behind(updated time.Time, key string) bool {
	if updated.After(c.LastUpdated) {
		return true
	}
	if updated.Equal(c.LastUpdated) {
		return CompareKeys(key, c.LastIssueID) > 0
	}
	return false
}

// Advance moves the cursor's sort key to the given record. Callers
// must only advance after the record has been forwarded to the sink.
func (c *Cursor) Advance(updated time.Time, key string) {
	c.LastUpdated = updated
	c.LastIssueID = key
}

// Compare orders two cursors by their composite sort key
func (c *Cursor) Compare(other *Cursor) int {
	if c.LastUpdated.Before(other.LastUpdated) {
		return -1
	}
	if c.LastUpdated.After(other.LastUpdated) {
		return 1
	}
	return CompareKeys(c.LastIssueID, other.LastIssueID)
}

// Clone returns a copy of the cursor
func (c *Cursor) Clone() *Cursor {
	clone := *c
	return &clone
}

// String implements fmt.Stringer interface for Cursor
func (c *Cursor) String() string {
	if c == nil {
		return "null"
	}
	ts := ""
	if !c.LastUpdated.IsZero() {
		ts = c.LastUpdated.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("%s_%s", ts, c.LastIssueID)
}

// CompareKeys orders two issue keys. Keys sharing a project prefix
// compare by their numeric suffix (PROJ-9 sorts before PROJ-10);
// anything else falls back to plain string comparison, which also
// covers bare numeric IDs.
func CompareKeys(a, b string) int {
	aPrefix, aNum, aOK := splitKey(a)
	bPrefix, bNum, bOK := splitKey(b)

	if aOK && bOK && aPrefix == bPrefix {
		switch {
		case aNum < bNum:
			return -1
		case aNum > bNum:
			return 1
		default:
			return 0
		}
	}

	return strings.Compare(a, b)
}

// splitKey splits an issue key into a project prefix and numeric
// suffix. A bare number yields an empty prefix.
func splitKey(key string) (string, int64, bool) {
	idx := strings.LastIndex(key, "-")
	prefix, num := "", key
	if idx >= 0 {
		prefix, num = key[:idx], key[idx+1:]
	}
	n, err := strconv.ParseInt(num, 10, 64)
	if err != nil {
		return "", 0, false
	}
	return prefix, n, true
}

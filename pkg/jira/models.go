package jira

import (
	"fmt"
	"strings"
	"time"
)

// TimeLayout is the timestamp format Jira uses in issue fields
const TimeLayout = "2006-01-02T15:04:05.000-0700"

// Time wraps time.Time to decode Jira's timestamp format
type Time struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler for Jira timestamps
func (t *Time) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "null" || raw == "" {
		t.Time = time.Time{}
		return nil
	}

	parsed, err := time.Parse(TimeLayout, raw)
	if err != nil {
		// Some deployments return RFC3339 timestamps
		parsed, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return fmt.Errorf("invalid timestamp %q: %w", raw, err)
		}
	}
	t.Time = parsed
	return nil
}

// MarshalJSON implements json.Marshaler for Jira timestamps
func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.Format(TimeLayout) + `"`), nil
}

// SearchRequest describes one page request against the search API
type SearchRequest struct {
	// JQL carries the ordering clause and the boundary filter
	JQL string
	// Fields is the projection list
	Fields []string
	// MaxResults bounds the page size
	MaxResults int
	// NextPageToken continues a prior result set; empty on the first call
	NextPageToken string
}

// SearchResponse is one page of the ordered result set
type SearchResponse struct {
	Issues []Issue `json:"issues"`
	// NextPageToken is absent on the last page
	NextPageToken string `json:"nextPageToken"`
	IsLast        bool   `json:"isLast"`
}

// Exhausted reports whether the API signalled no further pages
func (r *SearchResponse) Exhausted() bool {
	return r.IsLast || r.NextPageToken == ""
}

// Issue is a single fetched record. Its identity for dedup purposes is
// the composite sort key (fields.updated, key).
type Issue struct {
	ID     string      `json:"id"`
	Key    string      `json:"key"`
	Fields IssueFields `json:"fields"`
}

// IssueFields holds the projected fields of an issue
type IssueFields struct {
	Summary   string    `json:"summary"`
	Status    *NamedRef `json:"status"`
	IssueType *NamedRef `json:"issuetype"`
	Priority  *NamedRef `json:"priority"`
	Reporter  *UserRef  `json:"reporter"`
	Assignee  *UserRef  `json:"assignee"`
	Created   Time      `json:"created"`
	Updated   Time      `json:"updated"`
	Labels    []string  `json:"labels"`
}

// NamedRef is a categorical field value (status, type, priority)
type NamedRef struct {
	Name string `json:"name"`
}

// UserRef identifies a Jira user on an issue
type UserRef struct {
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress"`
}

// NameOf returns the ref's name, or empty when the field is absent
func NameOf(ref *NamedRef) string {
	if ref == nil {
		return ""
	}
	return ref.Name
}

// DisplayNameOf returns the user's display name, or empty when unassigned
func DisplayNameOf(ref *UserRef) string {
	if ref == nil {
		return ""
	}
	return ref.DisplayName
}

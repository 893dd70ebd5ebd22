package jira

import (
	"fmt"
	"strings"
	"time"
)

const (
	// SearchPath is the enhanced search endpoint with token pagination
	SearchPath = "/rest/api/3/search/jql"

	// jqlTimeLayout is the timestamp format accepted by JQL updated
	// comparisons. JQL only supports minute precision here; records
	// sharing the boundary minute can be re-sent by the server and are
	// filtered out by the in-memory cursor guard.
	jqlTimeLayout = "2006-01-02 15:04"
)

// SearchURL returns the search endpoint for a Jira base URL
func SearchURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + SearchPath
}

// BrowseURL constructs the human-facing URL for an issue key
func BrowseURL(baseURL, key string) string {
	return fmt.Sprintf("%s/browse/%s", strings.TrimRight(baseURL, "/"), key)
}

// BoundaryJQL builds the query for one run: an optional project scope,
// the boundary filter over the composite sort key, and a strict total
// ordering. The boundary filter is a compound inequality ("updated
// strictly after the cursor, OR updated equal and key greater")
// because multiple issues can share the same updated value.
func BoundaryJQL(project string, lastUpdated time.Time, lastKey string) string {
	var clauses []string

	if project != "" {
		clauses = append(clauses, fmt.Sprintf("project = %q", project))
	}

	if !lastUpdated.IsZero() {
		ts := lastUpdated.UTC().Format(jqlTimeLayout)
		if lastKey != "" {
			clauses = append(clauses, fmt.Sprintf(
				`(updated > %q OR (updated = %q AND key > %q))`, ts, ts, lastKey))
		} else {
			clauses = append(clauses, fmt.Sprintf(`updated > %q`, ts))
		}
	}

	jql := strings.Join(clauses, " AND ")
	if jql != "" {
		jql += " "
	}
	return jql + "ORDER BY updated ASC, key ASC"
}

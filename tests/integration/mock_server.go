package integration

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hlosukwakha/idempotence-in-jira-api/pkg/cursor"
)

// MockIssue is the server-side representation of one issue
type MockIssue struct {
	ID       string
	Key      string
	Summary  string
	Status   string
	Assignee string
	Labels   []string
	Updated  time.Time
}

// MockJiraServer simulates the Jira Cloud enhanced search endpoint:
// token pagination over a result set ordered by (updated, key), with
// the boundary filter applied from the incoming JQL.
type MockJiraServer struct {
	server        *httptest.Server
	mu            sync.RWMutex
	issues        []MockIssue
	requestCount  int32
	rateLimitHits int32

	// failures is a queue of status codes returned before serving
	// real pages again
	failures   []int
	retryAfter string
}

var (
	boundaryRe = regexp.MustCompile(`updated > "([^"]+)" OR \(updated = "([^"]+)" AND key > "([^"]+)"\)`)
	updatedRe  = regexp.MustCompile(`updated > "([^"]+)"`)
)

// NewMockJiraServer creates a mock Jira server with no issues
func NewMockJiraServer() *MockJiraServer {
	m := &MockJiraServer{}

	mux := http.NewServeMux()
	mux.HandleFunc("/rest/api/3/search/jql", m.handleSearch)

	m.server = httptest.NewServer(mux)
	return m
}

// GetURL returns the server's base URL
func (m *MockJiraServer) GetURL() string {
	return m.server.URL
}

// Close shuts down the server
func (m *MockJiraServer) Close() {
	m.server.Close()
}

// AddIssues adds issues to the server's data set
func (m *MockJiraServer) AddIssues(issues ...MockIssue) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issues = append(m.issues, issues...)
}

// QueueFailure makes the next search request fail with the given
// status before normal behavior resumes
func (m *MockJiraServer) QueueFailure(status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, status)
}

// SetRetryAfter sets the Retry-After header sent with 429 responses
func (m *MockJiraServer) SetRetryAfter(value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retryAfter = value
}

// GetRequestCount returns the number of search requests served
func (m *MockJiraServer) GetRequestCount() int {
	return int(atomic.LoadInt32(&m.requestCount))
}

// GetRateLimitHits returns the number of 429 responses sent
func (m *MockJiraServer) GetRateLimitHits() int {
	return int(atomic.LoadInt32(&m.rateLimitHits))
}

// ResetCounters resets request counters
func (m *MockJiraServer) ResetCounters() {
	atomic.StoreInt32(&m.requestCount, 0)
	atomic.StoreInt32(&m.rateLimitHits, 0)
}

func (m *MockJiraServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&m.requestCount, 1)

	m.mu.Lock()
	if len(m.failures) > 0 {
		status := m.failures[0]
		m.failures = m.failures[1:]
		retryAfter := m.retryAfter
		m.mu.Unlock()

		if status == http.StatusTooManyRequests {
			atomic.AddInt32(&m.rateLimitHits, 1)
			if retryAfter != "" {
				w.Header().Set("Retry-After", retryAfter)
			}
		}
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"errorMessages": []string{"simulated failure"},
		})
		return
	}
	m.mu.Unlock()

	jql := r.URL.Query().Get("jql")
	maxResults, err := strconv.Atoi(r.URL.Query().Get("maxResults"))
	if err != nil || maxResults <= 0 {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	offset := 0
	if token := r.URL.Query().Get("nextPageToken"); token != "" {
		offset, err = strconv.Atoi(token)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
	}

	matched := m.matchingIssues(jql)

	end := offset + maxResults
	if end > len(matched) {
		end = len(matched)
	}
	if offset > len(matched) {
		offset = len(matched)
	}
	page := matched[offset:end]

	response := map[string]interface{}{
		"issues": issuesJSON(page),
		"isLast": end >= len(matched),
	}
	if end < len(matched) {
		response["nextPageToken"] = strconv.Itoa(end)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// matchingIssues applies the JQL boundary filter and returns the
// issues sorted by (updated, key)
func (m *MockJiraServer) matchingIssues(jql string) []MockIssue {
	m.mu.RLock()
	issues := make([]MockIssue, len(m.issues))
	copy(issues, m.issues)
	m.mu.RUnlock()

	var filtered []MockIssue
	boundaryTime, boundaryKey, hasBoundary := parseBoundary(jql)
	for _, issue := range issues {
		if hasBoundary && !afterBoundary(issue, boundaryTime, boundaryKey) {
			continue
		}
		filtered = append(filtered, issue)
	}

	sort.Slice(filtered, func(i, j int) bool {
		a, b := filtered[i], filtered[j]
		if !a.Updated.Equal(b.Updated) {
			return a.Updated.Before(b.Updated)
		}
		return cursor.CompareKeys(a.Key, b.Key) < 0
	})

	return filtered
}

// parseBoundary extracts the boundary filter from the JQL. Timestamps
// carry minute precision, as JQL does.
func parseBoundary(jql string) (time.Time, string, bool) {
	if groups := boundaryRe.FindStringSubmatch(jql); groups != nil {
		ts, err := time.Parse("2006-01-02 15:04", groups[1])
		if err != nil {
			return time.Time{}, "", false
		}
		return ts, groups[3], true
	}
	if groups := updatedRe.FindStringSubmatch(jql); groups != nil {
		ts, err := time.Parse("2006-01-02 15:04", groups[1])
		if err != nil {
			return time.Time{}, "", false
		}
		return ts, "", true
	}
	return time.Time{}, "", false
}

// afterBoundary applies the compound boundary filter. The boundary
// timestamp arrives at minute precision, so issues updated later in
// the boundary minute are re-sent the way the real server re-sends
// them; the client's cursor guard is expected to drop those.
func afterBoundary(issue MockIssue, boundaryTime time.Time, boundaryKey string) bool {
	updated := issue.Updated.UTC()
	if updated.After(boundaryTime) {
		return true
	}
	if updated.Equal(boundaryTime) {
		if boundaryKey == "" {
			return false
		}
		return cursor.CompareKeys(issue.Key, boundaryKey) > 0
	}
	return false
}

// issuesJSON renders issues in the search API's response shape
func issuesJSON(issues []MockIssue) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(issues))
	for _, issue := range issues {
		fields := map[string]interface{}{
			"summary":   issue.Summary,
			"status":    map[string]string{"name": issue.Status},
			"issuetype": map[string]string{"name": "Task"},
			"priority":  map[string]string{"name": "Medium"},
			"reporter":  map[string]string{"displayName": "Test Reporter"},
			"updated":   issue.Updated.UTC().Format("2006-01-02T15:04:05.000-0700"),
			"created":   issue.Updated.Add(-24 * time.Hour).UTC().Format("2006-01-02T15:04:05.000-0700"),
			"labels":    issue.Labels,
		}
		if issue.Assignee != "" {
			fields["assignee"] = map[string]string{"displayName": issue.Assignee}
		}
		out = append(out, map[string]interface{}{
			"id":     issue.ID,
			"key":    issue.Key,
			"fields": fields,
		})
	}
	return out
}

package integration

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hlosukwakha/idempotence-in-jira-api/pkg/cursor"
	"github.com/hlosukwakha/idempotence-in-jira-api/pkg/fetcher"
	"github.com/hlosukwakha/idempotence-in-jira-api/pkg/jira"
	"github.com/hlosukwakha/idempotence-in-jira-api/pkg/logger"
	"github.com/hlosukwakha/idempotence-in-jira-api/pkg/retry"
	"github.com/hlosukwakha/idempotence-in-jira-api/pkg/sink"
)

// TestHelper bundles the moving parts of one export environment
type TestHelper struct {
	t          *testing.T
	tempDir    string
	mockServer *MockJiraServer
	log        *logger.TestLogger
}

// NewTestHelper creates a helper with a temp working directory
func NewTestHelper(t *testing.T) *TestHelper {
	t.Helper()
	return &TestHelper{
		t:       t,
		tempDir: t.TempDir(),
		log:     logger.NewTestLogger(),
	}
}

// Cleanup shuts down the mock server
func (h *TestHelper) Cleanup() {
	if h.mockServer != nil {
		h.mockServer.Close()
	}
}

// SetupMockServer starts (or returns) the mock Jira server
func (h *TestHelper) SetupMockServer() *MockJiraServer {
	if h.mockServer == nil {
		h.mockServer = NewMockJiraServer()
	}
	return h.mockServer
}

// CSVPath returns the output path inside the temp dir
func (h *TestHelper) CSVPath() string {
	return filepath.Join(h.tempDir, "issues.csv")
}

// CheckpointPath returns the checkpoint path inside the temp dir
func (h *TestHelper) CheckpointPath() string {
	return filepath.Join(h.tempDir, "jirasync.checkpoint.json")
}

// RunExport wires a real client, store, and CSV sink against the mock
// server and runs one export
func (h *TestHelper) RunExport(ctx context.Context, pageSize int) (*fetcher.Stats, error) {
	h.t.Helper()

	server := h.SetupMockServer()

	client := jira.NewClient(server.GetURL(), 5*time.Second, h.log)
	client.SetBasicAuth("test@example.com", "test-token")

	store, err := cursor.NewFileStore(h.CheckpointPath(), h.log)
	if err != nil {
		h.t.Fatalf("Failed to create cursor store: %v", err)
	}

	out, err := sink.NewCSV(h.CSVPath())
	if err != nil {
		h.t.Fatalf("Failed to create CSV sink: %v", err)
	}
	defer out.Close()

	f, err := fetcher.New(&fetcher.Config{
		Source:        client,
		Store:         store,
		Sink:          out,
		Project:       "PROJ",
		Fields:        []string{"summary", "status", "issuetype", "priority", "reporter", "assignee", "created", "updated", "labels"},
		PageSize:      pageSize,
		BrowseBaseURL: server.GetURL(),
		Retry: &retry.Config{
			MaxAttempts: 3,
			Backoff:     &retry.ConstantBackoff{Delay: time.Millisecond},
			RetryIf:     retry.DefaultRetryIf,
			Logger:      h.log,
		},
		Logger: h.log,
	})
	if err != nil {
		h.t.Fatalf("Failed to create fetcher: %v", err)
	}

	return f.Run(ctx)
}

// ReadCSV reads all records from the output file
func (h *TestHelper) ReadCSV() [][]string {
	h.t.Helper()

	file, err := os.Open(h.CSVPath())
	if err != nil {
		h.t.Fatalf("Failed to open CSV: %v", err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		h.t.Fatalf("Failed to read CSV: %v", err)
	}
	return records
}

// mustStore opens the file-backed cursor store for direct manipulation
func mustStore(t *testing.T, h *TestHelper) *cursor.FileStore {
	t.Helper()

	store, err := cursor.NewFileStore(h.CheckpointPath(), h.log)
	if err != nil {
		t.Fatalf("Failed to create cursor store: %v", err)
	}
	return store
}

// LoadCheckpoint reads the persisted cursor
func (h *TestHelper) LoadCheckpoint() *cursor.Cursor {
	h.t.Helper()

	store, err := cursor.NewFileStore(h.CheckpointPath(), h.log)
	if err != nil {
		h.t.Fatalf("Failed to create cursor store: %v", err)
	}
	cur, err := store.Load()
	if err != nil {
		h.t.Fatalf("Failed to load checkpoint: %v", err)
	}
	return cur
}

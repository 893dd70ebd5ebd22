package sink

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Row is one exported issue in the fixed output schema
type Row struct {
	Key       string
	ID        string
	Summary   string
	Status    string
	IssueType string
	Priority  string
	Reporter  string
	Assignee  string
	Created   time.Time
	Updated   time.Time
	Labels    []string
	URL       string
}

// Header is the fixed column schema of the output file
var Header = []string{
	"key", "id", "summary", "status", "issue_type", "priority",
	"reporter", "assignee", "created", "updated", "labels", "url",
}

// labelSeparator joins the list-valued labels field into one column
const labelSeparator = "|"

// Sink is an append-only tabular output. Rows already written are
// never overwritten; callers must Flush before persisting a cursor
// that covers the appended rows.
type Sink interface {
	Append(rows []Row) error
	Flush() error
	Close() error
}

// CSV writes rows to an append-only CSV file with a fixed column
// schema. The header is written once; reopening an existing file
// appends after the rows already present.
type CSV struct {
	file      *os.File
	writer    *csv.Writer
	needsHead bool
}

// NewCSV opens (or creates) the CSV file at path for appending
func NewCSV(path string) (*CSV, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open output file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat output file: %w", err)
	}

	return &CSV{
		file:      file,
		writer:    csv.NewWriter(file),
		needsHead: info.Size() == 0,
	}, nil
}

// Append writes rows to the file, emitting the header first if the
// file is empty
func (c *CSV) Append(rows []Row) error {
	if c.needsHead {
		if err := c.writer.Write(Header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		c.needsHead = false
	}

	for _, row := range rows {
		if err := c.writer.Write(row.record()); err != nil {
			return fmt.Errorf("failed to write row %s: %w", row.Key, err)
		}
	}

	return nil
}

// Flush flushes buffered rows and syncs the file to stable storage
func (c *CSV) Flush() error {
	c.writer.Flush()
	if err := c.writer.Error(); err != nil {
		return fmt.Errorf("failed to flush rows: %w", err)
	}
	if err := c.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync output file: %w", err)
	}
	return nil
}

// Close flushes and closes the file
func (c *CSV) Close() error {
	if err := c.Flush(); err != nil {
		c.file.Close()
		return err
	}
	return c.file.Close()
}

// record converts the row to its CSV representation
func (r *Row) record() []string {
	return []string{
		r.Key,
		r.ID,
		r.Summary,
		r.Status,
		r.IssueType,
		r.Priority,
		r.Reporter,
		r.Assignee,
		formatTime(r.Created),
		formatTime(r.Updated),
		strings.Join(r.Labels, labelSeparator),
		r.URL,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

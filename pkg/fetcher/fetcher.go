package fetcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/hlosukwakha/idempotence-in-jira-api/pkg/cursor"
	"github.com/hlosukwakha/idempotence-in-jira-api/pkg/jira"
	"github.com/hlosukwakha/idempotence-in-jira-api/pkg/logger"
	"github.com/hlosukwakha/idempotence-in-jira-api/pkg/ratelimit"
	"github.com/hlosukwakha/idempotence-in-jira-api/pkg/retry"
	"github.com/hlosukwakha/idempotence-in-jira-api/pkg/sink"
)

// Searcher requests one page of the ordered, filtered result set
type Searcher interface {
	Search(ctx context.Context, req *jira.SearchRequest) (*jira.SearchResponse, error)
}

// Config contains configuration for the fetcher
type Config struct {
	// Core dependencies
	Source Searcher
	Store  cursor.Store
	Sink   sink.Sink

	// Query parameters
	Project  string
	Fields   []string
	PageSize int

	// BrowseBaseURL constructs the issue URL column in the output
	BrowseBaseURL string

	// Retry policy for transient transport failures
	Retry *retry.Config

	// Optional configurations
	Limiter ratelimit.Limiter
	Logger  logger.Logger
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Source == nil {
		return errors.New("Source is required")
	}
	if c.Store == nil {
		return errors.New("Store is required")
	}
	if c.Sink == nil {
		return errors.New("Sink is required")
	}
	if c.PageSize <= 0 {
		return errors.New("PageSize must be greater than 0")
	}
	if len(c.Fields) == 0 {
		return errors.New("Fields must not be empty")
	}
	if c.Retry == nil {
		return errors.New("Retry policy is required")
	}
	return nil
}

// Stats summarizes one run
type Stats struct {
	Pages    int
	Fetched  int
	Appended int
	Skipped  int
}

// Fetcher drives the export loop to completion or to a recoverable
// stopping point. It owns the write-output-then-write-cursor ordering:
// rows are durably written to the sink before the cursor covering them
// is saved, so interruption at any point leaves a resumable state.
type Fetcher struct {
	*Config
}

// New creates a new Fetcher instance
func New(cfg *Config) (*Fetcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}
	// The cursor advances on each record's updated time. A projection
	// that omits it would decode every timestamp as zero and freeze the
	// checkpoint, so it is requested regardless of configuration.
	cfg.Fields = withUpdatedField(cfg.Fields)
	return &Fetcher{Config: cfg}, nil
}

func withUpdatedField(fields []string) []string {
	for _, f := range fields {
		if f == "updated" {
			return fields
		}
	}
	out := make([]string, 0, len(fields)+1)
	out = append(out, fields...)
	return append(out, "updated")
}

// Run executes one export run. Re-running after completion is an
// idempotent no-op; re-running after an abort resumes from the last
// persisted checkpoint.
func (f *Fetcher) Run(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	cur, err := f.Store.Load()
	if err != nil {
		return stats, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	if cur.Done {
		f.Logger.InfoWithFields("export already complete, nothing to do", map[string]interface{}{
			"cursor": cur.String(),
		})
		return stats, nil
	}

	f.Logger.InfoWithFields("starting export run", map[string]interface{}{
		"cursor":     cur.String(),
		"page_token": cur.NextPageToken,
		"page_size":  f.PageSize,
	})

	// The boundary filter is fixed for the run: it expresses "records
	// strictly after the checkpoint's composite key". Page tokens carry
	// position within this filtered result set; any server re-sends
	// across the boundary are dropped by the in-memory cursor guard.
	// A token persisted by an interrupted run was issued for that run's
	// filter. The server continues from the token, the recomputed
	// filter is advisory, and the guard absorbs any difference.
	query := jira.BoundaryJQL(f.Project, cur.LastUpdated, cur.LastIssueID)

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		resp, err := f.fetchPage(ctx, query, cur.NextPageToken)
		if err != nil {
			// No cursor mutation has been persisted for this page; the
			// prior checkpoint remains valid for the next attempt.
			return stats, fmt.Errorf("failed to fetch page: %w", err)
		}
		stats.Pages++
		stats.Fetched += len(resp.Issues)

		rows := make([]sink.Row, 0, len(resp.Issues))
		for i := range resp.Issues {
			issue := &resp.Issues[i]
			updated := issue.Fields.Updated.Time

			// Guard against server-side inconsistency re-sending records
			// at or before the current in-memory cursor.
			if !cur.Behind(updated, issue.Key) {
				stats.Skipped++
				f.Logger.DebugWithFields("skipping already processed record", map[string]interface{}{
					"key":     issue.Key,
					"updated": updated,
					"cursor":  cur.String(),
				})
				continue
			}

			rows = append(rows, f.rowFor(issue))
			cur.Advance(updated, issue.Key)
		}

		// Rows must be durable before the cursor covering them is
		// saved; the reverse order could lose records on a crash.
		if len(rows) > 0 {
			if err := f.Sink.Append(rows); err != nil {
				return stats, fmt.Errorf("failed to append rows: %w", err)
			}
			if err := f.Sink.Flush(); err != nil {
				return stats, fmt.Errorf("failed to flush sink: %w", err)
			}
			stats.Appended += len(rows)
		}

		cur.NextPageToken = resp.NextPageToken
		cur.Done = resp.Exhausted()

		if err := f.Store.Save(cur); err != nil {
			return stats, fmt.Errorf("failed to save checkpoint: %w", err)
		}

		f.Logger.InfoWithFields("page processed", map[string]interface{}{
			"page":     stats.Pages,
			"appended": len(rows),
			"cursor":   cur.String(),
			"done":     cur.Done,
		})

		if cur.Done {
			break
		}
	}

	f.Logger.InfoWithFields("export run complete", map[string]interface{}{
		"pages":    stats.Pages,
		"fetched":  stats.Fetched,
		"appended": stats.Appended,
		"skipped":  stats.Skipped,
	})

	return stats, nil
}

// fetchPage requests one page, retrying transient failures with the
// configured policy. The identical request is re-issued on retry,
// which is safe because no cursor mutation has occurred for the page.
func (f *Fetcher) fetchPage(ctx context.Context, query, pageToken string) (*jira.SearchResponse, error) {
	req := &jira.SearchRequest{
		JQL:           query,
		Fields:        f.Fields,
		MaxResults:    f.PageSize,
		NextPageToken: pageToken,
	}

	retryCfg := *f.Retry
	retryCfg.Context = ctx

	return retry.DoWithResult(func() (*jira.SearchResponse, error) {
		if f.Limiter != nil {
			if err := f.Limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		return f.Source.Search(ctx, req)
	}, &retryCfg)
}

// rowFor projects an issue onto the fixed output schema
func (f *Fetcher) rowFor(issue *jira.Issue) sink.Row {
	return sink.Row{
		Key:       issue.Key,
		ID:        issue.ID,
		Summary:   issue.Fields.Summary,
		Status:    jira.NameOf(issue.Fields.Status),
		IssueType: jira.NameOf(issue.Fields.IssueType),
		Priority:  jira.NameOf(issue.Fields.Priority),
		Reporter:  jira.DisplayNameOf(issue.Fields.Reporter),
		Assignee:  jira.DisplayNameOf(issue.Fields.Assignee),
		Created:   issue.Fields.Created.Time,
		Updated:   issue.Fields.Updated.Time,
		Labels:    issue.Fields.Labels,
		URL:       jira.BrowseURL(f.BrowseBaseURL, issue.Key),
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hlosukwakha/idempotence-in-jira-api/pkg/auth"
	"github.com/hlosukwakha/idempotence-in-jira-api/pkg/config"
	"github.com/hlosukwakha/idempotence-in-jira-api/pkg/cursor"
	"github.com/hlosukwakha/idempotence-in-jira-api/pkg/fetcher"
	"github.com/hlosukwakha/idempotence-in-jira-api/pkg/jira"
	"github.com/hlosukwakha/idempotence-in-jira-api/pkg/logger"
	"github.com/hlosukwakha/idempotence-in-jira-api/pkg/ratelimit"
	"github.com/hlosukwakha/idempotence-in-jira-api/pkg/retry"
	"github.com/hlosukwakha/idempotence-in-jira-api/pkg/sink"
)

var (
	// Export command flags
	project        string
	outputPath     string
	checkpointPath string
	pageSize       int
	maxRetries     int
	rateLimitRPM   int
	siteName       string
	restart        bool
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export Jira issues to an append-only CSV file",
	Long: `Export issues from a Jira Cloud site into a CSV file, resuming from
the last checkpoint.

Credentials are resolved from stored accounts ('jirasync auth login'),
environment variables (JIRASYNC_BASE_URL, JIRASYNC_EMAIL,
JIRASYNC_API_TOKEN), or the configuration file.

The export is idempotent: running it again against an unchanged data
set appends nothing. Interrupting it at any point is safe; the next run
resumes from the last durably written batch.`,
	Example: `  # Export all issues of a project
  jirasync export --project MYPROJ

  # Custom output and checkpoint locations
  jirasync export --project MYPROJ --output ./myproj.csv --checkpoint ./myproj.checkpoint.json

  # Discard the checkpoint and start a fresh export
  jirasync export --project MYPROJ --restart`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExport()
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&project, "project", "P", "", "Jira project key to export")
	exportCmd.Flags().StringVarP(&outputPath, "output", "o", "", "CSV output path")
	exportCmd.Flags().StringVar(&checkpointPath, "checkpoint", "", "checkpoint file path")
	exportCmd.Flags().IntVar(&pageSize, "page-size", 0, "page size for search requests")
	exportCmd.Flags().IntVar(&maxRetries, "max-retries", 0, "maximum retry attempts per page")
	exportCmd.Flags().IntVar(&rateLimitRPM, "rate-limit", 0, "search requests per minute")
	exportCmd.Flags().StringVarP(&siteName, "site", "s", "", "use a specific stored site account")
	exportCmd.Flags().BoolVar(&restart, "restart", false, "discard the checkpoint and start fresh")
}

func runExport() error {
	flags := make(map[string]interface{})
	if project != "" {
		flags["project"] = project
	}
	if outputPath != "" {
		flags["output"] = outputPath
	}
	if checkpointPath != "" {
		flags["checkpoint"] = checkpointPath
	}
	if pageSize > 0 {
		flags["page-size"] = pageSize
	}
	if maxRetries > 0 {
		flags["max-retries"] = maxRetries
	}
	if rateLimitRPM > 0 {
		flags["rate-limit"] = rateLimitRPM
	}
	if logLevel != "info" {
		flags["log-level"] = logLevel
	}

	// Resolve credentials before config validation so stored accounts
	// can satisfy the base URL requirement.
	resolveCredentials(flags)

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger()

	log.InfoWithFields("jirasync starting", map[string]interface{}{
		"version": version,
		"project": cfg.Jira.Project,
		"output":  cfg.Output.CSVPath,
	})

	store, err := cursor.NewFileStore(cfg.Output.CheckpointPath, log)
	if err != nil {
		return fmt.Errorf("failed to create cursor store: %w", err)
	}

	if restart && store.Exists() {
		if err := store.Delete(); err != nil {
			return fmt.Errorf("failed to discard checkpoint: %w", err)
		}
		log.Info("checkpoint discarded, starting fresh export")
	}

	client := jira.NewClient(cfg.Jira.BaseURL, cfg.Fetch.Timeout, log)
	if cfg.Jira.Email != "" && cfg.Jira.APIToken != "" {
		client.SetBasicAuth(cfg.Jira.Email, cfg.Jira.APIToken)
	}

	out, err := sink.NewCSV(cfg.Output.CSVPath)
	if err != nil {
		return fmt.Errorf("failed to open output: %w", err)
	}
	defer out.Close()

	f, err := fetcher.New(&fetcher.Config{
		Source:        client,
		Store:         store,
		Sink:          out,
		Project:       cfg.Jira.Project,
		Fields:        cfg.Fetch.Fields,
		PageSize:      cfg.Fetch.PageSize,
		BrowseBaseURL: cfg.Jira.BaseURL,
		Retry: &retry.Config{
			MaxAttempts: cfg.Retry.MaxAttempts,
			Backoff: &retry.ExponentialBackoff{
				BaseDelay:    cfg.Retry.BaseDelay,
				MaxDelay:     cfg.Retry.MaxDelay,
				Multiplier:   cfg.Retry.Multiplier,
				JitterFactor: 0.1,
			},
			RetryIf: retry.DefaultRetryIf,
			Logger:  log,
		},
		Limiter: ratelimit.NewTokenBucket(cfg.RateLimit.RequestsPerMinute, time.Minute),
		Logger:  log,
	})
	if err != nil {
		return fmt.Errorf("failed to create fetcher: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	stats, err := f.Run(ctx)
	if err != nil {
		log.WithError(err).Error("export aborted; checkpoint remains resumable")
		return err
	}

	log.InfoWithFields("export finished", map[string]interface{}{
		"pages":    stats.Pages,
		"appended": stats.Appended,
		"skipped":  stats.Skipped,
	})
	return nil
}

// resolveCredentials fills in connection flags from stored credentials
// when they are not supplied explicitly
func resolveCredentials(flags map[string]interface{}) {
	manager, err := auth.NewManager()
	if err != nil {
		return
	}

	var creds *auth.Credentials
	if siteName != "" {
		creds, err = manager.Retrieve(siteName)
	} else {
		creds, err = manager.RetrieveDefault()
	}
	if err != nil || creds == nil {
		return
	}

	if _, ok := flags["base-url"]; !ok {
		flags["base-url"] = creds.BaseURL
	}
	flags["email"] = creds.Email
	flags["api-token"] = creds.APIToken
}

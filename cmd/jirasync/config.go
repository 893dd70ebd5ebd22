package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hlosukwakha/idempotence-in-jira-api/pkg/config"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage jirasync configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (JIRASYNC_*)
  - Configuration file
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file will be created in the current directory as '.jirasync.yaml'
unless a different path is specified with the --config flag.`,
	Run: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Show the effective configuration merged from all sources.

Sensitive values like the API token are masked.`,
	Run: runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate a configuration file for syntax errors and invalid values.

This command checks:
  - YAML syntax
  - Required fields
  - Value types and ranges
  - Path accessibility`,
	Run: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) {
	configPath := configFile
	if configPath == "" {
		configPath = ".jirasync.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		fmt.Fprintln(os.Stderr, "Configuration file already exists:", configPath)
		fmt.Println("\nTo overwrite, first remove the existing file:")
		fmt.Printf("  rm %s\n", configPath)
		os.Exit(1)
	}

	exampleConfig := `# jirasync configuration file
#
# You can also use environment variables prefixed with JIRASYNC_
# For example: JIRASYNC_BASE_URL, JIRASYNC_API_TOKEN

# Jira connection
jira:
  # Site base URL (required)
  base_url: "https://mycompany.atlassian.net"

  # Account email (required unless stored via 'jirasync auth login')
  email: ""

  # API token. Prefer 'jirasync auth login' or JIRASYNC_API_TOKEN over
  # writing the token into this file.
  api_token: ""

  # Project key to export (required)
  project: "MYPROJ"

# Fetch configuration
fetch:
  # Issues per page
  # Range: 1-100
  page_size: 100

  # HTTP request timeout
  timeout: 30s

# Retry configuration
retry:
  # Maximum attempts per page request
  # Range: 1-10
  max_attempts: 5

  # Initial backoff duration
  base_delay: 2s

  # Maximum backoff duration
  max_delay: 2m

  # Backoff multiplier
  multiplier: 2.0

# Rate limiting configuration
rate_limit:
  # Search requests per minute
  # Range: 1-300
  requests_per_minute: 60

# Output configuration
output:
  # CSV file to append issues to
  csv_path: "./issues.csv"

  # Checkpoint file recording export progress
  checkpoint_path: "./jirasync.checkpoint.json"

# Logging configuration
logging:
  # Log level: debug, info, warn, error
  level: "info"

  # Log file path (optional)
  # Leave empty to log to stderr only
  file: ""
`

	if err := os.WriteFile(configPath, []byte(exampleConfig), 0644); err != nil {
		fmt.Fprintln(os.Stderr, "Failed to create configuration file:", err)
		os.Exit(1)
	}

	fmt.Println("Configuration file created:", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Edit the file and set your site URL and project key")
	fmt.Println("2. Store credentials with 'jirasync auth login'")
	fmt.Println("3. Run 'jirasync config validate' to check the configuration")
	fmt.Println("4. Start exporting with 'jirasync export'")
}

func runConfigShow(cmd *cobra.Command, args []string) {
	// Merge sources without validating; an unconfigured site is the
	// common case for this command.
	cfg := config.DefaultConfig()
	if err := cfg.LoadFromFile(configFile); err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load configuration file:", err)
		os.Exit(1)
	}
	if err := cfg.LoadFromEnv(); err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load environment variables:", err)
		os.Exit(1)
	}

	displayCfg := *cfg
	if displayCfg.Jira.APIToken != "" {
		displayCfg.Jira.APIToken = redactToken(displayCfg.Jira.APIToken)
	}

	data, err := yaml.Marshal(&displayCfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to format configuration:", err)
		os.Exit(1)
	}

	fmt.Println("Current configuration:")
	fmt.Println()
	fmt.Print(string(data))

	fmt.Println("\nConfiguration sources (in order of priority):")
	fmt.Println("1. Command line flags")
	fmt.Println("2. Environment variables (JIRASYNC_*)")
	if configFile != "" {
		fmt.Printf("3. Configuration file: %s\n", configFile)
	} else {
		fmt.Println("3. Configuration file: (not specified)")
	}
	fmt.Println("4. Default values")
}

func runConfigValidate(cmd *cobra.Command, args []string) {
	if configFile == "" {
		possiblePaths := []string{
			".jirasync.yaml",
			".jirasync.yml",
			"jirasync.yaml",
			filepath.Join(os.Getenv("HOME"), ".jirasync.yaml"),
			filepath.Join(os.Getenv("HOME"), ".config", "jirasync", "config.yaml"),
		}

		for _, path := range possiblePaths {
			if _, err := os.Stat(path); err == nil {
				configFile = path
				break
			}
		}

		if configFile == "" {
			fmt.Fprintln(os.Stderr, "No configuration file found; specify one with --config")
			os.Exit(1)
		}
	}

	fmt.Println("Validating configuration:", configFile)

	cfg, err := config.Load(configFile, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Configuration validation failed:", err)
		os.Exit(1)
	}

	var warnings []string
	var problems []string

	if cfg.Jira.APIToken == "" {
		warnings = append(warnings, "API token not configured (use 'jirasync auth login' or JIRASYNC_API_TOKEN)")
	}
	if cfg.Jira.Project == "" {
		warnings = append(warnings, "project key not configured")
	}

	if dir := filepath.Dir(cfg.Output.CSVPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			problems = append(problems, fmt.Sprintf("cannot create output directory: %v", err))
		}
	}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			problems = append(problems, fmt.Sprintf("cannot create log directory: %v", err))
		}
	}

	if len(problems) > 0 {
		fmt.Fprintln(os.Stderr, "Configuration has errors:")
		for _, p := range problems {
			fmt.Printf("  - %s\n", p)
		}
		os.Exit(1)
	}

	if len(warnings) > 0 {
		fmt.Println("Configuration warnings:")
		for _, w := range warnings {
			fmt.Printf("  - %s\n", w)
		}
		fmt.Println()
	}

	fmt.Println("Configuration is valid")

	fmt.Println("\nConfiguration summary:")
	fmt.Printf("  Site: %s\n", cfg.Jira.BaseURL)
	fmt.Printf("  Project: %s\n", cfg.Jira.Project)
	fmt.Printf("  Output: %s\n", cfg.Output.CSVPath)
	fmt.Printf("  Checkpoint: %s\n", cfg.Output.CheckpointPath)
	fmt.Printf("  Page size: %d\n", cfg.Fetch.PageSize)
	fmt.Printf("  Rate limit: %d requests/minute\n", cfg.RateLimit.RequestsPerMinute)
	fmt.Printf("  Max retries: %d\n", cfg.Retry.MaxAttempts)
	fmt.Printf("  Log level: %s\n", cfg.Logging.Level)
}

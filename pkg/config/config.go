package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hlosukwakha/idempotence-in-jira-api/pkg/logger"
)

// Config holds all configuration options for the Jira exporter
type Config struct {
	// Jira connection settings
	Jira JiraConfig `yaml:"jira" json:"jira"`

	// Fetch/pagination settings
	Fetch FetchConfig `yaml:"fetch" json:"fetch"`

	// Retry policy configuration
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Logging configuration
	Logging logger.Config `yaml:"logging" json:"logging"`
}

// JiraConfig holds Jira-specific configuration
type JiraConfig struct {
	BaseURL  string `yaml:"base_url" json:"base_url"`
	Email    string `yaml:"email" json:"email"`
	APIToken string `yaml:"api_token" json:"api_token"`
	Project  string `yaml:"project" json:"project"`
}

// FetchConfig holds pagination settings for the search API
type FetchConfig struct {
	PageSize int           `yaml:"page_size" json:"page_size"`
	Timeout  time.Duration `yaml:"timeout" json:"timeout"`
	// Fields is the projection list requested from the search API
	Fields []string `yaml:"fields" json:"fields"`
}

// RetryConfig holds the bounded retry policy parameters
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay" json:"max_delay"`
	Multiplier  float64       `yaml:"multiplier" json:"multiplier"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
}

// OutputConfig holds output and checkpoint path configuration
type OutputConfig struct {
	CSVPath        string `yaml:"csv_path" json:"csv_path"`
	CheckpointPath string `yaml:"checkpoint_path" json:"checkpoint_path"`
}

// DefaultFields is the default projection list for exported issues
var DefaultFields = []string{
	"summary", "status", "issuetype", "priority",
	"reporter", "assignee", "created", "updated", "labels",
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Fetch: FetchConfig{
			PageSize: 100,
			Timeout:  30 * time.Second,
			Fields:   DefaultFields,
		},
		Retry: RetryConfig{
			MaxAttempts: 5,
			BaseDelay:   2 * time.Second,
			MaxDelay:    2 * time.Minute,
			Multiplier:  2.0,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
		},
		Output: OutputConfig{
			CSVPath:        "./issues.csv",
			CheckpointPath: "./jirasync.checkpoint.json",
		},
		Logging: logger.Config{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if baseURL := os.Getenv("JIRASYNC_BASE_URL"); baseURL != "" {
		c.Jira.BaseURL = baseURL
	}
	if email := os.Getenv("JIRASYNC_EMAIL"); email != "" {
		c.Jira.Email = email
	}
	if token := os.Getenv("JIRASYNC_API_TOKEN"); token != "" {
		c.Jira.APIToken = token
	}
	if project := os.Getenv("JIRASYNC_PROJECT"); project != "" {
		c.Jira.Project = project
	}

	if pageSize := os.Getenv("JIRASYNC_PAGE_SIZE"); pageSize != "" {
		if val, err := strconv.Atoi(pageSize); err == nil && val > 0 {
			c.Fetch.PageSize = val
		}
	}
	if rpm := os.Getenv("JIRASYNC_REQUESTS_PER_MINUTE"); rpm != "" {
		if val, err := strconv.Atoi(rpm); err == nil && val > 0 {
			c.RateLimit.RequestsPerMinute = val
		}
	}
	if maxRetries := os.Getenv("JIRASYNC_MAX_RETRIES"); maxRetries != "" {
		if val, err := strconv.Atoi(maxRetries); err == nil && val > 0 {
			c.Retry.MaxAttempts = val
		}
	}

	if csvPath := os.Getenv("JIRASYNC_CSV_PATH"); csvPath != "" {
		c.Output.CSVPath = csvPath
	}
	if checkpointPath := os.Getenv("JIRASYNC_CHECKPOINT_PATH"); checkpointPath != "" {
		c.Output.CheckpointPath = checkpointPath
	}

	if logLevel := os.Getenv("JIRASYNC_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".jirasync.yaml",
		".jirasync.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "jirasync", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".jirasync.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Jira.BaseURL == "" {
		errs = append(errs, errors.New("Jira base URL is required"))
	} else if !strings.HasPrefix(c.Jira.BaseURL, "http://") && !strings.HasPrefix(c.Jira.BaseURL, "https://") {
		errs = append(errs, errors.New("Jira base URL must start with http:// or https://"))
	}

	if c.Fetch.PageSize <= 0 {
		errs = append(errs, errors.New("page size must be positive"))
	}
	if c.Fetch.PageSize > 5000 {
		errs = append(errs, errors.New("page size should not exceed 5000"))
	}
	if c.Fetch.Timeout <= 0 {
		errs = append(errs, errors.New("fetch timeout must be positive"))
	}
	if len(c.Fetch.Fields) == 0 {
		errs = append(errs, errors.New("at least one projected field is required"))
	}

	if c.Retry.MaxAttempts <= 0 {
		errs = append(errs, errors.New("max retry attempts must be positive"))
	}
	if c.Retry.BaseDelay <= 0 {
		errs = append(errs, errors.New("retry base delay must be positive"))
	}
	if c.Retry.MaxDelay < c.Retry.BaseDelay {
		errs = append(errs, errors.New("retry max delay must not be less than base delay"))
	}
	if c.Retry.Multiplier < 1.0 {
		errs = append(errs, errors.New("retry multiplier must be at least 1.0"))
	}

	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}

	if c.Output.CSVPath == "" {
		errs = append(errs, errors.New("CSV output path is required"))
	}
	if c.Output.CheckpointPath == "" {
		errs = append(errs, errors.New("checkpoint path is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if baseURL, ok := flags["base-url"].(string); ok && baseURL != "" {
		c.Jira.BaseURL = baseURL
	}
	if email, ok := flags["email"].(string); ok && email != "" {
		c.Jira.Email = email
	}
	if token, ok := flags["api-token"].(string); ok && token != "" {
		c.Jira.APIToken = token
	}
	if project, ok := flags["project"].(string); ok && project != "" {
		c.Jira.Project = project
	}
	if pageSize, ok := flags["page-size"].(int); ok && pageSize > 0 {
		c.Fetch.PageSize = pageSize
	}
	if maxRetries, ok := flags["max-retries"].(int); ok && maxRetries > 0 {
		c.Retry.MaxAttempts = maxRetries
	}
	if rpm, ok := flags["rate-limit"].(int); ok && rpm > 0 {
		c.RateLimit.RequestsPerMinute = rpm
	}
	if csvPath, ok := flags["output"].(string); ok && csvPath != "" {
		c.Output.CSVPath = csvPath
	}
	if checkpointPath, ok := flags["checkpoint"].(string); ok && checkpointPath != "" {
		c.Output.CheckpointPath = checkpointPath
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".jirasync.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

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
)

// Config holds all configuration options for the follower tracker.
// It is constructed once at process start and passed into each component;
// no component reads ambient environment state directly.
type Config struct {
	// Database connection settings (optional; JSON backend is used when unset)
	Database DatabaseConfig `yaml:"database" json:"database"`

	// Instagram session settings
	Instagram InstagramConfig `yaml:"instagram" json:"instagram"`

	// Sync sweep settings
	Sync SyncConfig `yaml:"sync" json:"sync"`

	// Output settings for the JSON file backend
	Output OutputConfig `yaml:"output" json:"output"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// DatabaseConfig holds Postgres connection settings
type DatabaseConfig struct {
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	User     string `yaml:"user" json:"user"`
	Password string `yaml:"password" json:"password"`
	Name     string `yaml:"name" json:"name"`
	SSLMode  string `yaml:"ssl_mode" json:"ssl_mode"`
}

// Enabled reports whether a database backend is configured
func (d *DatabaseConfig) Enabled() bool {
	return d.Host != "" && d.Name != ""
}

// DSN builds a Postgres connection string from the settings
func (d *DatabaseConfig) DSN() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslMode)
}

// InstagramConfig holds Instagram session settings
type InstagramConfig struct {
	Username    string `yaml:"username" json:"username"`
	SessionID   string `yaml:"session_id" json:"session_id"`
	SessionFile string `yaml:"session_file" json:"session_file"`
	UserAgent   string `yaml:"user_agent" json:"user_agent"`
}

// SyncConfig holds sweep pacing and backoff settings
type SyncConfig struct {
	// AccountCap truncates the prioritized account list (0 means unlimited)
	AccountCap int `yaml:"account_cap" json:"account_cap"`

	// RequestsPerMinute throttles the Instagram client
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`

	// Steady-state inter-account delay intervals
	ActiveDelayMin  time.Duration `yaml:"active_delay_min" json:"active_delay_min"`
	ActiveDelayMax  time.Duration `yaml:"active_delay_max" json:"active_delay_max"`
	DeletedDelayMin time.Duration `yaml:"deleted_delay_min" json:"deleted_delay_min"`
	DeletedDelayMax time.Duration `yaml:"deleted_delay_max" json:"deleted_delay_max"`

	// One-time additional backoff after connection-class errors
	ActiveErrorDelayMin  time.Duration `yaml:"active_error_delay_min" json:"active_error_delay_min"`
	ActiveErrorDelayMax  time.Duration `yaml:"active_error_delay_max" json:"active_error_delay_max"`
	DeletedErrorDelayMin time.Duration `yaml:"deleted_error_delay_min" json:"deleted_error_delay_min"`
	DeletedErrorDelayMax time.Duration `yaml:"deleted_error_delay_max" json:"deleted_error_delay_max"`

	// SnapshotBatchSize is the row count per bulk insert statement
	SnapshotBatchSize int `yaml:"snapshot_batch_size" json:"snapshot_batch_size"`
}

// UnmarshalYAML accepts "30s"/"3m" style duration strings for the delay
// intervals. Absent fields keep their prior values, so defaults survive
// a partial config file.
func (s *SyncConfig) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		AccountCap           *int   `yaml:"account_cap"`
		RequestsPerMinute    *int   `yaml:"requests_per_minute"`
		ActiveDelayMin       string `yaml:"active_delay_min"`
		ActiveDelayMax       string `yaml:"active_delay_max"`
		DeletedDelayMin      string `yaml:"deleted_delay_min"`
		DeletedDelayMax      string `yaml:"deleted_delay_max"`
		ActiveErrorDelayMin  string `yaml:"active_error_delay_min"`
		ActiveErrorDelayMax  string `yaml:"active_error_delay_max"`
		DeletedErrorDelayMin string `yaml:"deleted_error_delay_min"`
		DeletedErrorDelayMax string `yaml:"deleted_error_delay_max"`
		SnapshotBatchSize    *int   `yaml:"snapshot_batch_size"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}

	if raw.AccountCap != nil {
		s.AccountCap = *raw.AccountCap
	}
	if raw.RequestsPerMinute != nil {
		s.RequestsPerMinute = *raw.RequestsPerMinute
	}
	if raw.SnapshotBatchSize != nil {
		s.SnapshotBatchSize = *raw.SnapshotBatchSize
	}

	durations := []struct {
		value  string
		target *time.Duration
	}{
		{raw.ActiveDelayMin, &s.ActiveDelayMin},
		{raw.ActiveDelayMax, &s.ActiveDelayMax},
		{raw.DeletedDelayMin, &s.DeletedDelayMin},
		{raw.DeletedDelayMax, &s.DeletedDelayMax},
		{raw.ActiveErrorDelayMin, &s.ActiveErrorDelayMin},
		{raw.ActiveErrorDelayMax, &s.ActiveErrorDelayMax},
		{raw.DeletedErrorDelayMin, &s.DeletedErrorDelayMin},
		{raw.DeletedErrorDelayMax, &s.DeletedErrorDelayMax},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", d.value, err)
		}
		*d.target = parsed
	}

	return nil
}

// OutputConfig holds JSON file backend settings
type OutputConfig struct {
	DataDirectory string `yaml:"data_directory" json:"data_directory"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Port:    5432,
			SSLMode: "disable",
		},
		Instagram: InstagramConfig{
			UserAgent:   "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
			SessionFile: "instagram.session",
		},
		Sync: SyncConfig{
			AccountCap:           0,
			RequestsPerMinute:    6,
			ActiveDelayMin:       30 * time.Second,
			ActiveDelayMax:       3 * time.Minute,
			DeletedDelayMin:      5 * time.Minute,
			DeletedDelayMax:      15 * time.Minute,
			ActiveErrorDelayMin:  2 * time.Minute,
			ActiveErrorDelayMax:  6 * time.Minute,
			DeletedErrorDelayMin: 15 * time.Minute,
			DeletedErrorDelayMax: 30 * time.Minute,
			SnapshotBatchSize:    1000,
		},
		Output: OutputConfig{
			DataDirectory: "./data",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if host := os.Getenv("IGTRACKER_POSTGRES_HOST"); host != "" {
		c.Database.Host = host
	}
	if port := os.Getenv("IGTRACKER_POSTGRES_PORT"); port != "" {
		if val, err := strconv.Atoi(port); err == nil && val > 0 {
			c.Database.Port = val
		}
	}
	if user := os.Getenv("IGTRACKER_POSTGRES_USER"); user != "" {
		c.Database.User = user
	}
	if password := os.Getenv("IGTRACKER_POSTGRES_PASSWORD"); password != "" {
		c.Database.Password = password
	}
	if name := os.Getenv("IGTRACKER_POSTGRES_DB"); name != "" {
		c.Database.Name = name
	}

	if username := os.Getenv("IGTRACKER_USERNAME"); username != "" {
		c.Instagram.Username = username
	}
	if sessionID := os.Getenv("IGTRACKER_SESSION_ID"); sessionID != "" {
		c.Instagram.SessionID = sessionID
	}
	if sessionFile := os.Getenv("IGTRACKER_SESSION_FILE"); sessionFile != "" {
		c.Instagram.SessionFile = sessionFile
	}

	if cap := os.Getenv("IGTRACKER_ACCOUNT_CAP"); cap != "" {
		if val, err := strconv.Atoi(cap); err == nil && val >= 0 {
			c.Sync.AccountCap = val
		}
	}
	if rpm := os.Getenv("IGTRACKER_REQUESTS_PER_MINUTE"); rpm != "" {
		if val, err := strconv.Atoi(rpm); err == nil && val > 0 {
			c.Sync.RequestsPerMinute = val
		}
	}

	if dataDir := os.Getenv("IGTRACKER_DATA_DIR"); dataDir != "" {
		c.Output.DataDirectory = dataDir
	}

	if logLevel := os.Getenv("IGTRACKER_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
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
		".igtracker.yaml",
		".igtracker.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "igtracker", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".igtracker.yaml"),
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

	if c.Sync.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}
	if c.Sync.AccountCap < 0 {
		errs = append(errs, errors.New("account cap cannot be negative"))
	}
	if c.Sync.ActiveDelayMin > c.Sync.ActiveDelayMax {
		errs = append(errs, errors.New("active delay interval is inverted"))
	}
	if c.Sync.DeletedDelayMin > c.Sync.DeletedDelayMax {
		errs = append(errs, errors.New("deleted delay interval is inverted"))
	}
	if c.Sync.ActiveErrorDelayMin > c.Sync.ActiveErrorDelayMax {
		errs = append(errs, errors.New("active error delay interval is inverted"))
	}
	if c.Sync.DeletedErrorDelayMin > c.Sync.DeletedErrorDelayMax {
		errs = append(errs, errors.New("deleted error delay interval is inverted"))
	}
	if c.Sync.SnapshotBatchSize <= 0 {
		errs = append(errs, errors.New("snapshot batch size must be positive"))
	}

	if !c.Database.Enabled() && c.Output.DataDirectory == "" {
		errs = append(errs, errors.New("data directory is required when no database is configured"))
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

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if sessionID, ok := flags["session-id"].(string); ok && sessionID != "" {
		c.Instagram.SessionID = sessionID
	}
	if sessionFile, ok := flags["session-file"].(string); ok && sessionFile != "" {
		c.Instagram.SessionFile = sessionFile
	}
	if dataDir, ok := flags["data-dir"].(string); ok && dataDir != "" {
		c.Output.DataDirectory = dataDir
	}
	if cap, ok := flags["account-cap"].(int); ok && cap > 0 {
		c.Sync.AccountCap = cap
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".igtracker.env"))

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

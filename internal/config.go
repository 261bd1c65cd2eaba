package internal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// folderIDPattern matches the long id embedded in a Drive folder URL
var folderIDPattern = regexp.MustCompile(`[-\w]{25,}`)

type Config struct {
	// Folder is the Drive folder id, or a URL containing it
	Folder string `yaml:"folder,omitempty"`

	// SessionFile is the browser storage state holding the dashboard login
	SessionFile string `yaml:"session_file,omitempty"`

	// CredentialsFile is the OAuth client secret downloaded from the cloud console
	CredentialsFile string `yaml:"credentials_file,omitempty"`

	// TokenFile caches the OAuth token between runs
	TokenFile string `yaml:"token_file,omitempty"`

	// DashboardURL may contain {date}, replaced with YYYY-MM-DD
	DashboardURL string `yaml:"dashboard_url,omitempty"`

	// TableName is matched as a substring of the timesheet file name
	TableName string `yaml:"table_name,omitempty"`

	ScreenshotDir string `yaml:"screenshot_dir,omitempty"`
	OwnerLabel    string `yaml:"owner_label,omitempty"`
	SheetRange    string `yaml:"sheet_range,omitempty"`
	ChromePath    string `yaml:"chrome_path,omitempty"`

	ChartWait         time.Duration `yaml:"chart_wait,omitempty"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout,omitempty"`
}

// envOverrides maps environment variables to the fields they replace
var envOverrides = map[string]func(c *Config) *string{
	"TIMESHEET_FOLDER":           func(c *Config) *string { return &c.Folder },
	"TIMESHEET_SESSION_FILE":     func(c *Config) *string { return &c.SessionFile },
	"TIMESHEET_CREDENTIALS_FILE": func(c *Config) *string { return &c.CredentialsFile },
	"TIMESHEET_TOKEN_FILE":       func(c *Config) *string { return &c.TokenFile },
}

// DefaultConfigPath returns the default config file path (~/.timesheet-automator/config.yaml)
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".timesheet-automator", "config.yaml")
}

// NewDefaultConfig creates a config with every default filled in.
// Use this when no config file exists.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if cfg.ChartWait < 0 || cfg.NavigationTimeout < 0 {
		return nil, fmt.Errorf("invalid config: timeouts must not be negative")
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// LoadConfigOrDefault loads path, falling back to defaults if it does not exist
func LoadConfigOrDefault(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if errors.Is(err, os.ErrNotExist) {
		return NewDefaultConfig(), nil
	}
	return cfg, err
}

// LoadDotEnv loads KEY=VALUE pairs from path into the environment.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides file settings with non-empty environment values
func (c *Config) ApplyEnv(getenv func(string) string) {
	for key, field := range envOverrides {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*field(c) = v
		}
	}
}

func (c *Config) applyDefaults() {
	if c.SessionFile == "" {
		c.SessionFile = "auth.json"
	}
	if c.CredentialsFile == "" {
		c.CredentialsFile = "credentials.json"
	}
	if c.TokenFile == "" {
		c.TokenFile = "token.json"
	}
	if c.DashboardURL == "" {
		c.DashboardURL = DefaultDashboardURL
	}
	if c.TableName == "" {
		c.TableName = "Time update"
	}
	if c.ScreenshotDir == "" {
		c.ScreenshotDir = "screenshots"
	}
	if c.OwnerLabel == "" {
		c.OwnerLabel = DefaultOwnerLabel
	}
	if c.SheetRange == "" {
		c.SheetRange = DefaultSheetRange
	}
	if c.ChartWait == 0 {
		c.ChartWait = 10 * time.Second
	}
	if c.NavigationTimeout == 0 {
		c.NavigationTimeout = 15 * time.Second
	}
}

func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	// Create parent directories if they don't exist
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// FolderID returns the configured folder id, extracted from a URL if needed
func (c *Config) FolderID() string {
	if c == nil {
		return ""
	}
	return ExtractFolderID(c.Folder)
}

// ExtractFolderID pulls the long alphanumeric id out of a folder URL.
// Values without one are returned trimmed.
func ExtractFolderID(value string) string {
	if m := folderIDPattern.FindString(value); m != "" {
		return m
	}
	return strings.TrimSpace(value)
}

// RunConfig is the fixed per-run view of the config handed to the orchestrator
func (c *Config) RunConfig(dryRun bool) RunConfig {
	return RunConfig{
		FolderID:   c.FolderID(),
		TableName:  c.TableName,
		OwnerLabel: c.OwnerLabel,
		SheetRange: c.SheetRange,
		DryRun:     dryRun,
	}
}

func (c *Config) CaptureConfig(session Session) CaptureConfig {
	return CaptureConfig{
		DashboardURL:      c.DashboardURL,
		ScreenshotDir:     c.ScreenshotDir,
		Session:           session,
		NavigationTimeout: c.NavigationTimeout,
		ChartWait:         c.ChartWait,
		ExecPath:          c.ChromePath,
	}
}

package internal

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `folder: https://drive.google.com/drive/folders/1AbCdEfGhIjKlMnOpQrStUvWxYz012345?usp=sharing
session_file: /secrets/auth.json
table_name: Hours 2024
owner_label: Ada
chart_wait: 5s
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if got := cfg.FolderID(); got != "1AbCdEfGhIjKlMnOpQrStUvWxYz012345" {
		t.Errorf("FolderID() = %q", got)
	}
	if cfg.SessionFile != "/secrets/auth.json" {
		t.Errorf("SessionFile = %q", cfg.SessionFile)
	}
	if cfg.TableName != "Hours 2024" || cfg.OwnerLabel != "Ada" {
		t.Errorf("TableName/OwnerLabel = %q/%q", cfg.TableName, cfg.OwnerLabel)
	}
	if cfg.ChartWait != 5*time.Second {
		t.Errorf("ChartWait = %v, want 5s", cfg.ChartWait)
	}
	// Unset values get defaults
	if cfg.NavigationTimeout != 15*time.Second {
		t.Errorf("NavigationTimeout = %v, want 15s", cfg.NavigationTimeout)
	}
	if cfg.TokenFile != "token.json" || cfg.SheetRange != DefaultSheetRange {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "folder: [unclosed"},
		{"negative timeout", "chart_wait: -1s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadConfig(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadConfigOrDefault_Missing(t *testing.T) {
	cfg, err := LoadConfigOrDefault(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.TableName != "Time update" || cfg.DashboardURL != DefaultDashboardURL {
		t.Errorf("expected default config, got %+v", cfg)
	}
	if cfg.FolderID() != "" {
		t.Errorf("FolderID() = %q, want empty", cfg.FolderID())
	}
}

func TestConfig_SaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := NewDefaultConfig()
	cfg.Folder = "1AbCdEfGhIjKlMnOpQrStUvWxYz012345"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if *loaded != *cfg {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", loaded, cfg)
	}
}

func TestConfig_ApplyEnv(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Folder = "from-file"
	env := map[string]string{
		"TIMESHEET_FOLDER":       "from-env",
		"TIMESHEET_SESSION_FILE": "  ",
		"TIMESHEET_TOKEN_FILE":   "/tmp/token.json",
	}

	cfg.ApplyEnv(func(k string) string { return env[k] })

	if cfg.Folder != "from-env" {
		t.Errorf("Folder = %q, want from-env", cfg.Folder)
	}
	if cfg.SessionFile != "auth.json" {
		t.Errorf("blank env value overrode SessionFile: %q", cfg.SessionFile)
	}
	if cfg.TokenFile != "/tmp/token.json" {
		t.Errorf("TokenFile = %q", cfg.TokenFile)
	}
}

func TestLoadDotEnv(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Errorf("missing .env should be ignored, got %v", err)
	}

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("TIMESHEET_TEST_DOTENV=loaded\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TIMESHEET_TEST_DOTENV", "")
	os.Unsetenv("TIMESHEET_TEST_DOTENV")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("TIMESHEET_TEST_DOTENV"); got != "loaded" {
		t.Errorf("TIMESHEET_TEST_DOTENV = %q, want loaded", got)
	}
}

func TestExtractFolderID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"bare id", "1AbCdEfGhIjKlMnOpQrStUvWxYz012345", "1AbCdEfGhIjKlMnOpQrStUvWxYz012345"},
		{"folder url", "https://drive.google.com/drive/folders/1AbCdEfGhIjKlMnOpQrStUvWxYz012345", "1AbCdEfGhIjKlMnOpQrStUvWxYz012345"},
		{"url with query", "https://drive.google.com/drive/u/0/folders/1Ab-CdEf_GhIjKlMnOpQrStUvWx?usp=sharing", "1Ab-CdEf_GhIjKlMnOpQrStUvWx"},
		{"short value trimmed", "  short-id ", "short-id"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractFolderID(tt.input); got != tt.expected {
				t.Errorf("ExtractFolderID(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestConfig_RunAndCaptureConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Folder = "https://drive.google.com/drive/folders/1AbCdEfGhIjKlMnOpQrStUvWxYz012345"
	cfg.ChromePath = "/usr/bin/chromium"

	run := cfg.RunConfig(true)
	if run.FolderID != "1AbCdEfGhIjKlMnOpQrStUvWxYz012345" || !run.DryRun || run.TableName != "Time update" {
		t.Errorf("RunConfig = %+v", run)
	}

	session := Session{Cookies: []SessionCookie{{Name: "session", Value: "v"}}}
	capture := cfg.CaptureConfig(session)
	if capture.ExecPath != "/usr/bin/chromium" || capture.Session.Empty() || capture.ChartWait != 10*time.Second {
		t.Errorf("CaptureConfig = %+v", capture)
	}
}

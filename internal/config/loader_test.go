package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	// Create a temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test.yaml")

	configContent := `
source:
  host: localhost
  port: 3306
  user: testuser
  password: testpass
  database: testdb
  tls: disable
  max_connections: 5
  max_idle_connections: 2

entities:
  user:
    table: users
    display_field: email
    exclude_fields:
      - password
      - secret_token
  company:
    table: companies

export:
  format: csv
  method: local
  output_dir: /tmp/exports
  emitter: exports@example.com

mail:
  host: smtp.example.com
  port: 2525
  username: mailer
  password: mailpass

logging:
  level: debug
  format: text
  output: stderr
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Verify source config
	if cfg.Source.Host != "localhost" {
		t.Errorf("expected source host 'localhost', got %s", cfg.Source.Host)
	}
	if cfg.Source.Port != 3306 {
		t.Errorf("expected source port 3306, got %d", cfg.Source.Port)
	}
	if cfg.Source.MaxConnections != 5 {
		t.Errorf("expected source max_connections 5, got %d", cfg.Source.MaxConnections)
	}

	// Verify entity config
	user, err := cfg.GetEntity("user")
	if err != nil {
		t.Fatalf("failed to get entity 'user': %v", err)
	}
	if user.Table != "users" {
		t.Errorf("expected table 'users', got %s", user.Table)
	}
	if user.DisplayField != "email" {
		t.Errorf("expected display_field 'email', got %s", user.DisplayField)
	}
	if len(user.ExcludeFields) != 2 {
		t.Errorf("expected 2 excluded fields, got %d", len(user.ExcludeFields))
	}

	company, err := cfg.GetEntity("company")
	if err != nil {
		t.Fatalf("failed to get entity 'company': %v", err)
	}
	if len(company.ExcludeFields) != 0 {
		t.Errorf("expected no excluded fields, got %d", len(company.ExcludeFields))
	}

	// Verify export defaults
	if cfg.Export.Format != "csv" {
		t.Errorf("expected export format 'csv', got %s", cfg.Export.Format)
	}
	if cfg.Export.Method != "local" {
		t.Errorf("expected export method 'local', got %s", cfg.Export.Method)
	}
	if cfg.Export.OutputDir != "/tmp/exports" {
		t.Errorf("expected output_dir '/tmp/exports', got %s", cfg.Export.OutputDir)
	}

	// Verify mail config
	if cfg.Mail.Host != "smtp.example.com" {
		t.Errorf("expected mail host 'smtp.example.com', got %s", cfg.Mail.Host)
	}
	if cfg.Mail.Port != 2525 {
		t.Errorf("expected mail port 2525, got %d", cfg.Mail.Port)
	}

	// Verify logging config
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoad_Defaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "minimal.yaml")

	configContent := `
source:
  host: localhost
  user: root
  database: testdb

entities:
  user:
    table: users
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Source.Port != 3306 {
		t.Errorf("expected default port 3306, got %d", cfg.Source.Port)
	}
	if cfg.Export.Format != "json" {
		t.Errorf("expected default format 'json', got %s", cfg.Export.Format)
	}
	if cfg.Export.Method != "log" {
		t.Errorf("expected default method 'log', got %s", cfg.Export.Method)
	}
	if cfg.Export.Emitter != "no-reply@account-review.com" {
		t.Errorf("expected default emitter, got %s", cfg.Export.Emitter)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected default log level 'info', got %s", cfg.Logging.Level)
	}
}

func TestLoad_EnvSubstitution(t *testing.T) {
	t.Setenv("AR_TEST_DB_PASSWORD", "supersecret")
	t.Setenv("AR_TEST_MAIL_USER", "mailuser")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "env.yaml")

	configContent := `
source:
  host: localhost
  user: root
  password: ${AR_TEST_DB_PASSWORD}
  database: testdb

entities:
  user:
    table: users

mail:
  host: smtp.example.com
  username: $AR_TEST_MAIL_USER
  password: ${AR_TEST_UNSET_VAR}
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Source.Password != "supersecret" {
		t.Errorf("expected substituted password, got %s", cfg.Source.Password)
	}
	if cfg.Mail.Username != "mailuser" {
		t.Errorf("expected substituted mail username, got %s", cfg.Mail.Username)
	}
	// Unset variables keep the original placeholder
	if cfg.Mail.Password != "${AR_TEST_UNSET_VAR}" {
		t.Errorf("expected unreplaced placeholder, got %s", cfg.Mail.Password)
	}
}

func TestGetEntity_NotFound(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Entities = map[string]EntityConfig{"user": {Table: "users"}}

	if _, err := cfg.GetEntity("missing"); err == nil {
		t.Fatal("expected error for unknown entity")
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg := DefaultConfig()

	cfg.ApplyOverrides("debug", "json")
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected overridden level 'debug', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("expected overridden format 'json', got %s", cfg.Logging.Format)
	}

	// Empty overrides leave values untouched
	cfg.ApplyOverrides("", "")
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Error("empty overrides must not reset values")
	}
}

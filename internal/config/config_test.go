package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CHATDB_DB_PATH", "")
	t.Setenv("CHATDB_COMMIT_EVERY", "")
	t.Setenv("CHATDB_INPUT_PATTERN", "")
	t.Setenv("CHATDB_LOG_LEVEL", "")

	cfg := Load()
	if cfg.DBPath != DefaultDBPath {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, DefaultDBPath)
	}
	if cfg.CommitEvery != DefaultCommitEvery {
		t.Errorf("CommitEvery = %d, want %d", cfg.CommitEvery, DefaultCommitEvery)
	}
	if cfg.InputPattern != DefaultInputPattern {
		t.Errorf("InputPattern = %q, want %q", cfg.InputPattern, DefaultInputPattern)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want INFO", cfg.LogLevel)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CHATDB_DB_PATH", "/tmp/other.db")
	t.Setenv("CHATDB_COMMIT_EVERY", "25")
	t.Setenv("CHATDB_LOG_LEVEL", "debug")

	cfg := Load()
	if cfg.DBPath != "/tmp/other.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.CommitEvery != 25 {
		t.Errorf("CommitEvery = %d, want 25", cfg.CommitEvery)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want DEBUG", cfg.LogLevel)
	}
}

func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		name string
		val  string
		want int
	}{
		{"unset", "", 100},
		{"valid", "7", 7},
		{"not a number", "lots", 100},
		{"zero", "0", 100},
		{"negative", "-3", 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CHATDB_TEST_INT", tt.val)
			if got := getEnvInt("CHATDB_TEST_INT", 100); got != tt.want {
				t.Errorf("getEnvInt() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"Warning", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"nonsense", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := parseLogLevel(tt.in); got != tt.want {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSetupLoggerWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chatdb.log")
	logger, cleanup := SetupLogger(path, slog.LevelInfo)

	logger.Debug("hidden")
	logger.With("run_id", "r1").Warn("skipping record", "index", 3)
	if err := cleanup(); err != nil {
		t.Fatalf("cleanup() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(data), "hidden") {
		t.Errorf("debug message should be filtered: %q", data)
	}

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &entry); err != nil {
		t.Fatalf("log file is not one JSON line: %v (%q)", err, data)
	}
	for key, want := range map[string]any{"msg": "skipping record", "level": "WARN", "run_id": "r1", "index": float64(3)} {
		if entry[key] != want {
			t.Errorf("entry[%q] = %v, want %v", key, entry[key], want)
		}
	}
}

func TestSetupLoggerAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chatdb.log")
	for i := 0; i < 2; i++ {
		logger, cleanup := SetupLogger(path, slog.LevelInfo)
		logger.Info("run")
		if err := cleanup(); err != nil {
			t.Fatal(err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if n := bytes.Count(data, []byte("\n")); n != 2 {
		t.Errorf("log file has %d lines, want 2", n)
	}
}

func TestSetupLoggerUnwritableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "chatdb.log")
	logger, cleanup := SetupLogger(path, slog.LevelError)
	if logger == nil {
		t.Fatal("expected fallback logger")
	}
	if err := cleanup(); err != nil {
		t.Errorf("cleanup() error = %v", err)
	}
}

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Default values used when the environment does not override them.
const (
	DefaultDBPath       = "chats.db"
	DefaultCommitEvery  = 100
	DefaultInputPattern = "*.json"
)

// Config holds all configuration values.
type Config struct {
	// Store
	DBPath      string
	CommitEvery int

	// Input discovery
	InputPattern string

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from environment variables.
func Load() Config {
	return Config{
		DBPath:      getEnv("CHATDB_DB_PATH", DefaultDBPath),
		CommitEvery: getEnvInt("CHATDB_COMMIT_EVERY", DefaultCommitEvery),

		InputPattern: getEnv("CHATDB_INPUT_PATTERN", DefaultInputPattern),

		LogFile:  getEnv("CHATDB_LOG_FILE", filepath.Join(os.TempDir(), "chatdb.log")),
		LogLevel: parseLogLevel(getEnv("CHATDB_LOG_LEVEL", "INFO")),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvInt returns defaultVal for missing, malformed or non-positive values.
func getEnvInt(key string, defaultVal int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil || n <= 0 {
		return defaultVal
	}
	return n
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

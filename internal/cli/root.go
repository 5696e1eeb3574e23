// Package cli provides the command-line interface for chatdb.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/raphaelgruber/chatdb-go/internal/config"
	"github.com/raphaelgruber/chatdb-go/internal/db"
	"github.com/spf13/cobra"
)

// storeAnnotation marks commands that need the store, and how to open it.
const storeAnnotation = "store"

const (
	storeReadWrite = "rw"
	storeReadOnly  = "ro"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool
	dbPath  string

	// Global config, logger and db client
	cfg      config.Config
	logger   *slog.Logger
	closeLog func() error
	dbClient *db.Client
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "chatdb",
	Short: "Convert Open WebUI chat exports to SQLite",
	Long: `Chatdb converts an Open WebUI chat export (one JSON array of chat records)
into a SQLite database with chats, messages, tags and chat_models tables.

The export is streamed one record at a time, so exports of any size can be
imported. Malformed records are skipped and reported; the rest are kept.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip setup for version and help commands
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg = config.Load()
		if dbPath != "" {
			cfg.DBPath = dbPath
		}

		level := cfg.LogLevel
		if verbose {
			level = slog.LevelDebug
		}
		logger, closeLog = config.SetupLogger(cfg.LogFile, level)
		logger = logger.With("run_id", uuid.New().String(), "command", cmd.Name())

		mode, ok := cmd.Annotations[storeAnnotation]
		if !ok {
			return nil
		}
		return openStore(cmd.Context(), mode)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeAll()
	},
}

// openStore opens the store for a command. Commands that validate their
// arguments first (import) call it themselves instead.
func openStore(ctx context.Context, mode string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var err error
	dbClient, err = db.Open(ctx, db.Config{Path: cfg.DBPath, ReadOnly: mode == storeReadOnly}, logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	if mode == storeReadWrite {
		if err := dbClient.InitSchema(ctx); err != nil {
			return fmt.Errorf("initialize schema: %w", err)
		}
	}
	return nil
}

func closeAll() {
	if dbClient != nil {
		if err := dbClient.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
		}
		dbClient = nil
	}
	if closeLog != nil {
		_ = closeLog()
		closeLog = nil
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	// PersistentPostRun is skipped when RunE fails.
	defer closeAll()
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database file (default $CHATDB_DB_PATH or chats.db)")

	// Add subcommands
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(monthlyCmd)
	rootCmd.AddCommand(structureCmd)
}

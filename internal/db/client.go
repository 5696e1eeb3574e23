// Package db provides the SQLite store that chat exports are written to.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure-Go SQLite driver (no CGO required)
)

// Config holds store configuration.
type Config struct {
	// Path of the SQLite file. Created on first open unless ReadOnly.
	Path string
	// ReadOnly opens an existing store without write access.
	ReadOnly bool
}

// Client wraps the SQLite connection.
type Client struct {
	db     *sql.DB
	cfg    Config
	logger *slog.Logger
}

// Open opens (or creates) the store described by cfg.
func Open(ctx context.Context, cfg Config, log *slog.Logger) (*Client, error) {
	if log == nil {
		log = slog.Default()
	}

	if cfg.ReadOnly {
		if _, err := os.Stat(cfg.Path); errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDatabaseNotFound, cfg.Path)
		}
	}

	db, err := sql.Open("sqlite", dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", cfg.Path, err)
	}

	// Ingestion is sequential; one connection keeps the open transaction and
	// every statement on the same handle.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open sqlite %q: %w", cfg.Path, err)
	}

	log.Debug("opened store", "path", cfg.Path, "read_only", cfg.ReadOnly)
	return &Client{db: db, cfg: cfg, logger: log}, nil
}

// dsn builds a file: URI for cfg. The path is escaped so that '?', '#' and
// '%' in file names reach SQLite intact; a bare path would be split at '?'.
func dsn(cfg Config) string {
	mode := "rwc"
	if cfg.ReadOnly {
		mode = "ro"
	}
	u := url.URL{
		Scheme:   "file",
		Path:     filepath.ToSlash(cfg.Path),
		OmitHost: true,
		RawQuery: "mode=" + mode,
	}
	return u.String()
}

// Close closes the store.
func (c *Client) Close() error {
	c.logger.Debug("closing store", "path", c.cfg.Path)
	return c.db.Close()
}

// DB returns the underlying handle for ad-hoc queries.
func (c *Client) DB() *sql.DB {
	return c.db
}

// Path returns the store's file path.
func (c *Client) Path() string {
	return c.cfg.Path
}

// InitSchema creates any missing tables and indexes.
func (c *Client) InitSchema(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, SchemaSQL); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	c.logger.Debug("schema ready", "tables", Tables)
	return nil
}

// WipeData deletes all rows while preserving the schema.
// Used by "import --fresh" to start from an empty store.
func (c *Client) WipeData(ctx context.Context) error {
	c.logger.Warn("wiping all data from store")

	// Children first
	for i := len(Tables) - 1; i >= 0; i-- {
		if _, err := c.db.ExecContext(ctx, "DELETE FROM "+Tables[i]); err != nil {
			return fmt.Errorf("delete %s: %w", Tables[i], err)
		}
	}
	return nil
}

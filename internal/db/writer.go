package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/raphaelgruber/chatdb-go/internal/models"
)

// DefaultCommitEvery is the commit interval used when none is given.
const DefaultCommitEvery = 100

// Writer applies rows inside a long-lived transaction and commits every
// commitEvery source records. Rows written since the last commit are lost if
// the process dies; that window is the price of not committing per row.
//
// A Writer is not safe for concurrent use.
type Writer struct {
	db     *sql.DB
	client *Client
	every  int

	tx            *sql.Tx
	chatStmt      *sql.Stmt
	messageStmt   *sql.Stmt
	tagStmt       *sql.Stmt
	chatModelStmt *sql.Stmt

	pending   int // records since last commit
	committed int // records covered by a commit
	commits   int
}

// NewWriter opens a batch writer. commitEvery <= 0 selects DefaultCommitEvery.
func (c *Client) NewWriter(ctx context.Context, commitEvery int) (*Writer, error) {
	if commitEvery <= 0 {
		commitEvery = DefaultCommitEvery
	}
	w := &Writer{db: c.db, client: c, every: commitEvery}
	if err := w.begin(ctx); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Writer) begin(ctx context.Context) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}

	stmts := []struct {
		dst  **sql.Stmt
		sql  string
		name string
	}{
		{&w.chatStmt, insertChatSQL, TableChats},
		{&w.messageStmt, insertMessageSQL, TableMessages},
		{&w.tagStmt, insertTagSQL, TableTags},
		{&w.chatModelStmt, insertChatModelSQL, TableChatModels},
	}
	for _, s := range stmts {
		// Statements prepared on tx are closed with it.
		stmt, err := tx.PrepareContext(ctx, s.sql)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("prepare insert %s: %w", s.name, err)
		}
		*s.dst = stmt
	}

	w.tx = tx
	return nil
}

// InsertChat writes a chat row unless its id already exists.
func (w *Writer) InsertChat(ctx context.Context, c models.Chat) (bool, error) {
	return w.exec(ctx, w.chatStmt, TableChats,
		c.ID, c.UserID, c.Title, c.CreatedAt, c.UpdatedAt, c.Archived, c.Pinned, c.FolderID)
}

// InsertMessage writes a message row unless its id already exists.
func (w *Writer) InsertMessage(ctx context.Context, m models.Message) (bool, error) {
	return w.exec(ctx, w.messageStmt, TableMessages,
		m.ID, m.ChatID, m.Role, m.Content, m.Model, m.Timestamp)
}

// InsertTag writes a (chat, tag) pair unless it already exists.
func (w *Writer) InsertTag(ctx context.Context, t models.Tag) (bool, error) {
	return w.exec(ctx, w.tagStmt, TableTags, t.ChatID, t.TagName)
}

// InsertChatModel writes a (chat, model) pair unless it already exists.
func (w *Writer) InsertChatModel(ctx context.Context, m models.ChatModel) (bool, error) {
	return w.exec(ctx, w.chatModelStmt, TableChatModels, m.ChatID, m.ModelName)
}

// exec runs one insert. The bool reports whether a row was written; false
// with a nil error means the key already existed.
func (w *Writer) exec(ctx context.Context, stmt *sql.Stmt, table string, args ...any) (bool, error) {
	if w.tx == nil {
		return false, ErrWriterClosed
	}
	res, err := stmt.ExecContext(ctx, args...)
	if err != nil {
		return false, fmt.Errorf("insert %s: %w", table, wrapExecError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert %s: rows affected: %w", table, err)
	}
	return n > 0, nil
}

// RecordDone marks one source record as handled and commits when the batch
// is full. It reports whether a commit happened.
func (w *Writer) RecordDone(ctx context.Context) (bool, error) {
	if w.tx == nil {
		return false, ErrWriterClosed
	}
	w.pending++
	if w.pending < w.every {
		return false, nil
	}
	if err := w.commit(); err != nil {
		return false, err
	}
	return true, w.begin(ctx)
}

// Commit makes every pending write durable and closes the writer.
func (w *Writer) Commit(ctx context.Context) error {
	if w.tx == nil {
		return ErrWriterClosed
	}
	return w.commit()
}

func (w *Writer) commit() error {
	tx := w.tx
	w.tx = nil
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	w.committed += w.pending
	w.pending = 0
	w.commits++
	w.client.logger.Debug("committed batch", "records", w.committed, "commits", w.commits)
	return nil
}

// Close rolls back writes not yet committed. Safe to call after Commit.
func (w *Writer) Close() error {
	if w.tx == nil {
		return nil
	}
	tx := w.tx
	w.tx = nil
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback batch: %w", err)
	}
	if w.pending > 0 {
		w.client.logger.Warn("rolled back uncommitted records", "records", w.pending)
	}
	w.pending = 0
	return nil
}

// Committed returns the number of records covered by a commit so far.
func (w *Writer) Committed() int {
	return w.committed
}

// Commits returns the number of commits performed.
func (w *Writer) Commits() int {
	return w.commits
}

package db

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/raphaelgruber/chatdb-go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient opens a fresh store with the schema applied.
func newTestClient(t *testing.T) *Client {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chats.db")
	c, err := Open(context.Background(), Config{Path: path}, nil)
	require.NoError(t, err)
	require.NoError(t, c.InitSchema(context.Background()))
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func str(s string) sql.NullString { return sql.NullString{String: s, Valid: true} }
func i64(n int64) sql.NullInt64   { return sql.NullInt64{Int64: n, Valid: true} }

func TestInitSchemaIdempotent(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.InitSchema(ctx))
	require.NoError(t, c.InitSchema(ctx))

	for _, table := range Tables {
		n, err := c.CountRows(ctx, table)
		require.NoError(t, err, table)
		assert.Zero(t, n, table)
	}
}

func TestCountRowsUnknownTable(t *testing.T) {
	c := newTestClient(t)
	_, err := c.CountRows(context.Background(), "sqlite_master; DROP TABLE chats")
	assert.ErrorIs(t, err, ErrUnknownTable)
}

func TestOpenReadOnlyMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.db")
	_, err := Open(context.Background(), Config{Path: path, ReadOnly: true}, nil)
	assert.ErrorIs(t, err, ErrDatabaseNotFound)
}

func TestOpenReadOnlyRejectsWrites(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "chats.db")

	rw, err := Open(ctx, Config{Path: path}, nil)
	require.NoError(t, err)
	require.NoError(t, rw.InitSchema(ctx))
	require.NoError(t, rw.Close())

	ro, err := Open(ctx, Config{Path: path, ReadOnly: true}, nil)
	require.NoError(t, err)
	defer ro.Close()

	n, err := ro.CountRows(ctx, TableChats)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = ro.DB().ExecContext(ctx, `INSERT INTO chats (id) VALUES ('c1')`)
	assert.Error(t, err)
}

func TestWriterInsertOrIgnore(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	w, err := c.NewWriter(ctx, 10)
	require.NoError(t, err)
	defer w.Close()

	chat := models.Chat{ID: str("c1"), Title: str("first")}
	inserted, err := w.InsertChat(ctx, chat)
	require.NoError(t, err)
	assert.True(t, inserted)

	// Same id, different title: first write wins.
	inserted, err = w.InsertChat(ctx, models.Chat{ID: str("c1"), Title: str("second")})
	require.NoError(t, err)
	assert.False(t, inserted)

	msg := models.Message{ID: str("m1"), ChatID: str("c1"), Role: str("user"), Content: str("hi"), Timestamp: i64(5)}
	inserted, err = w.InsertMessage(ctx, msg)
	require.NoError(t, err)
	assert.True(t, inserted)
	inserted, err = w.InsertMessage(ctx, msg)
	require.NoError(t, err)
	assert.False(t, inserted)

	for _, name := range []string{"a", "a", "b"} {
		_, err := w.InsertTag(ctx, models.Tag{ChatID: str("c1"), TagName: name})
		require.NoError(t, err)
	}
	for _, name := range []string{"gpt-4o", "gpt-4o"} {
		_, err := w.InsertChatModel(ctx, models.ChatModel{ChatID: str("c1"), ModelName: name})
		require.NoError(t, err)
	}

	require.NoError(t, w.Commit(ctx))

	got, err := c.GetChat(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "first", got.Title.String)

	tags, err := c.ChatTags(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tags)

	mods, err := c.ChatModels(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"gpt-4o"}, mods)

	msgs, err := c.ChatMessages(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hi", msgs[0].Content.String)
	assert.False(t, msgs[0].Model.Valid)
}

func TestWriterNullKeyIsConstraintError(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	w, err := c.NewWriter(ctx, 10)
	require.NoError(t, err)
	defer w.Close()

	_, err = w.InsertChat(ctx, models.Chat{Title: str("no id")})
	assert.ErrorIs(t, err, ErrConstraint)

	_, err = w.InsertMessage(ctx, models.Message{ChatID: str("c1")})
	assert.ErrorIs(t, err, ErrConstraint)

	_, err = w.InsertTag(ctx, models.Tag{TagName: "orphan"})
	assert.ErrorIs(t, err, ErrConstraint)

	// The transaction survives statement failures.
	inserted, err := w.InsertChat(ctx, models.Chat{ID: str("c2")})
	require.NoError(t, err)
	assert.True(t, inserted)
	require.NoError(t, w.Commit(ctx))

	n, err := c.CountRows(ctx, TableChats)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestWriterCommitInterval(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	w, err := c.NewWriter(ctx, 2)
	require.NoError(t, err)

	var commits []bool
	for _, id := range []string{"c1", "c2", "c3"} {
		_, err := w.InsertChat(ctx, models.Chat{ID: str(id)})
		require.NoError(t, err)
		committed, err := w.RecordDone(ctx)
		require.NoError(t, err)
		commits = append(commits, committed)
	}
	assert.Equal(t, []bool{false, true, false}, commits)
	assert.Equal(t, 2, w.Committed())
	assert.Equal(t, 1, w.Commits())

	// Dropping the writer loses only the record after the last commit.
	require.NoError(t, w.Close())

	n, err := c.CountRows(ctx, TableChats)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestWriterClosed(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	w, err := c.NewWriter(ctx, 0)
	require.NoError(t, err)
	require.NoError(t, w.Commit(ctx))

	_, err = w.InsertChat(ctx, models.Chat{ID: str("c1")})
	assert.ErrorIs(t, err, ErrWriterClosed)
	_, err = w.RecordDone(ctx)
	assert.ErrorIs(t, err, ErrWriterClosed)
	assert.ErrorIs(t, w.Commit(ctx), ErrWriterClosed)
	assert.NoError(t, w.Close())
}

func TestGetChatNotFound(t *testing.T) {
	c := newTestClient(t)
	_, err := c.GetChat(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMonthlyChatCounts(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	w, err := c.NewWriter(ctx, 100)
	require.NoError(t, err)
	chats := []models.Chat{
		{ID: str("c1"), CreatedAt: i64(1700000000)}, // 2023-11-14
		{ID: str("c2"), CreatedAt: i64(1701388799)}, // 2023-11-30 23:59:59
		{ID: str("c3"), CreatedAt: i64(1701388800)}, // 2023-12-01 00:00:00
		{ID: str("c4"), CreatedAt: i64(1709251200)}, // 2024-03-01, skips Jan/Feb
		{ID: str("c5")},                             // no created_at
	}
	for _, chat := range chats {
		_, err := w.InsertChat(ctx, chat)
		require.NoError(t, err)
	}
	require.NoError(t, w.Commit(ctx))

	got, err := c.MonthlyChatCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.MonthCount{
		{Month: "2023-11", Count: 2},
		{Month: "2023-12", Count: 1},
		{Month: "2024-03", Count: 1},
	}, got)
}

func TestMonthlyChatCountsSkipsOutOfRangeEpoch(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	w, err := c.NewWriter(ctx, 100)
	require.NoError(t, err)
	chats := []models.Chat{
		{ID: str("c1"), CreatedAt: i64(1700000000)},
		{ID: str("c2"), CreatedAt: i64(1700000000000000)}, // microseconds, past year 9999
	}
	for _, chat := range chats {
		_, err := w.InsertChat(ctx, chat)
		require.NoError(t, err)
	}
	require.NoError(t, w.Commit(ctx))

	got, err := c.MonthlyChatCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.MonthCount{{Month: "2023-11", Count: 1}}, got)
}

func TestMonthlyChatCountsEmpty(t *testing.T) {
	c := newTestClient(t)
	got, err := c.MonthlyChatCounts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWipeData(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	w, err := c.NewWriter(ctx, 100)
	require.NoError(t, err)
	_, err = w.InsertChat(ctx, models.Chat{ID: str("c1")})
	require.NoError(t, err)
	_, err = w.InsertTag(ctx, models.Tag{ChatID: str("c1"), TagName: "a"})
	require.NoError(t, err)
	require.NoError(t, w.Commit(ctx))

	require.NoError(t, c.WipeData(ctx))
	for _, table := range Tables {
		n, err := c.CountRows(ctx, table)
		require.NoError(t, err)
		assert.Zero(t, n, table)
	}
}

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"relative", Config{Path: "chats.db"}, "file:chats.db?mode=rwc"},
		{"absolute read-only", Config{Path: "/data/chats.db", ReadOnly: true}, "file:/data/chats.db?mode=ro"},
		{"reserved characters", Config{Path: "/data/a?b#c%d.db"}, "file:/data/a%3Fb%23c%25d.db?mode=rwc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, dsn(tt.cfg))
		})
	}
}

func TestOpenPathWithReservedCharacters(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "chats?v=1#x.db")

	rw, err := Open(ctx, Config{Path: path}, nil)
	require.NoError(t, err)
	require.NoError(t, rw.InitSchema(ctx))
	require.NoError(t, rw.Close())

	_, err = os.Stat(path)
	require.NoError(t, err, "store should be created at the literal path")

	ro, err := Open(ctx, Config{Path: path, ReadOnly: true}, nil)
	require.NoError(t, err)
	defer ro.Close()

	n, err := ro.CountRows(ctx, TableChats)
	require.NoError(t, err)
	assert.Zero(t, n)
}

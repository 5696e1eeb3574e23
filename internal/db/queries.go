package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"github.com/raphaelgruber/chatdb-go/internal/models"
)

// MonthlyChatCounts counts chats per UTC calendar month of created_at,
// oldest first. Chats without created_at, or with one SQLite cannot place on
// the calendar (a millisecond epoch, say), are left out. Empty months are not
// filled in.
func (c *Client) MonthlyChatCounts(ctx context.Context) ([]models.MonthCount, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT strftime('%Y-%m', created_at, 'unixepoch') AS month, COUNT(id) AS chat_count
		FROM chats
		WHERE strftime('%Y-%m', created_at, 'unixepoch') IS NOT NULL
		GROUP BY month
		ORDER BY month`)
	if err != nil {
		return nil, fmt.Errorf("monthly chat counts: %w", err)
	}
	defer rows.Close()

	var out []models.MonthCount
	for rows.Next() {
		var mc models.MonthCount
		if err := rows.Scan(&mc.Month, &mc.Count); err != nil {
			return nil, fmt.Errorf("scan month: %w", err)
		}
		out = append(out, mc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("monthly chat counts: %w", err)
	}
	return out, nil
}

// CountRows returns the number of rows in one schema table.
func (c *Client) CountRows(ctx context.Context, table string) (int, error) {
	if !slices.Contains(Tables, table) {
		return 0, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	var n int
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// GetChat returns one chat by id.
func (c *Client) GetChat(ctx context.Context, id string) (*models.Chat, error) {
	var chat models.Chat
	err := c.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, created_at, updated_at, archived, pinned, folder_id
		FROM chats WHERE id = ?`, id).Scan(
		&chat.ID, &chat.UserID, &chat.Title, &chat.CreatedAt, &chat.UpdatedAt,
		&chat.Archived, &chat.Pinned, &chat.FolderID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("chat %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get chat %s: %w", id, err)
	}
	return &chat, nil
}

// ChatMessages returns a chat's messages ordered by timestamp.
func (c *Client) ChatMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, chat_id, role, content, model, timestamp
		FROM messages WHERE chat_id = ?
		ORDER BY timestamp, id`, chatID)
	if err != nil {
		return nil, fmt.Errorf("chat messages: %w", err)
	}
	defer rows.Close()

	var out []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ChatID, &m.Role, &m.Content, &m.Model, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ChatTags returns a chat's tag names in sorted order.
func (c *Client) ChatTags(ctx context.Context, chatID string) ([]string, error) {
	return c.names(ctx, `SELECT tag_name FROM tags WHERE chat_id = ? ORDER BY tag_name`, chatID)
}

// ChatModels returns a chat's model names in sorted order.
func (c *Client) ChatModels(ctx context.Context, chatID string) ([]string, error) {
	return c.names(ctx, `SELECT model_name FROM chat_models WHERE chat_id = ? ORDER BY model_name`, chatID)
}

func (c *Client) names(ctx context.Context, query, chatID string) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, query, chatID)
	if err != nil {
		return nil, fmt.Errorf("query names: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan name: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

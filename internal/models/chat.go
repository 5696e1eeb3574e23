// Package models defines the rows chatdb writes for each exported chat.
package models

import "database/sql"

// Chat is one row of the chats table. Every optional column is a sql.Null*
// value, invalid when the source record lacked the key or held null.
type Chat struct {
	ID        sql.NullString
	UserID    sql.NullString
	Title     sql.NullString
	CreatedAt sql.NullInt64
	UpdatedAt sql.NullInt64
	Archived  sql.NullBool
	Pinned    sql.NullBool
	FolderID  sql.NullString
}

// Message is one row of the messages table.
type Message struct {
	ID        sql.NullString
	ChatID    sql.NullString
	Role      sql.NullString
	Content   sql.NullString
	Model     sql.NullString
	Timestamp sql.NullInt64
}

// Tag links a chat to one tag name.
type Tag struct {
	ChatID  sql.NullString
	TagName string
}

// ChatModel links a chat to one model identifier used in it.
type ChatModel struct {
	ChatID    sql.NullString
	ModelName string
}

// Record is everything mapped from a single chat record of the export.
type Record struct {
	Chat     Chat
	Messages []Message
	// SkippedMessages counts message entries left out because they were not
	// objects or had no id.
	SkippedMessages int
	// Tags is the deduplicated, sorted union of both tag sources.
	Tags []string
	// Models keeps source order, duplicates included.
	Models []string
}

// ChatID returns the chat's id, or "" when the record has none.
func (r *Record) ChatID() string {
	if r == nil || !r.Chat.ID.Valid {
		return ""
	}
	return r.Chat.ID.String
}

// TagRows expands Tags into rows for the tags table.
func (r *Record) TagRows() []Tag {
	rows := make([]Tag, 0, len(r.Tags))
	for _, name := range r.Tags {
		rows = append(rows, Tag{ChatID: r.Chat.ID, TagName: name})
	}
	return rows
}

// ModelRows expands Models into rows for the chat_models table.
func (r *Record) ModelRows() []ChatModel {
	rows := make([]ChatModel, 0, len(r.Models))
	for _, name := range r.Models {
		rows = append(rows, ChatModel{ChatID: r.Chat.ID, ModelName: name})
	}
	return rows
}

// MonthCount is the number of chats created in one calendar month (UTC).
type MonthCount struct {
	Month string `json:"month" yaml:"month"` // YYYY-MM
	Count int    `json:"count" yaml:"count"`
}

// Package mapper turns one decoded chat record into table rows.
//
// Records come from Open WebUI exports, whose shape varies between versions
// and between chats: any key may be missing or null. Absence never fails a
// record; it becomes an invalid sql.Null* value or an empty collection.
// Values of an unusable type (an object where a string is expected, a record
// that is not an object at all) fail the record.
package mapper

import (
	"database/sql"
	"errors"
	"sort"

	"github.com/raphaelgruber/chatdb-go/internal/models"
)

// ErrNotObject indicates an array element that is not a JSON object.
var ErrNotObject = errors.New("chat record is not an object")

// Map extracts the chat, messages, tags and models of a record.
func Map(raw any) (*models.Record, error) {
	rec, ok := raw.(map[string]any)
	if !ok {
		return nil, fieldTypeErr(ErrNotObject, raw)
	}

	chat, err := mapChat(rec)
	if err != nil {
		return nil, err
	}

	// Conversation payload; anything but an object counts as empty.
	payload, _ := rec["chat"].(map[string]any)

	messages, skipped, err := mapMessages(payload, chat.ID)
	if err != nil {
		return nil, err
	}

	tags, err := mapTags(rec, payload)
	if err != nil {
		return nil, err
	}

	modelNames, err := stringList(payload, "models", "chat.models")
	if err != nil {
		return nil, err
	}

	return &models.Record{
		Chat:            chat,
		Messages:        messages,
		SkippedMessages: skipped,
		Tags:            tags,
		Models:          modelNames,
	}, nil
}

func mapChat(rec map[string]any) (models.Chat, error) {
	var c models.Chat
	f := fields{obj: rec}
	c.ID = f.str("id")
	c.UserID = f.str("user_id")
	c.Title = f.str("title")
	c.CreatedAt = f.integer("created_at")
	c.UpdatedAt = f.integer("updated_at")
	c.Archived = f.boolean("archived")
	c.Pinned = f.boolean("pinned")
	c.FolderID = f.str("folder_id")
	return c, f.err
}

// mapMessages reads chat.messages. Entries that are not objects, or that
// have no id to key them by, are skipped and counted.
func mapMessages(payload map[string]any, chatID sql.NullString) ([]models.Message, int, error) {
	list, ok := payload["messages"].([]any)
	if !ok {
		return nil, 0, nil
	}

	skipped := 0
	messages := make([]models.Message, 0, len(list))
	for i, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			skipped++
			continue
		}
		f := fields{obj: obj, prefix: messagePrefix(i)}
		m := models.Message{
			ID:        f.str("id"),
			ChatID:    chatID,
			Role:      f.str("role"),
			Content:   f.text("content"),
			Model:     f.str("model"),
			Timestamp: f.integer("timestamp"),
		}
		if f.err != nil {
			return nil, 0, f.err
		}
		if !m.ID.Valid {
			skipped++
			continue
		}
		messages = append(messages, m)
	}
	return messages, skipped, nil
}

// mapTags unions chat.tags and meta.tags.
func mapTags(rec, payload map[string]any) ([]string, error) {
	set := make(map[string]struct{})

	fromChat, err := stringList(payload, "tags", "chat.tags")
	if err != nil {
		return nil, err
	}
	meta, _ := rec["meta"].(map[string]any)
	fromMeta, err := stringList(meta, "tags", "meta.tags")
	if err != nil {
		return nil, err
	}

	for _, tag := range fromChat {
		set[tag] = struct{}{}
	}
	for _, tag := range fromMeta {
		set[tag] = struct{}{}
	}
	if len(set) == 0 {
		return nil, nil
	}

	tags := make([]string, 0, len(set))
	for tag := range set {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags, nil
}

// stringList reads obj[key] as a list of names. A missing or non-list value
// yields nil. Null entries are skipped.
func stringList(obj map[string]any, key, path string) ([]string, error) {
	list, ok := obj[key].([]any)
	if !ok {
		return nil, nil
	}

	out := make([]string, 0, len(list))
	for i, item := range list {
		if item == nil {
			continue
		}
		s, ok := scalarString(item)
		if !ok {
			return nil, &FieldError{Field: indexPath(path, i), Want: "string", Got: jsonType(item)}
		}
		out = append(out, s)
	}
	return out, nil
}

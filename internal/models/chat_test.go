package models

import (
	"database/sql"
	"testing"
)

func TestRecordChatID(t *testing.T) {
	tests := []struct {
		name string
		rec  *Record
		want string
	}{
		{"nil record", nil, ""},
		{"missing id", &Record{}, ""},
		{"with id", &Record{Chat: Chat{ID: sql.NullString{String: "c1", Valid: true}}}, "c1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rec.ChatID(); got != tt.want {
				t.Errorf("ChatID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRecordRows(t *testing.T) {
	id := sql.NullString{String: "c1", Valid: true}
	rec := &Record{
		Chat:   Chat{ID: id},
		Tags:   []string{"a", "b"},
		Models: []string{"gpt-4o", "gpt-4o"},
	}

	tags := rec.TagRows()
	if len(tags) != 2 {
		t.Fatalf("TagRows() len = %d, want 2", len(tags))
	}
	for i, tag := range tags {
		if tag.ChatID != id {
			t.Errorf("tag[%d].ChatID = %v, want %v", i, tag.ChatID, id)
		}
	}
	if tags[1].TagName != "b" {
		t.Errorf("tag[1].TagName = %q, want b", tags[1].TagName)
	}

	models := rec.ModelRows()
	if len(models) != 2 {
		t.Fatalf("ModelRows() len = %d, want 2 (duplicates kept)", len(models))
	}
	if models[0].ModelName != "gpt-4o" || models[0].ChatID != id {
		t.Errorf("models[0] = %+v", models[0])
	}
}

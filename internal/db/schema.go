package db

// SchemaSQL creates the chatdb tables. Every statement is idempotent so the
// same store can be reused across runs.
//
// Foreign keys are declared for documentation and tooling; they are not
// enforced (PRAGMA foreign_keys stays off).
const SchemaSQL = `
CREATE TABLE IF NOT EXISTS chats (
    id          TEXT PRIMARY KEY NOT NULL,
    user_id     TEXT,
    title       TEXT,
    created_at  INTEGER,
    updated_at  INTEGER,
    archived    BOOLEAN,
    pinned      BOOLEAN,
    folder_id   TEXT
);
CREATE INDEX IF NOT EXISTS idx_chats_created_at ON chats(created_at);

CREATE TABLE IF NOT EXISTS messages (
    id          TEXT PRIMARY KEY NOT NULL,
    chat_id     TEXT,
    role        TEXT,
    content     TEXT,
    model       TEXT,
    timestamp   INTEGER,
    FOREIGN KEY (chat_id) REFERENCES chats (id)
);
CREATE INDEX IF NOT EXISTS idx_messages_chat_id ON messages(chat_id);

CREATE TABLE IF NOT EXISTS tags (
    chat_id     TEXT NOT NULL,
    tag_name    TEXT NOT NULL,
    PRIMARY KEY (chat_id, tag_name),
    FOREIGN KEY (chat_id) REFERENCES chats (id)
);

CREATE TABLE IF NOT EXISTS chat_models (
    chat_id     TEXT NOT NULL,
    model_name  TEXT NOT NULL,
    PRIMARY KEY (chat_id, model_name),
    FOREIGN KEY (chat_id) REFERENCES chats (id)
);
`

// Table names.
const (
	TableChats      = "chats"
	TableMessages   = "messages"
	TableTags       = "tags"
	TableChatModels = "chat_models"
)

// Tables lists every table in the schema, parents first.
var Tables = []string{TableChats, TableMessages, TableTags, TableChatModels}

// Insert statements. ON CONFLICT DO NOTHING ignores key conflicts only, so
// NOT NULL violations still surface as errors.
const (
	insertChatSQL = `INSERT INTO chats (id, user_id, title, created_at, updated_at, archived, pinned, folder_id)
VALUES (?, ?, ?, ?, ?, ?, ?, ?) ON CONFLICT DO NOTHING`
	insertMessageSQL = `INSERT INTO messages (id, chat_id, role, content, model, timestamp)
VALUES (?, ?, ?, ?, ?, ?) ON CONFLICT DO NOTHING`
	insertTagSQL       = `INSERT INTO tags (chat_id, tag_name) VALUES (?, ?) ON CONFLICT DO NOTHING`
	insertChatModelSQL = `INSERT INTO chat_models (chat_id, model_name) VALUES (?, ?) ON CONFLICT DO NOTHING`
)

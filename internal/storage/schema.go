package storage

// SchemaVersion is stored in PRAGMA user_version
const SchemaVersion = 1

// Times are stored as Unix nanoseconds in UTC. seq records first insertion
// order and survives updates.
const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id           TEXT    PRIMARY KEY,
	provider     TEXT    NOT NULL,
	title        TEXT    NOT NULL,
	created_at   INTEGER NOT NULL,
	updated_at   INTEGER NOT NULL,
	content_hash TEXT    NOT NULL,
	seq          INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_conversations_created ON conversations(created_at, seq);
CREATE INDEX IF NOT EXISTS idx_conversations_provider ON conversations(provider);

CREATE TABLE IF NOT EXISTS messages (
	conversation_id TEXT    NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	position        INTEGER NOT NULL,
	role            TEXT    NOT NULL,
	content         TEXT    NOT NULL,
	timestamp       INTEGER,
	PRIMARY KEY (conversation_id, position)
) WITHOUT ROWID;
`

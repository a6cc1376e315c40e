package storage

// Dialect carries the few statements that differ between MySQL and SQLite.
// Everything else is written once with ? placeholders.
type Dialect struct {
	Name string

	// LockClause is appended to SELECTs that must hold row locks until commit.
	// SQLite serializes writers at the database level and has no FOR UPDATE.
	LockClause string

	UpsertOwnership string
	Schema          []string
}

var MySQL = Dialect{
	Name:       "mysql",
	LockClause: " FOR UPDATE",
	UpsertOwnership: `
		INSERT INTO ownership (item_id, owner_id, updated_at) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE owner_id = VALUES(owner_id), updated_at = VALUES(updated_at)`,
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS exchanges (
			id                VARCHAR(64) PRIMARY KEY,
			offered_item_id   VARCHAR(64) NOT NULL,
			requested_item_id VARCHAR(64) NOT NULL,
			requester_id      VARCHAR(64) NOT NULL,
			owner_id          VARCHAR(64) NOT NULL,
			status            VARCHAR(16) NOT NULL,
			requested_at      BIGINT      NOT NULL,
			responded_at      BIGINT      NULL,
			INDEX idx_exchanges_requester (requester_id),
			INDEX idx_exchanges_owner (owner_id)
		)`,
		`CREATE TABLE IF NOT EXISTS ownership (
			item_id    VARCHAR(64) PRIMARY KEY,
			owner_id   VARCHAR(64) NOT NULL,
			updated_at BIGINT      NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id              VARCHAR(64)  PRIMARY KEY,
			recipient_id    VARCHAR(64)  NOT NULL,
			type            VARCHAR(32)  NOT NULL,
			message         VARCHAR(512) NOT NULL,
			link            VARCHAR(255) NOT NULL,
			related_item_id VARCHAR(64)  NOT NULL,
			created_at      BIGINT       NOT NULL,
			is_read         BOOLEAN      NOT NULL DEFAULT FALSE,
			INDEX idx_notifications_recipient (recipient_id, created_at)
		)`,
		`CREATE TABLE IF NOT EXISTS books (
			id    VARCHAR(64)  PRIMARY KEY,
			title VARCHAR(255) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id    VARCHAR(64)  PRIMARY KEY,
			email VARCHAR(255) NOT NULL UNIQUE
		)`,
	},
}

var SQLite = Dialect{
	Name:       "sqlite",
	LockClause: "",
	UpsertOwnership: `
		INSERT INTO ownership (item_id, owner_id, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(item_id) DO UPDATE SET owner_id = excluded.owner_id, updated_at = excluded.updated_at`,
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS exchanges (
			id                TEXT PRIMARY KEY,
			offered_item_id   TEXT    NOT NULL,
			requested_item_id TEXT    NOT NULL,
			requester_id      TEXT    NOT NULL,
			owner_id          TEXT    NOT NULL,
			status            TEXT    NOT NULL,
			requested_at      INTEGER NOT NULL,
			responded_at      INTEGER NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_exchanges_requester ON exchanges (requester_id)`,
		`CREATE INDEX IF NOT EXISTS idx_exchanges_owner ON exchanges (owner_id)`,
		`CREATE TABLE IF NOT EXISTS ownership (
			item_id    TEXT PRIMARY KEY,
			owner_id   TEXT    NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id              TEXT PRIMARY KEY,
			recipient_id    TEXT    NOT NULL,
			type            TEXT    NOT NULL,
			message         TEXT    NOT NULL,
			link            TEXT    NOT NULL,
			related_item_id TEXT    NOT NULL,
			created_at      INTEGER NOT NULL,
			is_read         BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications (recipient_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS books (
			id    TEXT PRIMARY KEY,
			title TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id    TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE
		)`,
	},
}

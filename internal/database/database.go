package database

import (
	"database/sql"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS alerts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	chat_id INTEGER NOT NULL,
	symbol TEXT NOT NULL,
	asset_id TEXT NOT NULL,
	fiat TEXT NOT NULL,
	op TEXT NOT NULL CHECK (op IN ('above', 'below')),
	target TEXT NOT NULL,
	created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS alerts_chat_id ON alerts (chat_id);

CREATE TABLE IF NOT EXISTS settings (
	chat_id INTEGER PRIMARY KEY,
	fiat TEXT NOT NULL,
	updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS metrics (
	metric_name TEXT NOT NULL,
	label_key TEXT NOT NULL DEFAULT '',
	label_value TEXT NOT NULL DEFAULT '',
	metric_value REAL NOT NULL,
	PRIMARY KEY (metric_name, label_key, label_value)
);`

// Store keeps per-chat settings, alerts and persisted metric values.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the sqlite database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}
	// sqlite allows a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to create tables")
	}

	log.WithField("path", path).Debug("database initialized")
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

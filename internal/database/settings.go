package database

import (
	"database/sql"

	"github.com/pkg/errors"
)

// SetFiat stores the default fiat of a chat.
func (s *Store) SetFiat(chatID int64, fiat string) error {
	_, err := s.db.Exec(`
	INSERT INTO settings (chat_id, fiat) VALUES (?, ?)
	ON CONFLICT (chat_id) DO UPDATE SET fiat = excluded.fiat, updated_at = CURRENT_TIMESTAMP;`,
		chatID, fiat)
	return errors.Wrapf(err, "failed to save fiat for chat %d", chatID)
}

// GetFiat returns the stored default fiat of a chat, or "" when none is set.
func (s *Store) GetFiat(chatID int64) (string, error) {
	var fiat string
	err := s.db.QueryRow(`SELECT fiat FROM settings WHERE chat_id = ?;`, chatID).Scan(&fiat)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrapf(err, "failed to load fiat for chat %d", chatID)
	}
	return fiat, nil
}

package database

import (
	"crypto-assistant-bot/internal/types"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const alertColumns = `id, chat_id, symbol, asset_id, fiat, op, target, created_at`

// InsertAlert saves an alert and returns its id.
func (s *Store) InsertAlert(a types.Alert) (int64, error) {
	res, err := s.db.Exec(`
	INSERT INTO alerts (chat_id, symbol, asset_id, fiat, op, target)
	VALUES (?, ?, ?, ?, ?, ?);`,
		a.ChatID, a.Symbol, a.AssetID, a.Fiat, a.Op, a.Target.String())
	if err != nil {
		return 0, errors.Wrap(err, "failed to insert alert")
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Wrap(err, "failed to read alert id")
	}
	log.WithFields(log.Fields{"id": id, "chat_id": a.ChatID, "asset": a.AssetID, "op": a.Op, "target": a.Target}).
		Debug("alert inserted")
	return id, nil
}

// GetAllAlerts fetches every alert, oldest first.
func (s *Store) GetAllAlerts() ([]types.Alert, error) {
	return s.queryAlerts(`SELECT `+alertColumns+` FROM alerts ORDER BY id;`)
}

// GetAlertsByChatID fetches the alerts of one chat, oldest first.
func (s *Store) GetAlertsByChatID(chatID int64) ([]types.Alert, error) {
	alerts, err := s.queryAlerts(`SELECT `+alertColumns+` FROM alerts WHERE chat_id = ? ORDER BY id;`, chatID)
	return alerts, errors.Wrapf(err, "chat %d", chatID)
}

// DeleteAlert removes a triggered alert.
func (s *Store) DeleteAlert(alertID int64) error {
	if _, err := s.db.Exec(`DELETE FROM alerts WHERE id = ?;`, alertID); err != nil {
		return errors.Wrap(err, "failed to delete alert")
	}
	return nil
}

// DeleteChatAlert removes an alert only when it belongs to chatID.
func (s *Store) DeleteChatAlert(chatID, alertID int64) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM alerts WHERE id = ? AND chat_id = ?;`, alertID, chatID)
	if err != nil {
		return false, errors.Wrap(err, "failed to delete alert")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to delete alert")
	}
	return n > 0, nil
}

func (s *Store) queryAlerts(query string, args ...interface{}) ([]types.Alert, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query alerts")
	}
	defer rows.Close()

	var alerts []types.Alert
	for rows.Next() {
		var a types.Alert
		if err := rows.Scan(&a.ID, &a.ChatID, &a.Symbol, &a.AssetID, &a.Fiat, &a.Op, &a.Target, &a.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan row")
		}
		alerts = append(alerts, a)
	}
	return alerts, errors.Wrap(rows.Err(), "failed to read alerts")
}

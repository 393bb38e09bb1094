package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// SetRemindersEnabled turns expiry reminders on or off for a user.
func (s *SQLiteStore) SetRemindersEnabled(telegramID int64, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
	INSERT INTO user_settings (telegram_id, reminders_enabled)
	VALUES (?, ?)
	ON CONFLICT(telegram_id) DO UPDATE SET
		reminders_enabled = excluded.reminders_enabled;
	`
	_, err := s.db.Exec(query, telegramID, enabled)
	if err != nil {
		return fmt.Errorf("failed to set reminders: %w", err)
	}
	return nil
}

// RemindersEnabled reports whether a user wants expiry reminders. Users
// without settings get them.
func (s *SQLiteStore) RemindersEnabled(telegramID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var enabled bool
	err := s.db.QueryRow(
		"SELECT reminders_enabled FROM user_settings WHERE telegram_id = ?",
		telegramID,
	).Scan(&enabled)

	if err == sql.ErrNoRows {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query reminders setting: %w", err)
	}
	return enabled, nil
}

// ListUnremindedItems returns inventory items of owners whose ID starts with
// ownerPrefix that expire on or before the through date and have not been
// reminded about yet. Items are grouped by owner, soonest expiry first.
func (s *SQLiteStore) ListUnremindedItems(ownerPrefix string, through time.Time) ([]InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT `+inventoryColumns+` FROM inventory_items
		WHERE owner_id LIKE ? AND expiry_date <= ?
			AND id NOT IN (SELECT item_id FROM expiry_reminders)
		ORDER BY owner_id, expiry_date, created_at`,
		ownerPrefix+"%", through.Format(DateLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query expiring items: %w", err)
	}
	defer rows.Close()

	var items []InventoryItem
	for rows.Next() {
		item, err := scanInventoryItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inventory item: %w", err)
		}
		items = append(items, *item)
	}

	return items, rows.Err()
}

// MarkReminded records that reminders were sent for the given items. Rows are
// removed together with the item.
func (s *SQLiteStore) MarkReminded(itemIDs []string, at time.Time) error {
	if len(itemIDs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("INSERT OR IGNORE INTO expiry_reminders (item_id, notified_at) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, id := range itemIDs {
		if _, err := stmt.Exec(id, at); err != nil {
			return fmt.Errorf("failed to mark item %s reminded: %w", id, err)
		}
	}

	return tx.Commit()
}

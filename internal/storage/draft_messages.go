package storage

import (
	"database/sql"
	"fmt"
)

// TrackDraftMessage remembers that a chat message shows a draft, so a reply
// to it can edit that draft. The mapping goes away with the draft.
func (s *SQLiteStore) TrackDraftMessage(telegramID int64, messageID int, draftID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
	INSERT INTO draft_messages (telegram_id, message_id, draft_id)
	VALUES (?, ?, ?)
	ON CONFLICT(telegram_id, message_id) DO UPDATE SET
		draft_id = excluded.draft_id;
	`, telegramID, messageID, draftID)
	if err != nil {
		return fmt.Errorf("failed to track draft message: %w", err)
	}
	return nil
}

// DraftForMessage returns the ID of the draft shown by a chat message, or ""
// when the message shows no live draft.
func (s *SQLiteStore) DraftForMessage(telegramID int64, messageID int) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var draftID string
	err := s.db.QueryRow(
		"SELECT draft_id FROM draft_messages WHERE telegram_id = ? AND message_id = ?",
		telegramID, messageID,
	).Scan(&draftID)

	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query draft message: %w", err)
	}
	return draftID, nil
}

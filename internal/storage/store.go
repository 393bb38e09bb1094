// Package storage persists drafts, inventory and per-user settings in SQLite.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by mutating operations when the row does not exist
// or belongs to another owner.
var ErrNotFound = errors.New("not found")

// AllowedUser represents a user in the bot whitelist.
type AllowedUser struct {
	TelegramID int64
	AddedAt    time.Time
	AddedBy    int64
}

// Store defines the persistence operations used by the bot and HTTP API.
type Store interface {
	// Drafts
	CreateDrafts(drafts []Draft) ([]Draft, error)
	ListDrafts(ownerID string) ([]Draft, error)
	GetDraft(ownerID, id string) (*Draft, error)
	UpdateDraft(ownerID, id string, patch DraftPatch) (*Draft, error)
	DeleteDraft(ownerID, id string) error
	ConfirmDraft(ownerID, id string) (*InventoryItem, error)

	// Inventory
	ListInventory(ownerID string) ([]InventoryItem, error)
	GetInventoryItem(ownerID, id string) (*InventoryItem, error)
	UpdateInventoryQuantity(ownerID, id string, quantity float64) (*InventoryItem, error)
	DeleteInventoryItem(ownerID, id string) error

	// Vision cache
	GetVisionCache(imageHash string) ([]byte, error)
	SetVisionCache(imageHash string, payload []byte) error

	// Per-user default storage location
	GetStorageLocation(telegramID int64) (string, error)
	SetStorageLocation(telegramID int64, location string) error

	// Expiry reminders
	RemindersEnabled(telegramID int64) (bool, error)
	SetRemindersEnabled(telegramID int64, enabled bool) error
	ListUnremindedItems(ownerPrefix string, through time.Time) ([]InventoryItem, error)
	MarkReminded(itemIDs []string, at time.Time) error

	// Chat messages showing a draft, for reply edits
	TrackDraftMessage(telegramID int64, messageID int, draftID string) error
	DraftForMessage(telegramID int64, messageID int) (string, error)

	// Allowed users
	IsUserAllowed(telegramID int64) (bool, error)
	AddAllowedUser(telegramID, addedBy int64) error
	RemoveAllowedUser(telegramID int64) error
	GetAllowedUsers() ([]AllowedUser, error)

	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (creating if needed) the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// WAL and a busy timeout let the bot and HTTP server share the file
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}

	// Drafts and inventory are personal data
	if err := os.Chmod(dbPath, 0600); err != nil && !os.IsNotExist(err) {
		db.Close()
		return nil, fmt.Errorf("failed to set database permissions: %w", err)
	}

	return store, nil
}

var schema = []struct {
	name  string
	query string
}{
	{"drafts", `
	CREATE TABLE IF NOT EXISTS drafts (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		name TEXT NOT NULL,
		quantity REAL,
		unit TEXT,
		expiration_date TEXT,
		category TEXT,
		location TEXT,
		notes TEXT,
		source TEXT,
		confidence_score REAL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_drafts_owner ON drafts(owner_id);
	`},
	{"inventory_items", `
	CREATE TABLE IF NOT EXISTS inventory_items (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		name TEXT NOT NULL,
		category TEXT NOT NULL,
		quantity REAL NOT NULL CHECK (quantity > 0),
		unit TEXT NOT NULL,
		storage_location TEXT NOT NULL,
		expiry_date TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_inventory_owner ON inventory_items(owner_id, expiry_date);
	`},
	{"vision_cache", `
	CREATE TABLE IF NOT EXISTS vision_cache (
		image_hash TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`},
	{"user_settings", `
	CREATE TABLE IF NOT EXISTS user_settings (
		telegram_id INTEGER PRIMARY KEY,
		storage_location TEXT,
		reminders_enabled INTEGER NOT NULL DEFAULT 1
	);
	`},
	{"allowed_users", `
	CREATE TABLE IF NOT EXISTS allowed_users (
		telegram_id INTEGER PRIMARY KEY,
		added_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		added_by INTEGER
	);
	`},
	{"expiry_reminders", `
	CREATE TABLE IF NOT EXISTS expiry_reminders (
		item_id TEXT PRIMARY KEY REFERENCES inventory_items(id) ON DELETE CASCADE,
		notified_at DATETIME NOT NULL
	);
	`},
	{"draft_messages", `
	CREATE TABLE IF NOT EXISTS draft_messages (
		telegram_id INTEGER NOT NULL,
		message_id INTEGER NOT NULL,
		draft_id TEXT NOT NULL REFERENCES drafts(id) ON DELETE CASCADE,
		PRIMARY KEY (telegram_id, message_id)
	);
	`},
}

func (s *SQLiteStore) init() error {
	for _, t := range schema {
		if _, err := s.db.Exec(t.query); err != nil {
			return fmt.Errorf("failed to create %s table: %w", t.name, err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetVisionCache retrieves a cached detection payload by image hash.
// Returns nil, nil if no cache entry exists.
func (s *SQLiteStore) GetVisionCache(imageHash string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var payload string
	err := s.db.QueryRow(
		"SELECT payload FROM vision_cache WHERE image_hash = ?",
		imageHash,
	).Scan(&payload)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query vision cache: %w", err)
	}

	return []byte(payload), nil
}

// SetVisionCache stores a detection payload in the cache.
func (s *SQLiteStore) SetVisionCache(imageHash string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO vision_cache (image_hash, payload)
		VALUES (?, ?)
		ON CONFLICT(image_hash) DO UPDATE SET
			payload = excluded.payload,
			created_at = CURRENT_TIMESTAMP
	`, imageHash, string(payload))

	if err != nil {
		return fmt.Errorf("failed to cache vision result: %w", err)
	}
	return nil
}

// SetStorageLocation sets the default storage location for a user's photos.
func (s *SQLiteStore) SetStorageLocation(telegramID int64, location string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
	INSERT INTO user_settings (telegram_id, storage_location)
	VALUES (?, ?)
	ON CONFLICT(telegram_id) DO UPDATE SET
		storage_location = excluded.storage_location;
	`
	_, err := s.db.Exec(query, telegramID, location)
	if err != nil {
		return fmt.Errorf("failed to set storage location: %w", err)
	}
	return nil
}

// GetStorageLocation retrieves the default storage location for a user.
// Returns empty string if not set.
func (s *SQLiteStore) GetStorageLocation(telegramID int64) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var location sql.NullString
	err := s.db.QueryRow(
		"SELECT storage_location FROM user_settings WHERE telegram_id = ?",
		telegramID,
	).Scan(&location)

	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query storage location: %w", err)
	}

	return location.String, nil
}

// IsUserAllowed checks if a user is in the whitelist.
func (s *SQLiteStore) IsUserAllowed(telegramID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM allowed_users WHERE telegram_id = ?",
		telegramID,
	).Scan(&count)

	if err != nil {
		return false, fmt.Errorf("failed to check allowed user: %w", err)
	}

	return count > 0, nil
}

// AddAllowedUser adds a user to the whitelist.
func (s *SQLiteStore) AddAllowedUser(telegramID, addedBy int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO allowed_users (telegram_id, added_by)
		VALUES (?, ?)
		ON CONFLICT(telegram_id) DO UPDATE SET
			added_by = excluded.added_by,
			added_at = CURRENT_TIMESTAMP
	`, telegramID, addedBy)

	if err != nil {
		return fmt.Errorf("failed to add allowed user: %w", err)
	}
	return nil
}

// RemoveAllowedUser removes a user from the whitelist.
func (s *SQLiteStore) RemoveAllowedUser(telegramID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("DELETE FROM allowed_users WHERE telegram_id = ?", telegramID)
	if err != nil {
		return fmt.Errorf("failed to remove allowed user: %w", err)
	}
	return nil
}

// GetAllowedUsers returns all users in the whitelist.
func (s *SQLiteStore) GetAllowedUsers() ([]AllowedUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT telegram_id, added_at, added_by FROM allowed_users ORDER BY added_at")
	if err != nil {
		return nil, fmt.Errorf("failed to query allowed users: %w", err)
	}
	defer rows.Close()

	var users []AllowedUser
	for rows.Next() {
		var user AllowedUser
		if err := rows.Scan(&user.TelegramID, &user.AddedAt, &user.AddedBy); err != nil {
			return nil, fmt.Errorf("failed to scan allowed user: %w", err)
		}
		users = append(users, user)
	}

	return users, rows.Err()
}

package storage

import (
	"database/sql"
	"fmt"
	"math"
	"time"
)

// InventoryItem is a user-confirmed food item. Only the quantity changes
// after creation.
type InventoryItem struct {
	ID              string    `json:"id"`
	OwnerID         string    `json:"owner_id"`
	Name            string    `json:"name"`
	Category        string    `json:"category"`
	Quantity        float64   `json:"quantity"`
	Unit            string    `json:"unit"`
	StorageLocation string    `json:"storage_location"`
	ExpiryDate      time.Time `json:"expiry_date"`
	CreatedAt       time.Time `json:"created_at"`
}

const inventoryColumns = `id, owner_id, name, category, quantity, unit, storage_location, expiry_date, created_at`

func scanInventoryItem(row rowScanner) (*InventoryItem, error) {
	var item InventoryItem
	var expiry string

	err := row.Scan(&item.ID, &item.OwnerID, &item.Name, &item.Category, &item.Quantity,
		&item.Unit, &item.StorageLocation, &expiry, &item.CreatedAt)
	if err != nil {
		return nil, err
	}

	item.ExpiryDate, err = time.Parse(DateLayout, expiry)
	if err != nil {
		return nil, fmt.Errorf("invalid expiry date %q: %w", expiry, err)
	}

	return &item, nil
}

func insertInventoryItem(tx *sql.Tx, item *InventoryItem) error {
	_, err := tx.Exec(
		`INSERT INTO inventory_items (`+inventoryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.OwnerID, item.Name, item.Category, item.Quantity, item.Unit,
		item.StorageLocation, item.ExpiryDate.Format(DateLayout), item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create inventory item: %w", err)
	}
	return nil
}

// ListInventory returns the owner's items, soonest expiry first.
func (s *SQLiteStore) ListInventory(ownerID string) ([]InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT `+inventoryColumns+` FROM inventory_items WHERE owner_id = ? ORDER BY expiry_date, created_at`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query inventory: %w", err)
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

// GetInventoryItem retrieves a single item. Returns nil, nil if it doesn't
// exist.
func (s *SQLiteStore) GetInventoryItem(ownerID, id string) (*InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return getInventoryItem(s.db, ownerID, id)
}

func getInventoryItem(q queryRower, ownerID, id string) (*InventoryItem, error) {
	item, err := scanInventoryItem(q.QueryRow(
		`SELECT `+inventoryColumns+` FROM inventory_items WHERE id = ? AND owner_id = ?`,
		id, ownerID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get inventory item: %w", err)
	}
	return item, nil
}

// UpdateInventoryQuantity sets the quantity of an item. Quantity must be
// positive.
func (s *SQLiteStore) UpdateInventoryQuantity(ownerID, id string, quantity float64) (*InventoryItem, error) {
	if quantity <= 0 || math.IsInf(quantity, 0) || math.IsNaN(quantity) {
		return nil, fmt.Errorf("quantity must be a positive number, got %v", quantity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Exec(
		`UPDATE inventory_items SET quantity = ? WHERE id = ? AND owner_id = ?`,
		quantity, id, ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update quantity: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return nil, ErrNotFound
	}

	return getInventoryItem(s.db, ownerID, id)
}

// DeleteInventoryItem removes an item, e.g. once it is eaten or thrown away.
func (s *SQLiteStore) DeleteInventoryItem(ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Exec(`DELETE FROM inventory_items WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete inventory item: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

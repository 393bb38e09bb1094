package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the storage and wire format of expiry dates.
const DateLayout = "2006-01-02"

// SourceImage marks drafts created from photo detection.
const SourceImage = "image"

// Draft is an unconfirmed item awaiting user review. Every field except
// Name may be missing.
type Draft struct {
	ID              string     `json:"id"`
	OwnerID         string     `json:"owner_id"`
	Name            string     `json:"name"`
	Quantity        *float64   `json:"quantity"`
	Unit            string     `json:"unit,omitempty"`
	ExpirationDate  *time.Time `json:"expiration_date"`
	Category        string     `json:"category,omitempty"`
	Location        string     `json:"location,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	Source          string     `json:"source,omitempty"`
	ConfidenceScore *float64   `json:"confidence_score"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// DraftPatch holds the draft fields to change. Nil fields are left as is.
type DraftPatch struct {
	Name           *string    `json:"name"`
	Quantity       *float64   `json:"quantity"`
	Unit           *string    `json:"unit"`
	ExpirationDate *time.Time `json:"expiration_date"`
	Category       *string    `json:"category"`
	Location       *string    `json:"location"`
	Notes          *string    `json:"notes"`
}

// IncompleteDraftError is returned by ConfirmDraft when the draft lacks
// fields that inventory items require.
type IncompleteDraftError struct {
	Missing []string
}

func (e *IncompleteDraftError) Error() string {
	return "draft is missing required fields: " + strings.Join(e.Missing, ", ")
}

// MissingFields lists the fields that must be filled in before the draft can
// become an inventory item.
func (d *Draft) MissingFields() []string {
	var missing []string
	if strings.TrimSpace(d.Name) == "" {
		missing = append(missing, "name")
	}
	if d.Category == "" {
		missing = append(missing, "category")
	}
	if d.Quantity == nil || *d.Quantity <= 0 {
		missing = append(missing, "quantity")
	}
	if d.Unit == "" {
		missing = append(missing, "unit")
	}
	if d.Location == "" {
		missing = append(missing, "location")
	}
	if d.ExpirationDate == nil {
		missing = append(missing, "expiration_date")
	}
	return missing
}

const draftColumns = `id, owner_id, name, quantity, unit, expiration_date, category, location, notes, source, confidence_score, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDraft(row rowScanner) (*Draft, error) {
	var d Draft
	var quantity, confidence sql.NullFloat64
	var unit, expiration, category, location, notes, source sql.NullString

	err := row.Scan(&d.ID, &d.OwnerID, &d.Name, &quantity, &unit, &expiration,
		&category, &location, &notes, &source, &confidence, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if quantity.Valid {
		d.Quantity = &quantity.Float64
	}
	if confidence.Valid {
		d.ConfidenceScore = &confidence.Float64
	}
	if expiration.Valid && expiration.String != "" {
		t, err := time.Parse(DateLayout, expiration.String)
		if err != nil {
			return nil, fmt.Errorf("invalid expiration date %q: %w", expiration.String, err)
		}
		d.ExpirationDate = &t
	}
	d.Unit = unit.String
	d.Category = category.String
	d.Location = location.String
	d.Notes = notes.String
	d.Source = source.String

	return &d, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullDate(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(DateLayout), Valid: true}
}

// CreateDrafts inserts drafts in one transaction, assigning IDs and
// timestamps. The returned slice holds the stored records in input order.
func (s *SQLiteStore) CreateDrafts(drafts []Draft) ([]Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO drafts (` + draftColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	created := make([]Draft, 0, len(drafts))
	for _, d := range drafts {
		d.ID = uuid.New().String()
		d.CreatedAt = now
		d.UpdatedAt = now

		_, err := stmt.Exec(d.ID, d.OwnerID, d.Name, nullFloat(d.Quantity), nullString(d.Unit),
			nullDate(d.ExpirationDate), nullString(d.Category), nullString(d.Location),
			nullString(d.Notes), nullString(d.Source), nullFloat(d.ConfidenceScore),
			d.CreatedAt, d.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to create draft %q: %w", d.Name, err)
		}
		created = append(created, d)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return created, nil
}

// ListDrafts returns the owner's drafts, oldest first.
func (s *SQLiteStore) ListDrafts(ownerID string) ([]Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT `+draftColumns+` FROM drafts WHERE owner_id = ? ORDER BY created_at, rowid`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query drafts: %w", err)
	}
	defer rows.Close()

	var drafts []Draft
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan draft: %w", err)
		}
		drafts = append(drafts, *d)
	}

	return drafts, rows.Err()
}

// GetDraft retrieves a single draft. Returns nil, nil if it doesn't exist.
func (s *SQLiteStore) GetDraft(ownerID, id string) (*Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return getDraft(s.db, ownerID, id)
}

type queryRower interface {
	QueryRow(query string, args ...any) *sql.Row
}

func getDraft(q queryRower, ownerID, id string) (*Draft, error) {
	d, err := scanDraft(q.QueryRow(
		`SELECT `+draftColumns+` FROM drafts WHERE id = ? AND owner_id = ?`,
		id, ownerID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get draft: %w", err)
	}
	return d, nil
}

// UpdateDraft applies patch to a draft and returns the updated record.
func (s *SQLiteStore) UpdateDraft(ownerID, id string, patch DraftPatch) (*Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := getDraft(s.db, ownerID, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, ErrNotFound
	}

	if patch.Name != nil {
		d.Name = *patch.Name
	}
	if patch.Quantity != nil {
		q := *patch.Quantity
		d.Quantity = &q
	}
	if patch.Unit != nil {
		d.Unit = *patch.Unit
	}
	if patch.ExpirationDate != nil {
		e := *patch.ExpirationDate
		d.ExpirationDate = &e
	}
	if patch.Category != nil {
		d.Category = *patch.Category
	}
	if patch.Location != nil {
		d.Location = *patch.Location
	}
	if patch.Notes != nil {
		d.Notes = *patch.Notes
	}
	d.UpdatedAt = time.Now().UTC()

	_, err = s.db.Exec(`
		UPDATE drafts SET
			name = ?, quantity = ?, unit = ?, expiration_date = ?, category = ?,
			location = ?, notes = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?
	`, d.Name, nullFloat(d.Quantity), nullString(d.Unit), nullDate(d.ExpirationDate),
		nullString(d.Category), nullString(d.Location), nullString(d.Notes), d.UpdatedAt,
		id, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to update draft: %w", err)
	}

	return d, nil
}

// DeleteDraft discards a draft.
func (s *SQLiteStore) DeleteDraft(ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Exec(`DELETE FROM drafts WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// ConfirmDraft promotes a complete draft to an inventory item. The insert and
// the draft removal happen in one transaction. An incomplete draft is left
// untouched and reported with *IncompleteDraftError.
func (s *SQLiteStore) ConfirmDraft(ownerID, id string) (*InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	d, err := getDraft(tx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, ErrNotFound
	}
	if missing := d.MissingFields(); len(missing) > 0 {
		return nil, &IncompleteDraftError{Missing: missing}
	}

	item := &InventoryItem{
		ID:              uuid.New().String(),
		OwnerID:         ownerID,
		Name:            strings.TrimSpace(d.Name),
		Category:        d.Category,
		Quantity:        *d.Quantity,
		Unit:            d.Unit,
		StorageLocation: d.Location,
		ExpiryDate:      *d.ExpirationDate,
		CreatedAt:       time.Now().UTC(),
	}

	if err := insertInventoryItem(tx, item); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(`DELETE FROM drafts WHERE id = ? AND owner_id = ?`, id, ownerID); err != nil {
		return nil, fmt.Errorf("failed to delete confirmed draft: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return item, nil
}

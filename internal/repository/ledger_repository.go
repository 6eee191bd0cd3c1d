package repository

import (
	"fmt"
	"time"

	"github.com/urbanthread/loyalty/internal/model"
)

// LedgerRepository handles points ledger operations. The ledger is
// append-only: this repository exposes no update or delete path, and the
// entry timestamp is always assigned by the database, never by the caller.
type LedgerRepository struct {
	// DB-only repository - the ledger rows are the single source of truth
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository() *LedgerRepository {
	return &LedgerRepository{}
}

// Insert appends one immutable entry and returns it with the server-assigned
// id and timestamp.
func (r *LedgerRepository) Insert(db DBExecutor, customerID, pointsChange int64, txType model.TransactionType, note string) (*model.LedgerEntry, error) {
	query := `
		INSERT INTO points_ledger (customer_id, points_change, transaction_type, note)
		VALUES ($1, $2, $3, $4)
		RETURNING entry_id, created_at
	`

	entry := &model.LedgerEntry{
		CustomerID:   customerID,
		PointsChange: pointsChange,
		Type:         txType,
		Note:         note,
	}

	var row struct {
		EntryID   int64     `db:"entry_id"`
		CreatedAt time.Time `db:"created_at"`
	}
	if err := db.Get(&row, query, customerID, pointsChange, txType, note); err != nil {
		return nil, fmt.Errorf("failed to insert ledger entry: %w", err)
	}

	entry.ID = row.EntryID
	entry.CreatedAt = row.CreatedAt
	return entry, nil
}

// SumPoints returns the customer's balance as the sum of all entries.
// A customer with no entries has balance 0.
func (r *LedgerRepository) SumPoints(db DBExecutor, customerID int64) (int64, error) {
	query := `
		SELECT COALESCE(SUM(points_change), 0)
		FROM points_ledger
		WHERE customer_id = $1
	`

	var total int64
	if err := db.Get(&total, query, customerID); err != nil {
		return 0, fmt.Errorf("failed to sum points: %w", err)
	}

	return total, nil
}

// SumPointsInRange sums entries of one transaction type with timestamps in
// [start, end], both bounds inclusive.
func (r *LedgerRepository) SumPointsInRange(db DBExecutor, customerID int64, txType model.TransactionType, start, end time.Time) (int64, error) {
	query := `
		SELECT COALESCE(SUM(points_change), 0)
		FROM points_ledger
		WHERE customer_id = $1
		  AND transaction_type = $2
		  AND created_at BETWEEN $3 AND $4
	`

	var total int64
	if err := db.Get(&total, query, customerID, txType, start, end); err != nil {
		return 0, fmt.Errorf("failed to sum points in range: %w", err)
	}

	return total, nil
}

// ListHistory returns all of a customer's entries, newest first
func (r *LedgerRepository) ListHistory(db DBExecutor, customerID int64) ([]model.LedgerEntry, error) {
	query := `
		SELECT entry_id, customer_id, points_change, transaction_type, note, created_at
		FROM points_ledger
		WHERE customer_id = $1
		ORDER BY created_at DESC, entry_id DESC
	`

	var entries []model.LedgerEntry
	if err := db.Select(&entries, query, customerID); err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}

	return entries, nil
}

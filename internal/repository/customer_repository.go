package repository

import (
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/urbanthread/loyalty/internal/loyalty"
	"github.com/urbanthread/loyalty/internal/model"
)

// DBExecutor interface for database operations (can be *sqlx.DB or *sqlx.Tx)
type DBExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Get(dest interface{}, query string, args ...interface{}) error
	Select(dest interface{}, query string, args ...interface{}) error
}

// CustomerRepository handles customer data operations
type CustomerRepository struct {
	// DB-only repository - customers are pre-provisioned, no create path here
}

// NewCustomerRepository creates a new customer repository
func NewCustomerRepository() *CustomerRepository {
	return &CustomerRepository{}
}

// GetByEmail retrieves a customer by email. Lookup is case-insensitive; the
// stored casing is preserved.
func (r *CustomerRepository) GetByEmail(db DBExecutor, email string) (*model.Customer, error) {
	query := `
		SELECT customer_id, email, first_name, last_name, tier
		FROM customers
		WHERE LOWER(email) = LOWER($1)
	`

	var customer model.Customer
	err := db.Get(&customer, query, email)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, loyalty.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("failed to get customer by email: %w", err)
	}

	return &customer, nil
}

// GetByID retrieves a customer by ID
func (r *CustomerRepository) GetByID(db DBExecutor, customerID int64) (*model.Customer, error) {
	query := `
		SELECT customer_id, email, first_name, last_name, tier
		FROM customers
		WHERE customer_id = $1
	`

	var customer model.Customer
	err := db.Get(&customer, query, customerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, loyalty.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}

	return &customer, nil
}

// LockByID retrieves a customer row under a row-level lock. Must run inside a
// transaction; the lock serializes writers per customer until commit, which is
// what closes the balance check-then-insert race on redemption.
func (r *CustomerRepository) LockByID(tx *sqlx.Tx, customerID int64) (*model.Customer, error) {
	query := `
		SELECT customer_id, email, first_name, last_name, tier
		FROM customers
		WHERE customer_id = $1
		FOR UPDATE
	`

	var customer model.Customer
	err := tx.Get(&customer, query, customerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, loyalty.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("failed to lock customer: %w", err)
	}

	return &customer, nil
}

// UpdateTier persists a tier change for a customer
func (r *CustomerRepository) UpdateTier(db DBExecutor, customerID int64, tier model.Tier) error {
	query := `
		UPDATE customers
		SET tier = $1
		WHERE customer_id = $2
	`

	result, err := db.Exec(query, tier, customerID)
	if err != nil {
		return fmt.Errorf("failed to update tier: %w", err)
	}

	// Check if any row was actually updated
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return loyalty.ErrCustomerNotFound
	}

	return nil
}

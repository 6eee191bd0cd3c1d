package repository

import (
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urbanthread/loyalty/internal/loyalty"
	"github.com/urbanthread/loyalty/internal/model"
)

func customerRow() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"customer_id", "email", "first_name", "last_name", "tier"}).
		AddRow(7, "Ada@Example.com", "Ada", "Lovelace", "Standard")
}

func TestCustomerRepository_GetByEmail(t *testing.T) {
	t.Run("lookup is case-insensitive", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()

		mock.ExpectQuery(`WHERE LOWER\(email\) = LOWER\(\$1\)`).
			WithArgs("ada@example.com").
			WillReturnRows(customerRow())

		customer, err := NewCustomerRepository().GetByEmail(db, "ada@example.com")
		require.NoError(t, err)
		// Stored casing is preserved, only the lookup folds case.
		assert.Equal(t, "Ada@Example.com", customer.Email)
		assert.Equal(t, model.TierStandard, customer.Tier)
	})

	t.Run("miss maps to the domain not-found error", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()

		mock.ExpectQuery(`WHERE LOWER\(email\) = LOWER\(\$1\)`).
			WithArgs("nobody@example.com").
			WillReturnError(sql.ErrNoRows)

		_, err := NewCustomerRepository().GetByEmail(db, "nobody@example.com")
		assert.ErrorIs(t, err, loyalty.ErrCustomerNotFound)
	})
}

func TestCustomerRepository_GetByID(t *testing.T) {
	db, mock, mockDB := newMockDB(t)
	defer mockDB.Close()

	mock.ExpectQuery(`WHERE customer_id = \$1`).
		WithArgs(int64(404)).
		WillReturnError(sql.ErrNoRows)

	_, err := NewCustomerRepository().GetByID(db, 404)
	assert.ErrorIs(t, err, loyalty.ErrCustomerNotFound)
}

func TestCustomerRepository_LockByID(t *testing.T) {
	db, mock, mockDB := newMockDB(t)
	defer mockDB.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs(int64(7)).
		WillReturnRows(customerRow())
	mock.ExpectCommit()

	tx, err := db.Beginx()
	require.NoError(t, err)

	customer, err := NewCustomerRepository().LockByID(tx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), customer.ID)

	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCustomerRepository_UpdateTier(t *testing.T) {
	t.Run("persists the new tier", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()

		mock.ExpectExec(`UPDATE customers SET tier = \$1 WHERE customer_id = \$2`).
			WithArgs("Gold", int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := NewCustomerRepository().UpdateTier(db, 7, model.TierGold)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("zero rows affected means the customer vanished", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()

		mock.ExpectExec(`UPDATE customers SET tier = \$1 WHERE customer_id = \$2`).
			WithArgs("Gold", int64(404)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := NewCustomerRepository().UpdateTier(db, 404, model.TierGold)
		assert.ErrorIs(t, err, loyalty.ErrCustomerNotFound)
	})
}

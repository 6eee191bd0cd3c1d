package model

import (
	"time"
)

// Tier is a customer's loyalty classification, derived from trailing-year spend.
type Tier string

const (
	TierStandard Tier = "Standard"
	TierGold     Tier = "Gold"
)

// TransactionType is the closed set of ledger entry kinds.
type TransactionType string

const (
	TypeEarn         TransactionType = "earn"
	TypeRedeem       TransactionType = "redeem"
	TypeManualAdjust TransactionType = "manual_adjust"
)

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	switch t {
	case TypeEarn, TypeRedeem, TypeManualAdjust:
		return true
	}
	return false
}

// Customer represents a loyalty program member in the database.
// The tier column is a denormalized projection of yearly spend; it is
// rewritten by tier evaluation, never edited directly.
type Customer struct {
	ID        int64  `db:"customer_id" json:"customer_id"`
	Email     string `db:"email" json:"email"`
	FirstName string `db:"first_name" json:"first_name"`
	LastName  string `db:"last_name" json:"last_name"`
	Tier      Tier   `db:"tier" json:"tier"`
}

// LedgerEntry is one immutable row of the points ledger. Entries are only
// ever inserted; the ledger is the sole source of truth for balances.
type LedgerEntry struct {
	ID           int64           `db:"entry_id" json:"entry_id"`
	CustomerID   int64           `db:"customer_id" json:"customer_id"`
	PointsChange int64           `db:"points_change" json:"points_change"`
	Type         TransactionType `db:"transaction_type" json:"transaction_type"`
	Note         string          `db:"note" json:"note"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

// Reward is a redeemable catalog item.
type Reward struct {
	ID         int64  `db:"reward_id" json:"reward_id"`
	Name       string `db:"name" json:"name"`
	PointsCost int64  `db:"points_cost" json:"points_cost"`
}

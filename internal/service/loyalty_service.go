package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/urbanthread/loyalty/internal/config"
	"github.com/urbanthread/loyalty/internal/loyalty"
	"github.com/urbanthread/loyalty/internal/metrics"
	"github.com/urbanthread/loyalty/internal/model"
	"github.com/urbanthread/loyalty/internal/repository"
)

// LoyaltyService implements the points ledger and tier evaluation.
//
// All balances are derived by summing ledger rows at read time; nothing here
// stores or caches a running total, so a balance can never drift from the
// ledger it is computed from.
type LoyaltyService struct {
	postgres      *sqlx.DB
	customerRepo  *repository.CustomerRepository
	ledgerRepo    *repository.LedgerRepository
	rewardRepo    *repository.RewardRepository
	pointsPerUnit decimal.Decimal
	goldThreshold decimal.Decimal
}

// TierChange reports the outcome of one tier evaluation
type TierChange struct {
	Previous model.Tier `json:"previous_tier"`
	Current  model.Tier `json:"new_tier"`
	Changed  bool       `json:"changed"`
}

// NewLoyaltyService creates a new LoyaltyService instance
func NewLoyaltyService(postgres *sqlx.DB, cfg config.LoyaltyConfig) *LoyaltyService {
	return &LoyaltyService{
		postgres:      postgres,
		customerRepo:  repository.NewCustomerRepository(),
		ledgerRepo:    repository.NewLedgerRepository(),
		rewardRepo:    repository.NewRewardRepository(),
		pointsPerUnit: decimal.NewFromInt(cfg.PointsPerUnit),
		goldThreshold: decimal.NewFromInt(cfg.GoldThreshold),
	}
}

// GetCustomerByEmail finds a customer by email address
func (s *LoyaltyService) GetCustomerByEmail(ctx context.Context, email string) (*model.Customer, error) {
	if strings.TrimSpace(email) == "" {
		return nil, fmt.Errorf("%w: email is required", loyalty.ErrInvalidInput)
	}
	return s.customerRepo.GetByEmail(s.postgres, email)
}

// Balance returns the customer's current point balance, the sum of all ledger
// entries for that customer. A customer with no entries has balance 0; that is
// not an error.
func (s *LoyaltyService) Balance(ctx context.Context, customerID int64) (int64, error) {
	return s.ledgerRepo.SumPoints(s.postgres, customerID)
}

// History returns the customer's ledger entries, newest first
func (s *LoyaltyService) History(ctx context.Context, customerID int64) ([]model.LedgerEntry, error) {
	return s.ledgerRepo.ListHistory(s.postgres, customerID)
}

// ListRewards returns the reward catalog, cheapest first
func (s *LoyaltyService) ListRewards(ctx context.Context) ([]model.Reward, error) {
	return s.rewardRepo.List(s.postgres)
}

// PointsForAmount converts a purchase amount to points at the fixed ratio,
// truncating any fractional point.
func (s *LoyaltyService) PointsForAmount(amount decimal.Decimal) int64 {
	return amount.Mul(s.pointsPerUnit).IntPart()
}

// yearRange returns the inclusive bounds of a calendar year,
// [Jan 1 00:00:00, Dec 31 23:59:59] in UTC.
func yearRange(year int) (time.Time, time.Time) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.December, 31, 23, 59, 59, 0, time.UTC)
	return start, end
}

// YearlySpend estimates the customer's spend for a calendar year from the
// points earned in it, at the fixed points-per-unit ratio.
//
// This is a known approximation: it assumes every earn entry came from a
// purchase at that ratio. Points granted by promotions or other non-purchase
// sources would inflate the estimate.
func (s *LoyaltyService) YearlySpend(ctx context.Context, customerID int64, year int) (decimal.Decimal, error) {
	start, end := yearRange(year)
	earned, err := s.ledgerRepo.SumPointsInRange(s.postgres, customerID, model.TypeEarn, start, end)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromInt(earned).Div(s.pointsPerUnit), nil
}

// classifyTier maps an estimated yearly spend to a tier
func (s *LoyaltyService) classifyTier(spend decimal.Decimal) model.Tier {
	if spend.GreaterThanOrEqual(s.goldThreshold) {
		return model.TierGold
	}
	return model.TierStandard
}

// EvaluateTier recomputes the customer's tier from this year's spend and
// persists it when it differs from the stored one.
//
// Evaluation is reactive only: callers invoke it after recording an earn or
// manual adjustment. A customer whose qualifying spend has dropped (say at
// year rollover) keeps the stale tier until their next transaction, and is
// demoted then. There is no downgrade guard and no scheduled re-evaluation.
func (s *LoyaltyService) EvaluateTier(ctx context.Context, customerID int64, now time.Time) (TierChange, error) {
	spend, err := s.YearlySpend(ctx, customerID, now.Year())
	if err != nil {
		return TierChange{}, err
	}

	customer, err := s.customerRepo.GetByID(s.postgres, customerID)
	if err != nil {
		return TierChange{}, err
	}

	change := TierChange{
		Previous: customer.Tier,
		Current:  s.classifyTier(spend),
	}
	if change.Current == change.Previous {
		return change, nil
	}

	// Persist failures surface to the caller; a tier left stale is
	// recoverable on the next evaluation, a swallowed error is not.
	if err := s.customerRepo.UpdateTier(s.postgres, customerID, change.Current); err != nil {
		return TierChange{}, err
	}
	change.Changed = true

	metrics.RecordTierChange(string(change.Previous), string(change.Current))
	log.Info().
		Int64("customer_id", customerID).
		Str("from", string(change.Previous)).
		Str("to", string(change.Current)).
		Str("spend", spend.StringFixed(2)).
		Msg("customer tier changed")

	return change, nil
}

// validateRecord enforces the write-path input rules before anything touches
// the ledger.
func validateRecord(pointsChange int64, txType model.TransactionType, note string) error {
	if !txType.Valid() {
		return fmt.Errorf("%w: unknown transaction type %q", loyalty.ErrInvalidInput, txType)
	}
	// A zero-point entry carries no information. That includes zero-magnitude
	// manual adjustments: audit notes do not belong in the points ledger.
	if pointsChange == 0 {
		return fmt.Errorf("%w: points_change must be nonzero", loyalty.ErrInvalidInput)
	}
	switch txType {
	case model.TypeEarn:
		if pointsChange < 0 {
			return fmt.Errorf("%w: earn entries must add points", loyalty.ErrInvalidInput)
		}
	case model.TypeRedeem:
		if pointsChange > 0 {
			return fmt.Errorf("%w: redeem entries must deduct points", loyalty.ErrInvalidInput)
		}
	case model.TypeManualAdjust:
		if strings.TrimSpace(note) == "" {
			return fmt.Errorf("%w: manual adjustments require a reason", loyalty.ErrInvalidInput)
		}
	}
	return nil
}

// Record appends one signed entry to the ledger. This is the single write
// path for all point changes; the entry timestamp is assigned by the store,
// so callers cannot predate or postdate entries.
//
// Recording and tier evaluation are an explicit two-step protocol: after an
// earn or manual_adjust the caller invokes EvaluateTier itself.
func (s *LoyaltyService) Record(ctx context.Context, customerID, pointsChange int64, txType model.TransactionType, note string) (*model.LedgerEntry, error) {
	start := time.Now()
	result := "failure"
	defer func() {
		metrics.RecordTransactionDuration(string(txType), result, time.Since(start).Seconds())
	}()

	if err := validateRecord(pointsChange, txType, note); err != nil {
		return nil, err
	}

	if _, err := s.customerRepo.GetByID(s.postgres, customerID); err != nil {
		return nil, err
	}

	entry, err := s.ledgerRepo.Insert(s.postgres, customerID, pointsChange, txType, note)
	if err != nil {
		return nil, err
	}
	result = "success"

	return entry, nil
}

// Redeem exchanges points for a reward, recording a negative ledger entry.
//
// The balance check and the insert run in one transaction under a row-level
// lock on the customer, so two concurrent redemptions cannot both pass the
// check and overdraw the balance. No partial effect: either the entry lands
// or nothing changed.
func (s *LoyaltyService) Redeem(ctx context.Context, customerID, rewardID int64) (*model.LedgerEntry, error) {
	start := time.Now()
	result := "failure"
	defer func() {
		metrics.RecordTransactionDuration(string(model.TypeRedeem), result, time.Since(start).Seconds())
	}()

	// Catalog reads need no lock; rewards are read-only here.
	reward, err := s.rewardRepo.GetByID(s.postgres, rewardID)
	if err != nil {
		return nil, err
	}

	// Same write-path rules as Record: a zero-cost reward would produce a
	// zero-point entry, which the ledger does not accept.
	note := "Redeemed: " + reward.Name
	if err := validateRecord(-reward.PointsCost, model.TypeRedeem, note); err != nil {
		return nil, err
	}

	tx, err := s.postgres.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Serialize writers for this customer until commit.
	if _, err := s.customerRepo.LockByID(tx, customerID); err != nil {
		return nil, err
	}

	balance, err := s.ledgerRepo.SumPoints(tx, customerID)
	if err != nil {
		return nil, err
	}
	if balance < reward.PointsCost {
		return nil, fmt.Errorf("%w: balance %d, need %d", loyalty.ErrInsufficientPoints, balance, reward.PointsCost)
	}

	entry, err := s.ledgerRepo.Insert(tx, customerID, -reward.PointsCost, model.TypeRedeem, note)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	result = "success"

	return entry, nil
}

package repository

import (
	"database/sql"
	"fmt"

	"github.com/urbanthread/loyalty/internal/loyalty"
	"github.com/urbanthread/loyalty/internal/model"
)

// RewardRepository handles reward catalog reads. The catalog is managed
// elsewhere; from here it is read-only.
type RewardRepository struct{}

// NewRewardRepository creates a new reward repository
func NewRewardRepository() *RewardRepository {
	return &RewardRepository{}
}

// List returns all rewards, cheapest first
func (r *RewardRepository) List(db DBExecutor) ([]model.Reward, error) {
	query := `
		SELECT reward_id, name, points_cost
		FROM rewards
		ORDER BY points_cost ASC
	`

	var rewards []model.Reward
	if err := db.Select(&rewards, query); err != nil {
		return nil, fmt.Errorf("failed to list rewards: %w", err)
	}

	return rewards, nil
}

// GetByID retrieves a reward by ID
func (r *RewardRepository) GetByID(db DBExecutor, rewardID int64) (*model.Reward, error) {
	query := `
		SELECT reward_id, name, points_cost
		FROM rewards
		WHERE reward_id = $1
	`

	var reward model.Reward
	err := db.Get(&reward, query, rewardID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, loyalty.ErrRewardNotFound
		}
		return nil, fmt.Errorf("failed to get reward: %w", err)
	}

	return &reward, nil
}

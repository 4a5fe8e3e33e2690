package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/resona/match-engine/internal/db"
)

// BlockRepository resolves block relations. A block in either direction
// between two users has the same effect, so every lookup is symmetric.
type BlockRepository struct {
	db *gorm.DB
}

// NewBlockRepository creates a new repository bound to the given DB connection.
func NewBlockRepository(database *gorm.DB) *BlockRepository {
	return &BlockRepository{db: database}
}

// IsBlocked reports whether a block exists between the two users in either
// direction.
func (r *BlockRepository) IsBlocked(ctx context.Context, userID, otherID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Block{}).
		Where("(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)",
			userID, otherID, otherID, userID).
		Count(&count).Error
	return count > 0, err
}

// BlockedUserIDs returns the union of ids the user blocked and ids that
// blocked the user, deduplicated.
func (r *BlockRepository) BlockedUserIDs(ctx context.Context, userID uint64) ([]uint64, error) {
	var blocks []db.Block
	if err := r.db.WithContext(ctx).
		Where("blocker_id = ? OR blocked_id = ?", userID, userID).
		Find(&blocks).Error; err != nil {
		return nil, err
	}

	seen := make(map[uint64]bool, len(blocks))
	ids := make([]uint64, 0, len(blocks))
	for _, b := range blocks {
		other := b.BlockedID
		if b.BlockedID == userID {
			other = b.BlockerID
		}
		if !seen[other] {
			seen[other] = true
			ids = append(ids, other)
		}
	}
	return ids, nil
}

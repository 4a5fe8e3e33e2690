package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/resona/match-engine/internal/db"
)

// UserRepository reads user profiles on behalf of the engine. Users are
// owned by the user-management service; nothing here writes them.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new repository bound to the given DB connection.
func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{db: database}
}

// GetByID loads a single user.
func (r *UserRepository) GetByID(ctx context.Context, id uint64) (db.User, error) {
	var u db.User
	err := r.db.WithContext(ctx).First(&u, id).Error
	return u, err
}

// FindCandidates returns up to limit users eligible for recommendation:
// active, onboarding test completed, not the requester, and none of the
// excluded ids (the requester's block set).
func (r *UserRepository) FindCandidates(ctx context.Context, selfID uint64, excludeIDs []uint64, limit int) ([]db.User, error) {
	var users []db.User
	query := r.db.WithContext(ctx).
		Where("active = ?", true).
		Where("test_completed = ?", true).
		Where("id <> ?", selfID)
	if len(excludeIDs) > 0 {
		query = query.Where("id NOT IN ?", excludeIDs)
	}
	err := query.Order("id ASC").Limit(limit).Find(&users).Error
	return users, err
}

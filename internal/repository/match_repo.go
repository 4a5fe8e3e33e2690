package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/resona/match-engine/internal/db"
)

// MatchRepository provides data access for Match rows. All pair lookups are
// direction-aware: the ordered (user_a_id, user_b_id) unique index means an
// unordered pair can own up to two rows, and callers decide which one wins.
type MatchRepository struct {
	db *gorm.DB
}

// NewMatchRepository creates a new repository bound to the given DB connection.
func NewMatchRepository(database *gorm.DB) *MatchRepository {
	return &MatchRepository{db: database}
}

// GetByID loads a single match row.
func (r *MatchRepository) GetByID(ctx context.Context, id uint64) (db.Match, error) {
	var m db.Match
	err := r.db.WithContext(ctx).First(&m, id).Error
	return m, err
}

// PairRows returns both directional rows for the unordered pair
// (actor, counterpart): self is the row proposed by actor, mirror the row
// proposed by counterpart. Either or both may be nil.
func (r *MatchRepository) PairRows(ctx context.Context, actorID, counterpartID uint64) (self, mirror *db.Match, err error) {
	var rows []db.Match
	err = r.db.WithContext(ctx).
		Where("(user_a_id = ? AND user_b_id = ?) OR (user_a_id = ? AND user_b_id = ?)",
			actorID, counterpartID, counterpartID, actorID).
		Find(&rows).Error
	if err != nil {
		return nil, nil, err
	}
	for i := range rows {
		if rows[i].UserAID == actorID {
			self = &rows[i]
		} else {
			mirror = &rows[i]
		}
	}
	return self, mirror, nil
}

// ListForUser returns every match row touching the user in either role,
// excluding rows whose counterparty has a block with the user in either
// direction. Ordered by updated_at DESC, id DESC.
func (r *MatchRepository) ListForUser(ctx context.Context, userID uint64) ([]db.Match, error) {
	var rows []db.Match
	err := r.db.WithContext(ctx).
		Table("matches m").
		Where("(m.user_a_id = ? OR m.user_b_id = ?)", userID, userID).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM blocks b
				WHERE (b.blocker_id = m.user_a_id AND b.blocked_id = m.user_b_id)
				   OR (b.blocker_id = m.user_b_id AND b.blocked_id = m.user_a_id)
			)`).
		Order("m.updated_at DESC, m.id DESC").
		Find(&rows).Error
	return rows, err
}

// Create inserts a freshly proposed match row. When the row is born at
// ACCEPTED (super-like), its conversation is materialized in the same
// transaction so both are observed together or not at all.
func (r *MatchRepository) Create(ctx context.Context, m *db.Match) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(m).Error; err != nil {
			return err
		}
		if m.Status == db.MatchAccepted {
			if _, _, err := ensureConversation(tx, m.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

// Confirm flips a pending row to ACCEPTED with the given score and reason,
// and ensures its conversation, in one transaction. superLike marks the
// confirming call itself as a super-like.
//
// The update is guarded on status = PENDING inside the transaction: a
// reject (or the external expiry sweep) racing in between the caller's
// read and this write keeps its terminal status, and the row is returned
// unchanged with no conversation materialized.
func (r *MatchRepository) Confirm(ctx context.Context, matchID uint64, score int, reason string, superLike bool) (db.Match, db.Conversation, error) {
	var (
		m    db.Match
		conv db.Conversation
	)
	if err := ctx.Err(); err != nil {
		return m, conv, err
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"status":       db.MatchAccepted,
			"score":        score,
			"match_reason": reason,
		}
		if superLike {
			updates["super_like"] = true
		}
		if err := tx.Model(&db.Match{}).
			Where("id = ? AND status = ?", matchID, db.MatchPending).
			Updates(updates).Error; err != nil {
			return err
		}
		// reload so the caller sees exactly what is stored
		if err := tx.First(&m, matchID).Error; err != nil {
			return err
		}
		if m.Status != db.MatchAccepted {
			return nil
		}
		c, _, err := ensureConversation(tx, matchID)
		if err != nil {
			return err
		}
		conv = c
		return nil
	})
	return m, conv, err
}

// RejectPair marks every row of the unordered pair REJECTED in one
// transaction and returns the affected rows post-update. An empty result
// means there was nothing to reject; that is not an error.
//
// Both rows are swept on purpose: leaving a mirror row PENDING would let
// the per-counterparty dedup rank resurface the pair as still pending.
func (r *MatchRepository) RejectPair(ctx context.Context, actorID, counterpartID uint64) ([]db.Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rows []db.Match
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("(user_a_id = ? AND user_b_id = ?) OR (user_a_id = ? AND user_b_id = ?)",
				actorID, counterpartID, counterpartID, actorID).
			Find(&rows).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		ids := make([]uint64, len(rows))
		for i := range rows {
			ids[i] = rows[i].ID
		}
		if err := tx.Model(&db.Match{}).
			Where("id IN ?", ids).
			Update("status", db.MatchRejected).Error; err != nil {
			return err
		}
		for i := range rows {
			rows[i].Status = db.MatchRejected
		}
		return nil
	})
	return rows, err
}

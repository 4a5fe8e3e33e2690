package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/resona/match-engine/internal/db"
)

// ConversationRepository manages the one-conversation-per-match records the
// engine materializes for the chat service.
type ConversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository creates a new repository bound to the given DB connection.
func NewConversationRepository(database *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: database}
}

// Ensure returns the conversation for a match, creating it when absent.
// The bool reports whether this call created it.
func (r *ConversationRepository) Ensure(ctx context.Context, matchID uint64) (db.Conversation, bool, error) {
	return ensureConversation(r.db.WithContext(ctx), matchID)
}

// ForMatchIDs returns the conversations that exist for the given match ids,
// keyed by match id.
func (r *ConversationRepository) ForMatchIDs(ctx context.Context, matchIDs []uint64) (map[uint64]db.Conversation, error) {
	out := make(map[uint64]db.Conversation, len(matchIDs))
	if len(matchIDs) == 0 {
		return out, nil
	}
	var convs []db.Conversation
	if err := r.db.WithContext(ctx).
		Where("match_id IN ?", matchIDs).
		Find(&convs).Error; err != nil {
		return nil, err
	}
	for _, c := range convs {
		out[c.MatchID] = c
	}
	return out, nil
}

// ensureConversation is the create-or-get primitive shared with the match
// repository so confirmation can run it inside its own transaction.
//
// The unique index on match_id settles concurrent creates: the loser's
// insert affects zero rows and the winner's row is returned instead of an
// error.
func ensureConversation(tx *gorm.DB, matchID uint64) (db.Conversation, bool, error) {
	var conv db.Conversation
	err := tx.Where("match_id = ?", matchID).First(&conv).Error
	if err == nil {
		return conv, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return db.Conversation{}, false, err
	}

	conv = db.Conversation{ID: uuid.NewString(), MatchID: matchID}
	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "match_id"}},
		DoNothing: true,
	}).Create(&conv)
	if res.Error != nil {
		return db.Conversation{}, false, res.Error
	}
	if res.RowsAffected == 0 {
		// lost the race; fetch the winner's row
		if err := tx.Where("match_id = ?", matchID).First(&conv).Error; err != nil {
			return db.Conversation{}, false, err
		}
		return conv, false, nil
	}
	return conv, true, nil
}

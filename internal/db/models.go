package db

import (
	"time"
)

// MatchStatus is the lifecycle state of a Match row.
type MatchStatus string

const (
	MatchPending  MatchStatus = "PENDING"
	MatchAccepted MatchStatus = "ACCEPTED"
	MatchRejected MatchStatus = "REJECTED"
	// MatchExpired is set only by the external expiry sweep; the engine
	// ranks and displays it but never writes it.
	MatchExpired MatchStatus = "EXPIRED"
)

// User table. Owned by the user-management service; the engine reads
// profiles and candidate status, it never updates users outside seeding.
type User struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	Username     string `gorm:"uniqueIndex;size:64;not null"`
	Email        string `gorm:"uniqueIndex;size:128;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	Active       bool   `gorm:"default:true"`

	// Profile fields read by the compatibility scorer.
	AttachmentType  string `gorm:"size:32"`
	City            string `gorm:"size:64"`
	PersonalityTags string `gorm:"size:512"` // JSON-encoded string list
	TestCompleted   bool   `gorm:"default:false"`
	AvatarURL       string `gorm:"size:255"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// Match represents a directed proposal/confirmation record between two users.
//
// UserAID is always the proposer of this row; the unique index on the
// ordered pair (user_a_id, user_b_id) guarantees at most one row per
// direction. Two rows for the same unordered pair can coexist while both
// are unconfirmed (each side proposed independently); confirmation settles
// meaning onto one row without deleting the mirror, so readers must
// deduplicate per counterparty rather than trust row counts.
//
// Indexes:
//   - uq_match_pair(user_a_id, user_b_id): ordered-pair uniqueness.
//   - idx_match_user_b(user_b_id): reverse-direction lookups.
type Match struct {
	ID          uint64      `gorm:"primaryKey;autoIncrement"`
	UserAID     uint64      `gorm:"not null;uniqueIndex:uq_match_pair,priority:1"`
	UserBID     uint64      `gorm:"not null;uniqueIndex:uq_match_pair,priority:2;index:idx_match_user_b"`
	Score       int         `gorm:"not null"`
	MatchReason string      `gorm:"size:255"`
	SuperLike   bool        `gorm:"not null;default:false"`
	Status      MatchStatus `gorm:"size:16;not null;index"`
	CreatedAt   time.Time   `gorm:"autoCreateTime"`
	UpdatedAt   time.Time   `gorm:"autoUpdateTime"`
}

// Conversation is owned by the chat service but materialized here, exactly
// once per match, the first time a Match reaches ACCEPTED. The unique index
// on match_id is the safety net under racing confirmations.
type Conversation struct {
	ID        string    `gorm:"primaryKey;size:36"`
	MatchID   uint64    `gorm:"not null;uniqueIndex:uq_conversation_match"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// Block disables all match mutation and candidate visibility between two
// users, in either direction.
type Block struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	BlockerID uint64    `gorm:"not null;uniqueIndex:uq_block_pair,priority:1"`
	BlockedID uint64    `gorm:"not null;uniqueIndex:uq_block_pair,priority:2;index:idx_block_blocked"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

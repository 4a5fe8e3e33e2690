package db

import "github.com/resona/match-engine/internal/scoring"

// Profile projects the scorer-facing slice of a user record.
func (u User) Profile() scoring.Profile {
	return scoring.Profile{
		UserID:         u.ID,
		AttachmentType: u.AttachmentType,
		City:           u.City,
		RawTags:        u.PersonalityTags,
	}
}

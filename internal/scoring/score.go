package scoring

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Score bounds and bonuses. SuperLikeBonus is applied by the match service
// on super-like creation/confirmation, clamped by Clamp.
const (
	BaseScore      = 50
	MaxScore       = 100
	SuperLikeBonus = 10

	attachmentExactBonus  = 20
	attachmentSecureBonus = 15
	sameCityBonus         = 10
	sharedTagBonus        = 5

	// SecureAttachment pairs well with every other attachment type and
	// earns partial credit even on a mismatch.
	SecureAttachment = "secure"
)

// Profile is the read-only slice of a user profile the scorer needs.
// RawTags holds the JSON-encoded personality tag list as stored.
type Profile struct {
	UserID         uint64
	AttachmentType string
	City           string
	RawTags        string
}

// Scored is one ranked candidate.
type Scored struct {
	Profile Profile
	Points  int
	Reason  string
}

// ParseTags decodes a JSON-encoded string list. Malformed or empty input
// decodes to an empty list, never an error.
func ParseTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil
	}
	return tags
}

// Clamp bounds a score to [0, MaxScore].
func Clamp(points int) int {
	if points < 0 {
		return 0
	}
	if points > MaxScore {
		return MaxScore
	}
	return points
}

// Score computes a deterministic 0-100 compatibility score between two
// profiles along with a human-readable reason listing the factors that
// fired. It has no side effects.
func Score(self, candidate Profile) (int, string) {
	points := BaseScore
	var reasons []string

	selfAtt := strings.ToLower(strings.TrimSpace(self.AttachmentType))
	candAtt := strings.ToLower(strings.TrimSpace(candidate.AttachmentType))
	switch {
	case selfAtt != "" && selfAtt == candAtt:
		points += attachmentExactBonus
		reasons = append(reasons, "matching attachment styles")
	case selfAtt == SecureAttachment || candAtt == SecureAttachment:
		points += attachmentSecureBonus
		reasons = append(reasons, "secure attachment compatibility")
	}

	if self.City != "" && self.City == candidate.City {
		points += sameCityBonus
		reasons = append(reasons, "same city")
	}

	if shared := sharedTags(ParseTags(self.RawTags), ParseTags(candidate.RawTags)); len(shared) > 0 {
		points += sharedTagBonus * len(shared)
		reasons = append(reasons, fmt.Sprintf("shared interests: %s", strings.Join(shared, ", ")))
	}

	reason := "compatible profiles"
	if len(reasons) > 0 {
		reason = strings.Join(reasons, "; ")
	}

	return Clamp(points), reason
}

// ScoreCandidates scores every candidate against self and returns the
// results sorted by points descending, user id ascending on ties so the
// order is stable across runs.
func ScoreCandidates(self Profile, candidates []Profile) []Scored {
	scored := make([]Scored, 0, len(candidates))
	for _, c := range candidates {
		points, reason := Score(self, c)
		scored = append(scored, Scored{Profile: c, Points: points, Reason: reason})
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Points != scored[j].Points {
			return scored[i].Points > scored[j].Points
		}
		return scored[i].Profile.UserID < scored[j].Profile.UserID
	})
	return scored
}

// sharedTags returns tags present in both lists, preserving the order of a.
func sharedTags(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	set := make(map[string]bool, len(b))
	for _, tag := range b {
		set[tag] = true
	}
	var shared []string
	for _, tag := range a {
		if set[tag] {
			shared = append(shared, tag)
			set[tag] = false // count each tag once
		}
	}
	return shared
}

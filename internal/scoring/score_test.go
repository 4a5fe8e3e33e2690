package scoring_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/resona/match-engine/internal/scoring"
)

func TestScore_BaseOnly(t *testing.T) {
	points, reason := scoring.Score(
		scoring.Profile{AttachmentType: "anxious", City: "Berlin"},
		scoring.Profile{AttachmentType: "avoidant", City: "Lisbon"},
	)

	assert.Equal(t, 50, points)
	assert.Equal(t, "compatible profiles", reason)
}

func TestScore_SameAttachmentType(t *testing.T) {
	points, reason := scoring.Score(
		scoring.Profile{AttachmentType: "anxious"},
		scoring.Profile{AttachmentType: "anxious"},
	)

	assert.Equal(t, 70, points)
	assert.Contains(t, reason, "matching attachment styles")
}

func TestScore_SecurePartialCredit(t *testing.T) {
	// secure pairs well with anything: partial credit on a mismatch,
	// regardless of which side is secure
	points, reason := scoring.Score(
		scoring.Profile{AttachmentType: "secure"},
		scoring.Profile{AttachmentType: "avoidant"},
	)
	assert.Equal(t, 65, points)
	assert.Contains(t, reason, "secure attachment compatibility")

	points, _ = scoring.Score(
		scoring.Profile{AttachmentType: "avoidant"},
		scoring.Profile{AttachmentType: "secure"},
	)
	assert.Equal(t, 65, points)
}

func TestScore_SameCityRequiresNonEmpty(t *testing.T) {
	points, _ := scoring.Score(
		scoring.Profile{AttachmentType: "a", City: ""},
		scoring.Profile{AttachmentType: "b", City: ""},
	)
	// two empty cities never count as a match
	assert.Equal(t, 50, points)

	points, reason := scoring.Score(
		scoring.Profile{AttachmentType: "a", City: "Berlin"},
		scoring.Profile{AttachmentType: "b", City: "Berlin"},
	)
	assert.Equal(t, 60, points)
	assert.Contains(t, reason, "same city")
}

func TestScore_SharedTags(t *testing.T) {
	points, reason := scoring.Score(
		scoring.Profile{RawTags: `["hiking","jazz","cinema"]`},
		scoring.Profile{RawTags: `["jazz","hiking","yoga"]`},
	)

	assert.Equal(t, 60, points) // base 50 + 2 shared tags
	assert.Contains(t, reason, "hiking")
	assert.Contains(t, reason, "jazz")
	assert.NotContains(t, reason, "yoga")
}

func TestScore_MalformedTagsRecovered(t *testing.T) {
	points, _ := scoring.Score(
		scoring.Profile{RawTags: `{not json`},
		scoring.Profile{RawTags: `["hiking"]`},
	)
	assert.Equal(t, 50, points)

	assert.Nil(t, scoring.ParseTags(`{broken`))
	assert.Nil(t, scoring.ParseTags(""))
	assert.Equal(t, []string{"a"}, scoring.ParseTags(`["a"]`))
}

func TestScore_AlwaysWithinBounds(t *testing.T) {
	// every factor fires at once: 50 + 20 + 10 + 10*5 = 130, clamped
	manyTags := `["t1","t2","t3","t4","t5","t6","t7","t8","t9","t10"]`
	self := scoring.Profile{AttachmentType: "secure", City: "Berlin", RawTags: manyTags}
	points, _ := scoring.Score(self, self)
	assert.Equal(t, 100, points)

	profiles := []scoring.Profile{
		{},
		{AttachmentType: "secure"},
		{AttachmentType: "anxious", City: "Berlin", RawTags: manyTags},
		{RawTags: `garbage`},
	}
	for _, a := range profiles {
		for _, b := range profiles {
			p, _ := scoring.Score(a, b)
			assert.GreaterOrEqual(t, p, 0)
			assert.LessOrEqual(t, p, 100)
		}
	}
}

func TestScore_Deterministic(t *testing.T) {
	a := scoring.Profile{AttachmentType: "secure", City: "Lisbon", RawTags: `["jazz","yoga"]`}
	b := scoring.Profile{AttachmentType: "anxious", City: "Lisbon", RawTags: `["yoga"]`}

	p1, r1 := scoring.Score(a, b)
	p2, r2 := scoring.Score(a, b)
	assert.Equal(t, p1, p2)
	assert.Equal(t, r1, r2)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0, scoring.Clamp(-5))
	assert.Equal(t, 42, scoring.Clamp(42))
	assert.Equal(t, 100, scoring.Clamp(117))
}

func TestScoreCandidates_SortedDescending(t *testing.T) {
	self := scoring.Profile{UserID: 1, AttachmentType: "secure", City: "Berlin"}
	candidates := []scoring.Profile{
		{UserID: 2, AttachmentType: "avoidant", City: "Lisbon"}, // 65
		{UserID: 3, AttachmentType: "secure", City: "Berlin"},   // 80
		{UserID: 4, AttachmentType: "avoidant", City: "Berlin"}, // 75
	}

	scored := scoring.ScoreCandidates(self, candidates)

	assert.Len(t, scored, 3)
	assert.Equal(t, uint64(3), scored[0].Profile.UserID)
	assert.Equal(t, uint64(4), scored[1].Profile.UserID)
	assert.Equal(t, uint64(2), scored[2].Profile.UserID)
}

func TestScoreCandidates_StableOnTies(t *testing.T) {
	self := scoring.Profile{UserID: 1}
	candidates := []scoring.Profile{
		{UserID: 9}, {UserID: 3}, {UserID: 6},
	}

	scored := scoring.ScoreCandidates(self, candidates)

	// identical scores fall back to user id ascending
	assert.Equal(t, uint64(3), scored[0].Profile.UserID)
	assert.Equal(t, uint64(6), scored[1].Profile.UserID)
	assert.Equal(t, uint64(9), scored[2].Profile.UserID)
}

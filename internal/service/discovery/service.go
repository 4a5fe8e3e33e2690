package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/resona/match-engine/internal/app"
	"github.com/resona/match-engine/internal/avatar"
	svcErr "github.com/resona/match-engine/internal/errors"
	"github.com/resona/match-engine/internal/repository"
	"github.com/resona/match-engine/internal/scoring"
)

// cacheSchemaVersion is embedded in every recommendation cache key. Bump it
// whenever the scoring logic changes so stale lists age out without a
// manual purge.
const cacheSchemaVersion = "v3"

const (
	cacheTTL              = 24 * time.Hour
	defaultCandidateLimit = 10
)

// Recommendation is one scored candidate in a user's daily list.
type Recommendation struct {
	UserID    uint64 `json:"user_id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
	City      string `json:"city"`
	Score     int    `json:"score"`
	Reason    string `json:"reason"`
}

// Service serves the cached daily recommendation lists. The cache is a
// convenience layer only: losing it costs a recompute, never correctness.
type Service struct {
	appCtx         *app.AppContext
	users          *repository.UserRepository
	blocks         *repository.BlockRepository
	avatarFor      avatar.Generator
	candidateLimit int
}

// NewService creates a discovery service with dependencies from AppContext.
// candidateLimit <= 0 falls back to the default bound.
func NewService(appCtx *app.AppContext, candidateLimit int) *Service {
	if candidateLimit <= 0 {
		candidateLimit = defaultCandidateLimit
	}
	return &Service{
		appCtx:         appCtx,
		users:          repository.NewUserRepository(appCtx.DB),
		blocks:         repository.NewBlockRepository(appCtx.DB),
		avatarFor:      avatar.URLFor,
		candidateLimit: candidateLimit,
	}
}

func (s *Service) cacheKey(userID uint64) string {
	return fmt.Sprintf("reco:%s:%d", cacheSchemaVersion, userID)
}

// DailyRecommendations returns the user's scored candidate list, sorted by
// score descending.
//
// Cache-first: a hit is returned verbatim; on a miss the list is recomputed
// (active, test-completed candidates excluding self and every blocked
// counterpart, bounded, scored, sorted) and stored with a 24h TTL. Cache
// failures are logged and swallowed — they never fail the request.
func (s *Service) DailyRecommendations(ctx context.Context, userID uint64) ([]Recommendation, error) {
	key := s.cacheKey(userID)

	if cached, err := s.appCtx.RedisCache.Get(ctx, key); err == nil && cached != "" {
		var recos []Recommendation
		if err := json.Unmarshal([]byte(cached), &recos); err == nil {
			s.appCtx.Logger.Debug("recommendations cache hit", "user", userID, "count", len(recos))
			return recos, nil
		}
		// unreadable payload: recompute below and overwrite
	}

	self, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	blockedIDs, err := s.blocks.BlockedUserIDs(ctx, userID)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	candidates, err := s.users.FindCandidates(ctx, userID, blockedIDs, s.candidateLimit)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	profiles := make([]scoring.Profile, len(candidates))
	byID := make(map[uint64]int, len(candidates))
	for i, c := range candidates {
		profiles[i] = c.Profile()
		byID[c.ID] = i
	}

	scored := scoring.ScoreCandidates(self.Profile(), profiles)
	recos := make([]Recommendation, 0, len(scored))
	for _, sc := range scored {
		cand := candidates[byID[sc.Profile.UserID]]
		avatarURL := cand.AvatarURL
		if avatarURL == "" {
			avatarURL = s.avatarFor(cand.ID)
		}
		recos = append(recos, Recommendation{
			UserID:    cand.ID,
			Username:  cand.Username,
			AvatarURL: avatarURL,
			City:      cand.City,
			Score:     sc.Points,
			Reason:    sc.Reason,
		})
	}

	if payload, err := json.Marshal(recos); err == nil {
		if err := s.appCtx.RedisCache.Set(ctx, key, payload, cacheTTL); err != nil {
			s.appCtx.Logger.Warn("failed to cache recommendations", "user", userID, "err", err)
		}
	}

	s.appCtx.Logger.Debug("recommendations computed", "user", userID, "count", len(recos))
	return recos, nil
}

// Invalidate drops the user's cached list, e.g. after a profile edit.
func (s *Service) Invalidate(ctx context.Context, userID uint64) error {
	return s.appCtx.RedisCache.Del(ctx, s.cacheKey(userID))
}

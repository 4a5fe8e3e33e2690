package discovery_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/resona/match-engine/internal/app"
	"github.com/resona/match-engine/internal/cache"
	"github.com/resona/match-engine/internal/config"
	"github.com/resona/match-engine/internal/db"
	svcErr "github.com/resona/match-engine/internal/errors"
	"github.com/resona/match-engine/internal/service/discovery"
)

// SeedDiscoveryTestData wipes the DB and inserts a deterministic candidate
// pool around user1.
//
// Dataset:
//   - user1: requester (secure, Berlin)
//   - user2: secure, Berlin, own avatar        → 80 against user1
//   - user3: anxious, Berlin, no avatar        → 75
//   - user4: anxious, Lisbon                   → 65
//   - user5: inactive                          → excluded
//   - user6: onboarding incomplete             → excluded
//   - user7: blocked by user1                  → excluded
func SeedDiscoveryTestData(t *testing.T, gdb *gorm.DB) {
	t.Helper()

	require.NoError(t, gdb.Exec("DELETE FROM blocks").Error)
	require.NoError(t, gdb.Exec("DELETE FROM users").Error)

	users := []db.User{
		{ID: 1, Username: "user1", Email: "u1@test.com", PasswordHash: "x", Active: true,
			AttachmentType: "secure", City: "Berlin", TestCompleted: true},
		{ID: 2, Username: "user2", Email: "u2@test.com", PasswordHash: "x", Active: true,
			AttachmentType: "secure", City: "Berlin", TestCompleted: true, AvatarURL: "https://cdn.test/u2.png"},
		{ID: 3, Username: "user3", Email: "u3@test.com", PasswordHash: "x", Active: true,
			AttachmentType: "anxious", City: "Berlin", TestCompleted: true},
		{ID: 4, Username: "user4", Email: "u4@test.com", PasswordHash: "x", Active: true,
			AttachmentType: "anxious", City: "Lisbon", TestCompleted: true},
		{ID: 5, Username: "user5", Email: "u5@test.com", PasswordHash: "x", Active: false,
			AttachmentType: "secure", City: "Berlin", TestCompleted: true},
		{ID: 6, Username: "user6", Email: "u6@test.com", PasswordHash: "x", Active: true,
			AttachmentType: "secure", City: "Berlin", TestCompleted: false},
		{ID: 7, Username: "user7", Email: "u7@test.com", PasswordHash: "x", Active: true,
			AttachmentType: "secure", City: "Berlin", TestCompleted: true},
	}
	require.NoError(t, gdb.Create(&users).Error)

	require.NoError(t, gdb.Create(&db.Block{BlockerID: 1, BlockedID: 7}).Error)
}

func setupService(t *testing.T) (*discovery.Service, *gorm.DB, *miniredis.Miniredis) {
	t.Helper()

	dbName := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	dbase, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{
		NowFunc:                func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := dbase.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(dbase))
	SeedDiscoveryTestData(t, dbase)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()

	redisCache := cache.NewRedisCache(cfg)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	appCtx := app.New(dbase, redisCache, logger)
	return discovery.NewService(appCtx, 10), dbase, mr
}

func TestDailyRecommendations_ScoredAndSorted(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupService(t)

	recos, err := svc.DailyRecommendations(ctx, 1)
	require.NoError(t, err)

	// eligible pool is exactly users 2, 3, 4 sorted by score descending
	require.Len(t, recos, 3)
	assert.Equal(t, uint64(2), recos[0].UserID)
	assert.Equal(t, 80, recos[0].Score)
	assert.Equal(t, uint64(3), recos[1].UserID)
	assert.Equal(t, 75, recos[1].Score)
	assert.Equal(t, uint64(4), recos[2].UserID)
	assert.Equal(t, 65, recos[2].Score)

	for _, r := range recos {
		assert.NotContains(t, []uint64{1, 5, 6, 7}, r.UserID)
		assert.NotEmpty(t, r.Reason)
	}
}

func TestDailyRecommendations_AvatarFallback(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupService(t)

	recos, err := svc.DailyRecommendations(ctx, 1)
	require.NoError(t, err)

	// user2 keeps its own avatar; user3 gets the deterministic fallback
	assert.Equal(t, "https://cdn.test/u2.png", recos[0].AvatarURL)
	assert.NotEmpty(t, recos[1].AvatarURL)
	assert.Contains(t, recos[1].AvatarURL, "seed=user-3")
}

func TestDailyRecommendations_CacheHitIsVerbatim(t *testing.T) {
	ctx := context.Background()
	svc, dbase, _ := setupService(t)

	first, err := svc.DailyRecommendations(ctx, 1)
	require.NoError(t, err)
	require.Len(t, first, 3)

	// deactivate a candidate after the list was cached; the cached list is
	// returned unchanged until its TTL runs out
	require.NoError(t, dbase.Model(&db.User{}).Where("id = ?", 2).Update("active", false).Error)

	second, err := svc.DailyRecommendations(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDailyRecommendations_InvalidateForcesRecompute(t *testing.T) {
	ctx := context.Background()
	svc, dbase, _ := setupService(t)

	first, err := svc.DailyRecommendations(ctx, 1)
	require.NoError(t, err)
	require.Len(t, first, 3)

	require.NoError(t, dbase.Model(&db.User{}).Where("id = ?", 2).Update("active", false).Error)
	require.NoError(t, svc.Invalidate(ctx, 1))

	recomputed, err := svc.DailyRecommendations(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, recomputed, 2)
}

func TestDailyRecommendations_CacheFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	svc, _, mr := setupService(t)

	// cache down: both the read and the write must be swallowed
	mr.Close()

	recos, err := svc.DailyRecommendations(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, recos, 3)
}

func TestDailyRecommendations_CorruptCachePayloadRecomputed(t *testing.T) {
	ctx := context.Background()
	svc, _, mr := setupService(t)

	require.NoError(t, mr.Set("reco:v3:1", "{not json"))

	recos, err := svc.DailyRecommendations(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, recos, 3)
}

func TestDailyRecommendations_UnknownUser(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupService(t)

	_, err := svc.DailyRecommendations(ctx, 404)
	require.Error(t, err)
	assert.True(t, svcErr.IsNotFound(err))
}

func TestDailyRecommendations_NoEligibleCandidates(t *testing.T) {
	ctx := context.Background()
	svc, dbase, _ := setupService(t)

	// nobody else has completed onboarding
	require.NoError(t, dbase.Model(&db.User{}).Where("id <> ?", 1).Update("test_completed", false).Error)

	recos, err := svc.DailyRecommendations(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, recos)
}

package database

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/Coin333/courage-reps/pkg/models"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := Connect("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleProgress(userID int64) models.UserProgress {
	return models.UserProgress{
		UserID:               userID,
		Version:              models.CurrentProgressVersion,
		PretestCompleted:     true,
		Level:                3,
		XP:                   120,
		TotalXP:              420,
		Streak:               4,
		BestStreak:           9,
		TotalCompleted:       17,
		HardCompleted:        2,
		NoRefreshStreak:      3,
		DaysTrained:          15,
		LastCompletionDate:   "2024-03-09",
		ChallengeDate:        "2024-03-10",
		CurrentChallenge:     "Ask someone to hang out or grab coffee.",
		ChallengeDifficulty:  models.Hard,
		RefreshCountToday:    1,
		RefreshUsedOnCurrent: true,
		CompletedChallenges:  models.StringList{"a", "b"},
		CompletedLessons:     models.IntList{1, 4},
		Reflections: models.ReflectionList{{
			ID:            "r1",
			Date:          time.Date(2024, 3, 9, 18, 0, 0, 0, time.UTC),
			ChallengeText: "a",
			Reflection:    "went ok",
			Analysis:      models.Feedback{Strengths: []string{"s"}, Improvements: []string{"i"}, NextFocus: "n"},
		}},
		EarnedBadges: models.StringList{"first_rep"},
	}
}

var ignoreTimestamps = cmpopts.IgnoreFields(models.UserProgress{}, "CreatedAt", "UpdatedAt")

// runStoreContract checks the behaviour every ProgressStore must share
func runStoreContract(t *testing.T, store ProgressStore) {
	ctx := context.Background()

	t.Run("missing record", func(t *testing.T) {
		_, err := store.Load(ctx, 404)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("round trip", func(t *testing.T) {
		p := sampleProgress(1)
		require.NoError(t, store.Save(ctx, &p))
		assert.Equal(t, int64(1), p.Revision)
		assert.False(t, p.UpdatedAt.IsZero())

		loaded, err := store.Load(ctx, 1)
		require.NoError(t, err)
		if diff := cmp.Diff(p, loaded, ignoreTimestamps); diff != "" {
			t.Errorf("loaded record differs (-saved +loaded):\n%s", diff)
		}
	})

	t.Run("revision conflict", func(t *testing.T) {
		a, err := store.Load(ctx, 1)
		require.NoError(t, err)
		b, err := store.Load(ctx, 1)
		require.NoError(t, err)

		a.XP = 130
		require.NoError(t, store.Save(ctx, &a))
		assert.Equal(t, int64(2), a.Revision)

		b.XP = 999
		assert.ErrorIs(t, store.Save(ctx, &b), ErrRevisionConflict)
		assert.Equal(t, int64(1), b.Revision)

		loaded, err := store.Load(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 130, loaded.XP)
	})

	t.Run("create over existing record", func(t *testing.T) {
		fresh := sampleProgress(1)
		assert.ErrorIs(t, store.Save(ctx, &fresh), ErrRevisionConflict)
	})

	t.Run("list and delete", func(t *testing.T) {
		p := sampleProgress(2)
		require.NoError(t, store.Save(ctx, &p))

		ids, err := store.UserIDs(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 2}, ids)

		require.NoError(t, store.Delete(ctx, 2))
		_, err = store.Load(ctx, 2)
		assert.ErrorIs(t, err, ErrNotFound)

		ids, err = store.UserIDs(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int64{1}, ids)
	})
}

func TestMemoryProgressStore(t *testing.T) {
	runStoreContract(t, NewMemoryProgressStore())
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryProgressStore()
	p := sampleProgress(1)
	require.NoError(t, store.Save(context.Background(), &p))

	p.CompletedChallenges[0] = "changed"
	loaded, err := store.Load(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "a", loaded.CompletedChallenges[0])
}

func TestSQLProgressRepository(t *testing.T) {
	runStoreContract(t, NewProgressRepository(newTestDB(t)))
}

func TestSQLProgressRepositoryCorruptRow(t *testing.T) {
	db := newTestDB(t)
	repo := NewProgressRepository(db)
	ctx := context.Background()

	p := sampleProgress(5)
	require.NoError(t, repo.Save(ctx, &p))
	_, err := db.Exec("UPDATE user_progress SET completed_challenges = '{oops' WHERE user_id = 5")
	require.NoError(t, err)

	_, err = repo.Load(ctx, 5)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestSQLProgressRepositoryStaleUsers(t *testing.T) {
	repo := NewProgressRepository(newTestDB(t))
	ctx := context.Background()

	fresh := sampleProgress(1)
	fresh.ChallengeDate = "2024-03-11"
	stale := sampleProgress(2)
	notOnboarded := sampleProgress(3)
	notOnboarded.PretestCompleted = false
	for _, p := range []*models.UserProgress{&fresh, &stale, &notOnboarded} {
		require.NoError(t, repo.Save(ctx, p))
	}

	ids, err := repo.StaleUserIDs(ctx, "2024-03-11")
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, ids)
}

func TestSQLProgressRepositoryDeleteRemovesCompletions(t *testing.T) {
	db := newTestDB(t)
	repo := NewProgressRepository(db)
	completions := NewCompletionRepository(db)
	ctx := context.Background()

	p := sampleProgress(8)
	require.NoError(t, repo.Save(ctx, &p))
	require.NoError(t, completions.Create(ctx, &models.Completion{UserID: 8, Challenge: "x", Difficulty: models.Standard, Day: "2024-03-10"}))

	require.NoError(t, repo.Delete(ctx, 8))
	log, err := completions.GetByUserID(ctx, 8, 10)
	require.NoError(t, err)
	assert.Empty(t, log)
}

func TestRedisProgressStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	prefix := "couragereps-test-" + strconv.FormatInt(time.Now().UnixNano(), 10)
	store := NewRedisProgressStoreWithClient(client, prefix)
	require.NoError(t, store.Ping(context.Background()))
	t.Cleanup(func() {
		ctx := context.Background()
		keys, _ := client.Keys(ctx, prefix+":*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
		store.Close()
	})

	runStoreContract(t, store)
}

func TestConnectRejectsUnknownDriver(t *testing.T) {
	_, err := Connect("oracle", "")
	assert.Error(t, err)

	_, err = Connect("postgres", "")
	assert.Error(t, err)
}

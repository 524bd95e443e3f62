package badges

import (
	"testing"

	"github.com/Coin333/courage-reps/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(bs []Badge) []string {
	out := make([]string, 0, len(bs))
	for _, b := range bs {
		out = append(out, b.ID)
	}
	return out
}

func TestCheckNewThirtyStrong(t *testing.T) {
	p := models.UserProgress{
		Level:          1,
		TotalCompleted: 30,
		EarnedBadges:   models.StringList{"first_rep"},
	}

	fresh := CheckNew(&p)
	require.Len(t, fresh, 1)
	assert.Equal(t, "thirty_strong", fresh[0].ID)
	assert.Equal(t, "Thirty Strong", fresh[0].Name)
	assert.Equal(t, models.StringList{"first_rep", "thirty_strong"}, p.EarnedBadges)

	again := CheckNew(&p)
	assert.Empty(t, again)
	assert.Len(t, p.EarnedBadges, 2)
}

func TestCheckNewFromEmptySet(t *testing.T) {
	p := models.UserProgress{
		Level:          5,
		TotalCompleted: 30,
		HardCompleted:  2,
		BestStreak:     8,
		Streak:         1,
	}

	fresh := CheckNew(&p)
	assert.Equal(t, []string{"first_rep", "week_warrior", "hard_charger", "thirty_strong", "level_five"}, ids(fresh))
	assert.Equal(t, models.StringList(ids(fresh)), p.EarnedBadges)
}

func TestCheckNewKeepsBadgesWhenPredicateLapses(t *testing.T) {
	p := models.UserProgress{Level: 1, EarnedBadges: models.StringList{"week_warrior"}}
	assert.Empty(t, CheckNew(&p))
	assert.Equal(t, models.StringList{"week_warrior"}, p.EarnedBadges)
}

func TestEvaluateFractions(t *testing.T) {
	p := models.UserProgress{
		Level:            3,
		TotalCompleted:   45,
		Streak:           3,
		NoRefreshStreak:  7,
		CompletedLessons: models.IntList{1, 2, 3, 4, 5},
	}

	byID := make(map[string]Status)
	for _, s := range Evaluate(p) {
		byID[s.ID] = s
	}
	require.Len(t, byID, 10)

	assert.True(t, byID["thirty_strong"].Earned)
	assert.Equal(t, 30, byID["thirty_strong"].Current)
	assert.Equal(t, 1.0, byID["thirty_strong"].Fraction)

	assert.False(t, byID["century"].Earned)
	assert.InDelta(t, 0.45, byID["century"].Fraction, 1e-9)

	assert.InDelta(t, 3.0/7.0, byID["week_warrior"].Fraction, 1e-9)
	assert.InDelta(t, 0.5, byID["scholar"].Fraction, 1e-9)
	assert.InDelta(t, 0.6, byID["level_five"].Fraction, 1e-9)
	assert.True(t, byID["no_refresh_week"].Earned)
	assert.Equal(t, 0.0, byID["elite_runner"].Fraction)

	// Evaluate never records anything
	assert.Empty(t, p.EarnedBadges)
	assert.Equal(t, 3, CountEarned(p))
}

func TestStreakBadgesUseBestStreak(t *testing.T) {
	b, ok := Lookup("month_master")
	require.True(t, ok)
	assert.True(t, b.Earned(models.UserProgress{BestStreak: 30}))
	assert.True(t, b.Earned(models.UserProgress{Streak: 31, BestStreak: 31}))
	assert.False(t, b.Earned(models.UserProgress{Streak: 29, BestStreak: 29}))

	_, ok = Lookup("nope")
	assert.False(t, ok)
}

func TestTitles(t *testing.T) {
	tests := []struct {
		level int
		want  string
	}{
		{0, "Initiate"},
		{1, "Initiate"},
		{2, "Apprentice"},
		{4, "Leader"},
		{6, "Influential"},
		{9, "Influential"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CurrentTitle(tt.level).Name, "level %d", tt.level)
	}

	ts := Titles(3)
	require.Len(t, ts, 6)
	assert.True(t, ts[2].Unlocked)
	assert.False(t, ts[3].Unlocked)
}

func TestAllReturnsCopy(t *testing.T) {
	a := All()
	a[0].ID = "changed"
	assert.Equal(t, "first_rep", All()[0].ID)
}

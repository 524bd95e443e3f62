// Package progression implements the daily challenge, streak and XP rules.
//
// Every operation takes a progress record by value together with the current
// time and returns the updated record. Nothing here touches storage; callers
// load the record, apply one operation and save the result as a single write.
package progression

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/Coin333/courage-reps/internal/catalog"
	"github.com/Coin333/courage-reps/internal/random"
)

// Rand is the random source used for difficulty draws and challenge picks
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// Config holds the progression tunables
type Config struct {
	// XP for every accepted completion
	BaseReward int
	// Added for Hard challenges; Elite gets twice this
	HardBonus int
	// Added when the challenge was not refreshed
	NoRefreshBonus int
	// Percentage taken off base+difficulty reward after a refresh
	RefreshPenaltyPercent int
	// Added when the streak lands on one of StreakMilestones
	MilestoneBonus   int
	StreakMilestones []int
	// Refreshes allowed per day
	DailyRefreshCap int
	// Recent challenges remembered to avoid repeats
	HistoryCap int
	// Days before a used grace token becomes available again
	GraceCooldownDays int
	// Highest reachable level
	MaxLevel int
	// XP needed to leave levels 1..len(XPSchedule)
	XPSchedule []int
	// Beyond the schedule: XPScaleBase * 2^(level - len(XPSchedule))
	XPScaleBase int
	// Chance of a Hard challenge from level 3
	HardChance float64
	// Chance of an Elite challenge from level 5
	EliteChance float64
	// XP for finishing a lesson
	LessonXP int
	// Reflections kept on the record
	ReflectionCap int
	// Location whose midnight starts a new day
	Location *time.Location
}

// DefaultConfig returns the standard tunables
func DefaultConfig() Config {
	return Config{
		BaseReward:            20,
		HardBonus:             10,
		NoRefreshBonus:        10,
		RefreshPenaltyPercent: 20,
		MilestoneBonus:        50,
		StreakMilestones:      []int{7, 14, 21, 28},
		DailyRefreshCap:       2,
		HistoryCap:            20,
		GraceCooldownDays:     30,
		MaxLevel:              6,
		XPSchedule:            []int{100, 200, 400, 600, 800},
		XPScaleBase:           800,
		HardChance:            0.25,
		EliteChance:           0.15,
		LessonXP:              5,
		ReflectionCap:         50,
		Location:              time.Local,
	}
}

// Validate rejects tunables the engine cannot work with
func (c Config) Validate() error {
	if c.MaxLevel < 1 {
		return fmt.Errorf("max level must be at least 1, got %d", c.MaxLevel)
	}
	if len(c.XPSchedule) == 0 {
		return fmt.Errorf("xp schedule must not be empty")
	}
	for i, xp := range c.XPSchedule {
		if xp <= 0 {
			return fmt.Errorf("xp schedule entry %d must be positive", i+1)
		}
	}
	if c.XPScaleBase <= 0 {
		return fmt.Errorf("xp scale base must be positive")
	}
	if c.DailyRefreshCap < 0 {
		return fmt.Errorf("daily refresh cap must not be negative")
	}
	if c.HistoryCap < 1 || c.ReflectionCap < 1 {
		return fmt.Errorf("history and reflection caps must be at least 1")
	}
	if c.RefreshPenaltyPercent < 0 || c.RefreshPenaltyPercent > 100 {
		return fmt.Errorf("refresh penalty must be between 0 and 100, got %d", c.RefreshPenaltyPercent)
	}
	if c.HardChance < 0 || c.HardChance > 1 || c.EliteChance < 0 || c.EliteChance > 1 {
		return fmt.Errorf("difficulty chances must be between 0 and 1")
	}
	return nil
}

// Engine applies progression rules to user progress records
type Engine struct {
	cfg     Config
	catalog *catalog.Catalog
	rng     Rand
}

// New creates an engine. A nil catalog uses the embedded default and a nil
// rng uses a source seeded from crypto/rand.
func New(cfg Config, cat *catalog.Catalog, rng Rand) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid progression config: %w", err)
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cat == nil {
		cat = catalog.Default()
	}
	if rng == nil {
		seed, err := random.NewSeed()
		if err != nil {
			return nil, err
		}
		rng = NewLockedRand(seed)
	}
	return &Engine{cfg: cfg, catalog: cat, rng: rng}, nil
}

// Config returns the engine tunables
func (e *Engine) Config() Config {
	return e.cfg
}

// Catalog returns the catalog challenges are drawn from
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// LockedRand is a seedable source safe for concurrent use
type LockedRand struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewLockedRand creates a LockedRand from seed
func NewLockedRand(seed int64) *LockedRand {
	return &LockedRand{rnd: rand.New(rand.NewSource(seed))}
}

// Float64 returns a number in [0.0, 1.0)
func (r *LockedRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Float64()
}

// Intn returns a number in [0, n)
func (r *LockedRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Intn(n)
}

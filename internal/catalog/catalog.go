package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"github.com/Coin333/courage-reps/pkg/models"
	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// NoChallenge is returned when a catalog has no pool at all
const NoChallenge = "No challenges available for this level."

// Rand is the random source used for picks
type Rand interface {
	Intn(n int) int
}

// Level holds the challenge pools of one level
type Level struct {
	Description string   `yaml:"description,omitempty"`
	Standard    []string `yaml:"standard"`
	Hard        []string `yaml:"hard,omitempty"`
	Elite       []string `yaml:"elite,omitempty"`
}

// Lesson is a short social-skills lesson the user can mark complete
type Lesson struct {
	ID    int    `yaml:"id" json:"id"`
	Title string `yaml:"title" json:"title"`
}

// Catalog maps level -> difficulty tier -> challenge texts
type Catalog struct {
	Version string        `yaml:"version"`
	Levels  map[int]Level `yaml:"levels"`
	Lessons []Lesson      `yaml:"lessons,omitempty"`
}

// Default returns the embedded catalog
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		// The embedded file is covered by tests
		panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
	}
	return c
}

// Load reads a catalog from a YAML file. An empty path yields the default.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Marshal encodes the catalog as YAML
func (c *Catalog) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal catalog: %w", err)
	}
	return data, nil
}

// Validate checks the version and that every level has a standard pool
func (c *Catalog) Validate() error {
	if _, err := semver.NewVersion(c.Version); err != nil {
		return fmt.Errorf("invalid catalog version %q: %w", c.Version, err)
	}
	if len(c.Levels) == 0 {
		return fmt.Errorf("catalog has no levels")
	}
	for n, lvl := range c.Levels {
		if n < 1 {
			return fmt.Errorf("catalog level %d is out of range", n)
		}
		if len(lvl.Standard) == 0 {
			return fmt.Errorf("catalog level %d has no standard challenges", n)
		}
	}
	seen := make(map[int]bool)
	for _, l := range c.Lessons {
		if seen[l.ID] {
			return fmt.Errorf("duplicate lesson id %d", l.ID)
		}
		seen[l.ID] = true
	}
	return nil
}

// SemVer returns the parsed catalog version
func (c *Catalog) SemVer() *semver.Version {
	v, err := semver.NewVersion(c.Version)
	if err != nil {
		return semver.MustParse("0.0.0")
	}
	return v
}

// LevelNumbers returns the defined levels in ascending order
func (c *Catalog) LevelNumbers() []int {
	levels := make([]int, 0, len(c.Levels))
	for n := range c.Levels {
		levels = append(levels, n)
	}
	sort.Ints(levels)
	return levels
}

// nearestLevel resolves level to the closest defined level, preferring the
// lower one on ties.
func (c *Catalog) nearestLevel(level int) (int, bool) {
	if _, ok := c.Levels[level]; ok {
		return level, true
	}
	best, found := 0, false
	for _, n := range c.LevelNumbers() {
		if !found || abs(n-level) < abs(best-level) {
			best, found = n, true
		}
	}
	return best, found
}

// Pool returns the challenge texts for level and tier. Unknown levels resolve
// to the nearest defined level; a missing Hard or Elite pool falls back to
// Standard.
func (c *Catalog) Pool(level int, tier models.Difficulty) []string {
	n, ok := c.nearestLevel(level)
	if !ok {
		return nil
	}
	lvl := c.Levels[n]
	switch tier {
	case models.Hard:
		if len(lvl.Hard) > 0 {
			return lvl.Hard
		}
	case models.Elite:
		if len(lvl.Elite) > 0 {
			return lvl.Elite
		}
	}
	return lvl.Standard
}

// HasTier reports whether level defines its own pool for tier
func (c *Catalog) HasTier(level int, tier models.Difficulty) bool {
	n, ok := c.nearestLevel(level)
	if !ok {
		return false
	}
	lvl := c.Levels[n]
	switch tier {
	case models.Hard:
		return len(lvl.Hard) > 0
	case models.Elite:
		return len(lvl.Elite) > 0
	default:
		return len(lvl.Standard) > 0
	}
}

// Pick draws uniformly from the tier pool after removing recently completed
// challenges. When every entry was recent the whole pool is used.
func (c *Catalog) Pick(rng Rand, level int, tier models.Difficulty, recent []string) string {
	pool := c.Pool(level, tier)
	if len(pool) == 0 {
		return NoChallenge
	}

	exclude := make(map[string]bool, len(recent))
	for _, r := range recent {
		exclude[r] = true
	}
	available := make([]string, 0, len(pool))
	for _, ch := range pool {
		if !exclude[ch] {
			available = append(available, ch)
		}
	}
	if len(available) == 0 {
		available = pool
	}

	return available[rng.Intn(len(available))]
}

// Description returns the text shown after calibration for a level
func (c *Catalog) Description(level int) string {
	n, ok := c.nearestLevel(level)
	if !ok || c.Levels[n].Description == "" {
		return fmt.Sprintf("You'll start with Level %d challenges tailored to your current comfort zone.", level)
	}
	return c.Levels[n].Description
}

// Lesson looks up a lesson by id
func (c *Catalog) Lesson(id int) (Lesson, bool) {
	for _, l := range c.Lessons {
		if l.ID == id {
			return l, true
		}
	}
	return Lesson{}, false
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

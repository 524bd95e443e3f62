package random

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSeedVaries(t *testing.T) {
	seen := make(map[int64]bool)
	for i := 0; i < 8; i++ {
		seed, err := NewSeed()
		require.NoError(t, err)
		seen[seed] = true
	}
	assert.Greater(t, len(seen), 1)
}

func TestSeedVaries(t *testing.T) {
	assert.NotEqual(t, Seed(), Seed())
}

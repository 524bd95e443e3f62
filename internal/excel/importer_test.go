package excel

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Coin333/courage-reps/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestExportImportRoundTrip(t *testing.T) {
	src := catalog.Default()
	path := filepath.Join(t.TempDir(), "catalog.xlsx")

	written, err := ExportCatalog(src, path)
	require.NoError(t, err)
	assert.Positive(t, written)

	config := DefaultImportConfig()
	config.FilePath = path
	cat, result, err := ImportChallenges(config, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Errors)
	assert.Equal(t, written, result.TotalProcessed)
	assert.Equal(t, written, result.Created+result.Skipped)
	assert.Equal(t, "1.0.0", cat.Version)
	assert.Equal(t, src.LevelNumbers(), cat.LevelNumbers())

	for _, n := range src.LevelNumbers() {
		assert.ElementsMatch(t, src.Levels[n].Standard, cat.Levels[n].Standard, "level %d standard", n)
		assert.ElementsMatch(t, src.Levels[n].Hard, cat.Levels[n].Hard, "level %d hard", n)
		assert.ElementsMatch(t, src.Levels[n].Elite, cat.Levels[n].Elite, "level %d elite", n)
	}
}

func TestImportCSVWithLevelHeaders(t *testing.T) {
	path := writeFile(t, "challenges.csv", `Level,Tier,Challenge
Level 1,,
,,Wave at a neighbour
,Hard,Ask a stranger for the time
,standard,Wave at a neighbour
Level 6,,
,,Host a small dinner
,Elite,Give a toast at dinner
,Legendary,Juggle on stage
2,,
`)

	base := catalog.Default()
	before := len(base.Levels[1].Standard)

	config := DefaultImportConfig()
	config.FilePath = path
	cat, result, err := ImportChallenges(config, base)
	require.NoError(t, err)

	assert.Equal(t, 7, result.TotalProcessed)
	assert.Equal(t, 4, result.Created)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 1, result.LevelsCreated)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "Legendary")
	assert.Contains(t, result.Errors[1], "Row 10")

	assert.Contains(t, cat.Levels[1].Standard, "Wave at a neighbour")
	assert.Contains(t, cat.Levels[1].Hard, "Ask a stranger for the time")
	assert.Equal(t, []string{"Host a small dinner"}, cat.Levels[6].Standard)
	assert.Equal(t, []string{"Give a toast at dinner"}, cat.Levels[6].Elite)
	assert.Equal(t, before, len(base.Levels[1].Standard), "base must not change")
}

func TestImportRejectsLevelWithoutStandardPool(t *testing.T) {
	path := writeFile(t, "elite.csv", "Level,Tier,Challenge\n9,Elite,Give a toast at dinner\n")

	config := DefaultImportConfig()
	config.FilePath = path
	_, result, err := ImportChallenges(config, catalog.Default())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "level 9")
	assert.Equal(t, 1, result.Created)
}

func TestImportBumpsBaseVersion(t *testing.T) {
	path := writeFile(t, "one.csv", "Level,Tier,Challenge\n1,,Hold the door open\n")

	config := DefaultImportConfig()
	config.FilePath = path
	cat, _, err := ImportChallenges(config, catalog.Default())
	require.NoError(t, err)
	assert.Equal(t, "2.2.0", cat.Version)

	config.Version = "3.0.0"
	cat, _, err = ImportChallenges(config, catalog.Default())
	require.NoError(t, err)
	assert.Equal(t, "3.0.0", cat.Version)
}

func TestImportExcelCustomColumns(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Challenge", "Level"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"Say hi to a barista", 1}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]interface{}{"Speak up in a meeting", "x"}))
	path := filepath.Join(t.TempDir(), "custom.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	config := ImportConfig{
		FilePath:    path,
		TextColumn:  "A",
		LevelColumn: "B",
		TierColumn:  "C",
		StartRow:    2,
	}
	cat, result, err := ImportChallenges(config, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Say hi to a barista"}, cat.Levels[1].Standard)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Row 3")
}

func TestImportInvalidColumn(t *testing.T) {
	config := DefaultImportConfig()
	config.FilePath = "unused.csv"
	config.TextColumn = "1"
	_, _, err := ImportChallenges(config, nil)
	assert.Error(t, err)
}

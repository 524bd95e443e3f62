package excel

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Coin333/courage-reps/internal/catalog"
	"github.com/Coin333/courage-reps/pkg/models"
	"github.com/xuri/excelize/v2"
)

// ImportConfig defines the import configuration
type ImportConfig struct {
	FilePath    string // Path to the Excel or CSV file
	LevelColumn string // Column with the level number
	TierColumn  string // Column with the tier (Standard, Hard, Elite)
	TextColumn  string // Column with the challenge text
	SheetName   string // Name of the sheet to import
	StartRow    int    // The row to start importing from (1-based index)
	Version     string // Version of the resulting catalog, bumped from the base when empty
}

// DefaultImportConfig returns the default import configuration
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		LevelColumn: "A",
		TierColumn:  "B",
		TextColumn:  "C",
		SheetName:   "Sheet1",
		StartRow:    2, // By default, start from the second row (skip header)
	}
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int
	LevelsCreated  int
	Created        int
	Skipped        int
	Errors         []string
}

// columns holds the zero-based indexes of the configured columns
type columns struct {
	level, tier, text int
}

// ImportChallenges reads challenges from an Excel or CSV file and merges them
// into a copy of base. Rows with problems are reported in the result and do
// not abort the import; the merged catalog must still validate.
func ImportChallenges(config ImportConfig, base *catalog.Catalog) (*catalog.Catalog, *ImportResult, error) {
	cols, err := config.columns()
	if err != nil {
		return nil, nil, err
	}

	var rows [][]string
	ext := strings.ToLower(filepath.Ext(config.FilePath))
	if ext == ".csv" {
		rows, err = readCSV(config.FilePath)
	} else {
		rows, err = readExcel(config.FilePath, config.SheetName)
	}
	if err != nil {
		return nil, nil, err
	}

	cat := clone(base)
	if config.Version != "" {
		cat.Version = config.Version
	} else if base != nil {
		cat.Version = base.SemVer().IncMinor().String()
	} else {
		cat.Version = "1.0.0"
	}

	result := &ImportResult{Errors: make([]string, 0)}
	seen := existing(cat)
	currentLevel := 0

	for i, row := range rows {
		rowNum := i + 1
		if rowNum < config.StartRow {
			continue
		}
		if blank(row) {
			continue
		}

		// A row with only a level marker ("Level 3,,") sets the level for
		// the rows below it
		if lvl, ok := levelHeader(row, cols); ok {
			currentLevel = lvl
			continue
		}

		result.TotalProcessed++
		if err := addRow(cat, seen, row, cols, currentLevel, result); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", rowNum, err))
		}
	}

	if err := cat.Validate(); err != nil {
		return nil, result, fmt.Errorf("imported catalog is invalid: %w", err)
	}
	return cat, result, nil
}

// addRow adds one challenge to cat, skipping duplicates
func addRow(cat *catalog.Catalog, seen map[string]bool, row []string, cols columns, currentLevel int, result *ImportResult) error {
	text := cell(row, cols.text)
	if text == "" {
		return fmt.Errorf("challenge text is empty")
	}

	level := currentLevel
	if raw := cell(row, cols.level); raw != "" {
		n, err := parseLevel(raw)
		if err != nil {
			return err
		}
		level = n
	}
	if level < 1 {
		return fmt.Errorf("no level for %q", text)
	}

	tier := models.Standard
	if raw := cell(row, cols.tier); raw != "" {
		t, ok := models.ParseDifficulty(raw)
		if !ok {
			return fmt.Errorf("unknown tier %q", raw)
		}
		tier = t
	}

	key := dedupKey(level, tier, text)
	if seen[key] {
		result.Skipped++
		return nil
	}
	seen[key] = true

	lvl, ok := cat.Levels[level]
	if !ok {
		result.LevelsCreated++
	}
	switch tier {
	case models.Hard:
		lvl.Hard = append(lvl.Hard, text)
	case models.Elite:
		lvl.Elite = append(lvl.Elite, text)
	default:
		lvl.Standard = append(lvl.Standard, text)
	}
	cat.Levels[level] = lvl
	result.Created++
	return nil
}

func readExcel(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (c ImportConfig) columns() (columns, error) {
	var cols columns
	var err error
	if cols.level, err = columnToIndex(c.LevelColumn); err != nil {
		return cols, err
	}
	if cols.tier, err = columnToIndex(c.TierColumn); err != nil {
		return cols, err
	}
	if cols.text, err = columnToIndex(c.TextColumn); err != nil {
		return cols, err
	}
	return cols, nil
}

// columnToIndex converts an Excel column letter to a zero-based index
func columnToIndex(column string) (int, error) {
	n, err := excelize.ColumnNameToNumber(strings.TrimSpace(column))
	if err != nil {
		return 0, fmt.Errorf("invalid column %q: %w", column, err)
	}
	return n - 1, nil
}

// levelHeader reports whether row only names a level in its first cell
func levelHeader(row []string, cols columns) (int, bool) {
	first := strings.Trim(strings.TrimSpace(row[0]), "\"")
	if first == "" {
		return 0, false
	}
	for i := 1; i < len(row); i++ {
		if strings.TrimSpace(row[i]) != "" {
			return 0, false
		}
	}
	// A lone number in the level column is a level with no text, not a header
	if cols.level == 0 && !strings.HasPrefix(strings.ToLower(first), "level") {
		return 0, false
	}
	n, err := parseLevel(first)
	if err != nil {
		return 0, false
	}
	return n, true
}

// parseLevel accepts "3" or "Level 3"
func parseLevel(s string) (int, error) {
	s = strings.TrimSpace(s)
	if len(s) > 5 && strings.EqualFold(s[:5], "level") {
		s = strings.TrimSpace(s[5:])
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid level %q", s)
	}
	if n < 1 {
		return 0, fmt.Errorf("level %d is out of range", n)
	}
	return n, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func dedupKey(level int, tier models.Difficulty, text string) string {
	return fmt.Sprintf("%d|%s|%s", level, tier, strings.ToLower(text))
}

func existing(cat *catalog.Catalog) map[string]bool {
	seen := make(map[string]bool)
	for n, lvl := range cat.Levels {
		for _, t := range lvl.Standard {
			seen[dedupKey(n, models.Standard, t)] = true
		}
		for _, t := range lvl.Hard {
			seen[dedupKey(n, models.Hard, t)] = true
		}
		for _, t := range lvl.Elite {
			seen[dedupKey(n, models.Elite, t)] = true
		}
	}
	return seen
}

// clone deep-copies base so the import never mutates it
func clone(base *catalog.Catalog) *catalog.Catalog {
	cat := &catalog.Catalog{Levels: make(map[int]catalog.Level)}
	if base == nil {
		return cat
	}
	cat.Version = base.Version
	for n, lvl := range base.Levels {
		cat.Levels[n] = catalog.Level{
			Description: lvl.Description,
			Standard:    append([]string(nil), lvl.Standard...),
			Hard:        append([]string(nil), lvl.Hard...),
			Elite:       append([]string(nil), lvl.Elite...),
		}
	}
	cat.Lessons = append([]catalog.Lesson(nil), base.Lessons...)
	return cat
}

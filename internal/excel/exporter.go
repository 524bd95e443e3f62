package excel

import (
	"fmt"

	"github.com/Coin333/courage-reps/internal/catalog"
	"github.com/Coin333/courage-reps/pkg/models"
	"github.com/xuri/excelize/v2"
)

// ExportCatalog writes the challenge pools of cat to an xlsx file in the
// layout ImportChallenges reads with DefaultImportConfig
func ExportCatalog(cat *catalog.Catalog, path string) (int, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := DefaultImportConfig().SheetName
	if err := f.SetSheetRow(sheet, "A1", &[]interface{}{"Level", "Tier", "Challenge"}); err != nil {
		return 0, fmt.Errorf("failed to write header: %w", err)
	}

	row := 2
	written := 0
	for _, n := range cat.LevelNumbers() {
		lvl := cat.Levels[n]
		pools := []struct {
			tier  models.Difficulty
			texts []string
		}{
			{models.Standard, lvl.Standard},
			{models.Hard, lvl.Hard},
			{models.Elite, lvl.Elite},
		}
		for _, pool := range pools {
			for _, text := range pool.texts {
				axis, err := excelize.CoordinatesToCellName(1, row)
				if err != nil {
					return written, err
				}
				if err := f.SetSheetRow(sheet, axis, &[]interface{}{n, string(pool.tier), text}); err != nil {
					return written, fmt.Errorf("failed to write row %d: %w", row, err)
				}
				row++
				written++
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return written, fmt.Errorf("failed to save workbook: %w", err)
	}
	return written, nil
}

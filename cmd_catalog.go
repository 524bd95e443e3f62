package main

import (
	"fmt"
	"os"

	"github.com/Coin333/courage-reps/internal/catalog"
	"github.com/Coin333/courage-reps/internal/excel"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	importOut      string
	importBase     string
	importVersion  string
	importSheet    string
	importStartRow int
	importLevelCol string
	importTierCol  string
	importTextCol  string
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect, import and export the challenge catalog",
}

var catalogValidateCmd = &cobra.Command{
	Use:   "validate [catalog.yaml]",
	Short: "Validate a catalog file, or the configured catalog",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.CatalogPath
		if len(args) == 1 {
			path = args[0]
		}
		cat, err := catalog.Load(path)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Catalog %s is valid\n", cat.Version)
		for _, n := range cat.LevelNumbers() {
			fmt.Fprintf(out, "  Level %d: %d standard, %d hard, %d elite\n", n,
				len(cat.Levels[n].Standard), len(cat.Levels[n].Hard), len(cat.Levels[n].Elite))
		}
		fmt.Fprintf(out, "  Lessons: %d\n", len(cat.Lessons))
		return nil
	},
}

var catalogImportCmd = &cobra.Command{
	Use:   "import <file.xlsx|file.csv>",
	Short: "Merge challenges from a spreadsheet into a catalog",
	Long: `Reads challenges from an Excel or CSV file and merges them into the base
catalog (the configured one unless --base is given). Rows need a level, an
optional tier (Standard, Hard or Elite) and the challenge text. In CSV files a
row holding only "Level N" sets the level for the rows below it.

The merged catalog is written as YAML to --out.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		basePath := importBase
		if basePath == "" {
			basePath = cfg.CatalogPath
		}
		base, err := catalog.Load(basePath)
		if err != nil {
			return err
		}

		config := excel.DefaultImportConfig()
		config.FilePath = args[0]
		config.Version = importVersion
		config.SheetName = importSheet
		config.StartRow = importStartRow
		config.LevelColumn = importLevelCol
		config.TierColumn = importTierCol
		config.TextColumn = importTextCol

		cat, result, err := excel.ImportChallenges(config, base)
		if result != nil {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Processed %d row(s): %d added, %d duplicate(s), %d new level(s)\n",
				result.TotalProcessed, result.Created, result.Skipped, result.LevelsCreated)
			for _, e := range result.Errors {
				fmt.Fprintf(out, "  %s\n", e)
			}
		}
		if err != nil {
			return err
		}

		data, err := cat.Marshal()
		if err != nil {
			return err
		}
		if err := os.WriteFile(importOut, data, 0o644); err != nil {
			return fmt.Errorf("failed to write catalog: %w", err)
		}
		logger.Info("Catalog imported", zap.String("path", importOut), zap.String("version", cat.Version))
		return nil
	},
}

var catalogExportCmd = &cobra.Command{
	Use:   "export <file.xlsx>",
	Short: "Write the configured catalog's challenges to a spreadsheet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := catalog.Load(cfg.CatalogPath)
		if err != nil {
			return err
		}
		n, err := excel.ExportCatalog(cat, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d challenge(s) from catalog %s\n", n, cat.Version)
		return nil
	},
}

func init() {
	defaults := excel.DefaultImportConfig()
	flags := catalogImportCmd.Flags()
	flags.StringVarP(&importOut, "out", "o", "catalog.yaml", "where to write the merged catalog")
	flags.StringVar(&importBase, "base", "", "catalog to merge into (defaults to CATALOG_PATH or the built-in catalog)")
	flags.StringVar(&importVersion, "version", "", "version of the merged catalog (defaults to a minor bump of the base)")
	flags.StringVar(&importSheet, "sheet", defaults.SheetName, "Excel sheet to read")
	flags.IntVar(&importStartRow, "start-row", defaults.StartRow, "first row to import (1-based)")
	flags.StringVar(&importLevelCol, "level-column", defaults.LevelColumn, "column holding the level")
	flags.StringVar(&importTierCol, "tier-column", defaults.TierColumn, "column holding the tier")
	flags.StringVar(&importTextCol, "text-column", defaults.TextColumn, "column holding the challenge text")

	catalogCmd.AddCommand(catalogValidateCmd, catalogImportCmd, catalogExportCmd)
}

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/course-extractor/internal/export"
	"github.com/joseph-ayodele/course-extractor/internal/merge"
	"github.com/joseph-ayodele/course-extractor/internal/record"
)

var (
	mergeOut      string
	mergeName     string
	mergeWorkbook bool
)

var mergeCmd = &cobra.Command{
	Use:   "merge [combined.csv...]",
	Short: "Re-merge previously produced combined CSV files",
	Long: `Reads combined course CSVs (for example from several terms or runs), merges
them by CRN and term, and writes fresh combined and underenrolled artifacts.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMerge,
}

func init() {
	mergeCmd.Flags().StringVar(&mergeOut, "out", ".", "output directory")
	mergeCmd.Flags().StringVar(&mergeName, "name", "merged", "artifact name prefix")
	mergeCmd.Flags().BoolVar(&mergeWorkbook, "xlsx", false, "also write an XLSX workbook")
}

func runMerge(cmd *cobra.Command, args []string) error {
	var all []record.Record
	for _, path := range args {
		recs, dropped, err := readCSVFile(path)
		if err != nil {
			return err
		}
		logger.Info("merge.read", zap.String("file", path), zap.Int("records", len(recs)), zap.Int("dropped", dropped))
		all = append(all, recs...)
	}

	res := merge.Merge(all, merge.Options{GraduateOnly: cfg.Pipeline.GraduateOnly, IgnoreTitles: cfg.Pipeline.IgnoreTitles})
	artifacts, err := export.NewService(mergeWorkbook, logger).Render(mergeName, res)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(mergeOut, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	for _, a := range artifacts {
		path := filepath.Join(mergeOut, a.Name)
		if err := os.WriteFile(path, a.Data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%d bytes)\n", path, len(a.Data))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d input records, %d combined, %d underenrolled, %d collapsed\n",
		len(all), len(res.Combined), len(res.Underenrolled), res.Collapsed)
	return nil
}

func readCSVFile(path string) ([]record.Record, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()
	recs, dropped, err := export.ReadCSV(f)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", path, err)
	}
	return recs, dropped, nil
}

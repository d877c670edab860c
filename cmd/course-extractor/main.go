package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/course-extractor/internal/common"
)

var (
	cfg    *common.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "course-extractor",
	Short: "Extract graduate course sections from registrar timetable PDFs",
	Long: `course-extractor turns timetable PDFs into a combined graduate course list
and an underenrolled course list.

Each document goes through text extraction and a text-generation backend that
returns structured rows. Rows are validated, merged by CRN and term, and written
as CSV files plus an XLSX workbook.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = common.LoadConfig()
		if err != nil {
			return err
		}
		logger, err = common.NewLogger(cfg.Env, cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func main() {
	rootCmd.AddCommand(serveCmd, batchCmd, mergeCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

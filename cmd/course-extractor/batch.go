package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/course-extractor/constants"
	"github.com/joseph-ayodele/course-extractor/internal/common"
	"github.com/joseph-ayodele/course-extractor/internal/ingest"
	"github.com/joseph-ayodele/course-extractor/internal/task"
)

var (
	batchDir        string
	batchSubject    string
	batchTerm       string
	batchOut        string
	batchSkipHidden bool
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Process a directory of timetable PDFs and write the artifacts locally",
	Long: `Runs every PDF under --dir through the same task pipeline the server uses
and waits for the merge.

Subject code and term default to the file name ("CS_202409.pdf"); --subject and
--term apply one value to every file.`,
	Args: cobra.NoArgs,
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringVar(&batchDir, "dir", "", "directory with timetable PDFs (required)")
	batchCmd.Flags().StringVar(&batchSubject, "subject", "", "subject code for every file, e.g. CS")
	batchCmd.Flags().StringVar(&batchTerm, "term", "", "term as YYYYMM for every file, e.g. 202409")
	batchCmd.Flags().StringVar(&batchOut, "out", "", "output directory (defaults to OUTPUT_DIR)")
	batchCmd.Flags().BoolVar(&batchSkipHidden, "skip-hidden", true, "skip dot files and directories")
	_ = batchCmd.MarkFlagRequired("dir")
}

func runBatch(cmd *cobra.Command, _ []string) error {
	if batchOut != "" {
		cfg.Storage.OutputDir = batchOut
	}
	// batch runs are one-shot; nothing needs to outlive the process
	cfg.Store.Backend = common.StoreMemory
	if err := cfg.Validate(); err != nil {
		return err
	}

	entries, stats, err := ingest.ScanDirectory(batchDir, ingest.Options{
		SubjectCode: batchSubject,
		TermYear:    batchTerm,
		SkipHidden:  batchSkipHidden,
	})
	if err != nil {
		return err
	}
	logger.Info("batch.scan",
		zap.String("dir", batchDir),
		zap.Uint32("scanned", stats.Scanned),
		zap.Uint32("matched", stats.Matched),
		zap.Uint32("failed", stats.Failed),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	c, err := build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer c.close(context.Background(), logger)

	var inputs []task.FileInput
	for _, e := range entries {
		if e.Err != "" {
			logger.Warn("batch.skip", zap.String("file", e.Path), zap.String("reason", e.Err))
			continue
		}
		f, err := os.Open(e.Path)
		if err != nil {
			logger.Warn("batch.skip", zap.String("file", e.Path), zap.Error(err))
			continue
		}
		defer f.Close()
		inputs = append(inputs, task.FileInput{
			Filename:    e.Filename,
			Content:     f,
			SubjectCode: e.SubjectCode,
			TermYear:    e.TermYear,
		})
	}
	if len(inputs) == 0 {
		return errors.New("no processable PDFs found")
	}

	id, err := c.manager.CreateTask(ctx, inputs)
	if err != nil {
		return err
	}
	if err := c.manager.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for task %s: %w", id, err)
	}

	st, err := c.manager.GetStatus(ctx, id)
	if err != nil {
		return err
	}
	for _, f := range st.Files {
		line := fmt.Sprintf("%-40s %-8s records=%d dropped=%d attempts=%d", f.Filename, f.Status, f.Records, f.Dropped, f.Attempts)
		if f.Error != "" {
			line += " error=" + f.Error
		}
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}
	if st.Status != constants.TaskStatusCompleted {
		return fmt.Errorf("task %s %s: %s", id, st.Status, st.Error)
	}

	outs, err := c.manager.GetOutputs(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "task %s: %d processed, %d failed\n", id, st.Processed, st.Failed)
	for _, o := range outs {
		path, err := c.outputs.Path(o.Key)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  %s (%d bytes)\n", path, o.SizeBytes)
	}
	return nil
}

// Command storehealth connects to the configured task store, pings it and
// lists the most recent tasks.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/joseph-ayodele/course-extractor/internal/common"
	"github.com/joseph-ayodele/course-extractor/internal/server"
)

func main() {
	limit := flag.Int("limit", 10, "number of recent tasks to list")
	flag.Parse()

	cfg, err := common.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	logger, err := common.NewLogger(cfg.Env, common.LogConfig{Level: cfg.Log.Level, Format: "console"})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	store, err := server.OpenTaskStore(ctx, cfg.Store, logger)
	if err != nil {
		logger.Fatal("opening task store", zap.Error(err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("closing task store", zap.Error(err))
		}
	}()

	if err := server.PingStore(ctx, store, logger, 2*time.Second); err != nil {
		logger.Fatal("task store health: FAIL", zap.Error(err))
	}
	logger.Info("task store health: OK", zap.String("backend", cfg.Store.Backend))

	tasks, err := store.List(ctx, *limit)
	if err != nil {
		logger.Fatal("listing tasks", zap.Error(err))
	}
	fmt.Printf("tasks: %d\n", len(tasks))
	for _, t := range tasks {
		processed, failed, pending := t.Counts()
		fmt.Printf("- %s %-10s files=%d processed=%d failed=%d pending=%d created=%s\n",
			t.ID, t.Status, len(t.Files), processed, failed, pending, t.CreatedAt.Format(time.RFC3339))
	}
}

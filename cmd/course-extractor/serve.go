package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/course-extractor/internal/server"
	"github.com/joseph-ayodele/course-extractor/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the gRPC health endpoint and the worker pool",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if n, err := c.manager.FailInterrupted(ctx); err != nil {
		logger.Warn("could not mark interrupted tasks", zap.Error(err))
	} else if n > 0 {
		logger.Info("marked interrupted tasks failed", zap.Int("tasks", n))
	}

	api := server.New(c.manager, c.store, c.metrics, logger, server.Options{MaxUploadBytes: cfg.Server.MaxUploadBytes})
	httpServer := api.HTTPServer(cfg.Server.HTTPAddr)
	grpcServer, hs := server.NewGRPCServer()

	var lis net.Listener
	if cfg.Server.GRPCAddr != "" {
		if lis, err = net.Listen("tcp", cfg.Server.GRPCAddr); err != nil {
			c.close(context.Background(), logger)
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http serving", zap.String("addr", cfg.Server.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if lis != nil {
		g.Go(func() error {
			logger.Info("grpc health serving", zap.String("addr", cfg.Server.GRPCAddr))
			return grpcServer.Serve(lis)
		})
	}
	g.Go(func() error {
		server.WatchHealth(gctx, hs, c.store, 15*time.Second, logger)
		return nil
	})
	g.Go(func() error {
		sweepStorage(gctx, cfg.Store.TaskTTL, logger, c.uploads, c.outputs)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")
		shCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shCtx); err != nil {
			logger.Warn("http shutdown", zap.Error(err))
		}
		grpcServer.GracefulStop()
		return nil
	})

	err = g.Wait()

	drainCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	c.close(drainCtx, logger)
	logger.Info("stopped")
	return err
}

// sweepStorage removes uploads and artifacts older than ttl, hourly.
func sweepStorage(ctx context.Context, ttl time.Duration, logger *zap.Logger, stores ...*storage.LocalStorage) {
	if ttl <= 0 {
		return
	}
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		for _, s := range stores {
			deleted, err := s.CleanupOlderThan(ttl)
			if err != nil {
				logger.Warn("storage cleanup failed", zap.String("dir", s.BaseDir()), zap.Error(err))
				continue
			}
			if len(deleted) > 0 {
				logger.Info("storage cleanup", zap.String("dir", s.BaseDir()), zap.Int("deleted", len(deleted)))
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

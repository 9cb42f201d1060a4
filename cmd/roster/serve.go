package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/paiban/roster/internal/handler"
	"github.com/paiban/roster/internal/metrics"
	"github.com/paiban/roster/internal/repository"
	"github.com/paiban/roster/pkg/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动HTTP服务",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	cfg := appCfg
	opts, err := cfg.Scheduler.SolverOptions()
	if err != nil {
		return err
	}

	var (
		tails  repository.TailStore
		health handler.HealthChecker
	)
	if cfg.Database.Enabled {
		db, repo, err := openTailStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		tails, health = repo, db
	}

	rec := metrics.Default()
	h := handler.NewScheduleHandler(opts, tails, rec)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      handler.NewRouter(ctx, cfg, h, rec, health),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.API.Timeout + opts.TimeLimit,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Int("port", cfg.App.Port).
			Str("version", cfg.App.Version).
			Str("build", BuildTime).
			Str("commit", GitCommit).
			Bool("tail_store", tails != nil).
			Msg("服务器启动")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("服务器启动失败")
		}
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("正在关闭服务器...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("服务器关闭失败")
		return err
	}
	logger.Info().Msg("服务器已关闭")
	return nil
}

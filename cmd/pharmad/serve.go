package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/pharmacy/internal/auth"
	"github.com/alfredjeanlab/pharmacy/internal/backup"
	"github.com/alfredjeanlab/pharmacy/internal/config"
	"github.com/alfredjeanlab/pharmacy/internal/events"
	"github.com/alfredjeanlab/pharmacy/internal/seed"
	"github.com/alfredjeanlab/pharmacy/internal/server"
	"github.com/alfredjeanlab/pharmacy/internal/store"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Start the HTTP API server",
	GroupID: "server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, logCloser, err := setup()
		if err != nil {
			return err
		}
		defer logCloser.Close()

		if err := cfg.RequireJWTSecret(); err != nil {
			return err
		}
		tokens, err := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
		if err != nil {
			return err
		}

		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		if inMemory {
			// An empty in-memory store has no roles to log in with.
			f, err := seed.Default()
			if err == nil {
				_, err = seed.Apply(cmd.Context(), st, f)
			}
			if err == nil && cfg.AdminPassword != "" {
				_, err = createUser(cmd.Context(), st, newUser{
					Username: "admin",
					Email:    "admin@localhost",
					Role:     "admin",
					Password: cfg.AdminPassword,
				})
			}
			if err != nil {
				st.Close()
				return err
			}
			logger.Info("serving from memory; data is lost on exit")
		}

		// Create event publisher.
		var publisher events.Publisher
		if cfg.NATSURL != "" {
			pub, err := events.NewNATSPublisher(cfg.NATSURL)
			if err != nil {
				st.Close()
				return err
			}
			publisher = pub
			logger.Info("events enabled", "nats_url", cfg.NATSURL)
		} else {
			publisher = &events.NoopPublisher{}
			logger.Info("events disabled (" + config.EnvPrefix + "NATS_URL not set)")
		}

		srv := server.New(st, publisher, tokens)
		httpServer := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           srv.NewHTTPHandler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("HTTP server error", "err", err)
			}
		}()

		scheduler := startBackups(cmd.Context(), cfg, st, srv, logger)

		// Wait for SIGINT or SIGTERM.
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)

		if scheduler != nil {
			scheduler.Stop()
			logger.Info("backup scheduler stopped")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "err", err)
		}
		logger.Info("HTTP server stopped")

		if err := publisher.Close(); err != nil {
			logger.Error("error closing publisher", "err", err)
		}
		if err := st.Close(); err != nil {
			logger.Error("error closing store", "err", err)
		}

		logger.Info("shutdown complete")
		return nil
	},
}

// startBackups starts the backup scheduler when an interval and a bucket are
// configured. It returns nil when backups are off.
func startBackups(ctx context.Context, cfg *config.Config, st store.Store, notifier backup.Notifier, logger *slog.Logger) *backup.Scheduler {
	if cfg.BackupInterval <= 0 {
		return nil
	}
	if cfg.BackupS3Bucket == "" {
		logger.Warn("backups disabled: " + config.EnvPrefix + "BACKUP_S3_BUCKET not set")
		return nil
	}
	dest, err := backup.NewS3Destination(ctx, cfg.BackupS3Bucket, cfg.BackupS3Key, cfg.BackupS3Region, cfg.BackupS3Endpoint)
	if err != nil {
		logger.Error("failed to create S3 backup destination", "err", err)
		return nil
	}
	logger.Info("backup S3 destination enabled", "bucket", cfg.BackupS3Bucket, "key", cfg.BackupS3Key)

	scheduler := backup.NewScheduler(st, []backup.Destination{dest}, cfg.BackupInterval, notifier, logger)
	scheduler.Start()
	logger.Info("backup scheduler started", "interval", cfg.BackupInterval)
	return scheduler
}

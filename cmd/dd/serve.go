package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/alfredjeanlab/dealdesk/internal/auth"
	"github.com/alfredjeanlab/dealdesk/internal/config"
	"github.com/alfredjeanlab/dealdesk/internal/events"
	"github.com/alfredjeanlab/dealdesk/internal/server"
	"github.com/alfredjeanlab/dealdesk/internal/store/postgres"
	dealsync "github.com/alfredjeanlab/dealdesk/internal/sync"
)

var serveCmd = &cobra.Command{
	Use:               "serve",
	Short:             "Start the dealdesk API server",
	GroupID:           "system",
	PersistentPreRunE: skipClient,
	Args:              cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		store, err := postgres.New(cfg.DatabaseURL)
		if err != nil {
			return err
		}

		var publisher events.Publisher
		if cfg.NATSURL != "" {
			pub, err := events.NewNATSPublisher(cfg.NATSURL)
			if err != nil {
				store.Close()
				return err
			}
			publisher = pub
			logger.Info("events enabled", "nats_url", cfg.NATSURL)
		} else {
			publisher = events.NoopPublisher{}
			logger.Info("events disabled (DEALDESK_NATS_URL not set)")
		}

		authOpts := auth.Options{
			StaticToken: cfg.AuthToken,
			StaticActor: cfg.AuthActor,
			Public:      []string{"/api/health", "/api/login", "/api/logout"},
		}
		if cfg.JWTSecret != "" {
			authOpts.Validator = auth.NewValidator(cfg.JWTSecret, cfg.JWTIssuer)
		}
		if !cfg.AuthEnabled() {
			logger.Warn("auth disabled: set DEALDESK_AUTH_TOKEN or DEALDESK_JWT_SECRET")
		}

		dealServer := server.NewDealServer(store, publisher, logger)
		grpcServer, healthServer := server.NewGRPCServer(logger, authOpts)

		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			publisher.Close()
			store.Close()
			return err
		}
		go func() {
			logger.Info("gRPC server listening", "addr", cfg.GRPCAddr)
			if err := grpcServer.Serve(lis); err != nil {
				logger.Error("gRPC server error", "err", err)
			}
		}()

		httpServer := &http.Server{
			Addr: cfg.HTTPAddr,
			Handler: dealServer.NewHTTPHandler(server.HTTPOptions{
				Auth:        authOpts,
				CORSOrigins: cfg.CORSOrigins,
				LoginURL:    cfg.LoginURL,
				LogoutURL:   cfg.LogoutURL,
				PublicURL:   cfg.PublicURL,
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("HTTP server error", "err", err)
			}
		}()

		scheduler := startSync(cfg, store, logger)

		logger.Info("dealdesk server started",
			"grpc_addr", cfg.GRPCAddr,
			"http_addr", cfg.HTTPAddr,
		)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)

		healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
		healthServer.SetServingStatus(server.ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

		if scheduler != nil {
			scheduler.Stop()
			logger.Info("sync scheduler stopped")
		}

		// SSE handlers only return when their request context ends, so the
		// HTTP shutdown is bounded.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "err", err)
		}
		logger.Info("HTTP server stopped")

		healthServer.Shutdown()
		grpcServer.GracefulStop()
		logger.Info("gRPC server stopped")

		if err := publisher.Close(); err != nil {
			logger.Error("error closing publisher", "err", err)
		}
		if err := store.Close(); err != nil {
			logger.Error("error closing store", "err", err)
		}

		logger.Info("shutdown complete")
		return nil
	},
}

// startSync starts the backup scheduler when an interval and at least one
// destination are configured. It returns nil otherwise.
func startSync(cfg *config.Config, store *postgres.PostgresStore, logger *slog.Logger) *dealsync.Scheduler {
	if cfg.SyncInterval == 0 {
		return nil
	}
	var dests []dealsync.Destination

	if cfg.SyncS3Bucket != "" {
		s3Dest, err := dealsync.NewS3Destination(context.Background(), dealsync.S3Options{
			Bucket:   cfg.SyncS3Bucket,
			Key:      cfg.SyncS3Key,
			Region:   cfg.SyncS3Region,
			Endpoint: cfg.SyncS3Endpoint,
		})
		if err != nil {
			logger.Error("failed to create S3 sync destination", "err", err)
		} else {
			dests = append(dests, s3Dest)
			logger.Info("sync destination enabled", "dest", s3Dest.Name())
		}
	}

	if cfg.SyncGitRepo != "" {
		gitDest := dealsync.NewGitDestination(cfg.SyncGitRepo, cfg.SyncGitFile, cfg.SyncGitBranch)
		dests = append(dests, gitDest)
		logger.Info("sync destination enabled", "dest", gitDest.Name())
	}

	if len(dests) == 0 {
		return nil
	}
	scheduler := dealsync.NewScheduler(store, dests, cfg.SyncInterval, logger)
	scheduler.Start()
	logger.Info("sync scheduler started", "interval", cfg.SyncInterval)
	return scheduler
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ConectaSenior Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/conectasenior/authgate/internal/access"
	"github.com/conectasenior/authgate/internal/auth"
	authpg "github.com/conectasenior/authgate/internal/auth/postgres"
	"github.com/conectasenior/authgate/internal/config"
	"github.com/conectasenior/authgate/internal/httpapi"
	"github.com/conectasenior/authgate/internal/logging"
	"github.com/conectasenior/authgate/internal/observability"
	"github.com/conectasenior/authgate/internal/store"
	"github.com/conectasenior/authgate/internal/token"
)

const shutdownTimeout = 5 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway HTTP server",
		Long: `Start the gateway, serving the authentication endpoints and the
administrative principal operations over HTTP.`,
		RunE: runServe,
	}

	// Flag names mirror the config file keys; flags win over the file.
	cmd.Flags().String("server.addr", config.DefaultAddr, "HTTP listen address")
	cmd.Flags().String("server.metrics_addr", config.DefaultMetricsAddr, "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("database.url", "", "PostgreSQL connection URL")
	cmd.Flags().String("auth.token_secret", "", "bearer token signing secret")
	cmd.Flags().Duration("auth.token_ttl", config.DefaultTokenTTL, "bearer token validity window")
	cmd.Flags().String("logging.format", config.DefaultLogFormat, "log format (json or text)")
	cmd.Flags().Bool("auto-migrate", false, "apply pending schema migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}

	logging.SetDefault("authgate", version, cfg.Logging.Format)
	logger := slog.Default()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	logger.Info("starting gateway",
		"addr", cfg.Server.Addr,
		"token_ttl", cfg.Auth.TokenTTL.String(),
	)

	pool, err := store.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	logger.Info("connected to database")

	autoMigrate, _ := cmd.Flags().GetBool("auto-migrate")
	if err := ensureSchema(cfg.Database.URL, autoMigrate, logger); err != nil {
		return err
	}

	codec, err := token.NewCodec([]byte(cfg.Auth.TokenSecret))
	if err != nil {
		return err
	}

	repo := authpg.NewPrincipalRepository(pool)
	hasher := auth.NewArgon2idHasher()

	service, err := auth.NewServiceWithLogger(repo, hasher, codec, cfg.Auth.TokenTTL, logger)
	if err != nil {
		return err
	}

	evaluator, err := access.NewEvaluator(access.DefaultPolicy(), logger)
	if err != nil {
		return err
	}

	// Observability server is optional; without it the gateway still
	// serves, just without metrics or health probes.
	var metrics *observability.Metrics
	var obsServer *observability.Server
	if cfg.Server.MetricsAddr != "" {
		obsServer = observability.NewServer(cfg.Server.MetricsAddr, func() bool {
			pingCtx, pingCancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer pingCancel()
			return pool.Ping(pingCtx) == nil
		})
		metrics = obsServer.Metrics()

		obsErrCh, err := obsServer.Start()
		if err != nil {
			return err
		}
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability")
		logger.Info("observability server started", "addr", obsServer.Addr())
	}

	apiServer, err := httpapi.NewServer(cfg.Server.Addr, service, codec, evaluator, metrics, logger)
	if err != nil {
		return err
	}
	apiErrCh, err := apiServer.Start()
	if err != nil {
		stopServers(nil, obsServer, logger)
		return err
	}
	go monitorServerErrors(ctx, cancel, apiErrCh, "api")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("Gateway started")
	logger.Info("gateway ready", "addr", apiServer.Addr())

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	logger.Info("shutting down...")
	stopServers(apiServer, obsServer, logger)
	logger.Info("shutdown complete")
	return nil
}

// ensureSchema verifies the database schema is current, applying pending
// migrations when autoMigrate is set and refusing to serve otherwise.
func ensureSchema(databaseURL string, autoMigrate bool, logger *slog.Logger) error {
	migrator, err := store.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Warn("error closing migrator", "error", closeErr)
		}
	}()

	current, dirty, err := migrator.Version()
	if err != nil {
		return err
	}
	if dirty {
		return oops.Code("MIGRATION_DIRTY").
			With("version", current).
			Errorf("schema is dirty at version %d; repair with 'authgate migrate force'", current)
	}

	available, err := store.MigrationVersions()
	if err != nil {
		return err
	}
	latest := uint(0)
	if len(available) > 0 {
		latest = available[len(available)-1]
	}

	if current == latest {
		return nil
	}
	if !autoMigrate {
		return oops.Code("MIGRATION_PENDING").
			With("current", current).
			With("latest", latest).
			Errorf("schema is at version %d, latest is %d; run 'authgate migrate up' or pass --auto-migrate", current, latest)
	}

	logger.Info("applying schema migrations", "current", current, "latest", latest)
	if err := migrator.Up(); err != nil {
		return err
	}
	logger.Info("schema migrations applied")
	return nil
}

// stopServers shuts down both servers within the shutdown timeout.
func stopServers(apiServer *httpapi.Server, obsServer *observability.Server, logger *slog.Logger) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if apiServer != nil {
		if err := apiServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping api server", "error", err)
		}
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}
}

// monitorServerErrors watches a server's error channel and cancels the
// context on failure so the whole process shuts down cleanly. Exits when
// an error arrives, the channel closes, or the context is cancelled.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}

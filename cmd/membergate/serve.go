// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Membergate Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/membergate/membergate/internal/auth"
	"github.com/membergate/membergate/internal/config"
	"github.com/membergate/membergate/internal/logging"
	"github.com/membergate/membergate/internal/web"
)

const shutdownTimeout = 5 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	var skipMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		Long: `Start the membergate web server. Pending database migrations are
applied first unless --skip-migrate is given.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServeWithDeps(ctx, cmd, cfg, skipMigrate, nil)
		},
	}

	config.RegisterFlags(cmd.Flags())
	cmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not apply pending migrations on startup")

	return cmd
}

// runServeWithDeps runs the server until ctx is cancelled or a listener
// fails. If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cmd *cobra.Command, cfg config.Config, skipMigrate bool, deps *Deps) error {
	deps = deps.withDefaults()

	logger := logging.SetDefault(logging.Options{
		Service: "membergate",
		Version: version,
		Format:  cfg.Log.Format,
		Redact:  cfg.Log.Redact,
		Writer:  cmd.ErrOrStderr(),
	})

	be, err := openBackend(ctx, cfg, skipMigrate, deps, logger)
	if err != nil {
		return err
	}
	defer be.close()

	handler, err := buildHandler(cfg, be, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sweeper := auth.NewSessionSweeper(be.sessions, cfg.Session.SweepInterval, logger)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	var obsServer ObservabilityServer
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, be.ready, auth.RegisterMetrics)
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return oops.Code("SERVE_FAILED").With("operation", "start observability server").Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
	}

	listener, err := deps.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		stopObservability(obsServer, logger)
		return oops.Code("SERVE_FAILED").With("addr", cfg.Server.Addr).Wrap(err)
	}

	httpServer := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errChan := make(chan error, 1)
	go func() {
		if serveErr := httpServer.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errChan <- serveErr
		}
	}()

	cmd.Println("Membergate started")
	logger.InfoContext(ctx, "membergate ready",
		"addr", listener.Addr().String(),
		"storage", cfg.Storage.Driver,
		"hasher", cfg.Auth.Hasher)

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errChan:
		serveErr = oops.Code("SERVE_FAILED").With("operation", "serve http").Wrap(err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("error stopping http server", "error", err)
	}
	stopObservability(obsServer, logger)

	logger.Info("shutdown complete")
	return serveErr
}

// buildHandler wires the hasher, session manager and auth service into
// the HTTP handler.
func buildHandler(cfg config.Config, be *backend, logger *slog.Logger) (http.Handler, error) {
	hasher, err := auth.NewPasswordHasher(cfg.Auth.Hasher, cfg.Auth.BcryptCost)
	if err != nil {
		return nil, err
	}
	manager, err := auth.NewSessionManager(be.sessions, cfg.Session.TTL, auth.WithSessionLogger(logger))
	if err != nil {
		return nil, err
	}
	service, err := auth.NewService(be.users, manager, hasher, auth.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	h, err := web.NewHandler(service,
		web.WithCookie(web.CookieConfig{Name: cfg.Session.CookieName, Secure: cfg.Session.SecureCookie}),
		web.WithHandlerLogger(logger))
	if err != nil {
		return nil, err
	}
	return h.Routes(), nil
}

// monitorServerErrors cancels the serve context when a background server
// reports a failure.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, name string) {
	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			slog.Error("server failed", "server", name, "error", err)
			cancel()
		}
	case <-ctx.Done():
	}
}

func stopObservability(server ObservabilityServer, logger *slog.Logger) {
	if server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		logger.Warn("error stopping observability server", "error", err)
	}
}

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vaultblockmagic/vault/internal/app"
	"github.com/vaultblockmagic/vault/internal/config"
	"github.com/vaultblockmagic/vault/internal/handlers"
	"github.com/vaultblockmagic/vault/internal/middleware"
	"github.com/vaultblockmagic/vault/internal/router"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logger.SetLevel(level)
	}

	if err := config.LoadConfig(*configPath); err != nil {
		logger.WithError(err).Fatal("failed to load configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container, err := app.InitializeContainer(ctx, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize services")
	}
	defer container.Cleanup()

	cfg := config.AppConfig
	auth := middleware.NewAuthMiddleware(cfg.Auth.Enabled, logger)
	engine := router.SetupRouter(&router.Handlers{
		Vault:      handlers.NewVaultHandler(container.Orchestrator, logger),
		Assets:     handlers.NewAssetsHandler(container.Discovery, logger),
		Account:    handlers.NewAccountHandler(container.RecoveryFlow, logger),
		Chain:      handlers.NewChainHandler(container.Manager, logger),
		Operations: handlers.NewOperationsHandler(container.OperationRepo, logger),
		WebSocket:  handlers.NewWebSocketHandler(container.Events, cfg.Auth.Enabled, logger),
	}, auth, logger)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: engine,
	}

	go func() {
		logger.WithField("addr", addr).Info("vault backend listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("forced shutdown")
	}
}

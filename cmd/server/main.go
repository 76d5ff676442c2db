package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/lk2023060901/file-portal-backend/internal/conf"
	"github.com/lk2023060901/file-portal-backend/internal/data"
	"github.com/lk2023060901/file-portal-backend/internal/download/service"
	"github.com/lk2023060901/file-portal-backend/internal/identity"
	"github.com/lk2023060901/file-portal-backend/internal/pkg/logger"
	"github.com/lk2023060901/file-portal-backend/internal/server"
	"go.uber.org/zap"
)

var (
	configFile = flag.String("config", "config.yaml", "config file path")
)

func main() {
	flag.Parse()

	// Load configuration
	config, err := conf.LoadConfig(*configFile)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log, err := logger.New(&config.Log)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	if err := logger.InitGlobal(&config.Log); err != nil {
		log.Fatal("failed to initialize global logger", zap.Error(err))
	}

	log.Info("config loaded successfully")

	// Initialize data layer
	d, cleanup, err := data.NewData(config, log)
	if err != nil {
		log.Fatal("failed to initialize data layer", zap.Error(err))
	}
	defer cleanup()

	downloadUseCase, drainNotifications, err := data.NewDownloadUseCase(d, config, log)
	if err != nil {
		log.Fatal("failed to initialize download use case", zap.Error(err))
	}

	opts := server.Options{
		Downloads: service.NewDownloadService(downloadUseCase, log),
		Verifier:  newVerifier(config),
		Checks: map[string]server.HealthCheck{
			"database": d.DB.HealthCheck,
			"storage":  d.MinIOClient.Ping,
		},
	}
	if d.RedisClient != nil {
		opts.Limiter = d.RedisClient
	}
	httpServer := server.NewHTTPServer(config, log, opts)

	go func() {
		if err := httpServer.Start(); err != nil {
			log.Fatal("failed to start HTTP server", zap.Error(err))
		}
	}()

	log.Info("server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), config.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Stop(ctx); err != nil {
		log.Error("HTTP server forced to shutdown", zap.Error(err))
	}
	if err := drainNotifications(ctx); err != nil {
		log.Warn("pending notifications dropped", zap.Error(err))
	}

	log.Info("server exited")
}

func newVerifier(config *conf.Config) identity.Verifier {
	admins := identity.NewAdminPolicy(config.Access.AdminEmails, config.Access.AdminGroups)
	if config.Access.Verifier == "jwt" {
		return identity.NewJWTVerifier(config.Access.Headers.Assertion, config.Access.JWT, admins)
	}
	return identity.NewHeaderVerifier(config.Access.Headers, admins)
}

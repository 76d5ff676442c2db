package main

import (
	"context"
	"fmt"
	"time"

	"github.com/lk2023060901/file-portal-backend/internal/conf"
	"github.com/lk2023060901/file-portal-backend/internal/data"
	"github.com/lk2023060901/file-portal-backend/internal/download/biz"
	"github.com/lk2023060901/file-portal-backend/internal/identity"
	"github.com/lk2023060901/file-portal-backend/internal/pkg/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	// cliIP is recorded as the client address of actions taken from the CLI
	cliIP = "cli"

	notificationDrainTimeout = 2 * time.Minute
)

var (
	configFile = "config.yaml"
	actAs      = ""
)

// RootCmd assembles portalctl and its subcommands
func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "portalctl",
		Short:         "Administer the file portal",
		Long:          "Administrative tasks for the file portal: schema migration, issuing download codes and listing stored files.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", configFile, "The configuration file")
	root.AddCommand(migrateCmd(), issueCmd(), filesCmd())
	return root
}

// env is the loaded configuration plus the backing services a command needs
type env struct {
	config  *conf.Config
	log     *logger.Logger
	data    *data.Data
	cleanup func()
}

func loadEnv() (*env, error) {
	config, err := conf.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	// the CLI never serves validation requests
	config.RateLimit.Enabled = false
	config.Database.AutoMigrate = false

	log, err := logger.New(&config.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	d, cleanup, err := data.NewData(config, log)
	if err != nil {
		return nil, err
	}
	return &env{config: config, log: log, data: d, cleanup: cleanup}, nil
}

func (e *env) close() {
	e.cleanup()
	_ = e.log.Sync()
}

// withUseCase runs fn against the production use case, acting as the --as administrator
func withUseCase(ctx context.Context, fn func(ctx context.Context, uc *biz.DownloadUseCase, caller identity.Caller) error) error {
	if actAs == "" {
		return fmt.Errorf("--as is required")
	}
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.close()

	uc, drain, err := data.NewDownloadUseCase(e.data, e.config, e.log)
	if err != nil {
		return err
	}
	defer func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), notificationDrainTimeout)
		defer cancel()
		if err := drain(drainCtx); err != nil {
			e.log.Warn("pending notifications dropped", zap.Error(err))
		}
	}()

	admins := identity.NewAdminPolicy(e.config.Access.AdminEmails, e.config.Access.AdminGroups)
	return fn(ctx, uc, cliCaller(admins, actAs))
}

// cliCaller builds the caller for an operator. Admin rights still come from the configured policy.
func cliCaller(admins *identity.AdminPolicy, email string) identity.Caller {
	c := identity.Caller{
		Email:     email,
		UserAgent: "portalctl",
		Location:  identity.Location{IP: cliIP},
	}
	c.IsAdmin = admins.IsAdmin(c)
	return c
}

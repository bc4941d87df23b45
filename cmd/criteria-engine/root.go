package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mindstorm-criteria-engine/internal/config"
	"github.com/mindstorm-criteria-engine/internal/database"
	"github.com/mindstorm-criteria-engine/internal/domain"
	"github.com/mindstorm-criteria-engine/internal/jobs"
	"github.com/mindstorm-criteria-engine/internal/review"
	"github.com/mindstorm-criteria-engine/internal/service"
)

var configFile string

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "criteria-engine",
		Short: "Evaluate journal evidence against depressive episode criteria",
		Long: `criteria-engine aggregates dated journal evidence into current and lifetime
symptom windows, resolves criteria node status and records clinician review decisions.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to config.yaml (default searches ., ./config and /etc/criteria-engine)")

	rootCmd.AddCommand(
		newServeCommand(),
		newMCPCommand(),
		newEvaluateCommand(),
		newMigrateCommand(),
		newReviewCommand(),
	)
	return rootCmd
}

// app holds the components shared by every subcommand.
type app struct {
	config  *config.Manager
	logger  *logrus.Logger
	store   *review.GuardedStore
	db      *database.DB
	redis   *jobs.RedisBackend
	tracker *jobs.Tracker
	service *service.CaseEvaluationService
}

// loadApp reads configuration and builds the logger without touching storage.
func loadApp() (*app, error) {
	manager, err := config.NewManager(configFile)
	if err != nil {
		return nil, err
	}
	if err := manager.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	logger, err := config.NewLogger(manager.GetConfig().Logging)
	if err != nil {
		return nil, err
	}
	return &app{config: manager, logger: logger}, nil
}

// newApp builds the full component graph: review store, job tracker and service.
func newApp(ctx context.Context) (*app, error) {
	a, err := loadApp()
	if err != nil {
		return nil, err
	}
	cfg := a.config.GetConfig()

	rules, err := config.LoadRules(cfg.Engine.RulesFile)
	if err != nil {
		return nil, err
	}

	if err := a.openStore(ctx, cfg); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.openTracker(ctx, cfg); err != nil {
		a.Close()
		return nil, err
	}

	var store review.Store
	if a.store != nil {
		store = a.store
	}
	a.service = service.NewCaseEvaluationService(a.logger, cfg.Engine, rules, store, a.tracker)

	a.logger.WithFields(logrus.Fields{
		"storage":     cfg.Storage.Driver,
		"jobs":        cfg.Jobs.Backend,
		"rules_file":  cfg.Engine.RulesFile,
		"rule_labels": len(rules),
		"environment": cfg.Environment,
	}).Debug("Application initialized")
	return a, nil
}

func (a *app) openStore(ctx context.Context, cfg *domain.Config) error {
	var (
		store review.Store
		err   error
	)

	switch cfg.Storage.Driver {
	case domain.StorageDriverNone:
		return nil
	case domain.StorageDriverSQLite:
		store, err = review.NewSQLiteStore(cfg.Storage.SQLitePath)
	case domain.StorageDriverPostgres:
		a.db, err = database.NewConnection(ctx, cfg.Database, a.logger)
		if err != nil {
			return err
		}
		store, err = review.NewPostgresStoreFromConfig(cfg.Database)
	default:
		return fmt.Errorf("unsupported storage driver: %s", cfg.Storage.Driver)
	}
	if err != nil {
		return fmt.Errorf("failed to open review store: %w", err)
	}

	a.store = review.NewGuardedStore(store, cfg.Storage.CircuitBreaker, a.logger)
	return nil
}

func (a *app) openTracker(ctx context.Context, cfg *domain.Config) error {
	var backend jobs.Backend

	switch cfg.Jobs.Backend {
	case domain.JobsBackendRedis:
		redisBackend, err := jobs.NewRedisBackend(ctx, cfg.Jobs.RedisURL)
		if err != nil {
			return err
		}
		a.redis = redisBackend
		backend = redisBackend
	default:
		memory, err := jobs.NewMemoryBackend(cfg.Jobs.MaxItems)
		if err != nil {
			return err
		}
		backend = memory
	}

	a.tracker = jobs.NewTracker(backend, a.logger, jobs.WithTTL(cfg.Jobs.TTL))
	return nil
}

// requireStore returns the review store or an error naming the disabled driver.
func (a *app) requireStore() (*review.GuardedStore, error) {
	if a.store == nil {
		return nil, errors.New("review storage is disabled (storage.driver is none)")
	}
	return a.store, nil
}

// Close releases every opened resource.
func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.WithError(err).Warn("Failed to close review store")
		}
	}
	if a.db != nil {
		a.db.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.WithError(err).Warn("Failed to close redis client")
		}
	}
}


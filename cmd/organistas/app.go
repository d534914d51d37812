package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/souzalinux78/gestao-organista/internal/application"
	"github.com/souzalinux78/gestao-organista/internal/config"
	"github.com/souzalinux78/gestao-organista/internal/cycle"
	"github.com/souzalinux78/gestao-organista/internal/lock"
	"github.com/souzalinux78/gestao-organista/internal/persistence/sqlite"
	"github.com/souzalinux78/gestao-organista/internal/persistence/sqlite/migration"
	"github.com/souzalinux78/gestao-organista/internal/recurrence"
	"github.com/souzalinux78/gestao-organista/internal/rotation"
)

// app holds the wired services of one command invocation.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	storage *sqlite.Storage
	redis   *redis.Client

	cycles    *application.CycleService
	rotation  *application.RotationService
	schedules *application.ScheduleService
	dashboard *application.DashboardService
}

// openApp opens and migrates storage, selects the locker and wires the
// application services.
func openApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	drawOrder, err := rotation.ParseDrawOrder(cfg.DrawOrder)
	if err != nil {
		return nil, err
	}

	storage, err := sqlite.Open(ctx, migration.DefaultSQLiteConfig(cfg.SQLiteDSN), cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("falha ao abrir o banco de dados: %w", err)
	}
	applied, err := storage.Migrate(ctx, logger)
	if err != nil {
		_ = storage.Close()
		return nil, err
	}
	if len(applied) > 0 {
		logger.InfoContext(ctx, "migrations applied", "versions", applied)
	}

	a := &app{cfg: cfg, logger: logger, storage: storage}

	var locker lock.Locker = lock.NewMemory()
	if cfg.RedisURL != "" {
		client, err := connectRedis(ctx, cfg.RedisURL)
		if err != nil {
			_ = storage.Close()
			return nil, err
		}
		a.redis = client
		locker = lock.NewRedis(client, cfg.LockTTL)
		logger.InfoContext(ctx, "using redis locks", "ttl", cfg.LockTTL)
	}

	expander := recurrence.NewExpander(cfg.Timezone)
	rotationConfig := application.DefaultRotationConfig()
	rotationConfig.MaxGenerationMonths = cfg.MaxGenerationMonths
	rotationConfig.DrawOrder = drawOrder

	a.dashboard = application.NewDashboardService(storage.Churches, storage.Services, storage.Schedules, expander, cfg.CacheTTL, time.Now, logger)
	a.cycles = application.NewCycleService(storage.Churches, storage.Services, storage.Musicians, storage.Cycles, cycle.NewStore(), logger)
	a.rotation = application.NewRotationService(storage.Churches, storage.Services, storage.Schedules, a.cycles, expander, locker, a.dashboard, rotationConfig, time.Now, logger)
	a.schedules = application.NewScheduleService(storage.Churches, storage.Services, storage.Musicians, storage.Schedules, a.rotation, locker, a.dashboard, nil, logger)
	return a, nil
}

func connectRedis(ctx context.Context, url string) (*redis.Client, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("ORGANISTAS_REDIS_URL inválida: %w", err)
	}
	client := redis.NewClient(options)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("falha ao conectar ao redis: %w", err)
	}
	return client, nil
}

func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("failed to close redis client", "error", err)
		}
	}
	if err := a.storage.Close(); err != nil {
		a.logger.Error("failed to close storage", "error", err)
	}
}

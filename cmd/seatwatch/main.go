// Command seatwatch runs the train seat availability bot.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"github.com/m3rciful/seatwatch/core/bootstrap"
	"github.com/m3rciful/seatwatch/core/buildinfo"
	"github.com/m3rciful/seatwatch/core/cmd"
	"github.com/m3rciful/seatwatch/core/logger"
	"github.com/m3rciful/seatwatch/internal/bot"
	"github.com/m3rciful/seatwatch/internal/config"
	"github.com/m3rciful/seatwatch/internal/provider/rzd"
	"github.com/m3rciful/seatwatch/internal/storage"
	"github.com/m3rciful/seatwatch/internal/storage/memory"
	"github.com/m3rciful/seatwatch/internal/storage/postgres"
	"github.com/m3rciful/seatwatch/internal/storage/sqlite"
)

func main() {
	err := cmd.Run(cmd.Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (cmd.ConfigCarrier, error) {
			return config.Load(path)
		},
		Bootstrap: func(c cmd.ConfigCarrier) (cmd.TelegramApp, error) {
			return build(c.(*config.AppConfig))
		},
	})
	if err != nil {
		log.Fatal(err)
	}
}

func build(cfg *config.AppConfig) (*bot.App, error) {
	res, err := bootstrap.Run(bootstrap.Options{
		Config:   cfg.CoreConfig(),
		Database: cfg.DatabaseConfig(),
	})
	if err != nil {
		return nil, err
	}
	ctx := context.Background()
	logger.Info(ctx, logger.CompApp, "start",
		slog.String("version", buildinfo.Version),
		slog.String("commit", buildinfo.Commit),
		slog.String("driver", cfg.Storage.Driver),
	)

	store, err := openStore(cfg, res)
	if err != nil {
		return nil, err
	}
	provider := rzd.New(rzd.Options{
		SuggestURL:    cfg.Provider.SuggestURL,
		TrainsURL:     cfg.Provider.TrainsURL,
		UserAgent:     cfg.Provider.UserAgent,
		Timeout:       cfg.Provider.Timeout(),
		RatePerSecond: cfg.Provider.RatePerSecond,
		Burst:         cfg.Provider.Burst,
	})
	app, err := bot.New(cfg, store, provider)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return app, nil
}

func openStore(cfg *config.AppConfig, res *bootstrap.Result) (storage.Store, error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		if res.DB == nil {
			return nil, fmt.Errorf("postgres driver selected but no database connection")
		}
		return postgres.New(res.DB), nil
	case config.DriverSQLite:
		st, err := sqlite.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		return st, nil
	case config.DriverMemory:
		return memory.New(), nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

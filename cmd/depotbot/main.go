package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/depotbot/depotbot/db"
	"github.com/depotbot/depotbot/internal/channel"
	"github.com/depotbot/depotbot/internal/channel/telegram"
	"github.com/depotbot/depotbot/internal/config"
	"github.com/depotbot/depotbot/internal/handlers"
	"github.com/depotbot/depotbot/internal/logger"
	"github.com/depotbot/depotbot/internal/router"
	"github.com/depotbot/depotbot/internal/store"
)

func provideConfig() (config.Config, error) {
	cfgPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideStore(lc fx.Lifecycle, log *slog.Logger, cfg config.Config) (*store.Store, error) {
	migrations, err := fs.Sub(db.MigrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("migrations fs: %w", err)
	}
	if err := store.RunMigrate(log, cfg.Database.Path, migrations, "up", nil); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	st, err := store.Open(log, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return st.Close()
		},
	})
	return st, nil
}

func provideAdapter(log *slog.Logger, cfg config.Config) (*telegram.Adapter, error) {
	return telegram.New(log, cfg.Telegram)
}

func provideDispatcher(log *slog.Logger, st *store.Store, adapter *telegram.Adapter, cfg config.Config) *router.Dispatcher {
	bot := handlers.New(log, st, adapter, cfg.Bot)
	return router.NewDispatcher(log, st, adapter, bot.Routes())
}

func provideLoop(log *slog.Logger, adapter *telegram.Adapter, dispatcher *router.Dispatcher) *router.Loop {
	var source channel.Source = adapter
	return router.NewLoop(log, source, dispatcher)
}

func startLoop(lc fx.Lifecycle, sd fx.Shutdowner, loop *router.Loop, log *slog.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				if err := loop.Run(ctx); err != nil && ctx.Err() == nil {
					log.Error("event loop stopped", slog.Any("error", err))
					_ = sd.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}

func main() {
	fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideStore,
			provideAdapter,
			provideDispatcher,
			provideLoop,
		),
		fx.Invoke(
			startLoop,
		),
		fx.WithLogger(func(log *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: log.With(slog.String("component", "fx"))}
		}),
	).Run()
}

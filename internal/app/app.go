package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/NastyaGoryachaya/exchange-rates-bot/internal/config"
	"github.com/NastyaGoryachaya/exchange-rates-bot/internal/infra/api_client"
	"github.com/NastyaGoryachaya/exchange-rates-bot/internal/infra/chart"
	"github.com/NastyaGoryachaya/exchange-rates-bot/internal/infra/db"
	"github.com/NastyaGoryachaya/exchange-rates-bot/internal/metrics"
	"github.com/NastyaGoryachaya/exchange-rates-bot/internal/repository/memory"
	repopg "github.com/NastyaGoryachaya/exchange-rates-bot/internal/repository/postgres"
	reporedis "github.com/NastyaGoryachaya/exchange-rates-bot/internal/repository/redis"
	"github.com/NastyaGoryachaya/exchange-rates-bot/internal/scheduler"
	fetchsvc "github.com/NastyaGoryachaya/exchange-rates-bot/internal/service/fetch"
	historysvc "github.com/NastyaGoryachaya/exchange-rates-bot/internal/service/history"
	ratesvc "github.com/NastyaGoryachaya/exchange-rates-bot/internal/service/rates"
	botpkg "github.com/NastyaGoryachaya/exchange-rates-bot/internal/transport/bot"
	"github.com/NastyaGoryachaya/exchange-rates-bot/internal/transport/httptransport"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
)

// rateStore - то, что нужно от хранилища координатору и обновлению
type rateStore interface {
	ratesvc.RateReader
	fetchsvc.RateWriter
}

type App struct {
	cfg config.Config
	log *slog.Logger

	db    *pgxpool.Pool
	redis *goredis.Client
	e     *echo.Echo
	serv  *http.Server

	store rateStore

	rates   ratesvc.Service
	fetch   fetchsvc.Service
	history historysvc.Service

	warmup *scheduler.Scheduler

	bot *botpkg.Bot
}

func NewApp(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	app := &App{cfg: cfg, log: log}

	if err := app.initStore(ctx); err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	provider := api_client.NewClient(cfg.RatesAPI)
	renderer := chart.NewClient(cfg.Chart)

	app.fetch = fetchsvc.NewService(provider, app.store, log)
	app.rates = ratesvc.NewService(app.store, app.fetch, m, log)
	app.history = historysvc.NewService(provider, renderer, log)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	app.e = e

	rh := httptransport.NewRatesHandler(log, app.rates, cfg.Server.WriteTimeout)
	rh.RegisterRoutes(e)
	httptransport.RegisterMetrics(e, reg)

	app.serv = &http.Server{
		Addr:         cfg.Server.Addr,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		Handler:      e,
	}

	if cfg.Warmup.Enabled {
		app.warmup = scheduler.NewScheduler(app.rates, cfg.Warmup.Interval, log)
	}

	if cfg.Telegram.Enabled {
		// Если бот включён, отсутствие токена - ошибка конфигурации
		token := strings.TrimSpace(cfg.Telegram.Token)
		if token == "" {
			log.Error("telegram enabled but TELEGRAM_BOT_TOKEN is empty")
			app.closeDB()
			return nil, errors.New("telegram token is empty")
		}
		tgCfg := cfg.Telegram
		tgCfg.Token = token

		handlers := botpkg.NewHandlers(app.rates, app.history, m, log, cfg.Telegram.HandlerTimeout)
		botApp, err := botpkg.New(tgCfg, handlers, log)
		if err != nil {
			log.Error("telegram init failed", slog.String("error", err.Error()))
			app.closeDB()
			return nil, err
		}
		app.bot = botApp
	}
	log.Info("app initialized",
		slog.String("storage", cfg.Storage.Driver),
		slog.Bool("telegram_enabled", cfg.Telegram.Enabled),
		slog.Bool("warmup_enabled", cfg.Warmup.Enabled),
		slog.String("http_addr", cfg.Server.Addr),
	)
	return app, nil
}

// initStore - postgres (пул + миграции), redis или память
func (a *App) initStore(ctx context.Context) error {
	switch strings.ToLower(a.cfg.Storage.Driver) {
	case "memory":
		a.store = memory.NewRateStore()
		return nil
	case "redis":
		client := reporedis.NewClient(a.cfg.Redis)
		if err := client.Ping(ctx).Err(); err != nil {
			a.log.Error("redis connect failed", slog.String("error", err.Error()))
			_ = client.Close()
			return err
		}
		a.redis = client
		a.store = reporedis.NewRateStore(client, a.cfg.Redis.Prefix)
		return nil
	case "", "postgres":
		pool, err := db.NewPool(&a.cfg.Postgres)
		if err != nil {
			a.log.Error("postgres connect failed", slog.String("error", err.Error()))
			return err
		}
		a.db = pool
		if a.cfg.Postgres.Migrate {
			if err := db.Migrate(ctx, pool); err != nil {
				a.log.Error("migrations failed", slog.String("error", err.Error()))
				pool.Close()
				return err
			}
		}
		a.store = repopg.NewRateStore(pool)
		return nil
	default:
		return fmt.Errorf("unknown storage driver %q", a.cfg.Storage.Driver)
	}
}

func (a *App) Run(ctx context.Context) error {
	if a.warmup != nil {
		a.log.Info("starting warmup")
		go a.warmup.Start(ctx)
	}

	if a.bot != nil {
		a.log.Info("starting bot")
		a.bot.Start(ctx)
	}

	a.log.Info("starting server", slog.String("addr", a.cfg.Server.Addr))
	go func() {
		if err := a.e.StartServer(a.serv); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server error", slog.String("error", err.Error()))
		}
	}()
	<-ctx.Done()
	return a.Shutdown(context.Background())
}

func (a *App) Shutdown(ctx context.Context) error {
	shCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if a.e != nil {
		if err := a.e.Shutdown(shCtx); err != nil {
			a.log.Error("http shutdown error", slog.String("error", err.Error()))
		}
	}

	if a.bot != nil {
		a.bot.Stop()
	}

	a.closeDB()

	a.log.Info("application stopped")
	return nil
}

func (a *App) closeDB() {
	if a.db != nil {
		a.db.Close()
		a.db = nil
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Error("redis close error", slog.String("error", err.Error()))
		}
		a.redis = nil
	}
}

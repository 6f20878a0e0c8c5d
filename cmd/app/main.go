package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/mauv0809/stockboard/internal/cache"
	"github.com/mauv0809/stockboard/internal/config"
	"github.com/mauv0809/stockboard/internal/dashboard"
	"github.com/mauv0809/stockboard/internal/db"
	"github.com/mauv0809/stockboard/internal/handlers"
	"github.com/mauv0809/stockboard/internal/logger"
	"github.com/mauv0809/stockboard/internal/market"
	"github.com/mauv0809/stockboard/internal/sharadar"
	"github.com/mauv0809/stockboard/internal/views"
	"github.com/mauv0809/stockboard/internal/warmer"
	"github.com/mauv0809/stockboard/internal/yahoo"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

func main() {
	// Load .env file if it exists (local dev)
	envErr := godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)
	if envErr != nil {
		log.Debug().Msg("no .env file found, using environment variables")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Str("path", configPath).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, closeProvider, err := newProvider(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("provider", cfg.Provider.Name).Msg("could not set up provider")
	}
	defer closeProvider()

	opts := []cache.Option{cache.WithLogger(log)}
	if cfg.Cache.SingleFlight {
		opts = append(opts, cache.WithSingleFlight())
	}
	fetchers := cache.NewFetchers(
		market.WithRetry(provider, cfg.Provider.RetryAttempts, cfg.Provider.RetryBackoff, log),
		cache.NewStore(),
		opts...,
	)

	dashboards, err := dashboard.NewSet(cfg.Variants, fetchers, log)
	if err != nil {
		log.Fatal().Err(err).Msg("could not build dashboards")
	}

	if cfg.Warmer.Cron != "" {
		w := warmer.New(fetchers, dashboards.Symbols(), cfg.Warmer.Timeout, log)
		if err := w.Start(cfg.Warmer.Cron); err != nil {
			log.Fatal().Err(err).Msg("could not start cache warmer")
		}
		defer w.Stop()
	}

	e := newServer(cfg, log)
	handlers.New(dashboards, fetchers, log).Register(e)

	go func() {
		log.Info().Str("port", cfg.Server.Port).Str("provider", provider.Name()).Msg("starting server")
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	log.Info().Msg("server stopped")
}

// newProvider builds the configured market data source. The returned func
// releases its resources.
func newProvider(ctx context.Context, cfg *config.Config, log zerolog.Logger) (market.Provider, func(), error) {
	noop := func() {}

	switch cfg.Provider.Name {
	case config.ProviderSharadar:
		client := sharadar.NewClient(sharadar.Config{
			APIKey:    cfg.Sharadar.APIKey,
			BaseURL:   cfg.Sharadar.BaseURL,
			RateLimit: cfg.Sharadar.RateLimit,
			Timeout:   cfg.Provider.Timeout,
			Proxy:     cfg.Provider.Proxy,
		}, log)
		return sharadar.NewProvider(client), noop, nil

	case config.ProviderWarehouse:
		if cfg.Warehouse.Migrate {
			if err := db.RunMigrations(cfg.Warehouse.DatabaseURL); err != nil {
				return nil, noop, err
			}
			log.Info().Msg("migrations completed")
		}
		pool, err := db.Connect(ctx, cfg.Warehouse.DatabaseURL)
		if err != nil {
			return nil, noop, err
		}
		log.Info().Msg("connected to warehouse")
		return db.NewRepository(pool), pool.Close, nil

	default:
		client, err := yahoo.NewClient(yahoo.Config{
			BaseURL:    cfg.Yahoo.BaseURL,
			SummaryURL: cfg.Yahoo.SummaryURL,
			CookieURL:  cfg.Yahoo.CookieURL,
			Timeout:    cfg.Provider.Timeout,
			Proxy:      cfg.Provider.Proxy,
		}, log)
		if err != nil {
			return nil, noop, err
		}
		return client, noop, nil
	}
}

func newServer(cfg *config.Config, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogError:     true,
		LogRequestID: true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	}))

	origins := cfg.Server.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	e.Use(echo.WrapMiddleware(cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodDelete},
		ExposedHeaders: []string{echo.HeaderXRequestID},
	}).Handler))

	// Static files
	e.StaticFS("/assets", echo.MustSubFS(views.Assets, "assets"))
	return e
}

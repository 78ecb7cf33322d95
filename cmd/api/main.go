package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"filmgen/internal/http/handlers"
	httpapi "filmgen/internal/http/httpapi"
	"filmgen/internal/infra"
	"filmgen/internal/infra/credentials"
	"filmgen/internal/metrics"
	"filmgen/internal/pipeline"
	"filmgen/internal/poller"
	"filmgen/internal/providers"
	"filmgen/internal/providers/anthropic"
	"filmgen/internal/providers/bfl"
	"filmgen/internal/providers/gemini"
	"filmgen/internal/providers/openai"
	"filmgen/internal/providers/openart"
	"filmgen/internal/providers/registry"
	"filmgen/internal/providers/runway"
	"filmgen/internal/storage"
	"filmgen/internal/telemetry"
)

var version = "dev"

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	shutdownTracing, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:     cfg.OTelEnabled,
		Endpoint:    cfg.OTelEndpoint,
		ServiceName: cfg.OTelServiceName,
		Version:     version,
	}, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize tracing")
	}

	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	collector := metrics.NewCollector("filmgen")
	sqlRunner := infra.NewSQLRunner(dbpool, &logger)
	sqlRunner.OnQuery = collector.RecordDBQuery

	resolver := credentials.NewResolver(credentials.NewStore(sqlRunner), credentials.Config{EnvKeys: cfg.EnvKeys()}, &logger)

	store, err := storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open storage")
	}

	svc := pipeline.New(pipeline.Options{
		Credentials: resolver,
		Router:      registry.New(&logger, buildAdapters(cfg, &logger)...),
		Poller: poller.New(poller.Options{
			Interval:    cfg.PollInterval,
			MaxAttempts: cfg.PollMaxAttempts,
			Logger:      &logger,
			Metrics:     collector,
		}),
		Persister: storage.NewPersister(storage.PersisterOptions{
			Store:      store,
			HTTPClient: &http.Client{Timeout: cfg.ProviderTimeout},
			Logger:     &logger,
			Metrics:    collector,
		}),
		Logger:  &logger,
		Metrics: collector,
	})

	app := handlers.NewApp(svc, &logger)
	app.ReadyCheck = dbpool.Ping
	router := httpapi.NewRouter(app, httpapi.Deps{
		Logger:          &logger,
		Metrics:         collector,
		AllowedOrigins:  cfg.CORSAllowedOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		Static:          store.Handler(),
	})
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Str("version", version).Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to flush traces")
	}
	logger.Info().Msg("server stopped")
}

func buildAdapters(cfg *infra.Config, logger *infra.Logger) []providers.Adapter {
	opts := func(service string) providers.Options {
		return providers.Options{
			BaseURL: cfg.Provider(service).BaseURL,
			Logger:  logger,
			Timeout: cfg.ProviderTimeout,
		}
	}
	return []providers.Adapter{
		openai.New(opts(infra.ServiceOpenAI)),
		openart.New(opts(infra.ServiceOpenArt)),
		bfl.New(opts(infra.ServiceBFL)),
		runway.New(opts(infra.ServiceRunway)),
		gemini.New(opts(infra.ServiceGemini)),
		anthropic.New(opts(infra.ServiceAnthropic)),
	}
}

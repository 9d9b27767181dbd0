package di

import (
	"context"
	"fmt"
	"time"

	"PulseFeed/internal/domain/repository"
	mid "PulseFeed/internal/middleware"
	internalrepo "PulseFeed/internal/repository"
	"PulseFeed/internal/service/assistant"
	"PulseFeed/internal/service/biometrics"
	"PulseFeed/internal/service/solana"
	"PulseFeed/internal/usecase"
	"PulseFeed/pkg/cache"
	pkgch "PulseFeed/pkg/clickhouse"
	"PulseFeed/pkg/config"
	xhttp "PulseFeed/pkg/http"
	pkgkafka "PulseFeed/pkg/kafka"
	applogger "PulseFeed/pkg/logger"
	"PulseFeed/pkg/metrics"
	"PulseFeed/pkg/server"

	"PulseFeed/internal/handler/api"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	format := "json"
	if cfg.Environment == "development" {
		format = "console"
	}
	return applogger.New(&applogger.Config{Level: "info", Format: format, Output: "stdout"})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client and ensures the sample
// schema exists.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS pulsefeed",
		"CREATE TABLE IF NOT EXISTS " + cfg.Biometrics.SampleTable + " (at DateTime, bpm Float64) ENGINE=MergeTree ORDER BY at",
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideCache creates the window-average cache: layered memory+redis when
// redis is enabled, plain memory otherwise.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	var memOpts []cache.MemoryOption
	if cfg.Cache.MemoryMaxSize > 0 {
		memOpts = append(memOpts, cache.WithMemoryMaxSize(cfg.Cache.MemoryMaxSize))
	}

	if !cfg.Cache.Redis.Enabled {
		return cache.NewMemoryCache(memOpts...), nil
	}

	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Cache.Redis.Host),
		cache.WithRedisPort(cfg.Cache.Redis.Port),
		cache.WithRedisPassword(cfg.Cache.Redis.Password),
		cache.WithRedisDB(cfg.Cache.Redis.DB),
		cache.WithRedisPrefix("pulsefeed"),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}

	var layeredOpts []cache.LayeredOption
	if cfg.Cache.MemoryMaxSize > 0 {
		layeredOpts = append(layeredOpts, cache.WithLayeredMemorySize(cfg.Cache.MemoryMaxSize))
	}
	return cache.NewLayeredCache(rc, layeredOpts...), nil
}

// ProvideAuthorizer seeds the biometric read grant from config.
func ProvideAuthorizer(cfg *config.Config) repository.Authorization {
	return biometrics.NewAuthorizer(cfg.Biometrics.Granted)
}

// ProvideSampleStore creates the ClickHouse-backed biometric sample store.
func ProvideSampleStore(chClient *pkgch.Client, cfg *config.Config, l *applogger.Logger) repository.SampleStore {
	store := internalrepo.NewCHSampleStore(chClient, cfg.Biometrics.SampleTable)
	store.SetLogger(l)
	return store
}

// ProvideResolver creates the biometric window resolver.
func ProvideResolver(
	store repository.SampleStore,
	auth repository.Authorization,
	m repository.Metrics,
	c cache.Service,
	cfg *config.Config,
	l *applogger.Logger,
) repository.BiometricResolver {
	r := biometrics.NewResolver(store, auth, m, c, cfg.Biometrics.Window, cfg.Biometrics.CacheTTL)
	r.SetLogger(l)
	return r
}

// ProvideSignatureSource creates the Solana RPC signature client.
func ProvideSignatureSource(cfg *config.Config) repository.SignatureSource {
	return solana.NewClient(cfg.Solana.RPCURL, cfg.Solana.Timeout)
}

// ProvidePublisher creates the Kafka record exporter, nil when disabled.
func ProvidePublisher(cfg *config.Config) (repository.Publisher, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithWriteTimeout(cfg.Kafka.WriteTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic), nil
}

// ProvideFeed creates the correlation pipeline.
func ProvideFeed(
	source repository.SignatureSource,
	bio repository.BiometricResolver,
	pub repository.Publisher,
	m repository.Metrics,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.Feed {
	f := usecase.NewFeed(source, bio, pub, m, cfg.Solana.PageLimit)
	f.SetLogger(l)
	return f
}

// ProvideWatcher creates the account activity watcher, nil when no websocket
// endpoint or watch address is configured.
func ProvideWatcher(feed *usecase.Feed, m repository.Metrics, cfg *config.Config, l *applogger.Logger) *usecase.Watcher {
	if cfg.Solana.WebSocketURL == "" || cfg.Solana.WatchAddress == "" {
		return nil
	}
	stream := solana.NewStream(
		cfg.Solana.WebSocketURL,
		cfg.Solana.WatchAddress,
		cfg.Solana.Commitment,
		cfg.Solana.ReconnectDelay,
		cfg.Solana.PingInterval,
	)
	debounce := mid.NewDebouncer(cfg.Biometrics.NotifyDebounce)
	return usecase.NewWatcher(stream, feed, m, debounce, l)
}

// ProvideAssistant creates the chat completion client.
func ProvideAssistant(cfg *config.Config) *assistant.Client {
	return assistant.NewClient(
		cfg.Assistant.BaseURL,
		cfg.Assistant.APIKey,
		cfg.Assistant.Model,
		cfg.Assistant.MaxTokens,
		cfg.Assistant.Timeout,
	)
}

// ProvideHTTPHandler creates the Echo route handler.
func ProvideHTTPHandler(
	l *applogger.Logger,
	feed *usecase.Feed,
	auth repository.Authorization,
	bio repository.BiometricResolver,
	chat *assistant.Client,
) xhttp.Handler {
	return api.NewFeedHandler(l, feed, auth, bio, chat)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	watcher *usecase.Watcher,
	chClient *pkgch.Client,
	pub repository.Publisher,
	handler xhttp.Handler,
	l *applogger.Logger,
) *server.App {
	return server.New(cfg, watcher, chClient, pub, handler, l)
}

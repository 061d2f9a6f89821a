package di

import (
	"context"
	"fmt"
	"time"

	drepo "MarketOverlay/internal/domain/repository"
	"MarketOverlay/internal/handler/api"
	"MarketOverlay/internal/handler/ws"
	mid "MarketOverlay/internal/middleware"
	internalrepo "MarketOverlay/internal/repository"
	"MarketOverlay/internal/service/backend"
	"MarketOverlay/internal/usecase"
	"MarketOverlay/pkg/cache"
	pkgch "MarketOverlay/pkg/clickhouse"
	"MarketOverlay/pkg/config"
	xhttp "MarketOverlay/pkg/http"
	pkgkafka "MarketOverlay/pkg/kafka"
	applogger "MarketOverlay/pkg/logger"
	"MarketOverlay/pkg/metrics"
	"MarketOverlay/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder on the default registry.
func ProvideMetrics(cfg *config.Config) drepo.Metrics {
	if !cfg.Metrics.Enabled {
		return metrics.Nop{}
	}
	return metrics.New(nil)
}

func ProvideBackendClient(cfg *config.Config) *backend.Client {
	return backend.New(cfg.Backend.BaseURL, cfg.Backend.Timeout)
}

func ProvideMarketData(c *backend.Client) drepo.MarketData { return c }

func ProvideForwardTests(c *backend.Client) drepo.ForwardTests { return c }

// ProvideKVStore opens the local state store selected by storage.type.
func ProvideKVStore(cfg *config.Config) (drepo.KVStore, error) {
	switch cfg.Storage.Type {
	case config.StorageSQLite:
		kv, err := internalrepo.NewSQLiteKV(cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("sqlite store: %w", err)
		}
		return kv, nil
	case config.StorageRedis, config.StorageLayered:
		rc, err := cache.NewRedisCache(
			cache.WithRedisAddr(cfg.Redis.Host, cfg.Redis.Port),
			cache.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
			cache.WithRedisPool(cfg.Redis.PoolSize, cfg.Redis.MinIdleConns, cfg.Redis.PoolTimeout),
			cache.WithRedisPrefix(cfg.Redis.Prefix),
		)
		if err != nil {
			return nil, fmt.Errorf("redis store: %w", err)
		}
		if cfg.Storage.Type == config.StorageLayered {
			return internalrepo.NewCacheKV(cache.NewLayeredCache(rc, cache.WithLayeredMemory(memoryOptions(cfg)...))), nil
		}
		return internalrepo.NewCacheKV(rc), nil
	default:
		return internalrepo.NewCacheKV(cache.NewMemoryCache(memoryOptions(cfg)...)), nil
	}
}

func memoryOptions(cfg *config.Config) []cache.MemoryOption {
	return []cache.MemoryOption{
		cache.WithMemoryMaxSize(cfg.Storage.MemorySize),
		cache.WithMemoryCleanup(cfg.Storage.CleanupInterval),
	}
}

// ProvideClickHouseClient connects and prepares the marker journal. It
// returns nil when ClickHouse is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, false),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, internalrepo.JournalSchema(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideFrameSinks builds the configured export sinks. None is valid.
func ProvideFrameSinks(cfg *config.Config, ch *pkgch.Client) ([]mid.NamedSink, error) {
	var sinks []mid.NamedSink
	if cfg.Kafka.Enabled {
		producer, err := pkgkafka.NewProducer(
			pkgkafka.WithBrokers(cfg.Kafka.Brokers),
			pkgkafka.WithCompression(cfg.Kafka.Compression),
			pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
			pkgkafka.WithBatching(cfg.Kafka.BatchSize, cfg.Kafka.Linger),
			pkgkafka.WithTimeouts(cfg.Kafka.WriteTimeout, cfg.Kafka.WriteTimeout),
			pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
			pkgkafka.WithAsync(cfg.Kafka.Async),
			pkgkafka.WithHashByKey(true),
		)
		if err != nil {
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		sinks = append(sinks, mid.NamedSink{Name: "kafka", Sink: internalrepo.NewKafkaFrameSink(producer, cfg.Kafka.Topic)})
	}
	if ch != nil {
		sinks = append(sinks, mid.NamedSink{Name: "clickhouse", Sink: internalrepo.NewMarkerJournal(ch)})
	}
	return sinks, nil
}

func ProvideFramePipeline(cfg *config.Config, sinks []mid.NamedSink, m drepo.Metrics, log *applogger.Logger) *mid.FramePipeline {
	return mid.NewFramePipeline(sinks, m, log,
		mid.WithMaxRPS(cfg.Export.MaxRPS),
		mid.WithBufferSize(cfg.Export.BufferSize),
	)
}

func ProvideFetchLimits(cfg *config.Config) usecase.FetchLimits {
	return usecase.FetchLimits{
		OHLCV:  cfg.Chart.OHLCVLimit,
		Trend:  cfg.Chart.TrendLimit,
		Volume: cfg.Chart.VolumeLimit,
		Signal: cfg.Chart.SignalLimit,
	}
}

func ProvideChartConfig(cfg *config.Config, limits usecase.FetchLimits) usecase.ChartConfig {
	return usecase.ChartConfig{
		Poller: usecase.PollerConfig{
			Interval: cfg.Chart.PollInterval,
			Timeout:  cfg.Backend.Timeout,
			Limits:   limits,
		},
		DefaultWidth: cfg.Chart.DefaultWidth,
	}
}

func ProvideForwardTestService(cfg *config.Config, ft drepo.ForwardTests, kv drepo.KVStore, m drepo.Metrics, log *applogger.Logger) *usecase.ForwardTestService {
	return usecase.NewForwardTestService(ft, kv, m, log, cfg.ForwardTest.StatusInterval)
}

// ProvideHTTPHandler registers REST and WebSocket routes together.
func ProvideHTTPHandler(chart *api.ChartEchoHandler, charts *ws.ChartWSHandler) xhttp.Handler {
	return xhttp.Handlers{chart, charts}
}

func ProvideHTTPServer(cfg *config.Config, h xhttp.Handler, log *applogger.Logger) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(h, log,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithAllowedOrigins(cfg.Server.AllowedOrigins),
		xhttp.WithMetricsPath(metricsPath),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	httpServer *xhttp.Server,
	hub *usecase.ChartHub,
	forward *usecase.ForwardTestService,
	pipe *mid.FramePipeline,
	kv drepo.KVStore,
	ch *pkgch.Client,
) *server.App {
	return server.New(cfg, log, httpServer, hub, forward, pipe, kv, ch)
}

package di

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ariellewolter/research-notebook-ver4-sub004/application/ports"
	"github.com/ariellewolter/research-notebook-ver4-sub004/application/services"
	domainservices "github.com/ariellewolter/research-notebook-ver4-sub004/domain/services"
	"github.com/ariellewolter/research-notebook-ver4-sub004/infrastructure/cache"
	"github.com/ariellewolter/research-notebook-ver4-sub004/infrastructure/config"
	"github.com/ariellewolter/research-notebook-ver4-sub004/infrastructure/messaging"
	"github.com/ariellewolter/research-notebook-ver4-sub004/infrastructure/messaging/eventbridge"
	"github.com/ariellewolter/research-notebook-ver4-sub004/infrastructure/messaging/rabbitmq"
	"github.com/ariellewolter/research-notebook-ver4-sub004/infrastructure/persistence/decorators"
	"github.com/ariellewolter/research-notebook-ver4-sub004/infrastructure/persistence/dynamodb"
	"github.com/ariellewolter/research-notebook-ver4-sub004/infrastructure/persistence/memory"
	"github.com/ariellewolter/research-notebook-ver4-sub004/infrastructure/persistence/postgres"
	"github.com/ariellewolter/research-notebook-ver4-sub004/infrastructure/summaries"
	"github.com/ariellewolter/research-notebook-ver4-sub004/interfaces/http/rest"
	"github.com/ariellewolter/research-notebook-ver4-sub004/pkg/auth"
	"github.com/ariellewolter/research-notebook-ver4-sub004/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ProvideLogger creates a new logger instance honouring LOG_LEVEL
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.IsProduction() {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}

	if cfg.LogLevel != "" {
		level, err := zap.ParseAtomicLevel(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
		zcfg.Level = level
	}

	logger, err := zcfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("service", cfg.ServiceName)), nil
}

// ProvideAWSConfig creates AWS configuration. Loading does not contact AWS, so
// it is safe for backends that never use it.
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client, pointed at DYNAMODB_ENDPOINT
// when set
func ProvideDynamoDBClient(awsCfg aws.Config, cfg *config.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg, func(o *awsdynamodb.Options) {
		if cfg.DynamoDBEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DynamoDBEndpoint)
		}
	})
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvidePostgresPool opens a pool when the store or the summary source needs
// one and returns nil otherwise
func ProvidePostgresPool(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*pgxpool.Pool, func(), error) {
	if cfg.StoreBackend != config.BackendPostgres && cfg.SummarySource != config.SummaryPostgres {
		return nil, func() {}, nil
	}

	if cfg.StoreBackend == config.BackendPostgres && cfg.AutoMigrate {
		if err := postgres.MigrateUp(cfg.DatabaseURL, logger); err != nil {
			return nil, nil, err
		}
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	logger.Info("Postgres pool created")

	return pool, pool.Close, nil
}

// ProvideMetrics creates the Prometheus collector
func ProvideMetrics(cfg *config.Config) *observability.Collector {
	return observability.NewCollector("eln_links")
}

// ProvideCloudWatchClient creates a CloudWatch client
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideMetricsExporter creates the CloudWatch push exporter when enabled.
// It returns nil otherwise.
func ProvideMetricsExporter(
	cfg *config.Config,
	client *awscloudwatch.Client,
	metrics *observability.Collector,
	logger *zap.Logger,
) *observability.CloudWatchExporter {
	if !cfg.CloudWatchMetrics {
		return nil
	}
	return observability.NewCloudWatchExporter(client, cfg.CloudWatchNamespace, metrics.GetRegistry(), logger.Named("cloudwatch"))
}

// ProvideTracer returns an OTLP-backed tracer when tracing is enabled and the
// global no-op tracer otherwise
func ProvideTracer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (trace.Tracer, func(), error) {
	if !cfg.EnableTracing {
		return observability.GlobalTracer(cfg.ServiceName), func() {}, nil
	}

	tp, err := observability.InitTracing(ctx, cfg.ServiceName, cfg.Environment, cfg.OTLPEndpoint)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Failed to flush traces", zap.Error(err))
		}
	}
	return tp.Tracer(), cleanup, nil
}

// ProvideLinkStore selects the configured backend and wraps it, innermost
// first, in the circuit breaker, logging, metrics and tracing decorators
func ProvideLinkStore(
	ctx context.Context,
	cfg *config.Config,
	pool *pgxpool.Pool,
	dynamoClient *awsdynamodb.Client,
	metrics *observability.Collector,
	tracer trace.Tracer,
	logger *zap.Logger,
) (ports.LinkStore, error) {
	var store ports.LinkStore

	switch cfg.StoreBackend {
	case config.BackendMemory:
		store = memory.NewLinkStore()
	case config.BackendPostgres:
		store = postgres.NewLinkStore(pool)
	case config.BackendDynamoDB:
		indexes := dynamodb.Indexes{
			BySource: cfg.SourceIndexName,
			ByTarget: cfg.TargetIndexName,
			All:      cfg.AllLinksIndexName,
		}
		if cfg.AutoMigrate {
			if err := dynamodb.EnsureTable(ctx, dynamoClient, cfg.DynamoDBTable, indexes, logger); err != nil {
				return nil, err
			}
		}
		store = dynamodb.NewLinkStore(dynamoClient, cfg.DynamoDBTable, indexes, logger)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	if cfg.CircuitBreakerEnabled {
		cbCfg := decorators.DefaultCircuitBreakerConfig("linkstore-" + cfg.StoreBackend)
		cbCfg.MaxFailures = uint32(cfg.CircuitBreakerMaxFailures)
		cbCfg.Timeout = time.Duration(cfg.CircuitBreakerTimeout) * time.Second
		store = decorators.NewCircuitBreakerLinkStore(store, cbCfg, logger)
	}

	slow := time.Duration(cfg.SlowOperationMillis) * time.Millisecond
	store = decorators.NewLoggingLinkStore(store, logger, slow)

	if cfg.EnableMetrics {
		store = decorators.NewMetricsLinkStore(store, metrics, cfg.StoreBackend)
	}

	store = decorators.NewTracingLinkStore(store, tracer, cfg.StoreBackend)

	logger.Info("Link store ready", zap.String("backend", cfg.StoreBackend))
	return store, nil
}

// ProvideEventPublisher creates the configured publisher
func ProvideEventPublisher(cfg *config.Config, ebClient *awseventbridge.Client, logger *zap.Logger) (ports.EventPublisher, func(), error) {
	switch cfg.EventPublisher {
	case config.PublisherNone:
		return messaging.NoopPublisher{}, func() {}, nil
	case config.PublisherLog:
		return messaging.NewLogPublisher(logger), func() {}, nil
	case config.PublisherEventBridge:
		return eventbridge.NewPublisher(ebClient, cfg.EventBusName, logger), func() {}, nil
	case config.PublisherRabbitMQ:
		conn, ch, err := rabbitmq.Dial(cfg.RabbitMQURL)
		if err != nil {
			return nil, nil, err
		}
		publisher, err := rabbitmq.NewPublisher(ch, cfg.RabbitMQExchange, logger)
		if err != nil {
			_ = conn.Close()
			return nil, nil, err
		}
		cleanup := func() {
			_ = publisher.Close()
			_ = conn.Close()
		}
		return publisher, cleanup, nil
	default:
		return nil, nil, fmt.Errorf("unknown event publisher %q", cfg.EventPublisher)
	}
}

// ProvideSummaryCache creates the cache in front of summary lookups
func ProvideSummaryCache(logger *zap.Logger) (*cache.MemoryCache, func()) {
	c := cache.NewMemoryCache(10000, time.Minute, logger.Named("summary-cache"))
	return c, c.Close
}

// ProvideSummaryResolver creates the configured resolver behind the cache
func ProvideSummaryResolver(
	cfg *config.Config,
	pool *pgxpool.Pool,
	summaryCache *cache.MemoryCache,
	metrics *observability.Collector,
	logger *zap.Logger,
) (ports.SummaryResolver, error) {
	var resolver ports.SummaryResolver

	switch cfg.SummarySource {
	case config.SummaryNone:
		return summaries.NoopResolver{}, nil
	case config.SummaryStatic:
		resolver = summaries.NewStaticResolver(cfg.Summaries.Static)
	case config.SummaryPostgres:
		pg, err := summaries.NewPostgresResolver(pool, cfg.Summaries.Tables, logger)
		if err != nil {
			return nil, err
		}
		resolver = pg
	default:
		return nil, fmt.Errorf("unknown summary source %q", cfg.SummarySource)
	}

	if cfg.SummaryCacheTTL <= 0 {
		return resolver, nil
	}
	return summaries.NewCachedResolver(resolver, summaryCache, cfg.SummaryCacheTTL, metrics, logger), nil
}

// ProvideLiveLimits holds the runtime limits the watcher swaps
func ProvideLiveLimits(cfg *config.Config) *config.LiveLimits {
	return config.NewLiveLimits(cfg.Limits)
}

// ProvideConfigWatcher starts hot reload of the runtime file when one is
// configured. It returns nil otherwise.
func ProvideConfigWatcher(cfg *config.Config, limits *config.LiveLimits, logger *zap.Logger) (*config.ConfigWatcher, func(), error) {
	if cfg.ConfigFile == "" {
		return nil, func() {}, nil
	}
	watcher, err := config.NewConfigWatcher(cfg.ConfigFile, limits, logger)
	if err != nil {
		return nil, nil, err
	}
	watcher.Start()
	return watcher, watcher.Stop, nil
}

// ProvideLinkService creates the link service
func ProvideLinkService(
	store ports.LinkStore,
	resolver ports.SummaryResolver,
	publisher ports.EventPublisher,
	limits *config.LiveLimits,
	metrics *observability.Collector,
	logger *zap.Logger,
) *services.LinkService {
	builder := domainservices.NewGraphBuilder(domainservices.NewEntityTypeRegistry())
	return services.NewLinkService(store, resolver, publisher, builder, limits, metrics, logger)
}

// ProvideJWTValidator creates the token validator when auth is enabled
func ProvideJWTValidator(cfg *config.Config) (*auth.JWTValidator, error) {
	if !cfg.AuthEnabled {
		return nil, nil
	}
	return auth.NewJWTValidator(auth.JWTConfig{
		SigningMethod: cfg.JWTAlgorithm,
		PublicKey:     cfg.JWTPublicKey,
		SecretKey:     cfg.JWTSecret,
		Issuer:        cfg.JWTIssuer,
		Audience:      cfg.JWTAudience,
	})
}

// ProvideRouter builds the HTTP handler
func ProvideRouter(
	cfg *config.Config,
	service *services.LinkService,
	validator *auth.JWTValidator,
	metrics *observability.Collector,
	logger *zap.Logger,
) http.Handler {
	return rest.NewRouter(service, rest.RouterConfig{
		EnableCORS:     cfg.EnableCORS,
		AllowedOrigins: cfg.AllowedOrigins,
		EnableMetrics:  cfg.EnableMetrics,
		Debug:          cfg.IsDevelopment(),
		Validator:      validator,
		Metrics:        metrics,
	}, logger)
}

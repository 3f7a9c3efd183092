package di

import (
	"context"
	"fmt"
	"time"

	"fieldui/application/binding"
	"fieldui/application/dispatch"
	"fieldui/application/inputs"
	"fieldui/application/loading"
	"fieldui/application/ports"
	"fieldui/application/render"
	domaincfg "fieldui/domain/config"
	"fieldui/domain/core/validators"
	"fieldui/infrastructure/config"
	"fieldui/infrastructure/connectivity"
	"fieldui/infrastructure/messaging"
	"fieldui/infrastructure/messaging/eventbridge"
	dynamostore "fieldui/infrastructure/persistence/dynamodb"
	filestore "fieldui/infrastructure/persistence/file"
	memorystore "fieldui/infrastructure/persistence/memory"
	sqlitestore "fieldui/infrastructure/persistence/sqlite"
	"fieldui/infrastructure/sync"
	"fieldui/pkg/auth"
	"fieldui/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var logger *zap.Logger
	var err error

	if cfg.Environment == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}

	if err != nil {
		return nil, err
	}

	return logger, nil
}

// ProvideDomainConfig derives the interpretation limits from environment
func ProvideDomainConfig(cfg *config.Config) *domaincfg.DomainConfig {
	return domaincfg.LoadDomainConfig(cfg.Environment)
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideCloudWatchClient creates a CloudWatch client
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideScreenSource selects the screen source per configuration
func ProvideScreenSource(cfg *config.Config, client *awsdynamodb.Client) (ports.ScreenSource, error) {
	switch cfg.ScreenSource {
	case "dynamodb":
		return dynamostore.NewScreenSource(client, cfg.DynamoDBTable), nil
	case "file":
		return filestore.NewScreenSource(cfg.ScreenDir)
	default:
		return nil, fmt.Errorf("unknown screen source %q", cfg.ScreenSource)
	}
}

// ProvideActionStore selects the pending action store per configuration.
// The cleanup function closes the SQLite handle on shutdown.
func ProvideActionStore(cfg *config.Config, client *awsdynamodb.Client) (ports.PendingActionStore, func(), error) {
	switch cfg.QueueStore {
	case "dynamodb":
		return dynamostore.NewActionStore(client, cfg.DynamoDBTable, cfg.IndexName), func() {}, nil
	case "sqlite":
		store, err := sqlitestore.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	case "memory":
		return memorystore.NewActionStore(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown queue store %q", cfg.QueueStore)
	}
}

// ProvideEntityProvider creates the entity snapshot provider
func ProvideEntityProvider(cfg *config.Config, logger *zap.Logger) ports.EntityProvider {
	return filestore.NewEntityProvider(cfg.EntityDir, logger)
}

// ProvideEventPublisher selects the event publisher. Production goes to
// EventBridge, everything else logs events locally.
func ProvideEventPublisher(cfg *config.Config, client *awseventbridge.Client, logger *zap.Logger) ports.EventPublisher {
	if cfg.IsProduction() {
		return eventbridge.NewPublisher(client, cfg.EventBusName, logger)
	}
	return messaging.NewLogPublisher(logger)
}

// ProvideMetrics creates the metrics instance. CloudWatch publishing is
// opt-in; without it counters stay in memory.
func ProvideMetrics(client *awscloudwatch.Client, cfg *config.Config, logger *zap.Logger) *observability.Metrics {
	namespace := fmt.Sprintf("FieldUI/%s", cfg.Environment)
	if !cfg.EnableMetrics {
		return observability.NewMetrics(nil, namespace, logger)
	}
	return observability.NewMetrics(client, namespace, logger)
}

// ProvideTracer creates the tracer
func ProvideTracer() *observability.Tracer {
	return observability.NewTracer("fieldui")
}

// ProvideScreenValidator creates the screen structure validator
func ProvideScreenValidator(cfg *domaincfg.DomainConfig) *validators.ScreenValidator {
	return validators.NewScreenValidator(cfg)
}

// ProvideActionValidator creates the dispatch payload validator
func ProvideActionValidator(cfg *domaincfg.DomainConfig) *validators.ActionValidator {
	return validators.NewActionValidator(cfg)
}

// ProvideCache creates the screen definition cache
func ProvideCache() ports.Cache {
	return NewInMemoryCache()
}

// ProvideBindingResolver creates the expression resolver, with misses
// feeding the binding miss counter
func ProvideBindingResolver(metrics *observability.Metrics, logger *zap.Logger) *binding.Resolver {
	resolver := binding.NewResolver(logger)
	resolver.OnMiss(func(path string) {
		metrics.IncrementCounter(context.Background(), observability.MetricBindingMisses)
	})
	return resolver
}

// ProvideInputStore creates the input value store
func ProvideInputStore(cfg *domaincfg.DomainConfig) *inputs.Store {
	return inputs.NewStore(cfg)
}

// ProvideMaterializer creates the component tree materializer
func ProvideMaterializer(resolver *binding.Resolver, cfg *domaincfg.DomainConfig, logger *zap.Logger) *render.Materializer {
	return render.NewMaterializer(resolver, cfg, logger)
}

// ProvideLoader creates the screen loader
func ProvideLoader(
	source ports.ScreenSource,
	cache ports.Cache,
	validator *validators.ScreenValidator,
	publisher ports.EventPublisher,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *loading.Loader {
	return loading.NewLoader(source, cache, validator, publisher, metrics, logger)
}

// ProvideNavigator creates the screen navigator
func ProvideNavigator(
	loader *loading.Loader,
	provider ports.EntityProvider,
	store *inputs.Store,
	materializer *render.Materializer,
	cfg *domaincfg.DomainConfig,
	logger *zap.Logger,
) *loading.Navigator {
	return loading.NewNavigator(loader, provider, store, materializer, cfg, logger)
}

// ProvideRegistry creates the action handler registry. With a sync
// endpoint configured every action posts there; without one the
// loopback handler drains the queue locally.
func ProvideRegistry(cfg *config.Config, domainCfg *domaincfg.DomainConfig, logger *zap.Logger) *dispatch.Registry {
	if cfg.SyncEndpoint != "" {
		handler := sync.NewActionHandler(cfg.SyncEndpoint, domainCfg.SyncRequestTimeout, nil, logger)
		return dispatch.NewRegistry(handler)
	}
	return dispatch.NewRegistry(sync.NewLoopbackHandler(logger))
}

// ProvideConnectivityMonitor creates the connectivity monitor, assumed
// online until a probe or the shell says otherwise
func ProvideConnectivityMonitor(logger *zap.Logger) *connectivity.Monitor {
	return connectivity.NewMonitor(true, logger)
}

// ProvideConnectivityPort exposes the monitor through its port
func ProvideConnectivityPort(monitor *connectivity.Monitor) ports.ConnectivityMonitor {
	return monitor
}

// ProvideReplayer creates the queue replayer
func ProvideReplayer(
	store ports.PendingActionStore,
	registry *dispatch.Registry,
	monitor ports.ConnectivityMonitor,
	publisher ports.EventPublisher,
	metrics *observability.Metrics,
	cfg *domaincfg.DomainConfig,
	logger *zap.Logger,
) *dispatch.Replayer {
	return dispatch.NewReplayer(store, registry, monitor, publisher, metrics, cfg, logger)
}

// ProvideDispatcher creates the action dispatcher wired to wake the
// replayer on every enqueue
func ProvideDispatcher(
	store ports.PendingActionStore,
	registry *dispatch.Registry,
	resolver *binding.Resolver,
	validator *validators.ActionValidator,
	publisher ports.EventPublisher,
	metrics *observability.Metrics,
	monitor ports.ConnectivityMonitor,
	replayer *dispatch.Replayer,
	logger *zap.Logger,
) *dispatch.Dispatcher {
	dispatcher := dispatch.NewDispatcher(store, registry, resolver, validator, publisher, metrics, monitor, logger)
	dispatcher.BindReplayer(replayer.Kick())
	return dispatcher
}

// ProvideJWTValidator creates the token validator; nil in development
// without a secret, which disables auth middleware
func ProvideJWTValidator(cfg *config.Config) (*auth.JWTValidator, error) {
	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			return nil, fmt.Errorf("JWT_SECRET is required in production")
		}
		return nil, nil
	}
	return auth.NewJWTValidator(auth.JWTConfig{
		SigningMethod: "HS256",
		SecretKey:     cfg.JWTSecret,
		Issuer:        cfg.JWTIssuer,
	})
}

// ProvideRateLimiter creates the per-device request limiter
func ProvideRateLimiter() *auth.DeviceRateLimiter {
	return auth.NewDeviceRateLimiter(300, time.Minute)
}

// ProvideDistributedRateLimiter creates the DynamoDB-backed limiter
// used by the Lambda entrypoint where instance memory is per-invoke
func ProvideDistributedRateLimiter(client *awsdynamodb.Client, cfg *config.Config) *auth.DistributedRateLimiter {
	return auth.NewDistributedRateLimiter(
		client,
		cfg.DynamoDBTable,
		300,
		time.Minute,
		"API",
	)
}

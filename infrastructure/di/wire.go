//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"fieldui/infrastructure/config"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideDomainConfig,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideCloudWatchClient,
	ProvideScreenSource,
	ProvideActionStore,
	ProvideEntityProvider,
	ProvideEventPublisher,
	ProvideMetrics,
	ProvideTracer,
	ProvideScreenValidator,
	ProvideActionValidator,
	ProvideCache,
	ProvideBindingResolver,
	ProvideInputStore,
	ProvideMaterializer,
	ProvideLoader,
	ProvideNavigator,
	ProvideRegistry,
	ProvideConnectivityMonitor,
	ProvideConnectivityPort,
	ProvideReplayer,
	ProvideDispatcher,
	ProvideJWTValidator,
	ProvideRateLimiter,
	ProvideDistributedRateLimiter,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil // Wire will replace this
}

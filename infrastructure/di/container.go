package di

import (
	"fieldui/application/binding"
	"fieldui/application/dispatch"
	"fieldui/application/inputs"
	"fieldui/application/loading"
	"fieldui/application/ports"
	domaincfg "fieldui/domain/config"
	"fieldui/infrastructure/config"
	"fieldui/infrastructure/connectivity"
	"fieldui/pkg/auth"
	"fieldui/pkg/observability"

	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config       *config.Config
	DomainConfig *domaincfg.DomainConfig
	Logger       *zap.Logger

	ScreenSource   ports.ScreenSource
	ActionStore    ports.PendingActionStore
	EntityProvider ports.EntityProvider
	EventPublisher ports.EventPublisher
	Cache          ports.Cache

	Resolver     *binding.Resolver
	InputStore   *inputs.Store
	Loader       *loading.Loader
	Navigator    *loading.Navigator
	Registry     *dispatch.Registry
	Dispatcher   *dispatch.Dispatcher
	Replayer     *dispatch.Replayer
	Connectivity *connectivity.Monitor

	Metrics            *observability.Metrics
	Tracer             *observability.Tracer
	JWTValidator       *auth.JWTValidator
	RateLimiter        *auth.DeviceRateLimiter
	DistributedLimiter *auth.DistributedRateLimiter
}

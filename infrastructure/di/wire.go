//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/ariellewolter/research-notebook-ver4-sub004/infrastructure/config"

	"github.com/google/wire"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvidePostgresPool,
	ProvideMetrics,
	ProvideCloudWatchClient,
	ProvideMetricsExporter,
	ProvideTracer,
	ProvideLinkStore,
	ProvideEventPublisher,
	ProvideSummaryCache,
	ProvideSummaryResolver,
	ProvideLiveLimits,
	ProvideConfigWatcher,
	ProvideLinkService,
	ProvideJWTValidator,
	ProvideRouter,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil // Wire will replace this
}

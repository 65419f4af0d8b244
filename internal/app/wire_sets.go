//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"
)

var CoreInfraSet = wire.NewSet(
	NewLogger,
	NewLogBroadcaster,
	NewMetricsRegistry,
	NewMetrics,
	NewHealthTracker,
)

var PipelineSet = wire.NewSet(
	NewEdgercStore,
	NewCredentialResolver,
	NewCacheStore,
	NewSessionFactory,
	NewToolRegistry,
	NewSchemaValidator,
	NewExecutor,
	NewBridge,
)

var AppSet = wire.NewSet(
	CoreInfraSet,
	PipelineSet,
	newRuntime,
)

//go:build wireinject
// +build wireinject

package di

import (
	"MarketOverlay/internal/handler/api"
	"MarketOverlay/internal/handler/ws"
	"MarketOverlay/internal/usecase"
	"MarketOverlay/pkg/config"
	"MarketOverlay/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure
		ProvideBackendClient,
		ProvideMarketData,
		ProvideForwardTests,
		ProvideKVStore,
		ProvideClickHouseClient,
		ProvideFrameSinks,
		ProvideFramePipeline,

		// Use cases
		ProvideFetchLimits,
		ProvideChartConfig,
		usecase.NewSettingsStore,
		ProvideForwardTestService,
		usecase.NewChartHub,
		usecase.NewOverlayService,
		usecase.NewTradePlanService,

		// HTTP
		api.NewChartEchoHandler,
		ws.NewChartWSHandler,
		ProvideHTTPHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}

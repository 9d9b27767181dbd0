//go:build wireinject
// +build wireinject

package di

import (
	"PulseFeed/pkg/config"
	"PulseFeed/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideCache,
		ProvidePublisher,

		// Repositories and services
		ProvideAuthorizer,
		ProvideSampleStore,
		ProvideResolver,
		ProvideSignatureSource,
		ProvideAssistant,

		// Use cases
		ProvideFeed,
		ProvideWatcher,

		// HTTP surface
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}

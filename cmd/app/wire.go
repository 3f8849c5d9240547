//go:build wireinject
// +build wireinject

package main

import (
	"opsboard/config"
	"opsboard/internal/command"
	"opsboard/internal/cron"
	"opsboard/internal/database"
	"opsboard/internal/handler"
	"opsboard/internal/middleware"
	"opsboard/internal/router"
	"opsboard/internal/service"
	"opsboard/internal/telemetry"

	"github.com/google/wire"
	"go.uber.org/zap"
)

// wireApp init application.
func wireApp(*config.Configuration, *zap.Logger) (*App, func(), error) {
	panic(
		wire.Build(
			database.ProviderSet,
			service.ProviderSet,
			handler.ProviderSet,
			middleware.ProviderSet,
			router.ProviderSet,
			cron.ProviderSet,
			newHttpServer,
			telemetry.ProviderSet,
			newApp,
		),
	)
}

// wireCommand init application.
func wireCommand(*config.Configuration, *zap.Logger) (*command.Command, func(), error) {
	panic(
		wire.Build(
			database.ProviderSet,
			service.ProviderSet,
			telemetry.ProviderSet,
			command.ProviderSet,
		),
	)
}

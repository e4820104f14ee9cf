//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"

	"github.com/salonhub/server/internal/shared/config"
)

// InitializeApp builds the application graph.
func InitializeApp(cfg *config.Config) (*App, error) {
	wire.Build(
		InfraSet,
		ModuleSet,
		wire.Struct(new(App), "*"),
	)
	return nil, nil
}

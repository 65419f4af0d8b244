//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"

	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/domain"
)

func InitializeRuntime(cfg domain.Config, logging Logging) (*runtime, error) {
	wire.Build(AppSet)
	return nil, nil
}

package ports

import "go.trai.ch/relcache/internal/core/domain"

// ConfigLoader defines the interface for loading the relcache configuration.
//
//go:generate mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load discovers the configuration file from cwd upwards and resolves it.
	// Defaults are returned when no file exists.
	Load(cwd string) (*domain.Config, error)

	// LoadFile resolves the configuration file at path.
	LoadFile(path string) (*domain.Config, error)
}

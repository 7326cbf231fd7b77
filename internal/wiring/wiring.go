// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/relcache/internal/adapters/config"
	_ "go.trai.ch/relcache/internal/adapters/logger"
	_ "go.trai.ch/relcache/internal/adapters/source"
	_ "go.trai.ch/relcache/internal/adapters/storage"
	_ "go.trai.ch/relcache/internal/adapters/telemetry"
	_ "go.trai.ch/relcache/internal/adapters/watcher"
	// Register app nodes.
	_ "go.trai.ch/relcache/internal/app"
)

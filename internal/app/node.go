package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/relcache/internal/adapters/config"    //nolint:depguard // Wired in app layer
	"go.trai.ch/relcache/internal/adapters/logger"    //nolint:depguard // Wired in app layer
	"go.trai.ch/relcache/internal/adapters/source"    //nolint:depguard // Wired in app layer
	"go.trai.ch/relcache/internal/adapters/storage"   //nolint:depguard // Wired in app layer
	"go.trai.ch/relcache/internal/adapters/telemetry" //nolint:depguard // Wired in app layer
	"go.trai.ch/relcache/internal/adapters/watcher"   //nolint:depguard // Wired in app layer
	"go.trai.ch/relcache/internal/core/ports"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

// Components contains the initialized components the CLI layer needs.
type Components struct {
	App    *App
	Logger ports.Logger
}

func init() {
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.NodeID,
			storage.NodeID,
			source.NodeID,
			watcher.NodeID,
			logger.NodeID,
			telemetry.NodeID,
		},
		Run: runAppNode,
	})

	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*Components, error) {
			app, err := graft.Dep[*App](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return &Components{App: app, Logger: log}, nil
		},
	})
}

func runAppNode(ctx context.Context) (*App, error) {
	loader, err := graft.Dep[ports.ConfigLoader](ctx)
	if err != nil {
		return nil, err
	}
	opener, err := graft.Dep[ports.StoreOpener](ctx)
	if err != nil {
		return nil, err
	}
	factory, err := graft.Dep[ports.AdapterFactory](ctx)
	if err != nil {
		return nil, err
	}
	w, err := graft.Dep[ports.Watcher](ctx)
	if err != nil {
		return nil, err
	}
	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}
	metrics, err := graft.Dep[*telemetry.Metrics](ctx)
	if err != nil {
		return nil, err
	}
	return New(loader, opener, factory, w, log, metrics), nil
}

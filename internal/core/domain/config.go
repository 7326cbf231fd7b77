package domain

import (
	"path/filepath"
	"time"
)

// StoreBackend names a cache store implementation.
type StoreBackend string

const (
	// BackendMemory keeps entries in process memory.
	BackendMemory StoreBackend = "memory"
	// BackendSQLite persists entries in a SQLite file.
	BackendSQLite StoreBackend = "sqlite"
	// BackendRedis keeps entries in Redis.
	BackendRedis StoreBackend = "redis"
)

// Provider names a resource source implementation.
type Provider string

const (
	// ProviderFixture reads generic resource documents from YAML files.
	ProviderFixture Provider = "fixture"
	// ProviderKubernetes reads Kubernetes manifests.
	ProviderKubernetes Provider = "kubernetes"
)

// Ingest defaults.
const (
	DefaultInterval    = 30 * time.Second
	DefaultPassTimeout = 2 * time.Minute
	DefaultPageSize    = 100
)

// Config is the resolved relcache configuration.
type Config struct {
	// Root is the directory relative paths are resolved against.
	Root   string
	Store  StoreConfig
	Ingest IngestConfig
	Agents []AgentConfig
}

// StoreConfig selects and configures the cache store.
type StoreConfig struct {
	Backend   StoreBackend
	Path      string
	RedisURL  string
	KeyPrefix string
}

// IngestConfig controls how agents are scheduled.
type IngestConfig struct {
	Interval    time.Duration
	PassTimeout time.Duration
	PageSize    int
	Parallelism int
	ShardIndex  int
	ShardCount  int
}

// AgentConfig describes one caching agent.
type AgentConfig struct {
	// Kind identifies the agent for on-demand refreshes.
	Kind     string
	Provider Provider
	// Type is the entry type produced; derived from Kind for Kubernetes agents.
	Type    string
	Account string
	Region  string
	// Sources are absolute file glob patterns.
	Sources []string
	// Clustered links entries to a cluster derived from their moniker.
	Clustered bool
}

// DefaultConfig returns the configuration used when no file is found.
func DefaultConfig(root string) *Config {
	return &Config{
		Root: root,
		Store: StoreConfig{
			Backend: BackendMemory,
			Path:    filepath.Join(root, DefaultDatabasePath()),
		},
		Ingest: IngestConfig{
			Interval:    DefaultInterval,
			PassTimeout: DefaultPassTimeout,
			PageSize:    DefaultPageSize,
			ShardCount:  1,
		},
	}
}

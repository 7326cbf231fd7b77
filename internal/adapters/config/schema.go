package config

import "time"

// File represents the structure of the relcache.yaml configuration file.
type File struct {
	Version string      `yaml:"version"`
	Root    string      `yaml:"root"`
	Store   StoreDTO    `yaml:"store"`
	Ingest  IngestDTO   `yaml:"ingest"`
	Agents  []*AgentDTO `yaml:"agents"`
}

// StoreDTO configures the cache store backend.
type StoreDTO struct {
	Backend   string `yaml:"backend"`
	Path      string `yaml:"path"`
	RedisURL  string `yaml:"redisURL"`
	KeyPrefix string `yaml:"keyPrefix"`
}

// IngestDTO configures agent scheduling.
type IngestDTO struct {
	Interval    time.Duration `yaml:"interval"`
	PassTimeout time.Duration `yaml:"passTimeout"`
	PageSize    int           `yaml:"pageSize"`
	Parallelism int           `yaml:"parallelism"`
	Shard       ShardDTO      `yaml:"shard"`
}

// ShardDTO assigns a subset of agents to this process.
type ShardDTO struct {
	Index int `yaml:"index"`
	Count int `yaml:"count"`
}

// AgentDTO represents an agent definition in the configuration.
type AgentDTO struct {
	Kind      string   `yaml:"kind"`
	Provider  string   `yaml:"provider"`
	Type      string   `yaml:"type"`
	Account   string   `yaml:"account"`
	Region    string   `yaml:"region"`
	Sources   []string `yaml:"sources"`
	Clustered bool     `yaml:"clustered"`
}

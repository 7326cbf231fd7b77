// Package config provides the configuration loader for relcache.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"go.trai.ch/relcache/internal/core/domain"
	"go.trai.ch/relcache/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// Loader implements ports.ConfigLoader using a YAML file.
type Loader struct {
	Logger ports.Logger
	FS     FileSystem
}

var _ ports.ConfigLoader = (*Loader)(nil)

// NewLoader creates a new Loader with the given logger.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{Logger: logger, FS: NewOSFS()}
}

// Load discovers relcache.yaml from cwd upwards.
// When no file exists the defaults rooted at cwd are returned.
func (l *Loader) Load(cwd string) (*domain.Config, error) {
	configPath, found := l.findConfiguration(cwd)
	if !found {
		l.Logger.Warn(fmt.Sprintf("no %s found, using defaults", domain.ConfigFileName))
		return domain.DefaultConfig(cwd), nil
	}
	return l.LoadFile(configPath)
}

// LoadFile reads and resolves the configuration file at configPath.
func (l *Loader) LoadFile(configPath string) (*domain.Config, error) {
	var file File
	if err := l.readAndUnmarshalYAML(configPath, &file); err != nil {
		return nil, zerr.With(err, "path", configPath)
	}
	return resolve(configPath, &file)
}

func (l *Loader) findConfiguration(cwd string) (string, bool) {
	currentDir := cwd
	for {
		candidate := filepath.Join(currentDir, domain.ConfigFileName)
		if _, err := l.FS.Stat(candidate); err == nil {
			return candidate, true
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			// Reached root
			return "", false
		}
		currentDir = parentDir
	}
}

func (l *Loader) readAndUnmarshalYAML(configPath string, target *File) error {
	data, err := l.FS.ReadFile(configPath)
	if err != nil {
		return zerr.Wrap(err, domain.ErrConfigReadFailed.Error())
	}
	if parseErr := yaml.Unmarshal(data, target); parseErr != nil {
		return zerr.Wrap(parseErr, domain.ErrConfigParseFailed.Error())
	}
	return nil
}

func resolve(configPath string, file *File) (*domain.Config, error) {
	root := resolveRoot(configPath, file.Root)
	cfg := domain.DefaultConfig(root)

	if err := resolveStore(cfg, root, &file.Store); err != nil {
		return nil, err
	}
	if err := resolveIngest(cfg, &file.Ingest); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	for i, dto := range file.Agents {
		if dto == nil {
			continue
		}
		agent, err := resolveAgent(root, dto)
		if err != nil {
			return nil, zerr.With(err, "agent", i)
		}
		key := agent.Kind + "/" + agent.Account + "/" + agent.Region
		if seen[key] {
			return nil, zerr.With(invalid("duplicate agent"), "agent", key)
		}
		seen[key] = true
		cfg.Agents = append(cfg.Agents, agent)
	}
	return cfg, nil
}

func resolveStore(cfg *domain.Config, root string, dto *StoreDTO) error {
	if dto.Backend != "" {
		cfg.Store.Backend = domain.StoreBackend(strings.ToLower(dto.Backend))
	}
	switch cfg.Store.Backend {
	case domain.BackendMemory, domain.BackendSQLite:
	case domain.BackendRedis:
		if dto.RedisURL == "" {
			return zerr.With(invalid("redis backend requires redisURL"), "backend", cfg.Store.Backend)
		}
	default:
		return zerr.With(zerr.Wrap(domain.ErrUnknownBackend, domain.ErrConfigInvalid.Error()), "backend", dto.Backend)
	}
	if dto.Path != "" {
		cfg.Store.Path = resolvePath(root, dto.Path)
	}
	cfg.Store.RedisURL = dto.RedisURL
	cfg.Store.KeyPrefix = dto.KeyPrefix
	return nil
}

func resolveIngest(cfg *domain.Config, dto *IngestDTO) error {
	if dto.Interval < 0 || dto.PassTimeout < 0 || dto.PageSize < 0 || dto.Parallelism < 0 {
		return invalid("ingest settings must not be negative")
	}
	if dto.Interval > 0 {
		cfg.Ingest.Interval = dto.Interval
	}
	if dto.PassTimeout > 0 {
		cfg.Ingest.PassTimeout = dto.PassTimeout
	}
	if dto.PageSize > 0 {
		cfg.Ingest.PageSize = dto.PageSize
	}
	cfg.Ingest.Parallelism = dto.Parallelism
	if dto.Shard.Count > 0 {
		cfg.Ingest.ShardCount = dto.Shard.Count
	}
	if dto.Shard.Index < 0 || dto.Shard.Index >= cfg.Ingest.ShardCount {
		err := zerr.With(invalid("shard index out of range"), "index", dto.Shard.Index)
		return zerr.With(err, "count", cfg.Ingest.ShardCount)
	}
	cfg.Ingest.ShardIndex = dto.Shard.Index
	return nil
}

func resolveAgent(root string, dto *AgentDTO) (domain.AgentConfig, error) {
	agent := domain.AgentConfig{
		Kind:      dto.Kind,
		Provider:  domain.Provider(strings.ToLower(dto.Provider)),
		Type:      dto.Type,
		Account:   dto.Account,
		Region:    dto.Region,
		Clustered: dto.Clustered,
	}
	if agent.Provider == "" {
		agent.Provider = domain.ProviderFixture
	}

	switch agent.Provider {
	case domain.ProviderFixture:
		if agent.Type == "" {
			return agent, invalid("fixture agent requires type")
		}
		if agent.Kind == "" {
			agent.Kind = agent.Type
		}
	case domain.ProviderKubernetes:
		if agent.Kind == "" {
			return agent, invalid("kubernetes agent requires kind")
		}
	default:
		return agent, zerr.With(zerr.Wrap(domain.ErrUnknownProvider, domain.ErrConfigInvalid.Error()), "provider", dto.Provider)
	}

	if agent.Account == "" {
		return agent, zerr.With(invalid("agent requires account"), "kind", agent.Kind)
	}
	if len(dto.Sources) == 0 {
		return agent, zerr.With(invalid("agent requires at least one source"), "kind", agent.Kind)
	}
	for _, src := range dto.Sources {
		agent.Sources = append(agent.Sources, resolvePath(root, src))
	}
	return agent, nil
}

func invalid(reason string) error {
	return zerr.Wrap(domain.ErrConfigInvalid, reason)
}

func resolveRoot(configPath, configuredRoot string) string {
	configDir := filepath.Dir(configPath)
	if configuredRoot == "" {
		return configDir
	}
	return resolvePath(configDir, configuredRoot)
}

func resolvePath(base, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}

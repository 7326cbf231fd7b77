package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/relcache/internal/adapters/config"
	"go.trai.ch/relcache/internal/core/domain"
	"go.trai.ch/relcache/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func TestLoader_Load_DiscoversParentConfig(t *testing.T) {
	ctrl := gomock.NewController(t)
	loader := config.NewLoader(mocks.NewMockLogger(ctrl))

	rootDir := t.TempDir()
	createFile(t, rootDir, domain.ConfigFileName, `
version: "1"
store:
  backend: sqlite
  path: state/cache.db
ingest:
  interval: 45s
  passTimeout: 10s
  pageSize: 25
  parallelism: 3
  shard:
    index: 1
    count: 2
agents:
  - type: serverGroups
    account: acct1
    region: us-east-1
    sources: ["fixtures/sg-*.yaml"]
    clustered: true
  - provider: kubernetes
    kind: Pod
    account: prod
    region: default
    sources: ["/abs/manifests/*.yaml"]
`)

	nested := filepath.Join(rootDir, "a", "b")
	require.NoError(t, os.MkdirAll(nested, domain.DirPerm))

	cfg, err := loader.Load(nested)
	require.NoError(t, err)

	assert.Equal(t, rootDir, cfg.Root)
	assert.Equal(t, domain.BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, filepath.Join(rootDir, "state", "cache.db"), cfg.Store.Path)
	assert.Equal(t, 45*time.Second, cfg.Ingest.Interval)
	assert.Equal(t, 10*time.Second, cfg.Ingest.PassTimeout)
	assert.Equal(t, 25, cfg.Ingest.PageSize)
	assert.Equal(t, 3, cfg.Ingest.Parallelism)
	assert.Equal(t, 1, cfg.Ingest.ShardIndex)
	assert.Equal(t, 2, cfg.Ingest.ShardCount)

	require.Len(t, cfg.Agents, 2)
	sg := cfg.Agents[0]
	assert.Equal(t, domain.ProviderFixture, sg.Provider)
	assert.Equal(t, "serverGroups", sg.Kind, "fixture kind defaults to type")
	assert.Equal(t, []string{filepath.Join(rootDir, "fixtures", "sg-*.yaml")}, sg.Sources)
	assert.True(t, sg.Clustered)

	pod := cfg.Agents[1]
	assert.Equal(t, domain.ProviderKubernetes, pod.Provider)
	assert.Equal(t, []string{"/abs/manifests/*.yaml"}, pod.Sources)
}

func TestLoader_Load_DefaultsWhenMissing(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockLogger := mocks.NewMockLogger(ctrl)
	mockLogger.EXPECT().Warn(gomock.Any()).Times(1)

	loader := config.NewLoader(mockLogger)
	loader.FS = config.NewMapFSAdapter("/work", fstest.MapFS{})

	cfg, err := loader.Load("/work/project")
	require.NoError(t, err)

	assert.Equal(t, domain.BackendMemory, cfg.Store.Backend)
	assert.Equal(t, domain.DefaultInterval, cfg.Ingest.Interval)
	assert.Equal(t, domain.DefaultPageSize, cfg.Ingest.PageSize)
	assert.Equal(t, 1, cfg.Ingest.ShardCount)
	assert.Empty(t, cfg.Agents)
}

func TestLoader_LoadFile_MapFS(t *testing.T) {
	ctrl := gomock.NewController(t)
	loader := config.NewLoader(mocks.NewMockLogger(ctrl))
	loader.FS = config.NewMapFSAdapter("/work", fstest.MapFS{
		"relcache.yaml": &fstest.MapFile{Data: []byte(`
store:
  backend: redis
  redisURL: redis://localhost:6379/0
  keyPrefix: test
`)},
	})

	cfg, err := loader.LoadFile("/work/relcache.yaml")
	require.NoError(t, err)
	assert.Equal(t, domain.BackendRedis, cfg.Store.Backend)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Store.RedisURL)
	assert.Equal(t, "test", cfg.Store.KeyPrefix)
}

func TestLoader_LoadFile_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{
			name:    "unparsable",
			content: "agents: [",
			wantErr: domain.ErrConfigParseFailed,
		},
		{
			name:    "unknown backend",
			content: "store:\n  backend: etcd\n",
			wantErr: domain.ErrUnknownBackend,
		},
		{
			name:    "redis without url",
			content: "store:\n  backend: redis\n",
			wantErr: domain.ErrConfigInvalid,
		},
		{
			name:    "unknown provider",
			content: "agents:\n  - provider: aws\n    type: instances\n    account: a\n    sources: [x]\n",
			wantErr: domain.ErrUnknownProvider,
		},
		{
			name:    "fixture without type",
			content: "agents:\n  - account: a\n    sources: [x]\n",
			wantErr: domain.ErrConfigInvalid,
		},
		{
			name:    "missing sources",
			content: "agents:\n  - type: instances\n    account: a\n",
			wantErr: domain.ErrConfigInvalid,
		},
		{
			name:    "missing account",
			content: "agents:\n  - type: instances\n    sources: [x]\n",
			wantErr: domain.ErrConfigInvalid,
		},
		{
			name:    "duplicate agent",
			content: "agents:\n  - {type: instances, account: a, sources: [x]}\n  - {type: instances, account: a, sources: [y]}\n",
			wantErr: domain.ErrConfigInvalid,
		},
		{
			name:    "shard out of range",
			content: "ingest:\n  shard:\n    index: 2\n    count: 2\n",
			wantErr: domain.ErrConfigInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			loader := config.NewLoader(mocks.NewMockLogger(ctrl))

			dir := t.TempDir()
			createFile(t, dir, domain.ConfigFileName, tt.content)

			_, err := loader.LoadFile(filepath.Join(dir, domain.ConfigFileName))
			require.Error(t, err)
			if tt.wantErr == domain.ErrConfigParseFailed {
				assert.Contains(t, err.Error(), tt.wantErr.Error())
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func createFile(t *testing.T, dir, name, content string) {
	t.Helper()
	err := os.WriteFile(filepath.Join(dir, name), []byte(content), domain.FilePerm)
	require.NoError(t, err)
}

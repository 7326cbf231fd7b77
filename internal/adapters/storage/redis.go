package storage

import (
	"context"
	"slices"

	"github.com/redis/go-redis/v9"
	"go.trai.ch/relcache/internal/core/domain"
	"go.trai.ch/relcache/internal/core/ports"
	"go.trai.ch/zerr"
)

// DefaultKeyPrefix namespaces every key the Redis store writes.
const DefaultKeyPrefix = "relcache"

// redisScanCount is the SSCAN page hint.
const redisScanCount = 1000

// RedisStore is a CacheStore backed by Redis.
// Each entry is a JSON string; each type keeps a members set of its ids.
type RedisStore struct {
	client *redis.Client
	prefix string
}

var _ ports.CacheStore = (*RedisStore)(nil)

// NewRedisStore connects to redisURL and verifies the connection.
func NewRedisStore(ctx context.Context, redisURL, prefix string) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrStoreOpenFailed.Error())
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreOpenFailed.Error()), "addr", opt.Addr)
	}
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix}, nil
}

func (s *RedisStore) entryKey(typ, id string) string {
	return s.prefix + ":entry:" + typ + ":" + id
}

func (s *RedisStore) membersKey(typ string) string {
	return s.prefix + ":members:" + typ
}

func (s *RedisStore) typesKey() string {
	return s.prefix + ":types"
}

// Put upserts a single entry.
func (s *RedisStore) Put(ctx context.Context, entry domain.CacheEntry) error {
	return s.PutAll(ctx, entry.Type, []domain.CacheEntry{entry})
}

// PutAll upserts entries of one type in one pipeline.
func (s *RedisStore) PutAll(ctx context.Context, typ string, entries []domain.CacheEntry) error {
	if len(entries) == 0 {
		return nil
	}
	pipe := s.client.TxPipeline()
	ids := make([]any, 0, len(entries))
	for _, e := range entries {
		body, err := encodeEntry(e)
		if err != nil {
			return err
		}
		pipe.Set(ctx, s.entryKey(typ, e.ID), body, 0)
		ids = append(ids, e.ID)
	}
	pipe.SAdd(ctx, s.membersKey(typ), ids...)
	pipe.SAdd(ctx, s.typesKey(), typ)
	if _, err := pipe.Exec(ctx); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "type", typ)
	}
	return nil
}

// Get retrieves one entry, or nil when absent.
func (s *RedisStore) Get(ctx context.Context, typ, id string) (*domain.CacheEntry, error) {
	body, err := s.client.Get(ctx, s.entryKey(typ, id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreReadFailed.Error()), "id", id)
	}
	entry, err := decodeEntry(body)
	if err != nil {
		return nil, zerr.With(err, "id", id)
	}
	return &entry, nil
}

// GetAll retrieves the entries that exist among ids.
func (s *RedisStore) GetAll(ctx context.Context, typ string, ids []string) ([]domain.CacheEntry, error) {
	return s.GetAllFiltered(ctx, typ, ids, domain.AllRelationships())
}

// GetAllFiltered retrieves the entries that exist among ids with a single MGET.
func (s *RedisStore) GetAllFiltered(
	ctx context.Context, typ string, ids []string, filter domain.RelationshipFilter,
) ([]domain.CacheEntry, error) {
	sorted := uniqueSorted(ids)
	if len(sorted) == 0 {
		return []domain.CacheEntry{}, nil
	}
	keys := make([]string, len(sorted))
	for i, id := range sorted {
		keys[i] = s.entryKey(typ, id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreReadFailed.Error()), "type", typ)
	}

	out := make([]domain.CacheEntry, 0, len(vals))
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue
		}
		entry, err := decodeEntry([]byte(str))
		if err != nil {
			return nil, zerr.With(err, "id", sorted[i])
		}
		out = append(out, entry)
	}
	return filterEntries(out, filter), nil
}

// GetAllPattern scans the members set of typ and applies pattern to each id.
func (s *RedisStore) GetAllPattern(ctx context.Context, typ string, pattern domain.Pattern) ([]string, error) {
	ids := make([]string, 0)
	iter := s.client.SScan(ctx, s.membersKey(typ), 0, escapeRedisGlob(pattern.Prefix())+"*", redisScanCount).Iterator()
	for iter.Next(ctx) {
		if id := iter.Val(); pattern.Match(id) {
			ids = append(ids, id)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreReadFailed.Error()), "pattern", pattern.String())
	}
	slices.Sort(ids)
	return slices.Compact(ids), nil
}

func escapeRedisGlob(s string) string {
	out := make([]byte, 0, len(s))
	for i := range len(s) {
		switch s[i] {
		case '*', '?', '[', ']', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}

// Evict removes ids of typ.
func (s *RedisStore) Evict(ctx context.Context, typ string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	members := make([]any, len(ids))
	for i, id := range ids {
		keys[i] = s.entryKey(typ, id)
		members[i] = id
	}
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, keys...)
	pipe.SRem(ctx, s.membersKey(typ), members...)
	if _, err := pipe.Exec(ctx); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreEvictFailed.Error()), "type", typ)
	}
	return nil
}

// Types returns the sorted types that hold at least one entry.
func (s *RedisStore) Types(ctx context.Context) ([]string, error) {
	all, err := s.client.SMembers(ctx, s.typesKey()).Result()
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrStoreReadFailed.Error())
	}
	types := make([]string, 0, len(all))
	for _, typ := range all {
		n, err := s.client.SCard(ctx, s.membersKey(typ)).Result()
		if err != nil {
			return nil, zerr.Wrap(err, domain.ErrStoreReadFailed.Error())
		}
		if n > 0 {
			types = append(types, typ)
		}
	}
	slices.Sort(types)
	return types, nil
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

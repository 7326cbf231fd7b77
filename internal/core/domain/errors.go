package domain

import "go.trai.ch/zerr"

var (
	// ErrMalformedKey is returned when an entry id or one of its segments is invalid.
	ErrMalformedKey = zerr.New("malformed key")

	// ErrMissingApplication is returned when no application can be derived for a resource.
	ErrMissingApplication = zerr.New("resource has no application")

	// ErrUpstreamFailure is returned when a resource source fails during a pass.
	ErrUpstreamFailure = zerr.New("upstream source failed")

	// ErrConvertFailed is returned when a raw resource cannot be converted.
	ErrConvertFailed = zerr.New("failed to convert resource")

	// ErrUnknownAgent is returned when no agent matches a refresh request.
	ErrUnknownAgent = zerr.New("no agent handles the requested kind")

	// ErrUnknownProvider is returned when an agent names an unsupported provider.
	ErrUnknownProvider = zerr.New("unknown resource provider")

	// ErrUnknownBackend is returned when the store backend is not supported.
	ErrUnknownBackend = zerr.New("unknown store backend")

	// ErrStoreOpenFailed is returned when the store backend cannot be opened.
	ErrStoreOpenFailed = zerr.New("failed to open cache store")

	// ErrStoreReadFailed is returned when entries cannot be read from the store.
	ErrStoreReadFailed = zerr.New("failed to read cache entries")

	// ErrStoreWriteFailed is returned when entries cannot be written to the store.
	ErrStoreWriteFailed = zerr.New("failed to write cache entries")

	// ErrStoreEvictFailed is returned when entries cannot be evicted from the store.
	ErrStoreEvictFailed = zerr.New("failed to evict cache entries")

	// ErrEntryMarshalFailed is returned when an entry cannot be encoded.
	ErrEntryMarshalFailed = zerr.New("failed to marshal cache entry")

	// ErrEntryUnmarshalFailed is returned when a stored entry cannot be decoded.
	ErrEntryUnmarshalFailed = zerr.New("failed to unmarshal cache entry")

	// ErrCommitFailed is returned when a pass cannot commit its entries.
	ErrCommitFailed = zerr.New("failed to commit entries")

	// ErrEvictFailed is returned when a pass cannot evict stale entries.
	ErrEvictFailed = zerr.New("failed to evict stale entries")

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrConfigInvalid is returned when the config file fails validation.
	ErrConfigInvalid = zerr.New("invalid configuration")

	// ErrSourceReadFailed is returned when a source file cannot be read.
	ErrSourceReadFailed = zerr.New("failed to read source file")

	// ErrSourceParseFailed is returned when a source file cannot be parsed.
	ErrSourceParseFailed = zerr.New("failed to parse source file")

	// ErrWatcherFailed is returned when the source watcher cannot be started.
	ErrWatcherFailed = zerr.New("failed to watch source files")

	// ErrMetricsServerFailed is returned when the metrics endpoint cannot be served.
	ErrMetricsServerFailed = zerr.New("metrics server failed")

	// ErrNotCached is returned when a queried resource is not in the cache.
	ErrNotCached = zerr.New("resource is not cached")

	// ErrAgentsFailed is returned when one or more agents failed during a sweep.
	ErrAgentsFailed = zerr.New("one or more agents failed")
)

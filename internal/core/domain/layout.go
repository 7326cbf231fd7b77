package domain

import "path/filepath"

const (
	// StateDirName is the name of the local state directory.
	StateDirName = ".relcache"

	// DatabaseFileName is the name of the SQLite database file.
	DatabaseFileName = "cache.db"

	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "relcache.yaml"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644
)

// DefaultStatePath returns the default root directory for relcache state.
func DefaultStatePath() string {
	return StateDirName
}

// DefaultDatabasePath returns the default path for the SQLite database.
// It joins .relcache and cache.db.
func DefaultDatabasePath() string {
	return filepath.Join(StateDirName, DatabaseFileName)
}

package database

import (
	"fmt"
	"path/filepath"

	"squirrel-go/internal/config"
	"squirrel-go/internal/squirrel"
)

// NewJournalFromConfig creates a Journal implementation based on the journal
// config type. A sqlite journal file is resolved relative to stashDir. When
// writable is false the journal must already exist and is not migrated.
func NewJournalFromConfig(cfg config.JournalConfig, stashDir string, writable bool) (squirrel.Journal, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.File == "" {
			return nil, fmt.Errorf("file required for sqlite journal")
		}
		path := cfg.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(stashDir, path)
		}
		if writable {
			return NewSQLiteJournal(path)
		}
		return OpenSQLiteJournal(path)
	case "memory":
		return NewSQLiteJournal(MemoryPath)
	default:
		return nil, fmt.Errorf("unknown journal type: %s", cfg.Type)
	}
}

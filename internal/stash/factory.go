package stash

import (
	"fmt"
	"io"

	"squirrel-go/internal/config"
	"squirrel-go/internal/squirrel"
)

// Store is a snapshot store that can also hand snapshots back.
type Store interface {
	squirrel.SnapshotStore
	Open(name string) (io.ReadCloser, error)
}

// NewStoreFromConfig creates a Store implementation based on the stash config type.
func NewStoreFromConfig(cfg config.StashConfig, dir string, idgen squirrel.IDGenerator) (Store, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryStore(idgen), nil
	case "filesystem":
		if dir == "" {
			return nil, fmt.Errorf("filesystem stash requires a directory")
		}
		return NewFileSystemStore(dir, idgen)
	default:
		return nil, fmt.Errorf("unknown stash type: %s", cfg.Type)
	}
}

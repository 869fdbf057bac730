// Package store persists the token record as string key-value pairs.
//
// Three drivers satisfy [Store]: [Memory] for tests and ephemeral sessions, [File] for a
// TOML document on disk, and the SQLite [repositories.KVRepository]. Multi-key writes and
// deletes are atomic with respect to readers of the same driver instance.
package store

import (
	"context"
	"fmt"

	"github.com/desertthunder/spotauth/internal/repositories"
	"github.com/desertthunder/spotauth/internal/shared"
)

// Store is a string-keyed key-value store.
type Store interface {
	// Load returns a snapshot of the requested keys; absent keys are omitted.
	Load(ctx context.Context, keys ...string) (map[string]string, error)
	// Set writes every entry atomically.
	Set(ctx context.Context, entries map[string]string) error
	// Delete removes keys atomically. Deleting absent keys is not an error.
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

var (
	_ Store = (*Memory)(nil)
	_ Store = (*File)(nil)
	_ Store = (*repositories.KVRepository)(nil)
)

// Open builds the store selected by cfg.Driver.
func Open(cfg shared.DatabaseConfig) (Store, error) {
	switch cfg.Driver {
	case "memory":
		return NewMemory(), nil
	case "toml":
		return NewFile(cfg.Path), nil
	case "sqlite", "":
		db, err := shared.OpenMigrated(cfg)
		if err != nil {
			return nil, err
		}
		return repositories.NewKVRepository(db), nil
	default:
		return nil, fmt.Errorf("%w: %q", shared.ErrUnknownDriver, cfg.Driver)
	}
}

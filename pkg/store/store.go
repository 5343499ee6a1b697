// Package store is the public entry point for gridbook storage backends.
// It keeps the implementations internal and hands back a types.Store.
//
// Example:
//
//	s, err := store.Open(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: "/var/lib/gridbook",
//	})
//	if err != nil {
//	    return err
//	}
//	defer s.Detach()
package store

import (
	"fmt"

	"github.com/mesh-intelligence/gridbook/internal/memory"
	"github.com/mesh-intelligence/gridbook/internal/sqlstore"
	"github.com/mesh-intelligence/gridbook/pkg/types"
)

// New returns an unattached store for the named backend.
func New(backend string) (types.Store, error) {
	switch backend {
	case types.BackendMemory:
		return memory.NewStore(), nil
	case types.BackendSQLite, types.BackendPostgres:
		return sqlstore.NewBackend(), nil
	case "":
		return nil, types.ErrBackendEmpty
	}
	return nil, types.ErrBackendUnknown
}

// Open creates the store named by cfg.Backend and attaches it.
func Open(cfg types.Config) (types.Store, error) {
	s, err := New(cfg.Backend)
	if err != nil {
		return nil, err
	}
	if err := s.Attach(cfg); err != nil {
		return nil, fmt.Errorf("attach %s store: %w", cfg.Backend, err)
	}
	return s, nil
}

package cli

import (
	"context"

	"github.com/mesh-intelligence/gridbook/internal/sheets"
	"github.com/mesh-intelligence/gridbook/pkg/store"
	"github.com/mesh-intelligence/gridbook/pkg/types"
)

// openStore attaches the configured backend. The caller must Detach it.
func (a *app) openStore() (types.Store, error) {
	return store.Open(a.settings.Store)
}

func (a *app) newService(s types.Store) *sheets.Service {
	return sheets.NewService(s, sheets.Options{
		Rules:        a.settings.Rules,
		Logger:       a.logger,
		DefaultSheet: a.settings.DefaultSheet,
	})
}

// withService runs fn against a service over a freshly attached store.
// The default sheet is created first when the store is empty.
func (a *app) withService(ctx context.Context, fn func(svc *sheets.Service) error) error {
	s, err := a.openStore()
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Detach(); err != nil {
			a.logger.Warn("detach store", "error", err)
		}
	}()

	svc := a.newService(s)
	if _, err := svc.EnsureDefaultSheet(ctx); err != nil {
		return err
	}
	return fn(svc)
}

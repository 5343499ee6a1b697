// Package sheets is the sheet directory and the orchestration layer over a
// types.Store: it resolves column rules, normalizes writes, runs them in a
// single transaction, and answers row queries.
package sheets

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/mesh-intelligence/gridbook/internal/query"
	"github.com/mesh-intelligence/gridbook/internal/rules"
	"github.com/mesh-intelligence/gridbook/pkg/types"
)

// DefaultSheet describes the sheet created when the store is empty.
type DefaultSheet struct {
	Name     string
	RowCount int
	ColCount int
}

// Options configure a Service. Zero values select defaults.
type Options struct {
	Rules        *rules.Table
	Logger       *slog.Logger
	DefaultSheet DefaultSheet
}

// Service implements the sheet operations. It is safe for concurrent use;
// isolation comes from the store's transactions.
type Service struct {
	store    types.Store
	rules    *rules.Table
	engine   *query.Engine
	logger   *slog.Logger
	defaults DefaultSheet
}

// NewService wires a Service to an attached store.
func NewService(store types.Store, opts Options) *Service {
	r := opts.Rules
	if r == nil {
		r = rules.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	def := opts.DefaultSheet
	if def.Name == "" {
		def.Name = types.DefaultSheetName
	}
	if def.RowCount < 1 {
		def.RowCount = types.DefaultRowCount
	}
	if def.ColCount < 1 {
		def.ColCount = types.DefaultColCount
	}
	return &Service{
		store:    store,
		rules:    r,
		engine:   query.NewEngine(r),
		logger:   logger,
		defaults: def,
	}
}

// Rules returns the column rule table in use.
func (s *Service) Rules() *rules.Table {
	return s.rules
}

// normalized is a validated cell write ready for the store.
type normalized struct {
	row, col int
	value    string
}

// normalizeUpdates validates every update before anything is written.
// field names the request list for error messages.
func (s *Service) normalizeUpdates(field string, updates []types.CellUpdate) ([]normalized, error) {
	out := make([]normalized, len(updates))
	for i, u := range updates {
		value, err := s.rules.Normalize(u.Col, u.Value)
		if err != nil {
			return nil, renameField(err, field, i)
		}
		out[i] = normalized{row: u.Row, col: u.Col, value: value}
	}
	return out, nil
}

func renameField(err error, list string, i int) error {
	var fe *types.FieldError
	if errors.As(err, &fe) {
		return &types.FieldError{Field: fmt.Sprintf("%s[%d].%s", list, i, fe.Field), Message: fe.Message}
	}
	return err
}

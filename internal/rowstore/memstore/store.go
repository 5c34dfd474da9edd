// Package memstore is an in-process row store with the merge-on-update
// semantics of the hosted service. It backs the "memory" driver and tests.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/jmehdipour/supplier-risk/internal/model"
	"github.com/jmehdipour/supplier-risk/internal/rowstore"
	"github.com/jmehdipour/supplier-risk/internal/util"
)

type Store struct {
	mu     sync.RWMutex
	tables map[string]map[string]model.Record
}

var _ rowstore.Client = (*Store)(nil)

func New() *Store {
	return &Store{tables: make(map[string]map[string]model.Record)}
}

// Seed stores rec as-is, replacing any row with the same id.
func (s *Store) Seed(table string, rec model.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table(table)[rec.ID()] = rec.Clone()
}

func (s *Store) Update(ctx context.Context, table, id string, patch model.Fields) ([]model.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := rowstore.CheckPatch(id, patch); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.tables[table][id]
	if !ok {
		return nil, nil
	}
	row.Merge(patch)
	return []model.Record{row.Clone()}, nil
}

func (s *Store) Insert(ctx context.Context, table string, fields model.Fields) (model.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := rowstore.CheckInsert(fields); err != nil {
		return nil, err
	}

	rec := model.Record(fields.Clone())
	id := rec.ID()
	if id == "" {
		id = util.NewID()
		rec[model.FieldID] = model.String(id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.table(table)
	if _, exists := t[id]; exists {
		return nil, &rowstore.OpError{
			Code:    "duplicate_key",
			Message: fmt.Sprintf("duplicate key value violates unique constraint %q", table+"_pkey"),
		}
	}
	t[id] = rec
	return rec.Clone(), nil
}

func (s *Store) Get(ctx context.Context, table, id string) (model.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.tables[table][id]
	if !ok {
		return nil, rowstore.ErrNotFound
	}
	return row.Clone(), nil
}

// table must be called with mu held for writing.
func (s *Store) table(name string) map[string]model.Record {
	t, ok := s.tables[name]
	if !ok {
		t = make(map[string]model.Record)
		s.tables[name] = t
	}
	return t
}

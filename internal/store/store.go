// Package store holds the shared ProcessingCase store. It is the only
// shared mutable state in the pipeline: creation is first-writer-wins per
// message id, and all mutation runs under a per-id lock, which is what
// makes re-ingestion of the same message idempotent.
package store

import (
	"errors"
	"sync"

	"smartmailr/internal/model"
)

// ErrCaseNotFound is returned for unknown case ids.
var ErrCaseNotFound = errors.New("processing case not found")

type entry struct {
	mu sync.Mutex
	c  *model.ProcessingCase
}

// CaseStore is an in-memory case store keyed by message id.
type CaseStore struct {
	mu    sync.RWMutex
	cases map[string]*entry
}

func NewCaseStore() *CaseStore {
	return &CaseStore{
		cases: make(map[string]*entry),
	}
}

// Create inserts a new case for msg, or returns the existing one. The
// second return value is false when the case already existed; two
// concurrent ingestions of the same message id observe exactly one case.
func (s *CaseStore) Create(msg model.Message) (*model.ProcessingCase, bool) {
	s.mu.Lock()
	e, ok := s.cases[msg.ID]
	if !ok {
		e = &entry{c: model.NewProcessingCase(msg)}
		s.cases[msg.ID] = e
	}
	s.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.c.Clone(), !ok
}

// Get returns a snapshot of the case.
func (s *CaseStore) Get(id string) (*model.ProcessingCase, error) {
	s.mu.RLock()
	e, ok := s.cases[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrCaseNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.c.Clone(), nil
}

// Update applies fn to the case under its per-id lock and returns the
// resulting snapshot. fn sees the live case; errors abort nothing beyond
// fn's own changes, so mutations inside fn must be all-or-nothing.
func (s *CaseStore) Update(id string, fn func(c *model.ProcessingCase) error) (*model.ProcessingCase, error) {
	s.mu.RLock()
	e, ok := s.cases[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrCaseNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := fn(e.c); err != nil {
		return nil, err
	}
	return e.c.Clone(), nil
}

// Len returns the number of cases held.
func (s *CaseStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cases)
}

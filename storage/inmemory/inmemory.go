//
// Tencent is pleased to support the open source community by making graphflow available.
//
// Copyright (C) 2026 Tencent.  All rights reserved.
//
// graphflow is licensed under the Apache License Version 2.0.
//
//

// Package inmemory provides in-memory graph and run stores. All state is
// process-lifetime only.
package inmemory

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/THE-DEVIL-19/graphflow/graph"
	"github.com/THE-DEVIL-19/graphflow/storage"
)

var (
	_ storage.GraphStore = (*GraphStore)(nil)
	_ storage.RunStore   = (*RunStore)(nil)
)

// GraphStore is an in-memory implementation of storage.GraphStore.
// Graphs are immutable once compiled, so the store keeps references.
type GraphStore struct {
	mu     sync.RWMutex
	graphs map[string]*graph.Graph
}

// NewGraphStore creates an empty graph store.
func NewGraphStore() *GraphStore {
	return &GraphStore{graphs: make(map[string]*graph.Graph)}
}

// Put stores the graph, minting a uuid id when the graph carries none.
func (s *GraphStore) Put(g *graph.Graph) (string, error) {
	id := g.ID()
	if id == "" {
		id = uuid.NewString()
		g = g.WithID(id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graphs[id] = g
	return id, nil
}

// Get returns the graph stored under id.
func (s *GraphStore) Get(id string) (*graph.Graph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.graphs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrGraphNotFound, id)
	}
	return g, nil
}

// RunStore is an in-memory implementation of storage.RunStore. Records are
// cloned on both put and get: the engine's live RunState and a poller's view
// never alias, so readers observe complete snapshots only.
type RunStore struct {
	mu   sync.RWMutex
	runs map[string]*graph.RunState
}

// NewRunStore creates an empty run store.
func NewRunStore() *RunStore {
	return &RunStore{runs: make(map[string]*graph.RunState)}
}

// Put upserts the run record by run id.
func (s *RunStore) Put(run *graph.RunState) error {
	if run.RunID == "" {
		return fmt.Errorf("run id cannot be empty")
	}
	clone := run.Clone()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.RunID] = clone
	return nil
}

// Get returns the run stored under id.
func (s *RunStore) Get(runID string) (*graph.RunState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrRunNotFound, runID)
	}
	return run.Clone(), nil
}

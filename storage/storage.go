//
// Tencent is pleased to support the open source community by making graphflow available.
//
// Copyright (C) 2026 Tencent.  All rights reserved.
//
// graphflow is licensed under the Apache License Version 2.0.
//
//

// Package storage defines the keyed stores the engine reads graph
// definitions from and writes run records to.
package storage

import (
	"errors"

	"github.com/THE-DEVIL-19/graphflow/graph"
)

// Errors.
var (
	// ErrGraphNotFound is returned when a graph id is not in the store.
	ErrGraphNotFound = errors.New("graph not found")
	// ErrRunNotFound is returned when a run id is not in the store.
	ErrRunNotFound = errors.New("run not found")
)

// GraphStore is a keyed store of compiled graph definitions. Reads and
// writes of a given key are atomic: a reader never observes a half-written
// graph.
type GraphStore interface {
	// Put stores the graph and returns its id, minting one if the graph
	// carries none.
	Put(g *graph.Graph) (string, error)
	// Get returns the graph stored under id, or ErrGraphNotFound.
	Get(id string) (*graph.Graph, error)
}

// RunStore is a keyed store of run records. Put is an idempotent upsert by
// run id; implementations must isolate stored records from the engine's
// live copy so concurrent readers never observe a torn record.
type RunStore interface {
	// Put upserts the run record by run id.
	Put(run *graph.RunState) error
	// Get returns the run stored under id, or ErrRunNotFound.
	Get(runID string) (*graph.RunState, error)
}

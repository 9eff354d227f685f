//
// Tencent is pleased to support the open source community by making graphflow available.
//
// Copyright (C) 2026 Tencent.  All rights reserved.
//
// graphflow is licensed under the Apache License Version 2.0.
//
//

package tool

import (
	"context"
	"fmt"
	"sync"

	"github.com/THE-DEVIL-19/graphflow/graph"
)

// Registry maps tool names to callable tools. It is safe for concurrent use;
// registrations and lookups from concurrently executing runs do not race.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]CallableTool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]CallableTool)}
}

// Register stores a tool under its declared name, overwriting any previous
// registration of the same name.
func (r *Registry) Register(t CallableTool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Declaration().Name] = t
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (CallableTool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return t, nil
}

// Names returns the registered tool names. Order is unspecified.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}

// Run invokes the named tool with a deep copy of state, so the tool can
// never mutate the caller's map or anything nested inside it; all effects
// flow through the returned update. A nil update with a nil error is
// rejected as invalid.
func (r *Registry) Run(ctx context.Context, name string, state map[string]any) (map[string]any, error) {
	t, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	result, err := t.Call(ctx, graph.State(state).Clone())
	if err != nil {
		return nil, fmt.Errorf("tool %s: %w", name, err)
	}
	if result == nil {
		return nil, fmt.Errorf("%w: tool %s returned nil", ErrInvalidResult, name)
	}
	return result, nil
}

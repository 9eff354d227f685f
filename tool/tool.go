//
// Tencent is pleased to support the open source community by making graphflow available.
//
// Copyright (C) 2026 Tencent.  All rights reserved.
//
// graphflow is licensed under the Apache License Version 2.0.
//
//

// Package tool provides the tool capability interface and the name-keyed
// registry the engine dispatches through.
package tool

import (
	"context"
	"errors"
)

// Errors.
var (
	// ErrToolNotFound is returned when a tool name is not registered.
	ErrToolNotFound = errors.New("tool not found")
	// ErrInvalidResult is returned when a tool produces a nil result without
	// an error. A tool with nothing to report returns an empty map.
	ErrInvalidResult = errors.New("tool returned invalid result")
)

// Declaration describes the metadata of a tool.
type Declaration struct {
	// Name is the unique identifier of the tool.
	Name string `json:"name"`
	// Description explains the tool's purpose.
	Description string `json:"description,omitempty"`
}

// Tool is a named computation over run state.
type Tool interface {
	// Declaration returns the metadata describing the tool.
	Declaration() *Declaration
}

// CallableTool is a tool that can be invoked with the current run state.
// Call receives a private copy of the state and returns a partial update to
// merge back; it must not retain or mutate shared structures. Long-running
// tools block on ctx-aware I/O; there is no separate asynchronous variant,
// the signature already covers both.
type CallableTool interface {
	// Call invokes the tool. The returned map holds the keys to merge into
	// run state; returning an error fails the run.
	Call(ctx context.Context, state map[string]any) (map[string]any, error)

	Tool
}

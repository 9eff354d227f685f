//
// Tencent is pleased to support the open source community by making graphflow available.
//
// Copyright (C) 2026 Tencent.  All rights reserved.
//
// graphflow is licensed under the Apache License Version 2.0.
//
//

// Package function wraps plain Go functions as callable tools.
package function

import (
	"context"

	"github.com/THE-DEVIL-19/graphflow/tool"
)

// Func is the function signature a tool wraps: read the state, return a
// partial update.
type Func func(ctx context.Context, state map[string]any) (map[string]any, error)

// Tool implements tool.CallableTool for a plain function.
type Tool struct {
	name        string
	description string
	fn          Func
}

// Option is a function that configures a Tool.
type Option func(*Tool)

// WithName sets the name of the function tool.
func WithName(name string) Option {
	return func(t *Tool) {
		t.name = name
	}
}

// WithDescription sets the description of the function tool.
func WithDescription(description string) Option {
	return func(t *Tool) {
		t.description = description
	}
}

// NewTool creates a callable tool from fn.
func NewTool(fn Func, opts ...Option) *Tool {
	t := &Tool{fn: fn}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Declaration returns the metadata describing the tool.
func (t *Tool) Declaration() *tool.Declaration {
	return &tool.Declaration{Name: t.name, Description: t.description}
}

// Call invokes the wrapped function.
func (t *Tool) Call(ctx context.Context, state map[string]any) (map[string]any, error) {
	return t.fn(ctx, state)
}

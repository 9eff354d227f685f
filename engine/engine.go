//
// Tencent is pleased to support the open source community by making graphflow available.
//
// Copyright (C) 2026 Tencent.  All rights reserved.
//
// graphflow is licensed under the Apache License Version 2.0.
//
//

// Package engine drives workflow graph execution: it steps a run from node
// to node, invokes tools through the registry, merges state, resolves the
// next guarded edge and keeps the run record current in the run store.
package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.opentelemetry.io/otel/attribute"

	"github.com/THE-DEVIL-19/graphflow/graph"
	"github.com/THE-DEVIL-19/graphflow/log"
	"github.com/THE-DEVIL-19/graphflow/storage"
	"github.com/THE-DEVIL-19/graphflow/telemetry/trace"
	"github.com/THE-DEVIL-19/graphflow/tool"
)

const (
	// defaultMaxSteps bounds the number of tool executions in a run.
	defaultMaxSteps = 100
	// defaultWorkerPoolSize is the number of concurrently executing
	// submitted runs.
	defaultWorkerPoolSize = 64
)

// Engine executes graphs against the stores and registry it is constructed
// with. Within one run execution is strictly sequential; different runs are
// fully isolated and may progress concurrently.
type Engine struct {
	graphs   storage.GraphStore
	runs     storage.RunStore
	registry *tool.Registry
	maxSteps int
	pool     *ants.Pool
}

// Option is a function that configures an Engine.
type Option func(*Options)

// Options contains configuration options for creating an Engine.
type Options struct {
	// MaxSteps is the maximum number of tool executions per run.
	MaxSteps int
	// WorkerPoolSize is the size of the worker pool for submitted runs.
	WorkerPoolSize int
}

// WithMaxSteps sets the maximum number of tool executions per run. A run
// that still has a next edge after MaxSteps executions fails as a possible
// infinite loop.
func WithMaxSteps(maxSteps int) Option {
	return func(opts *Options) {
		opts.MaxSteps = maxSteps
	}
}

// WithWorkerPoolSize sets the worker pool size used by Submit.
func WithWorkerPoolSize(size int) Option {
	return func(opts *Options) {
		opts.WorkerPoolSize = size
	}
}

// New creates an engine over the given stores and tool registry.
func New(graphs storage.GraphStore, runs storage.RunStore, registry *tool.Registry, opts ...Option) (*Engine, error) {
	options := Options{
		MaxSteps:       defaultMaxSteps,
		WorkerPoolSize: defaultWorkerPoolSize,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.MaxSteps <= 0 {
		return nil, fmt.Errorf("max steps must be positive, got %d", options.MaxSteps)
	}
	pool, err := ants.NewPool(options.WorkerPoolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	return &Engine{
		graphs:   graphs,
		runs:     runs,
		registry: registry,
		maxSteps: options.MaxSteps,
		pool:     pool,
	}, nil
}

// Close releases the worker pool. Runs already submitted keep executing.
func (e *Engine) Close() {
	e.pool.Release()
}

// Run executes the graph synchronously from its start node until no next
// edge matches or the step budget is exhausted. An unknown graph id is the
// only error surfaced to the caller, and it is returned before any run
// record is created; every in-run problem terminates the run with a FAILED
// or CANCELLED status and a log entry instead.
func (e *Engine) Run(ctx context.Context, graphID string, initial graph.State) (*graph.RunState, error) {
	g, run, err := e.prepare(graphID, initial)
	if err != nil {
		return nil, err
	}
	return e.execute(ctx, g, run), nil
}

// Submit starts the run on the worker pool and returns its id immediately.
// Progress is observable through the run store; the submitted run is not
// bound to the caller's ctx cancellation.
func (e *Engine) Submit(ctx context.Context, graphID string, initial graph.State) (string, error) {
	g, run, err := e.prepare(graphID, initial)
	if err != nil {
		return "", err
	}
	runCtx := context.WithoutCancel(ctx)
	if err := e.pool.Submit(func() {
		e.execute(runCtx, g, run)
	}); err != nil {
		run.Status = graph.RunStatusFailed
		run.AppendLog(run.CurrentNodeID, fmt.Sprintf("Failed to schedule run: %v", err))
		e.putRun(run)
		return "", fmt.Errorf("failed to schedule run %s: %w", run.RunID, err)
	}
	return run.RunID, nil
}

// prepare resolves the graph and creates the initial run record. The record
// is stored before execution begins so pollers can observe the run from its
// first step.
func (e *Engine) prepare(graphID string, initial graph.State) (*graph.Graph, *graph.RunState, error) {
	g, err := e.graphs.Get(graphID)
	if err != nil {
		return nil, nil, err
	}
	run := graph.NewRunState(uuid.NewString(), g.ID(), g.StartNode(), initial)
	e.putRun(run)
	return g, run, nil
}

// execute is the step loop. Exactly one execute owns a RunState at a time.
func (e *Engine) execute(ctx context.Context, g *graph.Graph, run *graph.RunState) *graph.RunState {
	ctx, span := trace.Tracer.Start(ctx, "execute_graph")
	defer span.End()
	span.SetAttributes(
		attribute.String("graphflow.graph_id", g.ID()),
		attribute.String("graphflow.run_id", run.RunID),
	)

	steps := 0
	for ; steps < e.maxSteps && !run.Status.Terminal(); steps++ {
		if err := ctx.Err(); err != nil {
			run.Status = graph.RunStatusCancelled
			run.AppendLog(run.CurrentNodeID, fmt.Sprintf("Run cancelled: %v", err))
			break
		}
		e.step(ctx, g, run)
		e.putRun(run)
	}
	if !run.Status.Terminal() {
		// Budget exhausted with a next edge still pending.
		run.Status = graph.RunStatusFailed
		run.AppendLog(run.CurrentNodeID, "Max steps reached; aborting (possible infinite loop)")
		log.Warnf("run %s aborted after %d steps (possible infinite loop in graph %s)",
			run.RunID, steps, g.ID())
	}
	e.putRun(run)
	span.SetAttributes(
		attribute.String("graphflow.status", string(run.Status)),
		attribute.Int("graphflow.steps", steps),
	)
	return run
}

// step executes the current node and advances the run to its next node, or
// moves the run to a terminal status.
func (e *Engine) step(ctx context.Context, g *graph.Graph, run *graph.RunState) {
	node, ok := g.Node(run.CurrentNodeID)
	if !ok {
		run.Status = graph.RunStatusFailed
		run.AppendLog(run.CurrentNodeID,
			fmt.Sprintf("Node %q not found in graph", run.CurrentNodeID))
		return
	}

	update, err := e.registry.Run(ctx, node.Tool, run.State)
	if err != nil {
		run.Status = graph.RunStatusFailed
		run.AppendLog(node.ID, fmt.Sprintf("Tool %q failed: %v", node.Tool, err))
		return
	}
	run.State.Merge(update)
	run.AppendLog(node.ID, fmt.Sprintf("Executed tool %q", node.Tool))

	next := g.NextEdge(node.ID, run.State)
	if next == nil {
		run.Status = graph.RunStatusCompleted
		run.CurrentNodeID = ""
		return
	}
	run.CurrentNodeID = next.Target
}

func (e *Engine) putRun(run *graph.RunState) {
	if err := e.runs.Put(run); err != nil {
		log.Errorf("failed to store run %s: %v", run.RunID, err)
	}
}

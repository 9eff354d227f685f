//
// Tencent is pleased to support the open source community by making graphflow available.
//
// Copyright (C) 2026 Tencent.  All rights reserved.
//
// graphflow is licensed under the Apache License Version 2.0.
//
//

package engine_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/THE-DEVIL-19/graphflow/engine"
	"github.com/THE-DEVIL-19/graphflow/graph"
	"github.com/THE-DEVIL-19/graphflow/storage"
	"github.com/THE-DEVIL-19/graphflow/storage/inmemory"
	"github.com/THE-DEVIL-19/graphflow/tool"
	"github.com/THE-DEVIL-19/graphflow/tool/function"
)

func markerTool(name string) tool.CallableTool {
	return function.NewTool(
		func(_ context.Context, state map[string]any) (map[string]any, error) {
			return map[string]any{"visited_" + name: true}, nil
		},
		function.WithName(name))
}

func counterTool(name string) tool.CallableTool {
	return function.NewTool(
		func(_ context.Context, state map[string]any) (map[string]any, error) {
			count, _ := state["count"].(int)
			return map[string]any{"count": count + 1}, nil
		},
		function.WithName(name))
}

type fixture struct {
	graphs   *inmemory.GraphStore
	runs     *countingRunStore
	registry *tool.Registry
}

func newFixture() *fixture {
	return &fixture{
		graphs:   inmemory.NewGraphStore(),
		runs:     &countingRunStore{RunStore: inmemory.NewRunStore()},
		registry: tool.NewRegistry(),
	}
}

func (f *fixture) engine(t *testing.T, opts ...engine.Option) *engine.Engine {
	t.Helper()
	eng, err := engine.New(f.graphs, f.runs, f.registry, opts...)
	require.NoError(t, err)
	t.Cleanup(eng.Close)
	return eng
}

// countingRunStore counts upserts so tests can assert store visibility.
type countingRunStore struct {
	storage.RunStore
	puts atomic.Int64
}

func (s *countingRunStore) Put(run *graph.RunState) error {
	s.puts.Add(1)
	return s.RunStore.Put(run)
}

func linearGraph(t *testing.T, f *fixture) string {
	t.Helper()
	for _, name := range []string{"tool_a", "tool_b", "tool_c"} {
		f.registry.Register(markerTool(name))
	}
	g, err := graph.NewGraphBuilder("").
		AddNode("a", "tool_a", nil).
		AddNode("b", "tool_b", nil).
		AddNode("c", "tool_c", nil).
		AddEdge("a", "b").
		AddEdge("b", "c").
		SetEntryPoint("a").
		Compile()
	require.NoError(t, err)
	id, err := f.graphs.Put(g)
	require.NoError(t, err)
	return id
}

func TestRunLinearGraph(t *testing.T) {
	f := newFixture()
	graphID := linearGraph(t, f)
	eng := f.engine(t)

	run, err := eng.Run(context.Background(), graphID, graph.State{"input": "x"})
	require.NoError(t, err)

	require.Equal(t, graph.RunStatusCompleted, run.Status)
	require.Empty(t, run.CurrentNodeID)
	require.Len(t, run.Logs, 3)
	require.Equal(t, "a", run.Logs[0].NodeID)
	require.Equal(t, "b", run.Logs[1].NodeID)
	require.Equal(t, "c", run.Logs[2].NodeID)
	require.Equal(t, true, run.State["visited_tool_a"])
	require.Equal(t, true, run.State["visited_tool_b"])
	require.Equal(t, true, run.State["visited_tool_c"])
	require.Equal(t, "x", run.State["input"])

	// The final record must be observable through the run store.
	stored, err := f.runs.Get(run.RunID)
	require.NoError(t, err)
	require.Equal(t, graph.RunStatusCompleted, stored.Status)
	require.Len(t, stored.Logs, 3)
}

func TestRunUnknownGraph(t *testing.T) {
	f := newFixture()
	eng := f.engine(t)

	_, err := eng.Run(context.Background(), "no-such-graph", graph.State{})
	require.ErrorIs(t, err, storage.ErrGraphNotFound)
	require.Zero(t, f.runs.puts.Load(), "no run record may be created for an unknown graph")
}

func TestRunMergeIsRightBiased(t *testing.T) {
	f := newFixture()
	f.registry.Register(function.NewTool(
		func(_ context.Context, state map[string]any) (map[string]any, error) {
			return map[string]any{"x": 1}, nil
		},
		function.WithName("overwrite_x")))
	g, err := graph.NewGraphBuilder("").
		AddNode("only", "overwrite_x", nil).
		SetEntryPoint("only").
		Compile()
	require.NoError(t, err)
	graphID, err := f.graphs.Put(g)
	require.NoError(t, err)
	eng := f.engine(t)

	run, err := eng.Run(context.Background(), graphID, graph.State{"x": 0, "y": 2})
	require.NoError(t, err)
	require.Equal(t, graph.RunStatusCompleted, run.Status)
	require.Equal(t, 1, run.State["x"])
	require.Equal(t, 2, run.State["y"])
}

func selfLoopGraph(t *testing.T, f *fixture, guard string) string {
	t.Helper()
	f.registry.Register(counterTool("increment"))
	g, err := graph.NewGraphBuilder("").
		AddNode("loop", "increment", nil).
		AddConditionalEdge("loop", "loop", guard).
		SetEntryPoint("loop").
		Compile()
	require.NoError(t, err)
	id, err := f.graphs.Put(g)
	require.NoError(t, err)
	return id
}

func TestRunStepLimitAbortsLoop(t *testing.T) {
	f := newFixture()
	graphID := selfLoopGraph(t, f, "count < 1000")
	eng := f.engine(t, engine.WithMaxSteps(5))

	run, err := eng.Run(context.Background(), graphID, graph.State{})
	require.NoError(t, err)

	require.Equal(t, graph.RunStatusFailed, run.Status)
	// Exactly maxSteps tool executions, then one terminal abort entry.
	require.Len(t, run.Logs, 6)
	for i := 0; i < 5; i++ {
		require.Equal(t, "loop", run.Logs[i].NodeID)
		require.Equal(t, i+1, run.Logs[i].StateSnapshot["count"])
	}
	require.Contains(t, run.Logs[5].Message, "Max steps reached")
	require.Equal(t, 5, run.State["count"])
	require.Equal(t, "loop", run.CurrentNodeID)
}

func TestRunLoopWithExitCondition(t *testing.T) {
	f := newFixture()
	graphID := selfLoopGraph(t, f, "count < 3")
	eng := f.engine(t)

	run, err := eng.Run(context.Background(), graphID, graph.State{})
	require.NoError(t, err)

	require.Equal(t, graph.RunStatusCompleted, run.Status)
	require.Empty(t, run.CurrentNodeID)
	require.Len(t, run.Logs, 3)
	require.Equal(t, 3, run.State["count"])
}

func TestRunCompletesOnFinalBudgetedStep(t *testing.T) {
	// A run whose exit condition is met on the very last budgeted step
	// completes; the bound is inclusive.
	f := newFixture()
	graphID := selfLoopGraph(t, f, "count < 5")
	eng := f.engine(t, engine.WithMaxSteps(5))

	run, err := eng.Run(context.Background(), graphID, graph.State{})
	require.NoError(t, err)
	require.Equal(t, graph.RunStatusCompleted, run.Status)
	require.Len(t, run.Logs, 5)
}

func TestRunDeterminism(t *testing.T) {
	f := newFixture()
	graphID := selfLoopGraph(t, f, "count < 7")
	eng := f.engine(t)

	first, err := eng.Run(context.Background(), graphID, graph.State{"seed": 42})
	require.NoError(t, err)
	second, err := eng.Run(context.Background(), graphID, graph.State{"seed": 42})
	require.NoError(t, err)

	require.NotEqual(t, first.RunID, second.RunID)
	require.Equal(t, first.Status, second.Status)
	require.Equal(t, first.State, second.State)
	require.Len(t, second.Logs, len(first.Logs))
	for i := range first.Logs {
		require.Equal(t, first.Logs[i].NodeID, second.Logs[i].NodeID)
	}
}

func TestRunToolFailureTerminatesRun(t *testing.T) {
	f := newFixture()
	f.registry.Register(function.NewTool(
		func(_ context.Context, state map[string]any) (map[string]any, error) {
			return nil, errors.New("backend unavailable")
		},
		function.WithName("broken")))
	g, err := graph.NewGraphBuilder("").
		AddNode("only", "broken", nil).
		SetEntryPoint("only").
		Compile()
	require.NoError(t, err)
	graphID, err := f.graphs.Put(g)
	require.NoError(t, err)
	eng := f.engine(t)

	run, err := eng.Run(context.Background(), graphID, graph.State{})
	require.NoError(t, err, "in-run failures must not surface as errors")
	require.Equal(t, graph.RunStatusFailed, run.Status)
	require.Len(t, run.Logs, 1)
	require.Contains(t, run.Logs[0].Message, "backend unavailable")
}

func TestRunUnregisteredToolTerminatesRun(t *testing.T) {
	f := newFixture()
	g, err := graph.NewGraphBuilder("").
		AddNode("only", "never_registered", nil).
		SetEntryPoint("only").
		Compile()
	require.NoError(t, err)
	graphID, err := f.graphs.Put(g)
	require.NoError(t, err)
	eng := f.engine(t)

	run, err := eng.Run(context.Background(), graphID, graph.State{})
	require.NoError(t, err)
	require.Equal(t, graph.RunStatusFailed, run.Status)
	require.Contains(t, run.Logs[0].Message, "tool not found")
}

func TestRunNilToolResultTerminatesRun(t *testing.T) {
	f := newFixture()
	f.registry.Register(function.NewTool(
		func(_ context.Context, state map[string]any) (map[string]any, error) {
			return nil, nil
		},
		function.WithName("nil_result")))
	g, err := graph.NewGraphBuilder("").
		AddNode("only", "nil_result", nil).
		SetEntryPoint("only").
		Compile()
	require.NoError(t, err)
	graphID, err := f.graphs.Put(g)
	require.NoError(t, err)
	eng := f.engine(t)

	run, err := eng.Run(context.Background(), graphID, graph.State{})
	require.NoError(t, err)
	require.Equal(t, graph.RunStatusFailed, run.Status)
	require.Contains(t, run.Logs[0].Message, "invalid result")
}

func TestRunCancellation(t *testing.T) {
	f := newFixture()
	graphID := selfLoopGraph(t, f, "count < 1000")
	eng := f.engine(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	run, err := eng.Run(ctx, graphID, graph.State{})
	require.NoError(t, err)
	require.Equal(t, graph.RunStatusCancelled, run.Status)
	require.Len(t, run.Logs, 1)
	require.Contains(t, run.Logs[0].Message, "cancelled")
}

func TestRunPerStepVisibility(t *testing.T) {
	f := newFixture()
	graphID := linearGraph(t, f)
	eng := f.engine(t)

	run, err := eng.Run(context.Background(), graphID, graph.State{})
	require.NoError(t, err)
	require.Equal(t, graph.RunStatusCompleted, run.Status)
	// One upsert at creation, one per step, one final.
	require.GreaterOrEqual(t, f.runs.puts.Load(), int64(4))
}

func TestSubmit(t *testing.T) {
	f := newFixture()
	graphID := selfLoopGraph(t, f, "count < 10")
	eng := f.engine(t, engine.WithWorkerPoolSize(2))

	runID, err := eng.Submit(context.Background(), graphID, graph.State{})
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	require.Eventually(t, func() bool {
		run, err := f.runs.Get(runID)
		return err == nil && run.Status == graph.RunStatusCompleted
	}, 5*time.Second, 10*time.Millisecond)

	run, err := f.runs.Get(runID)
	require.NoError(t, err)
	require.Equal(t, 10, run.State["count"])
	require.Len(t, run.Logs, 10)
}

func TestSubmitUnknownGraph(t *testing.T) {
	f := newFixture()
	eng := f.engine(t)

	_, err := eng.Submit(context.Background(), "missing", graph.State{})
	require.ErrorIs(t, err, storage.ErrGraphNotFound)
	require.Zero(t, f.runs.puts.Load())
}

func TestConcurrentRunsAreIsolated(t *testing.T) {
	f := newFixture()
	graphID := selfLoopGraph(t, f, "count < 20")
	eng := f.engine(t, engine.WithWorkerPoolSize(8))

	ids := make([]string, 0, 8)
	for i := 0; i < 8; i++ {
		runID, err := eng.Submit(context.Background(), graphID,
			graph.State{"owner": fmt.Sprintf("run-%d", i)})
		require.NoError(t, err)
		ids = append(ids, runID)
	}

	require.Eventually(t, func() bool {
		for _, id := range ids {
			run, err := f.runs.Get(id)
			if err != nil || !run.Status.Terminal() {
				return false
			}
		}
		return true
	}, 10*time.Second, 10*time.Millisecond)

	for i, id := range ids {
		run, err := f.runs.Get(id)
		require.NoError(t, err)
		require.Equal(t, graph.RunStatusCompleted, run.Status)
		require.Equal(t, 20, run.State["count"])
		require.Equal(t, fmt.Sprintf("run-%d", i), run.State["owner"])
	}
}

func TestNewRejectsBadOptions(t *testing.T) {
	f := newFixture()
	_, err := engine.New(f.graphs, f.runs, f.registry, engine.WithMaxSteps(0))
	require.Error(t, err)
}

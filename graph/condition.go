//
// Tencent is pleased to support the open source community by making graphflow available.
//
// Copyright (C) 2026 Tencent.  All rights reserved.
//
// graphflow is licensed under the Apache License Version 2.0.
//
//

package graph

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/THE-DEVIL-19/graphflow/log"
)

// guardProgram is a compiled edge guard. Guards are expr-lang expressions
// evaluated with the run state as environment. Builtins are disabled and
// undefined state keys resolve to nil, so a guard can read state but never
// reach anything else: literals, comparisons, boolean and arithmetic
// operators, key and index lookups. Disabling builtins also keeps every
// bare identifier a state lookup; otherwise keys such as "count" or "len"
// would resolve to expr's builtin functions instead of run state.
type guardProgram struct {
	source  string
	program *vm.Program
}

// compileGuard compiles a guard expression, rejecting anything outside the
// restricted grammar before the graph is ever run.
func compileGuard(guard string) (*guardProgram, error) {
	program, err := expr.Compile(
		guard,
		expr.Env(map[string]any{}),
		expr.AllowUndefinedVariables(),
		expr.DisableAllBuiltins(),
		expr.AsBool(),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid guard %q: %w", guard, err)
	}
	return &guardProgram{source: guard, program: program}, nil
}

// eval runs the guard against the state. Any evaluation error counts as
// non-matching: a broken guard skips its edge, it never aborts the run.
func (p *guardProgram) eval(state State) bool {
	out, err := expr.Run(p.program, map[string]any(state))
	if err != nil {
		log.Debugf("guard %q evaluation failed, treating as false: %v", p.source, err)
		return false
	}
	matched, ok := out.(bool)
	if !ok {
		log.Debugf("guard %q returned %T, treating as false", p.source, out)
		return false
	}
	return matched
}

// Matches reports whether the edge is eligible given the state. Unguarded
// edges always match.
func (e *Edge) Matches(state State) bool {
	if e.program == nil {
		return true
	}
	return e.program.eval(state)
}

// NextEdge returns the first outgoing edge of the node whose guard evaluates
// true against the state, honoring declaration order. An unguarded edge is
// an unconditional default. Returns nil when no edge matches, which the
// engine treats as successful completion.
func (g *Graph) NextEdge(nodeID string, state State) *Edge {
	for _, edge := range g.edges[nodeID] {
		if edge.Matches(state) {
			return edge
		}
	}
	return nil
}

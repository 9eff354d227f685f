//
// Tencent is pleased to support the open source community by making graphflow available.
//
// Copyright (C) 2026 Tencent.  All rights reserved.
//
// graphflow is licensed under the Apache License Version 2.0.
//
//

// Package graph provides the workflow graph data model: nodes bound to named
// tools, guarded edges between them, and the run state that accumulates as a
// graph executes.
package graph

import (
	"fmt"
)

// Node is a unit of work bound to a named tool. Config is opaque to the
// engine and passed through to the tool untouched.
type Node struct {
	ID     string         `json:"id"`
	Tool   string         `json:"tool_name"`
	Config map[string]any `json:"config,omitempty"`
}

// Edge is a directed transition between two nodes. An empty Guard makes the
// edge unconditional; otherwise Guard holds an expression over run state,
// compiled once when the graph is built.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Guard  string `json:"condition,omitempty"`

	program *guardProgram
}

// Graph is the compiled, immutable form of a workflow definition.
// Build one through GraphBuilder; a Graph that exists has passed validation.
type Graph struct {
	id        string
	nodes     map[string]*Node
	nodeOrder []string
	// edges holds outgoing edges per source node, in declaration order.
	// Declaration order is load-bearing: condition evaluation picks the
	// first match.
	edges     map[string][]*Edge
	edgeOrder []*Edge
	startNode string
}

// ID returns the graph id.
func (g *Graph) ID() string { return g.id }

// StartNode returns the id of the entry node.
func (g *Graph) StartNode() string { return g.startNode }

// Node returns a node by id.
func (g *Graph) Node(id string) (*Node, bool) {
	node, ok := g.nodes[id]
	return node, ok
}

// Nodes returns the nodes in declaration order.
func (g *Graph) Nodes() []*Node {
	nodes := make([]*Node, 0, len(g.nodeOrder))
	for _, id := range g.nodeOrder {
		nodes = append(nodes, g.nodes[id])
	}
	return nodes
}

// Edges returns the outgoing edges of a node in declaration order.
func (g *Graph) Edges(nodeID string) []*Edge {
	return g.edges[nodeID]
}

// AllEdges returns every edge in declaration order.
func (g *Graph) AllEdges() []*Edge { return g.edgeOrder }

// GraphBuilder assembles a Graph. Zero value is not usable; create with
// NewGraphBuilder. Compile validates the structure and compiles guards, so
// malformed definitions are rejected before they can ever run.
type GraphBuilder struct {
	id        string
	nodes     []*Node
	edges     []*Edge
	startNode string
}

// NewGraphBuilder creates a builder for a graph with the given id. An empty
// id is allowed; stores assign one on Put.
func NewGraphBuilder(id string) *GraphBuilder {
	return &GraphBuilder{id: id}
}

// AddNode adds a node executing the named tool. Config may be nil.
func (b *GraphBuilder) AddNode(id, toolName string, config map[string]any) *GraphBuilder {
	b.nodes = append(b.nodes, &Node{ID: id, Tool: toolName, Config: config})
	return b
}

// AddEdge adds an unconditional edge. An unconditional edge acts as the
// default transition: it matches as soon as condition evaluation reaches it.
func (b *GraphBuilder) AddEdge(source, target string) *GraphBuilder {
	b.edges = append(b.edges, &Edge{Source: source, Target: target})
	return b
}

// AddConditionalEdge adds an edge guarded by an expression over run state,
// e.g. `quality_score < threshold`. The guard grammar is restricted to
// side-effect-free expressions; anything else fails Compile.
func (b *GraphBuilder) AddConditionalEdge(source, target, guard string) *GraphBuilder {
	b.edges = append(b.edges, &Edge{Source: source, Target: target, Guard: guard})
	return b
}

// SetEntryPoint sets the node execution starts from.
func (b *GraphBuilder) SetEntryPoint(nodeID string) *GraphBuilder {
	b.startNode = nodeID
	return b
}

// Compile validates the definition and returns the immutable Graph.
// It enforces that node ids are unique and non-empty, that the entry point
// and every edge endpoint reference existing nodes, and that every guard
// compiles under the restricted expression grammar.
func (b *GraphBuilder) Compile() (*Graph, error) {
	if len(b.nodes) == 0 {
		return nil, fmt.Errorf("graph must have at least one node")
	}
	g := &Graph{
		id:        b.id,
		nodes:     make(map[string]*Node, len(b.nodes)),
		edges:     make(map[string][]*Edge, len(b.nodes)),
		startNode: b.startNode,
	}
	for _, node := range b.nodes {
		if node.ID == "" {
			return nil, fmt.Errorf("node id cannot be empty")
		}
		if node.Tool == "" {
			return nil, fmt.Errorf("node %s has no tool name", node.ID)
		}
		if _, exists := g.nodes[node.ID]; exists {
			return nil, fmt.Errorf("duplicate node id %s", node.ID)
		}
		g.nodes[node.ID] = node
		g.nodeOrder = append(g.nodeOrder, node.ID)
	}
	if g.startNode == "" {
		return nil, fmt.Errorf("graph must have an entry point")
	}
	if _, ok := g.nodes[g.startNode]; !ok {
		return nil, fmt.Errorf("entry point node %s does not exist", g.startNode)
	}
	for _, edge := range b.edges {
		if _, ok := g.nodes[edge.Source]; !ok {
			return nil, fmt.Errorf("edge source node %s does not exist", edge.Source)
		}
		if _, ok := g.nodes[edge.Target]; !ok {
			return nil, fmt.Errorf("edge target node %s does not exist", edge.Target)
		}
		if edge.Guard != "" {
			program, err := compileGuard(edge.Guard)
			if err != nil {
				return nil, fmt.Errorf("edge %s -> %s: %w", edge.Source, edge.Target, err)
			}
			edge.program = program
		}
		g.edges[edge.Source] = append(g.edges[edge.Source], edge)
		g.edgeOrder = append(g.edgeOrder, edge)
	}
	return g, nil
}

// MustCompile is like Compile but panics on error. Intended for graphs
// defined in code, where a failure is a programming bug.
func (b *GraphBuilder) MustCompile() *Graph {
	g, err := b.Compile()
	if err != nil {
		panic(fmt.Sprintf("graph compile failed: %v", err))
	}
	return g
}

// WithID returns a shallow copy of the graph under a different id. Stores
// use it to bind a freshly minted id without mutating the caller's graph.
func (g *Graph) WithID(id string) *Graph {
	clone := *g
	clone.id = id
	return &clone
}

//
// Tencent is pleased to support the open source community by making graphflow available.
//
// Copyright (C) 2026 Tencent.  All rights reserved.
//
// graphflow is licensed under the Apache License Version 2.0.
//
//

// Package workflow provides the HTTP surface of the engine: graph creation,
// run execution and run polling.
package workflow

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/THE-DEVIL-19/graphflow/engine"
	"github.com/THE-DEVIL-19/graphflow/graph"
	"github.com/THE-DEVIL-19/graphflow/log"
	"github.com/THE-DEVIL-19/graphflow/storage"
)

// Server exposes the workflow REST endpoints over a mux router.
type Server struct {
	router *mux.Router
	graphs storage.GraphStore
	runs   storage.RunStore
	engine *engine.Engine
}

// New creates a server over the given stores and engine.
func New(graphs storage.GraphStore, runs storage.RunStore, eng *engine.Engine) *Server {
	s := &Server{
		router: mux.NewRouter(),
		graphs: graphs,
		runs:   runs,
		engine: eng,
	}
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	})
	s.router.Use(c.Handler)
	s.registerRoutes()
	return s
}

// Handler returns the http.Handler for the server.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/graphs", s.handleCreateGraph).Methods(http.MethodPost)
	s.router.HandleFunc("/graphs/{graphID}", s.handleGetGraph).Methods(http.MethodGet)
	s.router.HandleFunc("/graphs/{graphID}/runs", s.handleRunGraph).Methods(http.MethodPost)
	s.router.HandleFunc("/runs/{runID}", s.handleGetRun).Methods(http.MethodGet)
}

// ---- Request / response payloads ----------------------------------------

type nodePayload struct {
	ID     string         `json:"id"`
	Tool   string         `json:"tool_name"`
	Config map[string]any `json:"config,omitempty"`
}

type edgePayload struct {
	Source    string `json:"source"`
	Target    string `json:"target"`
	Condition string `json:"condition,omitempty"`
}

type createGraphRequest struct {
	Nodes       []nodePayload `json:"nodes"`
	Edges       []edgePayload `json:"edges"`
	StartNodeID string        `json:"start_node_id"`
}

type createGraphResponse struct {
	GraphID string `json:"graph_id"`
}

type graphResponse struct {
	ID          string        `json:"id"`
	Nodes       []nodePayload `json:"nodes"`
	Edges       []edgePayload `json:"edges"`
	StartNodeID string        `json:"start_node_id"`
}

type runGraphRequest struct {
	InitialState map[string]any `json:"initial_state"`
}

type submitResponse struct {
	RunID string `json:"run_id"`
}

type runResponse struct {
	RunID         string           `json:"run_id"`
	GraphID       string           `json:"graph_id"`
	Status        graph.RunStatus  `json:"status"`
	CurrentNodeID string           `json:"current_node_id,omitempty"`
	State         graph.State      `json:"state"`
	Logs          []graph.LogEntry `json:"logs"`
}

// ---- Handlers ------------------------------------------------------------

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{
		"message":          "graphflow workflow engine is running",
		"example_graph_id": "code_review_graph",
	})
}

func (s *Server) handleCreateGraph(w http.ResponseWriter, r *http.Request) {
	var req createGraphRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	builder := graph.NewGraphBuilder("")
	for _, n := range req.Nodes {
		builder.AddNode(n.ID, n.Tool, n.Config)
	}
	for _, e := range req.Edges {
		if e.Condition == "" {
			builder.AddEdge(e.Source, e.Target)
		} else {
			builder.AddConditionalEdge(e.Source, e.Target, e.Condition)
		}
	}
	builder.SetEntryPoint(req.StartNodeID)
	g, err := builder.Compile()
	if err != nil {
		http.Error(w, "invalid graph: "+err.Error(), http.StatusBadRequest)
		return
	}
	id, err := s.graphs.Put(g)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	log.Infof("created graph %s (%d nodes, %d edges)", id, len(req.Nodes), len(req.Edges))
	s.writeJSON(w, createGraphResponse{GraphID: id})
}

func (s *Server) handleGetGraph(w http.ResponseWriter, r *http.Request) {
	g, err := s.graphs.Get(mux.Vars(r)["graphID"])
	if err != nil {
		s.writeLookupError(w, err)
		return
	}
	resp := graphResponse{ID: g.ID(), StartNodeID: g.StartNode()}
	for _, n := range g.Nodes() {
		resp.Nodes = append(resp.Nodes, nodePayload{ID: n.ID, Tool: n.Tool, Config: n.Config})
	}
	for _, e := range g.AllEdges() {
		resp.Edges = append(resp.Edges, edgePayload{Source: e.Source, Target: e.Target, Condition: e.Guard})
	}
	s.writeJSON(w, resp)
}

func (s *Server) handleRunGraph(w http.ResponseWriter, r *http.Request) {
	graphID := mux.Vars(r)["graphID"]
	var req runGraphRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if r.URL.Query().Get("mode") == "async" {
		runID, err := s.engine.Submit(r.Context(), graphID, graph.State(req.InitialState))
		if err != nil {
			s.writeLookupError(w, err)
			return
		}
		s.writeJSON(w, submitResponse{RunID: runID})
		return
	}

	run, err := s.engine.Run(r.Context(), graphID, graph.State(req.InitialState))
	if err != nil {
		s.writeLookupError(w, err)
		return
	}
	s.writeJSON(w, runToResponse(run))
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.runs.Get(mux.Vars(r)["runID"])
	if err != nil {
		s.writeLookupError(w, err)
		return
	}
	s.writeJSON(w, runToResponse(run))
}

// ---- Helpers -------------------------------------------------------------

func runToResponse(run *graph.RunState) runResponse {
	logs := run.Logs
	if logs == nil {
		// A run polled before its first step still reports a JSON list.
		logs = []graph.LogEntry{}
	}
	return runResponse{
		RunID:         run.RunID,
		GraphID:       run.GraphID,
		Status:        run.Status,
		CurrentNodeID: run.CurrentNodeID,
		State:         run.State,
		Logs:          logs,
	}
}

// writeLookupError maps store misses to 404 and everything else to 500.
func (s *Server) writeLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrGraphNotFound) || errors.Is(err, storage.ErrRunNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

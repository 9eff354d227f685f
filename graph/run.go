//
// Tencent is pleased to support the open source community by making graphflow available.
//
// Copyright (C) 2026 Tencent.  All rights reserved.
//
// graphflow is licensed under the Apache License Version 2.0.
//
//

package graph

// RunStatus is the lifecycle state of a run.
type RunStatus string

// Run statuses. A run is terminal once it reaches Completed, Failed or
// Cancelled; its RunState is read-only from then on.
const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Terminal reports whether the status is a terminal one.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusFailed, RunStatusCancelled:
		return true
	}
	return false
}

// LogEntry records one step of a run: the node that executed, a message, and
// an independent snapshot of the state taken after the step's merge.
type LogEntry struct {
	NodeID        string `json:"node_id"`
	Message       string `json:"message,omitempty"`
	StateSnapshot State  `json:"state_snapshot"`
}

// RunState is one execution instance of a graph. It is owned and mutated by
// exactly one engine execution at a time; stores hand out clones so outside
// readers never alias the live record.
type RunState struct {
	RunID         string     `json:"run_id"`
	GraphID       string     `json:"graph_id"`
	Status        RunStatus  `json:"status"`
	CurrentNodeID string     `json:"current_node_id,omitempty"`
	State         State      `json:"state"`
	Logs          []LogEntry `json:"logs"`
}

// NewRunState creates a running RunState with a private deep copy of the
// caller-supplied initial state.
func NewRunState(runID, graphID, startNodeID string, initial State) *RunState {
	return &RunState{
		RunID:         runID,
		GraphID:       graphID,
		Status:        RunStatusRunning,
		CurrentNodeID: startNodeID,
		State:         initial.Clone(),
		Logs:          nil,
	}
}

// AppendLog appends a log entry with a deep-copied snapshot of the current
// state. The log is strictly ordered and append-only.
func (r *RunState) AppendLog(nodeID, message string) {
	r.Logs = append(r.Logs, LogEntry{
		NodeID:        nodeID,
		Message:       message,
		StateSnapshot: r.State.Clone(),
	})
}

// Clone returns a deep copy of the run state.
func (r *RunState) Clone() *RunState {
	clone := &RunState{
		RunID:         r.RunID,
		GraphID:       r.GraphID,
		Status:        r.Status,
		CurrentNodeID: r.CurrentNodeID,
		State:         r.State.Clone(),
	}
	if r.Logs != nil {
		clone.Logs = make([]LogEntry, len(r.Logs))
		for i, entry := range r.Logs {
			clone.Logs[i] = LogEntry{
				NodeID:        entry.NodeID,
				Message:       entry.Message,
				StateSnapshot: entry.StateSnapshot.Clone(),
			}
		}
	}
	return clone
}

//
// Tencent is pleased to support the open source community by making graphflow available.
//
// Copyright (C) 2026 Tencent.  All rights reserved.
//
// graphflow is licensed under the Apache License Version 2.0.
//
//

package graph

// State is the mutable key-value mapping that flows through a run.
// Tools read it and return partial updates; the engine is the sole writer.
type State map[string]any

// Clone returns a deep copy of the state. Nested maps and slices are copied
// recursively so a snapshot never changes when the live state does.
func (s State) Clone() State {
	if s == nil {
		return State{}
	}
	clone := make(State, len(s))
	for k, v := range s {
		clone[k] = deepCopyValue(v)
	}
	return clone
}

// Merge applies a partial update to the state, right-biased: keys present in
// update replace existing keys, all other keys are untouched.
func (s State) Merge(update map[string]any) {
	for k, v := range update {
		s[k] = deepCopyValue(v)
	}
}

func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(val))
		for k, item := range val {
			m[k] = deepCopyValue(item)
		}
		return m
	case State:
		m := make(map[string]any, len(val))
		for k, item := range val {
			m[k] = deepCopyValue(item)
		}
		return m
	case []any:
		cp := make([]any, len(val))
		for i, item := range val {
			cp[i] = deepCopyValue(item)
		}
		return cp
	case []string:
		cp := make([]string, len(val))
		copy(cp, val)
		return cp
	default:
		// Scalars and everything else copy by value. Pointer-typed values a
		// tool chooses to share are its own responsibility.
		return v
	}
}

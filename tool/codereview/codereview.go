//
// Tencent is pleased to support the open source community by making graphflow available.
//
// Copyright (C) 2026 Tencent.  All rights reserved.
//
// graphflow is licensed under the Apache License Version 2.0.
//
//

// Package codereview provides the sample "code review mini-agent" tools and
// the example graph that wires them into a refinement loop. The tools are
// naive string heuristics; they exist to exercise the engine, not to review
// code well.
package codereview

import (
	"context"
	"regexp"
	"strings"

	"github.com/THE-DEVIL-19/graphflow/graph"
	"github.com/THE-DEVIL-19/graphflow/tool"
	"github.com/THE-DEVIL-19/graphflow/tool/function"
)

// GraphID is the id the example graph is registered under.
const GraphID = "code_review_graph"

var functionPattern = regexp.MustCompile(`def\s+(\w+)\s*\(`)

// ExtractFunctions is a very naive function extractor: it looks for
// "def name(" patterns.
func ExtractFunctions(_ context.Context, state map[string]any) (map[string]any, error) {
	code, _ := state["code"].(string)
	var functions []any
	for _, match := range functionPattern.FindAllStringSubmatch(code, -1) {
		functions = append(functions, match[1])
	}
	return map[string]any{
		"functions":      functions,
		"function_count": len(functions),
	}, nil
}

// CheckComplexity is a naive complexity heuristic: it counts branching
// keyword occurrences.
func CheckComplexity(_ context.Context, state map[string]any) (map[string]any, error) {
	code, _ := state["code"].(string)
	complexity := strings.Count(code, "if ") +
		strings.Count(code, "for ") +
		strings.Count(code, "while ")
	return map[string]any{
		"complexity_score": complexity,
	}, nil
}

// DetectBasicIssues runs simple style and formatting checks.
func DetectBasicIssues(_ context.Context, state map[string]any) (map[string]any, error) {
	code, _ := state["code"].(string)
	var issues []any
	if strings.Contains(code, "\t") {
		issues = append(issues, "Contains tab characters; prefer spaces.")
	}
	if strings.HasSuffix(code, " ") {
		issues = append(issues, "File ends with trailing whitespace.")
	}
	if strings.Contains(code, "print(") && !strings.Contains(code, "logging") {
		issues = append(issues, "Uses print statements; consider using logging.")
	}
	return map[string]any{
		"issues":      issues,
		"issue_count": len(issues),
	}, nil
}

// SuggestImprovements builds suggestions and computes a crude quality score.
// Higher is better; the acceptance threshold is read from state["threshold"]
// by the example graph's loop guard.
func SuggestImprovements(_ context.Context, state map[string]any) (map[string]any, error) {
	var suggestions []any

	complexity := asInt(state["complexity_score"])
	issueCount := asInt(state["issue_count"])
	functionCount := asInt(state["function_count"])

	if complexity > 10 {
		suggestions = append(suggestions, "Break complex logic into smaller functions.")
	}
	if issueCount > 0 {
		suggestions = append(suggestions, "Address the reported style/formatting issues.")
	}
	if functionCount == 0 {
		suggestions = append(suggestions, "Consider structuring code into separate functions.")
	}

	// Start at 100 and subtract penalties.
	qualityScore := 100 - complexity*5 - issueCount*10
	if qualityScore < 0 {
		qualityScore = 0
	}
	return map[string]any{
		"suggestions":   suggestions,
		"quality_score": qualityScore,
	}, nil
}

// Register registers the sample tools.
func Register(registry *tool.Registry) {
	registry.Register(function.NewTool(ExtractFunctions,
		function.WithName("extract_functions"),
		function.WithDescription("Extracts function names from source code")))
	registry.Register(function.NewTool(CheckComplexity,
		function.WithName("check_complexity"),
		function.WithDescription("Counts branching keywords as a complexity score")))
	registry.Register(function.NewTool(DetectBasicIssues,
		function.WithName("detect_basic_issues"),
		function.WithDescription("Flags simple style and formatting issues")))
	registry.Register(function.NewTool(SuggestImprovements,
		function.WithName("suggest_improvements"),
		function.WithDescription("Builds suggestions and a quality score")))
}

// NewGraph builds the example graph: extract functions, check complexity,
// detect issues, suggest improvements, and loop back to the complexity check
// while the quality score stays under the threshold (default 80).
func NewGraph() *graph.Graph {
	return graph.NewGraphBuilder(GraphID).
		AddNode("extract", "extract_functions", nil).
		AddNode("complexity", "check_complexity", nil).
		AddNode("issues", "detect_basic_issues", nil).
		AddNode("suggest", "suggest_improvements", nil).
		AddEdge("extract", "complexity").
		AddEdge("complexity", "issues").
		AddEdge("issues", "suggest").
		AddConditionalEdge("suggest", "complexity",
			"(quality_score ?? 0) < (threshold ?? 80)").
		SetEntryPoint("extract").
		MustCompile()
}

func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

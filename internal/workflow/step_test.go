// ABOUTME: Tests for step reference parsing, validation, and argument resolution
// ABOUTME: Also pins the shape of the canned repository bootstrap flow

package workflow

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/topgunder/mcp-orchestrator/internal/mcp"
)

func TestParseRef(t *testing.T) {
	tests := []struct {
		input    string
		wantStep string
		wantPath string
		ok       bool
	}{
		{"$steps.create-repo.name", "create-repo", "name", true},
		{"$steps.pr.head.ref", "pr", "head.ref", true},
		{"plain value", "", "", false},
		{"$steps.", "", "", false},
		{"$steps.only-step", "", "", false},
		{"$stepscreate.name", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			ref, ok := parseRef(tt.input)
			if ok != tt.ok {
				t.Fatalf("parseRef(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if !ok {
				return
			}
			if ref.step != tt.wantStep {
				t.Errorf("step = %q, want %q", ref.step, tt.wantStep)
			}
			if got := joinPath(ref.path); got != tt.wantPath {
				t.Errorf("path = %q, want %q", got, tt.wantPath)
			}
		})
	}
}

func joinPath(path []string) string {
	out := ""
	for i, p := range path {
		if i > 0 {
			out += "."
		}
		out += p
	}
	return out
}

func TestResolveArgs_NestedFields(t *testing.T) {
	outputs := map[string]map[string]any{
		"open-pr": {
			"number": float64(7),
			"head":   map[string]any{"ref": "feature/x"},
		},
	}
	args := map[string]any{
		"pr":     "$steps.open-pr.number",
		"branch": "$steps.open-pr.head.ref",
		"static": "unchanged",
		"count":  3,
	}

	resolved, err := resolveArgs(args, outputs)
	if err != nil {
		t.Fatalf("resolveArgs: %v", err)
	}
	if resolved["pr"] != float64(7) {
		t.Errorf("pr = %v", resolved["pr"])
	}
	if resolved["branch"] != "feature/x" {
		t.Errorf("branch = %v", resolved["branch"])
	}
	if resolved["static"] != "unchanged" || resolved["count"] != 3 {
		t.Errorf("non-reference args altered: %v", resolved)
	}
}

func TestResolveArgs_MissingField(t *testing.T) {
	outputs := map[string]map[string]any{"a": {"name": "demo"}}

	if _, err := resolveArgs(map[string]any{"v": "$steps.a.missing"}, outputs); err == nil {
		t.Error("expected error for missing field")
	}
	if _, err := resolveArgs(map[string]any{"v": "$steps.a.name.deeper"}, outputs); err == nil {
		t.Error("expected error for traversing a non-object")
	}
	if _, err := resolveArgs(map[string]any{"v": "$steps.ghost.name"}, outputs); err == nil {
		t.Error("expected error for unknown step")
	}
}

func TestValidate_SelfReferenceInCompensation(t *testing.T) {
	steps := []Step{
		{
			Name: "make-repo", Toolset: "repos", Tool: "create_repository",
			Compensate: &Compensation{
				Toolset: "repos", Tool: "delete_repository",
				Args: map[string]any{"repo": "$steps.make-repo.name"},
			},
		},
	}
	if err := Validate(steps); err != nil {
		t.Errorf("self reference in compensation should be legal: %v", err)
	}
}

func TestRepoFlow_StepsValidateAndRun(t *testing.T) {
	flow := RepoFlow{Owner: "topgunder", Repo: "mcp-demo-repo"}
	steps := flow.Steps()

	if err := Validate(steps); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(steps) != 5 {
		t.Fatalf("steps = %d, want 5", len(steps))
	}
	wantTools := []string{
		"create_repository", "create_or_update_file", "create_branch",
		"create_or_update_file", "create_pull_request",
	}
	for i, want := range wantTools {
		if steps[i].Tool != want {
			t.Errorf("step %d tool = %q, want %q", i, steps[i].Tool, want)
		}
	}

	inv := &fakeInvoker{handler: func(tool string, args map[string]any) (mcp.ToolResult, error) {
		if tool == "create_repository" {
			return textResult(fmt.Sprintf(`{"name":%q}`, args["name"])), nil
		}
		if repo, ok := args["repo"]; !ok || repo != "mcp-demo-repo" {
			return mcp.ToolResult{}, fmt.Errorf("tool %s got repo %v", tool, repo)
		}
		return textResult(`{"repo":"mcp-demo-repo"}`), nil
	}}

	res, err := NewRunner(inv, time.Second).Run(context.Background(), steps)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Status != StatusComplete {
		t.Errorf("status = %q (failed step %q: %v)", res.Status, res.FailedName, res.Err)
	}
	if len(res.Outcomes) != 5 {
		t.Errorf("outcomes = %d, want 5", len(res.Outcomes))
	}
}

func TestRepoFlow_Defaults(t *testing.T) {
	steps := RepoFlow{Owner: "me", Repo: "demo"}.Steps()

	branchStep := steps[2]
	if branchStep.Args["branch"] != "feature/bootstrap" {
		t.Errorf("default branch = %v", branchStep.Args["branch"])
	}
	prStep := steps[4]
	if prStep.Args["head"] != "feature/bootstrap" || prStep.Args["base"] != "main" {
		t.Errorf("pr head/base = %v/%v", prStep.Args["head"], prStep.Args["base"])
	}
}

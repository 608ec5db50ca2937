// ABOUTME: Plain-text renderers for workflow results, tool lists, and toolsets
// ABOUTME: Returns strings so commands can print to any writer

package ui

import (
	"fmt"
	"strings"

	"github.com/topgunder/mcp-orchestrator/internal/mcp"
	"github.com/topgunder/mcp-orchestrator/internal/workflow"
)

// RenderResult formats a workflow run for the terminal: one line per
// completed step, then the failure (if any) and the overall status.
func RenderResult(name string, res workflow.Result) string {
	var b strings.Builder

	fmt.Fprintln(&b, HeaderStyle.Render("workflow "+name))
	for _, out := range res.Outcomes {
		icon := PassStyle.Render(IconPass)
		note := ""
		if out.Compensated {
			icon = WarnStyle.Render(IconUndo)
			note = MutedStyle.Render("  (compensated)")
		} else if out.CompensateErr != nil {
			icon = WarnStyle.Render(IconUndo)
			note = FailStyle.Render(fmt.Sprintf("  (compensation failed: %v)", out.CompensateErr))
		}
		fmt.Fprintf(&b, "  %s %s%s\n", icon, out.Step, note)
	}
	if res.Err != nil {
		fmt.Fprintf(&b, "  %s %s: %v\n", FailStyle.Render(IconFail), res.FailedName, res.Err)
	}

	status := string(res.Status)
	switch res.Status {
	case workflow.StatusComplete:
		status = PassStyle.Render(status)
	case workflow.StatusAborted:
		status = WarnStyle.Render(status)
	default:
		status = FailStyle.Render(status)
	}
	fmt.Fprintf(&b, "status: %s\n", status)
	return b.String()
}

// RenderTools formats a tool listing, one tool per line.
func RenderTools(tools []mcp.Tool) string {
	var b strings.Builder
	fmt.Fprintln(&b, HeaderStyle.Render(fmt.Sprintf("%d tools", len(tools))))
	for _, t := range tools {
		fmt.Fprintf(&b, "  %s", t.Name)
		if t.Description != "" {
			fmt.Fprintf(&b, "  %s", MutedStyle.Render(firstLine(t.Description)))
		}
		fmt.Fprintln(&b)
	}
	return b.String()
}

// RenderToolsets formats the available toolsets with their enablement state.
func RenderToolsets(sets []mcp.ToolsetInfo) string {
	var b strings.Builder
	fmt.Fprintln(&b, HeaderStyle.Render(fmt.Sprintf("%d toolsets", len(sets))))
	for _, ts := range sets {
		icon := MutedStyle.Render(IconSkip)
		if ts.Enabled {
			icon = PassStyle.Render(IconPass)
		}
		fmt.Fprintf(&b, "  %s %s", icon, ts.Name)
		if ts.Description != "" {
			fmt.Fprintf(&b, "  %s", MutedStyle.Render(firstLine(ts.Description)))
		}
		fmt.Fprintln(&b)
	}
	return b.String()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

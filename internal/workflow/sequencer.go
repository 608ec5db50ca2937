// ABOUTME: Ordered workflow execution with partial-failure semantics and compensation
// ABOUTME: Halts on first failure, compensates completed steps most-recent-first

package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/topgunder/mcp-orchestrator/internal/log"
	"github.com/topgunder/mcp-orchestrator/internal/mcp"
)

// Status is the overall disposition of a workflow run.
type Status string

const (
	// StatusComplete means every step succeeded.
	StatusComplete Status = "complete"
	// StatusPartial means a step failed and at least the completed outputs
	// stand; compensation was absent, partial, or itself failed.
	StatusPartial Status = "partially-completed"
	// StatusAborted means a step failed and every configured compensation
	// for the completed steps succeeded.
	StatusAborted Status = "aborted"
)

// Outcome records one successfully completed step.
type Outcome struct {
	Step   string
	Output map[string]any
	// Compensated is set when the workflow halted later and this step's
	// compensating action ran cleanly; CompensateErr records a best-effort
	// compensation failure without masking the original error.
	Compensated   bool
	CompensateErr error
}

// Result describes exactly which steps succeeded and why the run stopped.
type Result struct {
	Status     Status
	Outcomes   []Outcome
	FailedStep int    // index of the failing step, -1 when complete
	FailedName string // name of the failing step, "" when complete
	Err        error  // the failing step's reason, nil when complete
}

// Invoker dispatches one tool call gated on its toolset. ToolsetManager
// implements it; tests substitute scripted fakes.
type Invoker interface {
	Invoke(ctx context.Context, toolset, tool string, args map[string]any) (mcp.ToolResult, error)
}

const defaultStepTimeout = 30 * time.Second

// Runner executes workflows one at a time per instance. Independent runners
// may share one Invoker concurrently.
type Runner struct {
	invoker     Invoker
	stepTimeout time.Duration
}

// NewRunner creates a runner; stepTimeout <= 0 selects the default.
func NewRunner(inv Invoker, stepTimeout time.Duration) *Runner {
	if stepTimeout <= 0 {
		stepTimeout = defaultStepTimeout
	}
	return &Runner{invoker: inv, stepTimeout: stepTimeout}
}

// Run executes the steps in order. A non-nil error reports a configuration
// problem found before execution began; step failures are never returned as
// errors, they are described by the Result.
func (r *Runner) Run(ctx context.Context, steps []Step) (Result, error) {
	if err := Validate(steps); err != nil {
		return Result{}, err
	}

	res := Result{Status: StatusComplete, FailedStep: -1}
	if len(steps) == 0 {
		res.Outcomes = []Outcome{}
		return res, nil
	}

	outputs := make(map[string]map[string]any, len(steps))
	for i, step := range steps {
		args, err := resolveArgs(step.Args, outputs)
		if err != nil {
			// Fatal configuration error, reported before any network
			// interaction for this step.
			r.halt(&res, steps, outputs, i, step.Name, err)
			return res, nil
		}

		out, err := r.invokeStep(ctx, step, args)
		if err != nil {
			log.Warn("workflow: step %q failed: %v", step.Name, err)
			r.halt(&res, steps, outputs, i, step.Name, err)
			return res, nil
		}

		log.Debug("workflow: step %q complete", step.Name)
		outputs[step.Name] = out
		res.Outcomes = append(res.Outcomes, Outcome{Step: step.Name, Output: out})
	}
	return res, nil
}

// halt records the failure and runs compensation for completed steps in
// reverse completion order. Compensation failures are recorded on the
// outcome and never mask the original failure.
func (r *Runner) halt(res *Result, steps []Step, outputs map[string]map[string]any, failedIdx int, failedName string, cause error) {
	res.Status = StatusPartial
	res.FailedStep = failedIdx
	res.FailedName = failedName
	res.Err = cause

	compensated := 0
	failedComp := false
	for j := len(res.Outcomes) - 1; j >= 0; j-- {
		comp := steps[j].Compensate
		if comp == nil {
			continue
		}
		if err := r.compensate(comp, outputs); err != nil {
			log.Warn("workflow: compensating %q failed: %v", steps[j].Name, err)
			res.Outcomes[j].CompensateErr = err
			failedComp = true
			continue
		}
		res.Outcomes[j].Compensated = true
		compensated++
	}
	if compensated > 0 && !failedComp {
		res.Status = StatusAborted
	}
}

func (r *Runner) compensate(comp *Compensation, outputs map[string]map[string]any) error {
	args, err := resolveArgs(comp.Args, outputs)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.stepTimeout)
	defer cancel()
	_, err = r.invoker.Invoke(ctx, comp.Toolset, comp.Tool, args)
	return err
}

// invokeStep dispatches one step, retrying timeouts up to step.Retries extra
// attempts with exponential backoff. Each step gets a fresh backoff.
func (r *Runner) invokeStep(ctx context.Context, step Step, args map[string]any) (map[string]any, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond

	var lastErr error
	for attempt := 0; attempt <= step.Retries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, r.stepTimeout)
		out, err := r.invoker.Invoke(callCtx, step.Toolset, step.Tool, args)
		cancel()
		if err == nil {
			return decodeOutput(out), nil
		}
		lastErr = err

		var te *mcp.TimeoutError
		if !errors.As(err, &te) {
			break
		}
		if attempt == step.Retries {
			break
		}
		wait := bo.NextBackOff()
		if wait == backoff.Stop {
			break
		}
		log.Info("workflow: step %q timed out, retrying in %s", step.Name, wait)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, lastErr
		}
	}
	return nil, lastErr
}

// decodeOutput turns a tool result into a field-addressable output map.
// GitHub MCP tools return a JSON object double-encoded in the text item;
// anything else is kept verbatim under "text".
func decodeOutput(res mcp.ToolResult) map[string]any {
	var out map[string]any
	if err := res.DecodeText(&out); err == nil {
		return out
	}
	return map[string]any{"text": res.Text()}
}

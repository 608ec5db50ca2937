// ABOUTME: Workflow step definitions and inter-step output references
// ABOUTME: String args of the form $steps.<name>.<field.path> resolve against prior outputs

package workflow

import (
	"fmt"
	"strings"
)

// refPrefix marks an argument value that resolves against a prior step's
// recorded output, e.g. "$steps.create-repo.name".
const refPrefix = "$steps."

// Step is one tool invocation in a workflow. Steps run strictly in declared
// order; Args string values may reference outputs of earlier steps.
type Step struct {
	Name       string         `yaml:"name"`
	Toolset    string         `yaml:"toolset"`
	Tool       string         `yaml:"tool"`
	Args       map[string]any `yaml:"args"`
	Compensate *Compensation  `yaml:"compensate,omitempty"`
	// Retries is the number of extra attempts after a timeout. Only
	// timeouts retry; server-reported errors fail the step immediately.
	Retries int `yaml:"retries,omitempty"`
}

// Compensation undoes a completed step when a later step halts the workflow.
// Its args may reference any step completed so far, including its own.
type Compensation struct {
	Toolset string         `yaml:"toolset"`
	Tool    string         `yaml:"tool"`
	Args    map[string]any `yaml:"args"`
}

// reference is a parsed $steps.<step>.<field.path> value.
type reference struct {
	step string
	path []string
}

func parseRef(v string) (reference, bool) {
	if !strings.HasPrefix(v, refPrefix) {
		return reference{}, false
	}
	parts := strings.Split(strings.TrimPrefix(v, refPrefix), ".")
	if len(parts) < 2 || parts[0] == "" {
		return reference{}, false
	}
	return reference{step: parts[0], path: parts[1:]}, true
}

// Validate checks step names are unique and every reference points to an
// earlier step. Field existence can only be checked once outputs exist, so
// that happens at resolution time, still before that step's network call.
func Validate(steps []Step) error {
	seen := make(map[string]bool, len(steps))
	for i, step := range steps {
		if step.Name == "" {
			return fmt.Errorf("step %d has no name", i)
		}
		if seen[step.Name] {
			return fmt.Errorf("duplicate step name %q", step.Name)
		}
		if step.Tool == "" {
			return fmt.Errorf("step %q has no tool", step.Name)
		}
		if err := validateRefs(step.Args, seen, step.Name); err != nil {
			return err
		}
		seen[step.Name] = true
		// Compensation runs after its own step completed, so a self
		// reference is legal there.
		if step.Compensate != nil {
			if err := validateRefs(step.Compensate.Args, seen, step.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateRefs(args map[string]any, completed map[string]bool, stepName string) error {
	for key, v := range args {
		s, ok := v.(string)
		if !ok {
			continue
		}
		ref, ok := parseRef(s)
		if !ok {
			continue
		}
		if !completed[ref.step] {
			return fmt.Errorf("step %q arg %q references %q, which does not run before it", stepName, key, ref.step)
		}
	}
	return nil
}

// resolveArgs replaces reference values with fields from recorded outputs.
// A reference to a field absent from its step's output is fatal and reported
// before any network interaction for the step.
func resolveArgs(args map[string]any, outputs map[string]map[string]any) (map[string]any, error) {
	if len(args) == 0 {
		return map[string]any{}, nil
	}
	resolved := make(map[string]any, len(args))
	for key, v := range args {
		s, ok := v.(string)
		if !ok {
			resolved[key] = v
			continue
		}
		ref, ok := parseRef(s)
		if !ok {
			resolved[key] = v
			continue
		}
		out, ok := outputs[ref.step]
		if !ok {
			return nil, fmt.Errorf("arg %q references step %q, which has no recorded output", key, ref.step)
		}
		val, err := lookupPath(out, ref.path)
		if err != nil {
			return nil, fmt.Errorf("arg %q: step %q output %w", key, ref.step, err)
		}
		resolved[key] = val
	}
	return resolved, nil
}

func lookupPath(out map[string]any, path []string) (any, error) {
	var cur any = out
	for i, field := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("has no object at %q", strings.Join(path[:i], "."))
		}
		cur, ok = m[field]
		if !ok {
			return nil, fmt.Errorf("has no field %q", strings.Join(path[:i+1], "."))
		}
	}
	return cur, nil
}

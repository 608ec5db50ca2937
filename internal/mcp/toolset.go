// ABOUTME: Toolset activation state machine gating tool calls behind enable_toolset
// ABOUTME: Concurrent activations for one toolset collapse into a single in-flight request

package mcp

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/topgunder/mcp-orchestrator/internal/log"
)

// ToolsetState tracks activation of one named toolset.
type ToolsetState int

const (
	ToolsetUnknown ToolsetState = iota
	ToolsetEnabling
	ToolsetEnabled
	ToolsetDisabled
)

func (s ToolsetState) String() string {
	switch s {
	case ToolsetEnabling:
		return "enabling"
	case ToolsetEnabled:
		return "enabled"
	case ToolsetDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// ToolsetManager gates tool invocations behind toolset activation. State
// moves to enabled only on a confirmed enable_toolset acknowledgement.
type ToolsetManager struct {
	client *Client

	mu     sync.Mutex
	states map[string]ToolsetState
	flight singleflight.Group
}

// NewToolsetManager wraps a client with toolset activation tracking.
func NewToolsetManager(c *Client) *ToolsetManager {
	return &ToolsetManager{
		client: c,
		states: make(map[string]ToolsetState),
	}
}

// Client returns the underlying RPC client for ungated calls.
func (m *ToolsetManager) Client() *Client {
	return m.client
}

// State returns the tracked activation state for a toolset name.
func (m *ToolsetManager) State(name string) ToolsetState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[name]
}

func (m *ToolsetManager) setState(name string, s ToolsetState) {
	m.mu.Lock()
	m.states[name] = s
	m.mu.Unlock()
}

// EnsureEnabled issues enable_toolset unless the toolset is already enabled.
// Concurrent callers for the same name wait on one in-flight activation
// instead of re-issuing it.
func (m *ToolsetManager) EnsureEnabled(ctx context.Context, name string) error {
	if m.State(name) == ToolsetEnabled {
		return nil
	}

	_, err, _ := m.flight.Do(name, func() (any, error) {
		if m.State(name) == ToolsetEnabled {
			return nil, nil
		}
		m.setState(name, ToolsetEnabling)

		res, err := m.client.CallTool(ctx, "enable_toolset", map[string]any{"toolset": name})
		if err != nil {
			// A definitive server rejection means the toolset is known and
			// off; transient failures leave it unknown for a later retry.
			var rpcErr *RPCError
			if errors.As(err, &rpcErr) {
				m.setState(name, ToolsetDisabled)
			} else {
				m.setState(name, ToolsetUnknown)
			}
			return nil, err
		}
		if res.IsError {
			m.setState(name, ToolsetDisabled)
			return nil, &RPCError{Code: CodeToolError, Message: res.Text()}
		}

		m.setState(name, ToolsetEnabled)
		log.Debug("mcp: toolset %q enabled", name)
		return nil, nil
	})
	if err != nil {
		return &ToolsetError{Toolset: name, Err: err}
	}
	return nil
}

// Invoke ensures the toolset is enabled, then calls the tool. This is the
// only path workflow steps use to reach toolset-scoped tools. A tool result
// flagged isError is surfaced as an *RPCError alongside the raw result.
func (m *ToolsetManager) Invoke(ctx context.Context, toolset, tool string, args map[string]any) (ToolResult, error) {
	if err := m.EnsureEnabled(ctx, toolset); err != nil {
		return ToolResult{}, err
	}
	res, err := m.client.CallTool(ctx, tool, args)
	if err != nil {
		return ToolResult{}, err
	}
	if res.IsError {
		return res, &RPCError{Code: CodeToolError, Message: res.Text()}
	}
	return res, nil
}

// ListToolsets asks the server for every toolset it knows about. The dynamic
// toolset tools return their payload double-encoded in the text item.
func (m *ToolsetManager) ListToolsets(ctx context.Context) ([]ToolsetInfo, error) {
	res, err := m.client.CallTool(ctx, "list_available_toolsets", nil)
	if err != nil {
		return nil, err
	}
	if res.IsError {
		return nil, &RPCError{Code: CodeToolError, Message: res.Text()}
	}
	var toolsets []ToolsetInfo
	if err := res.DecodeText(&toolsets); err != nil {
		return nil, fmt.Errorf("list_available_toolsets: %w", err)
	}
	return toolsets, nil
}

// ToolsetTools lists the tools belonging to one toolset.
func (m *ToolsetManager) ToolsetTools(ctx context.Context, name string) ([]Tool, error) {
	res, err := m.client.CallTool(ctx, "get_toolset_tools", map[string]any{"toolset": name})
	if err != nil {
		return nil, err
	}
	if res.IsError {
		return nil, &RPCError{Code: CodeToolError, Message: res.Text()}
	}
	var tools []Tool
	if err := res.DecodeText(&tools); err != nil {
		return nil, fmt.Errorf("get_toolset_tools %q: %w", name, err)
	}
	return tools, nil
}

// ABOUTME: Error taxonomy for the orchestrator: launch, transport, timeout, toolset failures
// ABOUTME: All types support errors.Is/As; RPCError (server-reported) lives in wire.go

package mcp

import (
	"context"
	"fmt"
	"time"
)

// LaunchError reports that the server process could not be spawned.
// Fatal to the client instance.
type LaunchError struct {
	Command string
	Err     error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launching %q: %v", e.Command, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// TransportError reports a pipe or process failure mid-session. All pending
// calls resolve with it, and subsequent calls fail immediately until a new
// client is started.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// TimeoutError reports that no response arrived within the call deadline.
// The call's pending entry is removed; a late response is discarded.
type TimeoutError struct {
	Method  string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	if e.Timeout > 0 {
		return fmt.Sprintf("call %q timed out after %s", e.Method, e.Timeout)
	}
	return fmt.Sprintf("call %q timed out", e.Method)
}

// Unwrap makes errors.Is(err, context.DeadlineExceeded) hold.
func (e *TimeoutError) Unwrap() error { return context.DeadlineExceeded }

// ToolsetError reports a failed enable_toolset handshake. Dependent tool
// calls are blocked until activation succeeds.
type ToolsetError struct {
	Toolset string
	Err     error
}

func (e *ToolsetError) Error() string {
	return fmt.Sprintf("enabling toolset %q: %v", e.Toolset, e.Err)
}

func (e *ToolsetError) Unwrap() error { return e.Err }

// ABOUTME: JSON-RPC client: id assignment, pending-call correlation, background read loop
// ABOUTME: Concurrent callers share one transport; responses match purely by id

package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/topgunder/mcp-orchestrator/internal/log"
)

// LineTransport is the framed byte stream the client speaks JSON-RPC over.
// StdioTransport implements it; tests substitute in-memory pipes.
type LineTransport interface {
	WriteLine(frame []byte) error
	ReadLine() ([]byte, error)
	Alive() bool
	Terminate(grace time.Duration) error
}

const terminateGrace = 3 * time.Second

// Client correlates JSON-RPC responses to concurrent callers by id.
// The pending table is the only state shared between the issuing paths and
// the read loop; each call's channel is buffered so the loop never blocks.
type Client struct {
	transport LineTransport

	mu      sync.Mutex
	pending map[int64]chan *Response
	failed  error

	nextID atomic.Int64
	down   chan struct{}

	closeOnce sync.Once
}

// NewClient starts the background read loop over the given transport.
func NewClient(t LineTransport) *Client {
	c := &Client{
		transport: t,
		pending:   make(map[int64]chan *Response),
		down:      make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// Call sends a request and blocks until the matching response arrives or ctx
// expires. Returns the result payload, or *RPCError (server-reported),
// *TimeoutError (deadline hit), or *TransportError (pipe/process failure).
func (c *Client) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	// An already-elapsed deadline never reaches the write path.
	if err := ctx.Err(); err != nil {
		return nil, c.ctxErr(ctx, method)
	}

	c.mu.Lock()
	if c.failed != nil {
		err := c.failed
		c.mu.Unlock()
		return nil, err
	}
	id := c.nextID.Add(1)
	ch := make(chan *Response, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	req := Request{JSONRPC: jsonRPCVersion, ID: id, Method: method}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			c.remove(id)
			return nil, fmt.Errorf("marshaling params for %q: %w", method, err)
		}
		req.Params = raw
	}
	frame, err := json.Marshal(req)
	if err != nil {
		c.remove(id)
		return nil, fmt.Errorf("marshaling request %q: %w", method, err)
	}

	if err := c.transport.WriteLine(frame); err != nil {
		c.remove(id)
		return nil, &TransportError{Err: err}
	}

	select {
	case resp := <-ch:
		if resp.Error != nil {
			return nil, resp.Error
		}
		return resp.Result, nil
	case <-ctx.Done():
		c.remove(id)
		// A racing response may already be buffered; prefer it over the
		// deadline so the call resolves exactly once with the real result.
		select {
		case resp := <-ch:
			if resp.Error != nil {
				return nil, resp.Error
			}
			return resp.Result, nil
		default:
		}
		return nil, c.ctxErr(ctx, method)
	case <-c.down:
		c.mu.Lock()
		err := c.failed
		c.mu.Unlock()
		return nil, err
	}
}

// CallTool invokes a named tool through the tools/call meta-method.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (ToolResult, error) {
	if args == nil {
		args = map[string]any{}
	}
	raw, err := c.Call(ctx, "tools/call", map[string]any{
		"name":      name,
		"arguments": args,
	})
	if err != nil {
		return ToolResult{}, err
	}
	var result ToolResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return ToolResult{}, fmt.Errorf("parsing result of tool %q: %w", name, err)
	}
	return result, nil
}

// ListTools requests the server's tool list.
func (c *Client) ListTools(ctx context.Context) ([]Tool, error) {
	raw, err := c.Call(ctx, "tools/list", nil)
	if err != nil {
		return nil, err
	}
	var result struct {
		Tools []Tool `json:"tools"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("parsing tools list: %w", err)
	}
	return result.Tools, nil
}

// Alive reports whether the underlying transport still has a live process.
func (c *Client) Alive() bool {
	c.mu.Lock()
	failed := c.failed != nil
	c.mu.Unlock()
	return !failed && c.transport.Alive()
}

// Close fails all pending calls and terminates the server process.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.fail(&TransportError{Err: errors.New("client closed")})
		err = c.transport.Terminate(terminateGrace)
	})
	return err
}

func (c *Client) ctxErr(ctx context.Context, method string) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &TimeoutError{Method: method}
	}
	return ctx.Err()
}

// remove drops a pending entry; the entry may already be gone if the read
// loop matched it first. Lookup and delete share one critical section so a
// call can never be resolved twice.
func (c *Client) remove(id int64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// fail resolves every pending call with err and rejects future calls.
func (c *Client) fail(err error) {
	c.mu.Lock()
	if c.failed != nil {
		c.mu.Unlock()
		return
	}
	c.failed = err
	for id := range c.pending {
		delete(c.pending, id)
	}
	c.mu.Unlock()
	close(c.down)
}

// readLoop drains the transport, parses each line as a response, and
// resolves the matching pending call. Malformed or unmatched lines are
// protocol anomalies: logged and skipped, never fatal to the loop.
func (c *Client) readLoop() {
	for {
		line, err := c.transport.ReadLine()
		if err != nil {
			log.Debug("mcp: read loop ending: %v", err)
			c.fail(&TransportError{Err: err})
			return
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		var resp Response
		if err := json.Unmarshal(line, &resp); err != nil {
			log.Warn("mcp: discarding malformed line: %v", err)
			continue
		}
		if resp.ID == 0 {
			var notif Notification
			if err := json.Unmarshal(line, &notif); err == nil && notif.Method != "" {
				log.Debug("mcp: notification %q ignored", notif.Method)
			} else {
				log.Warn("mcp: discarding response without id")
			}
			continue
		}
		if resp.Result == nil && resp.Error == nil {
			log.Warn("mcp: response %d carries neither result nor error", resp.ID)
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		if ok {
			delete(c.pending, resp.ID)
		}
		c.mu.Unlock()
		if !ok {
			log.Warn("mcp: discarding unmatched response id %d", resp.ID)
			continue
		}
		ch <- &resp
	}
}

// ABOUTME: Stdio transport: spawns the server process and frames newline-delimited bytes
// ABOUTME: Knows nothing about JSON-RPC; correlation lives in client.go

package mcp

import (
	"bufio"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/topgunder/mcp-orchestrator/internal/log"
)

const maxLineBuffer = 10 * 1024 * 1024 // 10MB

// StdioTransport owns one server process and its stdin/stdout pipe ends.
// ReadLine must be called from a single goroutine (the client's read loop).
type StdioTransport struct {
	cmd     *exec.Cmd
	stdin   *os.File
	stdout  *os.File
	scanner *bufio.Scanner

	writeMu sync.Mutex

	exited  chan struct{}
	waitErr error

	termOnce sync.Once
}

// StartServer spawns the server command with the given args and environment.
// Stderr is inherited so server-side command logging stays visible. The pipes
// are created explicitly so reaping the process never races the read loop.
func StartServer(command string, args []string, env []string) (*StdioTransport, error) {
	stdinR, stdinW, err := os.Pipe()
	if err != nil {
		return nil, &LaunchError{Command: command, Err: err}
	}
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		stdinR.Close()
		stdinW.Close()
		return nil, &LaunchError{Command: command, Err: err}
	}

	cmd := exec.Command(command, args...)
	if len(env) > 0 {
		cmd.Env = env
	}
	cmd.Stdin = stdinR
	cmd.Stdout = stdoutW
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		stdinR.Close()
		stdinW.Close()
		stdoutR.Close()
		stdoutW.Close()
		return nil, &LaunchError{Command: command, Err: err}
	}
	// The child holds its own copies of these ends now. Closing ours makes
	// ReadLine see EOF as soon as the child exits.
	stdinR.Close()
	stdoutW.Close()
	log.Debug("mcp: started server %q pid=%d", command, cmd.Process.Pid)

	scanner := bufio.NewScanner(stdoutR)
	scanner.Buffer(make([]byte, 0, maxLineBuffer), maxLineBuffer)

	t := &StdioTransport{
		cmd:     cmd,
		stdin:   stdinW,
		stdout:  stdoutR,
		scanner: scanner,
		exited:  make(chan struct{}),
	}
	go func() {
		t.waitErr = cmd.Wait()
		close(t.exited)
	}()
	return t, nil
}

// WriteLine writes one frame followed by a newline. Safe for concurrent use.
func (t *StdioTransport) WriteLine(frame []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	buf := make([]byte, 0, len(frame)+1)
	buf = append(buf, frame...)
	buf = append(buf, '\n')
	_, err := t.stdin.Write(buf)
	return err
}

// ReadLine blocks until the next line of output is available. Returns io.EOF
// (or the underlying read error) when the stream closes.
func (t *StdioTransport) ReadLine() ([]byte, error) {
	if t.scanner.Scan() {
		return append([]byte(nil), t.scanner.Bytes()...), nil
	}
	if err := t.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// Alive reports whether the server process is still running. Non-blocking.
func (t *StdioTransport) Alive() bool {
	select {
	case <-t.exited:
		return false
	default:
		return true
	}
}

// Terminate closes stdin, sends SIGTERM, waits up to grace, then SIGKILLs.
// Idempotent; later calls return after the process is already gone.
func (t *StdioTransport) Terminate(grace time.Duration) error {
	t.termOnce.Do(func() {
		t.stdin.Close()
	})

	select {
	case <-t.exited:
		return nil
	default:
	}

	_ = t.cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-t.exited:
	case <-time.After(grace):
		log.Warn("mcp: server did not exit within %s, killing", grace)
		_ = t.cmd.Process.Kill()
		<-t.exited
	}
	log.Debug("mcp: server terminated: %v", t.waitErr)
	return nil
}

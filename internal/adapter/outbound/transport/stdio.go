// Package transport implements the outbound.Transport capability's two
// variants: a child-process stdio transport and an HTTP+SSE transport.
package transport

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"

	"github.com/brightgate-labs/mcpgateway/internal/domain/gatewayerr"
	"github.com/brightgate-labs/mcpgateway/internal/port/outbound"
	"github.com/brightgate-labs/mcpgateway/pkg/mcp"
)

const (
	terminateGrace = 3 * time.Second
	killGrace      = 2 * time.Second
)

// Stdio connects to an upstream MCP server over a spawned child process's
// stdin/stdout, with a graceful terminate-then-kill shutdown sequence rather
// than an immediate Process.Kill().
type Stdio struct {
	command string
	args    []string
	env     []string
	dir     string
	logger  *slog.Logger

	mu  sync.Mutex
	cmd *exec.Cmd

	writer  *mcp.FrameWriter
	writeMu sync.Mutex

	replies chan outbound.Incoming
}

// NewStdio constructs a stdio transport for the given child command. dir, if
// non-empty, is the child process's working directory; an empty dir
// inherits the gateway process's own working directory.
func NewStdio(command string, args []string, env []string, dir string, logger *slog.Logger) *Stdio {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stdio{
		command: command,
		args:    args,
		env:     env,
		dir:     dir,
		logger:  logger,
		replies: make(chan outbound.Incoming, 16),
	}
}

// Connect spawns the child process and starts the reader goroutine.
func (s *Stdio) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd != nil {
		return nil
	}

	cmd := exec.Command(s.command, s.args...)
	if len(s.env) > 0 {
		cmd.Env = append(os.Environ(), s.env...)
	}
	if s.dir != "" {
		cmd.Dir = s.dir
	}
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return gatewayerr.Wrap(gatewayerr.KindConnection, "stdin pipe", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		_ = stdin.Close()
		return gatewayerr.Wrap(gatewayerr.KindConnection, "stdout pipe", err)
	}
	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		_ = stdout.Close()
		return gatewayerr.Wrap(gatewayerr.KindConnection, "start child process", err)
	}

	s.cmd = cmd
	s.writer = mcp.NewFrameWriter(stdin)

	go s.readLoop(bufio.NewReader(stdout))

	return nil
}

func (s *Stdio) readLoop(stdout *bufio.Reader) {
	fr := mcp.NewFrameReader(stdout)
	for {
		line, err := fr.ReadFrame()
		if err != nil {
			s.replies <- outbound.Incoming{Err: err}
			close(s.replies)
			return
		}
		msg, err := mcp.DecodeMessage(line)
		if err != nil {
			s.logger.Warn("discarding malformed frame from provider", "error", err)
			continue
		}
		resp, ok := msg.(*jsonrpc.Response)
		if !ok {
			// Requests/notifications from the provider are out of scope for
			// this core's demux; only replies matter.
			continue
		}
		s.replies <- outbound.Incoming{Response: resp}
	}
}

// Send writes req as one framed line. Writes are serialized under writeMu so
// concurrent callers observe wire order equal to lock-acquisition order.
func (s *Stdio) Send(ctx context.Context, req *jsonrpc.Request) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.writer.WriteMessage(req); err != nil {
		return gatewayerr.Wrap(gatewayerr.KindTransport, "write request", err)
	}
	return nil
}

// Replies returns the channel of decoded replies.
func (s *Stdio) Replies() <-chan outbound.Incoming {
	return s.replies
}

// Disconnect sends os.Interrupt to the child, waits up to terminateGrace for
// it to exit, then force-kills and waits up to killGrace. The child's stdin
// is not closed beforehand. Idempotent.
func (s *Stdio) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	cmd := s.cmd
	s.cmd = nil
	s.mu.Unlock()

	if cmd == nil {
		return nil
	}

	if cmd.Process != nil {
		_ = cmd.Process.Signal(os.Interrupt)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-done:
		return nil
	case <-time.After(terminateGrace):
	}

	if cmd.Process != nil {
		if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			s.logger.Warn("failed to kill provider process", "error", err)
		}
	}

	select {
	case <-done:
	case <-time.After(killGrace):
		s.logger.Warn("provider process did not exit after kill")
	}
	return nil
}

var _ outbound.Transport = (*Stdio)(nil)

// Package toolhub opens a short-lived set of MCP tool-server connections for
// a single agent run and closes every one of them on exit, regardless of how
// the run ends.
package toolhub

import (
	"context"
	"errors"
	"fmt"
	"sync"

	sdkclient "github.com/mark3labs/mcp-go/client"
	sdkmcp "github.com/mark3labs/mcp-go/mcp"

	"github.com/loanintake/intake-engine/internal/model"
	"github.com/loanintake/intake-engine/internal/persona"
)

// conn is one connected MCP server inside a Session.
type conn struct {
	endpoint persona.ToolEndpoint
	inner    sdkclient.MCPClient
}

// Session is opened once per agent run, scoped to the tool-server endpoints
// that agent is allowed to call. It is not safe for concurrent use by
// multiple goroutines at once — an agent run is single-shot and sequential.
type Session struct {
	mu    sync.Mutex
	conns map[string]*conn
}

// Open connects to every endpoint and performs the MCP initialize handshake
// on each. On any failure, connections already opened in this call are
// closed before the error is returned — a partially-open Session is never
// handed back to the caller.
func Open(ctx context.Context, endpoints []persona.ToolEndpoint) (*Session, error) {
	s := &Session{conns: make(map[string]*conn, len(endpoints))}

	for _, ep := range endpoints {
		c, err := connect(ctx, ep)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.conns[ep.Name] = c
	}
	return s, nil
}

func connect(ctx context.Context, ep persona.ToolEndpoint) (*conn, error) {
	cli, err := sdkclient.NewSSEMCPClient(ep.URL)
	if err != nil {
		return nil, model.NewToolUnavailable(ep.Name, err)
	}
	if err := cli.Start(ctx); err != nil {
		return nil, model.NewToolUnavailable(ep.Name, err)
	}

	_, err = cli.Initialize(ctx, sdkmcp.InitializeRequest{
		Params: sdkmcp.InitializeParams{
			ProtocolVersion: sdkmcp.LATEST_PROTOCOL_VERSION,
			ClientInfo: sdkmcp.Implementation{
				Name:    "loanintake-engine",
				Version: "0.1.0",
			},
		},
	})
	if err != nil {
		_ = cli.Close()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, model.NewToolTimeout(ep.Name)
		}
		return nil, model.NewToolUnavailable(ep.Name, err)
	}

	return &conn{endpoint: ep, inner: cli}, nil
}

// CallTool invokes tool on the named server, applying the server's
// configured per-call timeout, and returns its result text. Failures are
// classified into the three tool-error kinds: a connect/stream
// problem is ToolUnavailable, a deadline is ToolTimeout, and a malformed or
// error-flagged result is ToolProtocolError.
func (s *Session) CallTool(ctx context.Context, server, tool string, args map[string]any) (string, error) {
	s.mu.Lock()
	c, ok := s.conns[server]
	s.mu.Unlock()
	if !ok {
		return "", model.NewMissingToolConfig(server)
	}

	callCtx := ctx
	var cancel context.CancelFunc
	if c.endpoint.Timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, c.endpoint.Timeout)
		defer cancel()
	}

	req := sdkmcp.CallToolRequest{}
	req.Params.Name = tool
	req.Params.Arguments = args

	result, err := c.inner.CallTool(callCtx, req)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return "", model.NewToolTimeout(server)
		}
		return "", model.NewToolUnavailable(server, err)
	}

	var parts []string
	for _, content := range result.Content {
		tc, ok := content.(sdkmcp.TextContent)
		if !ok {
			return "", model.NewToolProtocolError(server, fmt.Errorf("tool %q returned non-text content", tool))
		}
		parts = append(parts, tc.Text)
	}

	if result.IsError {
		return "", model.NewToolProtocolError(server, fmt.Errorf("tool %q reported an error result", tool))
	}

	text := ""
	for i, p := range parts {
		if i > 0 {
			text += "\n"
		}
		text += p
	}
	return text, nil
}

// Close closes every connection opened for this run, on every exit path.
// Callers should always `defer session.Close()` immediately after Open
// returns.
func (s *Session) Close() error {
	s.mu.Lock()
	conns := s.conns
	s.conns = nil
	s.mu.Unlock()

	var firstErr error
	for _, c := range conns {
		if err := c.inner.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

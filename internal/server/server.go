// Package server is the tool bridge: it exposes every operation of the
// analysis host as an MCP tool and forwards invocations over the local
// channel.
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/segmentio/encoding/json"

	opsv1 "github.com/zboralski/binja-mcp/binja/ops/v1"
	"github.com/zboralski/binja-mcp/internal/hostclient"
	"github.com/zboralski/binja-mcp/internal/session"
)

const (
	Name    = "binja-mcp"
	Version = "1.0.0"
)

// Dispatcher sends one request to the operation server. *hostclient.Client
// is the production implementation.
type Dispatcher interface {
	Execute(ctx context.Context, req *opsv1.Request) (*opsv1.Response, error)
}

type Server struct {
	logger  *log.Logger
	debug   bool
	session *session.Session
	client  Dispatcher
	tools   []*tool
	mcp     *mcp.Server
}

// New builds the tool registry and fails if it does not match the protocol's
// operation set.
func New(sess *session.Session, client Dispatcher, logger *log.Logger, debug bool) (*Server, error) {
	if sess == nil {
		return nil, errors.New("nil session")
	}
	s := &Server{
		logger:  logger,
		debug:   debug,
		session: sess,
		client:  client,
	}
	tools, err := buildTools(s.catalog(), sess.MaxLimit)
	if err != nil {
		return nil, err
	}
	s.tools = tools
	s.mcp = mcp.NewServer(&mcp.Implementation{Name: Name, Version: Version}, nil)
	for _, t := range tools {
		s.mcp.AddTool(&mcp.Tool{
			Name:        t.name,
			Description: t.description,
			InputSchema: t.schema,
		}, s.handler(t))
	}
	return s, nil
}

// Run serves MCP over stdio until ctx is done or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Printf("[Bridge] %s serving %d tools over stdio", s.session, len(s.tools))
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

// Connect serves one MCP session over t.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.mcp.Connect(ctx, t, nil)
}

// ToolNames lists the registered tools in catalog order.
func (s *Server) ToolNames() []string {
	names := make([]string, len(s.tools))
	for i, t := range s.tools {
		names[i] = t.name
	}
	return names
}

func (s *Server) handler(t *tool) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var raw []byte
		if req.Params != nil {
			raw = req.Params.Arguments
		}
		return s.invoke(ctx, t, raw)
	}
}

// invoke runs one tool call: validate, dispatch, shape. Every failure comes
// back as an error result, never as a protocol error.
func (s *Server) invoke(ctx context.Context, t *tool, raw []byte) (*mcp.CallToolResult, error) {
	op := t.name
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		raw = []byte("{}")
	}
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return s.handleToolError(invalidInput(op, "arguments must be a JSON object"))
	}
	s.logToolInvocation(op, args)

	if err := t.resolved.Validate(args); err != nil {
		return s.handleToolError(invalidInput(op, err.Error()))
	}
	hreq, err := t.build(raw)
	if err != nil {
		return s.handleToolError(invalidInput(op, err.Error()))
	}

	start := time.Now()
	s.debugf("dispatching %s to %s", op, s.session.Endpoint)
	resp, err := s.client.Execute(ctx, hreq)
	if err != nil {
		var rerr *hostclient.RemoteError
		if errors.As(err, &rerr) {
			return s.handleToolError(remoteFailure(op, hreq, rerr))
		}
		return s.handleToolError(internalError(op, err))
	}
	s.debugf("%s answered in %s", op, time.Since(start).Round(time.Millisecond))
	if !resp.OK() {
		return s.handleToolError(hostFailure(op, resp))
	}
	if resp.Data == nil {
		return s.handleToolError(internalError(op, fmt.Errorf("empty payload from host")))
	}
	return textResult(t.render(hreq, resp.Data))
}

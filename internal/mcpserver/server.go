// Package mcpserver exposes task operations as MCP tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/tmkit/taskmaster/internal/logging"
	"github.com/tmkit/taskmaster/internal/store"
	"github.com/tmkit/taskmaster/internal/taskmgr"
)

// Name is the server name reported to clients.
const Name = "taskmaster"

// Server routes tool calls to a taskmgr.Manager per tasks file. Calls that
// reach the same file share a Manager and are serialized by it.
type Server struct {
	base taskmgr.Options
	log  *logging.Logger

	mu       sync.Mutex
	managers map[string]*taskmgr.Manager

	mcp       *server.MCPServer
	toolCount int
}

// New builds a server. base supplies the defaults for every Manager; tool
// arguments projectRoot, tag and file override Root, Group and TasksFile.
func New(base taskmgr.Options, version string) *Server {
	if base.Logger == nil {
		base.Logger = logging.Discard()
	}
	s := &Server{
		base:     base,
		log:      base.Logger,
		managers: make(map[string]*taskmgr.Manager),
	}
	s.mcp = server.NewMCPServer(
		Name,
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)
	for _, t := range s.tools() {
		s.mcp.AddTool(t.def, s.wrap(t.def.Name, t.handle))
		s.toolCount++
	}
	return s
}

// MCP returns the underlying server.
func (s *Server) MCP() *server.MCPServer { return s.mcp }

// ServeStdio serves requests on stdin/stdout until EOF.
func (s *Server) ServeStdio() error {
	s.log.Info("MCP server listening on stdio", "tools", s.toolCount)
	return server.ServeStdio(s.mcp)
}

// manager returns the Manager for the tasks file named in req. Managers are
// keyed by the resolved file path, so every spelling of one file shares a
// Manager.
func (s *Server) manager(req mcp.CallToolRequest) *taskmgr.Manager {
	opts := s.base
	opts.Root = req.GetString("projectRoot", s.base.Root)
	opts.Group = req.GetString("tag", s.base.Group)
	opts.TasksFile = req.GetString("file", s.base.TasksFile)
	if opts.Root != "" {
		if abs, err := filepath.Abs(opts.Root); err == nil {
			opts.Root = store.NormalizeRoot(abs)
		}
	}
	m := taskmgr.New(opts)
	// Locate reports where a new file would go when none exists yet.
	loc, _ := m.Locate()
	key := loc.Path
	if abs, err := filepath.Abs(key); err == nil {
		key = abs
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.managers[key]; ok {
		return cached
	}
	s.managers[key] = m
	return m
}

type handlerFunc func(ctx context.Context, m *taskmgr.Manager, req mcp.CallToolRequest) (interface{}, error)

// wrap turns a handler result into a tool result. Failures become tool
// errors of the form "CODE: message" so clients can branch on the code.
func (s *Server) wrap(name string, h handlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		m := s.manager(req)
		s.log.Debug("tool call", "tool", name, "root", m.Root())
		out, err := h(ctx, m, req)
		if err != nil {
			s.log.Warn("tool failed", "tool", name, "err", err)
			return mcp.NewToolResultError(fmt.Sprintf("%s: %s", taskmgr.CodeOf(err), err)), nil
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("%s: encoding result: %s", taskmgr.CodeInternal, err)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

// Package mcp exposes the running kiosk to agents as an MCP server on
// stdio. Every tool goes through the control socket, so the server can run
// as a separate process next to the kiosk.
package mcp

import (
	"context"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/flickpay/flickpos/internal/ipc"
)

const (
	ServerName = "flickpos"
	// DefaultLogTail is used when read_log is called without a tail.
	DefaultLogTail = 200
)

// Control is the part of the IPC client the tools use.
type Control interface {
	GetStatus() (*ipc.StatusData, error)
	GetDisplays() (*ipc.DisplaysData, error)
	ReadLog(tail int) (*ipc.LogData, error)
	Reload() error
	Rebuild() error
	OpenSettings() error
	Quit() error
}

// Server is the MCP server for kiosk diagnostics.
type Server struct {
	mcpServer *mcpsdk.Server
	control   Control
	logger    *slog.Logger
}

// NewServer creates an MCP server backed by control.
func NewServer(control Control, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		control: control,
		logger:  logger.With("component", "mcp"),
	}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: version,
		},
		nil,
	)
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "kiosk_status",
		Description: "Report the running kiosk: version, uptime, the operator and customer surfaces with their displays, current URLs and boot phase, the open overlay (pin, settings, support or none) and whether an update is staged.",
	}, s.handleStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_displays",
		Description: "List connected displays with their geometry and the role each was given (operator on the primary display, customer on the first other one).",
	}, s.handleListDisplays)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "read_log",
		Description: "Read the kiosk application log. Returns the last 200 lines unless tail says otherwise.",
	}, s.handleReadLog)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "reload_surfaces",
		Description: "Reload the operator and customer screens, like Ctrl+Alt+R.",
	}, s.action("reload", s.control.Reload))

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "rebuild_surfaces",
		Description: "Destroy and recreate every kiosk window against the current display topology.",
	}, s.action("rebuild", s.control.Rebuild))

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "open_settings",
		Description: "Show the PIN prompt over the operator screen, like Ctrl+Alt+S.",
	}, s.action("open_settings", s.control.OpenSettings))

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "quit_kiosk",
		Description: "Shut the kiosk down. A staged update is installed on the way out.",
	}, s.action("quit", s.control.Quit))
}

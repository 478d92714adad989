package mcp

import (
	"context"
	"fmt"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/flickpay/flickpos/internal/ipc"
	"github.com/flickpay/flickpos/internal/kiosk"
)

func (s *Server) handleStatus(_ context.Context, _ *mcpsdk.CallToolRequest, _ EmptyInput) (*mcpsdk.CallToolResult, StatusOutput, error) {
	st, err := s.control.GetStatus()
	if err != nil {
		return nil, StatusOutput{}, fmt.Errorf("kiosk status: %w", err)
	}
	out := StatusOutput{
		Version:       st.Version,
		PID:           st.PID,
		UptimeSeconds: st.UptimeSeconds,
		UpdateStaged:  st.UpdateStaged,
		Browser:       st.Browser,
		Quitting:      st.Kiosk.Quitting,
		Rebuilding:    st.Kiosk.Rebuilding,
		Modal:         st.Kiosk.Modal,
		ModalPhase:    st.Kiosk.ModalPhase,
		Popups:        st.Kiosk.Popups,
		Surfaces:      st.Kiosk.Surfaces,
	}
	if out.Surfaces == nil {
		out.Surfaces = []kiosk.SurfaceStatus{}
	}
	return nil, out, nil
}

func (s *Server) handleListDisplays(_ context.Context, _ *mcpsdk.CallToolRequest, _ EmptyInput) (*mcpsdk.CallToolResult, DisplaysOutput, error) {
	ds, err := s.control.GetDisplays()
	if err != nil {
		return nil, DisplaysOutput{}, fmt.Errorf("list displays: %w", err)
	}
	out := DisplaysOutput{Displays: ds.Displays}
	if out.Displays == nil {
		out.Displays = []ipc.DisplayInfo{}
	}
	for _, d := range out.Displays {
		if d.Role == "customer" {
			out.Customer = true
		}
	}
	return nil, out, nil
}

func (s *Server) handleReadLog(_ context.Context, _ *mcpsdk.CallToolRequest, args ReadLogInput) (*mcpsdk.CallToolResult, ReadLogOutput, error) {
	tail := args.Tail
	if tail == 0 {
		tail = DefaultLogTail
	}
	if tail < 0 {
		return nil, ReadLogOutput{}, fmt.Errorf("tail must not be negative")
	}
	lg, err := s.control.ReadLog(tail)
	if err != nil {
		return nil, ReadLogOutput{}, fmt.Errorf("read log: %w", err)
	}
	return nil, ReadLogOutput{
		Path:  lg.Path,
		Text:  lg.Text,
		Lines: strings.Count(lg.Text, "\n"),
	}, nil
}

func (s *Server) action(name string, fn func() error) mcpsdk.ToolHandlerFor[EmptyInput, ActionOutput] {
	return func(_ context.Context, _ *mcpsdk.CallToolRequest, _ EmptyInput) (*mcpsdk.CallToolResult, ActionOutput, error) {
		if err := fn(); err != nil {
			return nil, ActionOutput{}, fmt.Errorf("%s: %w", name, err)
		}
		s.logger.Info("kiosk action via mcp", "action", name)
		return nil, ActionOutput{OK: true, Action: name}, nil
	}
}

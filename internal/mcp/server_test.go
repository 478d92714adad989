package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flickpay/flickpos/internal/ipc"
	"github.com/flickpay/flickpos/internal/kiosk"
)

type fakeControl struct {
	status   ipc.StatusData
	displays ipc.DisplaysData
	log      ipc.LogData
	tails    []int
	actions  []string
	err      error
}

func (f *fakeControl) GetStatus() (*ipc.StatusData, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &f.status, nil
}

func (f *fakeControl) GetDisplays() (*ipc.DisplaysData, error) {
	return &f.displays, f.err
}

func (f *fakeControl) ReadLog(tail int) (*ipc.LogData, error) {
	f.tails = append(f.tails, tail)
	return &f.log, f.err
}

func (f *fakeControl) act(name string) error {
	f.actions = append(f.actions, name)
	return f.err
}

func (f *fakeControl) Reload() error       { return f.act("reload") }
func (f *fakeControl) Rebuild() error      { return f.act("rebuild") }
func (f *fakeControl) OpenSettings() error { return f.act("settings") }
func (f *fakeControl) Quit() error         { return f.act("quit") }

func connect(t *testing.T, control Control) *mcpsdk.ClientSession {
	t.Helper()
	ctx := context.Background()
	srv := NewServer(control, "1.2.0", slog.New(slog.NewTextHandler(io.Discard, nil)))

	serverT, clientT := mcpsdk.NewInMemoryTransports()
	ss, err := srv.mcpServer.Connect(ctx, serverT, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ss.Close() })

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test", Version: "0"}, nil)
	cs, err := client.Connect(ctx, clientT, nil)
	require.NoError(t, err)
	t.Cleanup(func() { cs.Close() })
	return cs
}

func callTool(t *testing.T, cs *mcpsdk.ClientSession, name string, args any, out any) *mcpsdk.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcpsdk.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	if out != nil && !res.IsError {
		data, err := json.Marshal(res.StructuredContent)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, out))
	}
	return res
}

func TestToolsAreListed(t *testing.T) {
	cs := connect(t, &fakeControl{})
	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"kiosk_status", "list_displays", "read_log",
		"reload_surfaces", "rebuild_surfaces", "open_settings", "quit_kiosk",
	}, names)
}

func TestKioskStatus(t *testing.T) {
	control := &fakeControl{status: ipc.StatusData{
		Version: "1.2.0",
		Kiosk: kiosk.Status{
			Modal:      "settings",
			ModalPhase: "open",
			Surfaces:   []kiosk.SurfaceStatus{{ID: "01J", Role: "operator", Display: "HDMI-1"}},
		},
	}}
	cs := connect(t, control)

	var out StatusOutput
	res := callTool(t, cs, "kiosk_status", map[string]any{}, &out)
	require.False(t, res.IsError)
	assert.Equal(t, "settings", out.Modal)
	require.Len(t, out.Surfaces, 1)
	assert.Equal(t, "HDMI-1", out.Surfaces[0].Display)
}

func TestKioskStatusWithoutSurfaces(t *testing.T) {
	cs := connect(t, &fakeControl{status: ipc.StatusData{Version: "1.2.0"}})

	var out StatusOutput
	res := callTool(t, cs, "kiosk_status", map[string]any{}, &out)
	require.False(t, res.IsError)
	assert.Empty(t, out.Surfaces)
}

func TestKioskNotRunning(t *testing.T) {
	cs := connect(t, &fakeControl{err: errors.New("is flickpos running?")})
	res := callTool(t, cs, "kiosk_status", map[string]any{}, nil)
	assert.True(t, res.IsError)
}

func TestListDisplays(t *testing.T) {
	control := &fakeControl{displays: ipc.DisplaysData{Displays: []ipc.DisplayInfo{
		{ID: 1, Name: "HDMI-1", Role: "operator", Primary: true},
		{ID: 2, Name: "HDMI-2", Role: "customer"},
	}}}
	cs := connect(t, control)

	var out DisplaysOutput
	callTool(t, cs, "list_displays", map[string]any{}, &out)
	assert.Len(t, out.Displays, 2)
	assert.True(t, out.Customer)
}

func TestReadLogDefaultsTail(t *testing.T) {
	control := &fakeControl{log: ipc.LogData{Path: "/x/app.log", Text: "a\nb\n"}}
	cs := connect(t, control)

	var out ReadLogOutput
	callTool(t, cs, "read_log", map[string]any{}, &out)
	assert.Equal(t, 2, out.Lines)

	callTool(t, cs, "read_log", map[string]any{"tail": 5}, &out)
	assert.Equal(t, []int{DefaultLogTail, 5}, control.tails)
}

func TestActions(t *testing.T) {
	control := &fakeControl{}
	cs := connect(t, control)

	for _, name := range []string{"reload_surfaces", "rebuild_surfaces", "open_settings", "quit_kiosk"} {
		var out ActionOutput
		res := callTool(t, cs, name, map[string]any{}, &out)
		require.False(t, res.IsError, name)
		assert.True(t, out.OK)
	}
	assert.Equal(t, []string{"reload", "rebuild", "settings", "quit"}, control.actions)
}

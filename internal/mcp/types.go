package mcp

import (
	"github.com/flickpay/flickpos/internal/ipc"
	"github.com/flickpay/flickpos/internal/kiosk"
)

// EmptyInput is the input for tools that take no arguments.
type EmptyInput struct{}

// StatusOutput is the output for the kiosk_status tool.
type StatusOutput struct {
	Version       string                `json:"version"`
	PID           int                   `json:"pid"`
	UptimeSeconds int64                 `json:"uptime_seconds"`
	UpdateStaged  bool                  `json:"update_staged"`
	Browser       string                `json:"browser"`
	Quitting      bool                  `json:"quitting"`
	Rebuilding    bool                  `json:"rebuilding"`
	Modal         string                `json:"modal"`
	ModalPhase    string                `json:"modal_phase"`
	Popups        int                   `json:"popups"`
	Surfaces      []kiosk.SurfaceStatus `json:"surfaces"`
}

// DisplaysOutput is the output for the list_displays tool.
type DisplaysOutput struct {
	Displays []ipc.DisplayInfo `json:"displays"`
	// Customer reports whether a second screen is in use.
	Customer bool `json:"customer"`
}

// ReadLogInput is the input for the read_log tool.
type ReadLogInput struct {
	Tail int `json:"tail,omitempty" jsonschema:"Number of trailing lines to return (default 200, 0 for the whole file)"`
}

// ReadLogOutput is the output for the read_log tool.
type ReadLogOutput struct {
	Path  string `json:"path"`
	Text  string `json:"text"`
	Lines int    `json:"lines"`
}

// ActionOutput is the output for tools that trigger a kiosk action.
type ActionOutput struct {
	OK     bool   `json:"ok"`
	Action string `json:"action"`
}

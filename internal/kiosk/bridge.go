package kiosk

import (
	"encoding/json"
	"fmt"

	"github.com/flickpay/flickpos/internal/config"
	"github.com/flickpay/flickpos/internal/modal"
	"github.com/flickpay/flickpos/internal/safe"
	"github.com/flickpay/flickpos/internal/surface"
)

// Bridge method names exposed to content as window.flickpos.<method>.
const (
	MethodGetConfig         = "getConfig"
	MethodSaveConfig        = "saveConfig"
	MethodClearAppData      = "clearAppData"
	MethodVerifyPin         = "verifyPin"
	MethodPinOkOpenSettings = "pinOkOpenSettings"
	MethodClosePin          = "closePin"
	MethodCloseSettings     = "closeSettings"
	MethodGetAppVersion     = "getAppVersion"
	MethodReadAppLog        = "readAppLog"
)

// Methods lists every bridge method, for the content-side stub.
var Methods = []string{
	MethodGetConfig,
	MethodSaveConfig,
	MethodClearAppData,
	MethodVerifyPin,
	MethodPinOkOpenSettings,
	MethodClosePin,
	MethodCloseSettings,
	MethodGetAppVersion,
	MethodReadAppLog,
}

// SaveResult answers saveConfig and clearAppData.
type SaveResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// PinResult answers verifyPin.
type PinResult struct {
	OK bool `json:"ok"`
}

// LogResult answers readAppLog.
type LogResult struct {
	OK    bool   `json:"ok"`
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// Bridge answers a call from content. Args is the JSON array of the call's
// arguments. Fire-and-forget methods act on a later loop turn and return
// nil.
func (m *Manager) Bridge(call surface.BridgeCall) (any, error) {
	switch call.Method {
	case MethodGetConfig:
		return m.cfg.Store.LoadUI(), nil

	case MethodSaveConfig:
		var f config.Fields
		if err := bridgeArg(call, 0, &f); err != nil {
			return SaveResult{Error: err.Error()}, nil
		}
		return m.saveConfig(f), nil

	case MethodClearAppData:
		m.clearAppData()
		return SaveResult{Success: true}, nil

	case MethodVerifyPin:
		var attempt string
		if err := bridgeArg(call, 0, &attempt); err != nil {
			return PinResult{OK: false}, nil
		}
		return PinResult{OK: m.gate.Verify(attempt)}, nil

	case MethodPinOkOpenSettings:
		m.sched.Post(func() { m.OpenModal(modal.ModeSettings) })
		return nil, nil

	case MethodClosePin, MethodCloseSettings:
		m.sched.Post(m.CloseModal)
		return nil, nil

	case MethodGetAppVersion:
		return m.cfg.Version, nil

	case MethodReadAppLog:
		return m.readAppLog(), nil
	}
	return nil, fmt.Errorf("unknown bridge method %q", call.Method)
}

func (m *Manager) saveConfig(f config.Fields) SaveResult {
	rec, err := m.cfg.Store.Save(f)
	if err != nil {
		m.logger.Error("saving config failed", "error", err)
		return SaveResult{Error: err.Error()}
	}
	m.logger.Info("config saved", "account", rec.Account, "pos_id", rec.PosID, "mode", rec.Screen1Mode)
	m.applyURLs(rec.URLs)
	m.EnforceTopmost()
	return SaveResult{Success: true}
}

// clearAppData drops cache, cookies and storage of both top-level surfaces.
func (m *Manager) clearAppData() {
	for _, s := range m.state.TopLevel() {
		safe.Do(m.logger, "clear "+string(s.Role)+" data", s.Window.ClearSessionData)
	}
}

func (m *Manager) readAppLog() LogResult {
	if m.cfg.Logs == nil {
		return LogResult{}
	}
	text, err := m.cfg.Logs.Read()
	if err != nil {
		return LogResult{Error: err.Error()}
	}
	return LogResult{OK: true, Text: text}
}

// bridgeArg decodes argument i of call into out.
func bridgeArg(call surface.BridgeCall, i int, out any) error {
	if len(call.Args) == 0 {
		return fmt.Errorf("%s: missing argument %d", call.Method, i)
	}
	var args []json.RawMessage
	if err := json.Unmarshal(call.Args, &args); err != nil {
		return fmt.Errorf("%s: arguments must be an array: %w", call.Method, err)
	}
	if i >= len(args) {
		return fmt.Errorf("%s: missing argument %d", call.Method, i)
	}
	if err := json.Unmarshal(args[i], out); err != nil {
		return fmt.Errorf("%s: argument %d: %w", call.Method, i, err)
	}
	return nil
}

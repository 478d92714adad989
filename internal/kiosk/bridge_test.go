package kiosk

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flickpay/flickpos/internal/config"
	"github.com/flickpay/flickpos/internal/modal"
	"github.com/flickpay/flickpos/internal/surface"
)

func call(t *testing.T, m *Manager, method string, args ...any) any {
	t.Helper()
	var raw json.RawMessage
	if len(args) > 0 {
		data, err := json.Marshal(args)
		require.NoError(t, err)
		raw = data
	}
	res, err := m.Bridge(surface.BridgeCall{Method: method, Args: raw})
	require.NoError(t, err)
	return res
}

func TestBridgeGetConfig(t *testing.T) {
	f := newFixture(t, withConfig(config.Fields{Account: "acme", PosID: "12", AccessToken: "tok", Screen1Mode: "self"}))
	f.start()

	res := call(t, f.mgr, MethodGetConfig)

	assert.Equal(t, config.UIConfig{
		Account:     "acme",
		PosID:       "12",
		AccessToken: "tok",
		Screen1Mode: "self",
		HasPin:      true,
	}, res)
}

func TestBridgeSaveConfigAppliesURLs(t *testing.T) {
	f := newFixture(t)
	f.start()
	op := f.operator()
	cust := f.customer()
	op.FinishLoad()
	cust.FinishLoad()

	res := call(t, f.mgr, MethodSaveConfig, map[string]string{
		"account":     " acme ",
		"posId":       "12",
		"accessToken": "tok",
		"screen1Mode": "pos",
	})
	assert.Equal(t, SaveResult{Success: true}, res)

	assert.Equal(t, "https://acme.flickpay.co.uk/pos/ui/12", op.URL())
	assert.Equal(t, "https://acme.flickpay.co.uk/pos_customer_display/12/customer-display", cust.URL())
	assert.Equal(t, BootDone, f.mgr.State().Operator.Boot)

	// The pending boot navigation was cancelled.
	f.sched.Advance(10 * time.Second)
	assert.Len(t, op.Loads, 2)
	assert.Empty(t, op.Scripts)

	rec, err := f.store.Read()
	require.NoError(t, err)
	assert.Equal(t, "acme", rec.Account)
	assert.Equal(t, "https://acme.flickpay.co.uk/pos/ui/12", rec.Screen1)

	// Saving the same values reloads instead of navigating.
	call(t, f.mgr, MethodSaveConfig, map[string]string{"account": "acme", "posId": "12"})
	assert.Len(t, op.Loads, 2)
	assert.Equal(t, 1, op.Reloads)
	assert.Equal(t, 1, cust.Reloads)
}

func TestBridgeSaveConfigEmptyFallsBackToDefaultPage(t *testing.T) {
	f := newFixture(t, withConfig(config.Fields{Account: "acme", PosID: "12"}))
	f.start()

	call(t, f.mgr, MethodSaveConfig, map[string]string{"account": "", "posId": ""})

	assert.Equal(t, f.defaultURL(), f.operator().URL())
	assert.Equal(t, f.defaultURL(), f.customer().URL())
}

func TestBridgeSaveConfigBadArgs(t *testing.T) {
	f := newFixture(t)
	f.start()

	res := call(t, f.mgr, MethodSaveConfig, "not an object")
	saved, ok := res.(SaveResult)
	require.True(t, ok)
	assert.False(t, saved.Success)
	assert.NotEmpty(t, saved.Error)

	res = call(t, f.mgr, MethodSaveConfig)
	assert.False(t, res.(SaveResult).Success)
}

func TestBridgeVerifyPin(t *testing.T) {
	f := newFixture(t)
	f.start()

	tests := []struct {
		attempt any
		want    bool
	}{
		{"2809", true},
		{" 2809 ", true},
		{"280", false},
		{"28090", false},
		{"abcd", false},
		{"", false},
		{2809, false},
	}
	for _, tt := range tests {
		res := call(t, f.mgr, MethodVerifyPin, tt.attempt)
		assert.Equal(t, PinResult{OK: tt.want}, res, "attempt %v", tt.attempt)
	}
}

func TestBridgePinThenSettings(t *testing.T) {
	f := newFixture(t)
	f.start()
	f.mgr.OpenSettings()
	views := f.factory.LiveViews()
	require.Len(t, views, 1)
	view := views[0]

	res, err := view.Call(MethodVerifyPin, []any{"2809"})
	require.NoError(t, err)
	assert.Equal(t, PinResult{OK: true}, res)

	res, err = view.Call(MethodPinOkOpenSettings, nil)
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.Equal(t, modal.ModePin, f.mgr.Modal().Mode())

	f.sched.Flush()
	assert.Equal(t, modal.ModeSettings, f.mgr.Modal().Mode())
	assert.Len(t, f.factory.LiveViews(), 1)
	assert.Same(t, view, f.factory.LiveViews()[0])

	_, err = view.Call(MethodCloseSettings, nil)
	require.NoError(t, err)
	f.sched.Flush()
	assert.False(t, f.mgr.Modal().IsOpen())
	assert.Empty(t, f.factory.LiveViews())
}

func TestBridgeClosePin(t *testing.T) {
	f := newFixture(t)
	f.start()
	f.mgr.OpenSettings()

	call(t, f.mgr, MethodClosePin)
	f.sched.Flush()

	assert.False(t, f.mgr.Modal().IsOpen())
}

func TestBridgeClearAppData(t *testing.T) {
	f := newFixture(t)
	f.start()

	res := call(t, f.mgr, MethodClearAppData)

	assert.Equal(t, SaveResult{Success: true}, res)
	assert.Equal(t, 1, f.operator().Cleared)
	assert.Equal(t, 1, f.customer().Cleared)
}

func TestBridgeVersionAndLog(t *testing.T) {
	f := newFixture(t)
	f.start()

	assert.Equal(t, "1.4.2", call(t, f.mgr, MethodGetAppVersion))
	assert.Equal(t, LogResult{OK: true, Text: "boot ok\n"}, call(t, f.mgr, MethodReadAppLog))

	f.logs.err = errors.New("permission denied")
	assert.Equal(t, LogResult{Error: "permission denied"}, call(t, f.mgr, MethodReadAppLog))
}

func TestBridgeUnknownMethod(t *testing.T) {
	f := newFixture(t)
	f.start()

	_, err := f.mgr.Bridge(surface.BridgeCall{Method: "formatDisk"})
	assert.ErrorContains(t, err, "formatDisk")
}

func TestOnlyOperatorHasBridge(t *testing.T) {
	f := newFixture(t)
	f.start()

	_, err := f.customer().Call(MethodGetConfig, nil)
	assert.Error(t, err)

	res, err := f.operator().Call(MethodGetAppVersion, nil)
	require.NoError(t, err)
	assert.Equal(t, "1.4.2", res)
}

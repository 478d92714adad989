package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flickpay/flickpos/internal/config"
	"github.com/flickpay/flickpos/internal/ipc"
	"github.com/flickpay/flickpos/internal/kiosk"
	"github.com/flickpay/flickpos/internal/platform"
	"github.com/flickpay/flickpos/internal/update"
)

func TestRenderStatus(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st := &ipc.StatusData{
		Version:       "1.4.2",
		PID:           4242,
		UptimeSeconds: 7200,
		UpdateStaged:  true,
		Browser:       "/usr/bin/chromium",
		Kiosk: kiosk.Status{
			Modal:      "pin",
			ModalPhase: "open",
			Surfaces: []kiosk.SurfaceStatus{{
				Role:    "operator",
				Display: "HDMI-1",
				Bounds:  platform.Rect{Width: 1920, Height: 1080},
				URL:     "https://acme.flickpay.co.uk/pos/ui/7",
				Target:  "https://acme.flickpay.co.uk/pos/ui/7",
				Boot:    "done",
			}},
		},
	}

	out := renderStatus(st, at)
	assert.Contains(t, out, "flickpos 1.4.2")
	assert.Contains(t, out, "4242")
	assert.Contains(t, out, "2 hours ago")
	assert.Contains(t, out, "running")
	assert.Contains(t, out, "pin (open)")
	assert.Contains(t, out, "staged, installs on exit")
	assert.Contains(t, out, "operator on HDMI-1 1920x1080+0+0")
	assert.NotContains(t, out, "target", "target equals url")
}

func TestRenderStatusStates(t *testing.T) {
	at := time.Now()
	out := renderStatus(&ipc.StatusData{Kiosk: kiosk.Status{Rebuilding: true, ModalPhase: "closed"}}, at)
	assert.Contains(t, out, "rebuilding")
	assert.Contains(t, out, "no surfaces")
	assert.Contains(t, out, "closed")

	out = renderStatus(&ipc.StatusData{Kiosk: kiosk.Status{Quitting: true, Rebuilding: true}}, at)
	assert.Contains(t, out, "shutting down")
}

func TestRenderDisplays(t *testing.T) {
	out := renderDisplays(&ipc.DisplaysData{Displays: []ipc.DisplayInfo{
		{ID: 1, Name: "HDMI-1", Width: 1920, Height: 1080, Primary: true, Role: "operator"},
		{ID: 2, Name: "DP-1", X: 1920, Width: 1024, Height: 768, Role: "customer"},
		{ID: 3, Name: "DP-2", X: 2944, Width: 800, Height: 600},
	}})
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "operator")
	assert.Contains(t, lines[0], "primary")
	assert.Contains(t, lines[1], "1024x768+1920+0")
	assert.Contains(t, lines[2], "unused")

	assert.Contains(t, renderDisplays(&ipc.DisplaysData{}), "no displays")
}

func TestRenderLogHeader(t *testing.T) {
	out := renderLogHeader(&ipc.LogData{Path: "/data/logs/app.log", Text: strings.Repeat("x", 2000)})
	assert.Contains(t, out, "/data/logs/app.log")
	assert.Contains(t, out, "2.0 kB")
}

func TestRenderUpdate(t *testing.T) {
	assert.Contains(t, renderUpdate(update.Status{Current: "1.0.0"}), "up to date")
	assert.Contains(t, renderUpdate(update.Status{Current: "1.0.0", Latest: &update.Release{Version: "1.0.0"}}), "up to date")

	out := renderUpdate(update.Status{Current: "1.0.0", Latest: &update.Release{Version: "1.1.0", Newer: true}})
	assert.Contains(t, out, "1.0.0 -> 1.1.0")
	assert.NotContains(t, out, "published")
}

func setFlags(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	configSetOpts.account, configSetOpts.posID, configSetOpts.token, configSetOpts.mode = "", "", "", ""
	cmd := &cobra.Command{Use: "set"}
	cmd.Flags().StringVar(&configSetOpts.account, "account", "", "")
	cmd.Flags().StringVar(&configSetOpts.posID, "pos-id", "", "")
	cmd.Flags().StringVar(&configSetOpts.token, "token", "", "")
	cmd.Flags().StringVar(&configSetOpts.mode, "mode", "", "")
	require.NoError(t, cmd.Flags().Parse(args))
	return cmd
}

func TestApplyFlagsOverlaysOnlyChanged(t *testing.T) {
	base := config.Fields{Account: "acme", PosID: "7", AccessToken: "tok", Screen1Mode: "self"}

	got, err := applyFlags(base, setFlags(t, "--pos-id", "9"))
	require.NoError(t, err)
	assert.Equal(t, config.Fields{Account: "acme", PosID: "9", AccessToken: "tok", Screen1Mode: "self"}, got)

	got, err = applyFlags(base, setFlags(t, "--token", "", "--mode", "pos"))
	require.NoError(t, err)
	assert.Empty(t, got.AccessToken)
	assert.Equal(t, config.ModePOS, got.Screen1Mode)
}

func TestApplyFlagsRejects(t *testing.T) {
	_, err := applyFlags(config.Fields{}, setFlags(t))
	assert.ErrorContains(t, err, "nothing to set")

	_, err = applyFlags(config.Fields{}, setFlags(t, "--account", "Not Valid"))
	assert.ErrorContains(t, err, "--account")

	_, err = applyFlags(config.Fields{}, setFlags(t, "--pos-id", "a/b"))
	assert.ErrorContains(t, err, "--pos-id")

	_, err = applyFlags(config.Fields{}, setFlags(t, "--mode", "kiosk"))
	assert.ErrorContains(t, err, "--mode")
}

func TestReadPINFromPipe(t *testing.T) {
	var prompt bytes.Buffer
	got, err := readPIN(strings.NewReader("2809\r\n"), &prompt)
	require.NoError(t, err)
	assert.Equal(t, "2809", got)
	assert.Empty(t, prompt.String(), "no prompt without a terminal")

	got, err = readPIN(strings.NewReader("1234"), &prompt)
	require.NoError(t, err)
	assert.Equal(t, "1234", got)
}

func TestPinCommand(t *testing.T) {
	var out bytes.Buffer
	pinCmd.SetIn(strings.NewReader("2809\n"))
	pinCmd.SetOut(&out)
	pinCmd.SetErr(&out)
	t.Cleanup(func() { pinCmd.SetIn(nil); pinCmd.SetOut(nil); pinCmd.SetErr(nil) })

	require.NoError(t, pinCmd.RunE(pinCmd, nil))
	assert.Contains(t, out.String(), "PIN accepted")

	pinCmd.SetIn(strings.NewReader("0000\n"))
	assert.ErrorIs(t, pinCmd.RunE(pinCmd, nil), errPinRejected)
}

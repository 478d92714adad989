package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/flickpay/flickpos/internal/daemon"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the kiosk (default)",
	Long: `Start the kiosk in the foreground.

The operator surface opens full screen on the primary display. When a second
display is connected it shows the customer display. Connecting or removing a
display rebuilds both surfaces.

Shortcuts (configurable in kiosk.yaml):
  Ctrl+Alt+S  settings (PIN protected)
  Ctrl+Alt+R  reload
  Ctrl+Alt+Q  quit
  Ctrl+Alt+O  reveal config.json`,
	Args: cobra.NoArgs,
	RunE: runKiosk,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runKiosk(cmd *cobra.Command, args []string) error {
	sock, err := socketPath()
	if err != nil {
		return err
	}
	if globalOpts.verbose {
		settings.Log.Level = "debug"
	}
	return daemon.Run(context.Background(), daemon.Options{
		DataDir:    dataDir,
		SocketPath: sock,
		Settings:   settings,
		Version:    version,
		Stderr:     cmd.ErrOrStderr(),
	})
}

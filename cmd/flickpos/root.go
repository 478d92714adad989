// Package main provides the flickpos command: the kiosk itself plus the
// tools to configure and control a running instance.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/flickpay/flickpos/internal/config"
	"github.com/flickpay/flickpos/internal/ipc"
	"github.com/flickpay/flickpos/internal/runtimepath"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

var (
	globalOpts struct {
		verbose bool
		dataDir string
		socket  string
	}
	dataDir  string
	settings *config.Settings
	logger   *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "flickpos",
	Short: "Dual-screen point-of-sale kiosk",
	Long: `flickpos runs the Flickpay point-of-sale web application full screen on the
operator display and the customer display view on a second monitor.

Running flickpos without a subcommand starts the kiosk. The other commands
configure the terminal or talk to a running kiosk over its control socket.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogger()

		dir := globalOpts.dataDir
		if dir == "" {
			var err error
			dir, err = runtimepath.DataDir()
			if err != nil {
				return err
			}
		}
		dataDir = dir

		s, err := config.LoadSettings(config.SettingsPath(dataDir))
		if err != nil {
			return err
		}
		settings = s
		return nil
	},
	RunE: runKiosk,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false,
		"Enable debug logging on stderr")
	rootCmd.PersistentFlags().StringVar(&globalOpts.dataDir, "data-dir", "",
		"Directory holding config.json, kiosk.yaml, profiles and logs")
	rootCmd.PersistentFlags().StringVar(&globalOpts.socket, "socket", "",
		"Control socket path (defaults to $XDG_RUNTIME_DIR/flickpos.sock)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error:"), err)
		os.Exit(1)
	}
}

// setupLogger configures the CLI logger. The kiosk itself logs through its
// own sink.
func setupLogger() {
	level := slog.LevelWarn
	if globalOpts.verbose {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

func socketPath() (string, error) {
	if globalOpts.socket != "" {
		return globalOpts.socket, nil
	}
	return runtimepath.SocketPath()
}

func newClient() *ipc.Client {
	if globalOpts.socket != "" {
		return ipc.NewClientAt(globalOpts.socket)
	}
	return ipc.NewClient()
}

func configStore() *config.Store {
	return config.NewStore(config.ConfigPath(dataDir), config.FileURL(settings.AssetPath("default.html")))
}

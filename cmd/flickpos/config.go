package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flickpay/flickpos/internal/config"
	"github.com/flickpay/flickpos/internal/tui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and edit the terminal configuration",
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file paths",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, config.ConfigPath(dataDir))
		fmt.Fprintln(out, config.SettingsPath(dataDir))
	},
}

var configShowOpts struct {
	settings bool
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print config.json with derived URLs (token masked)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if configShowOpts.settings {
			data, err := config.MarshalSettings(settings)
			if err != nil {
				return err
			}
			_, err = out.Write(data)
			return err
		}
		rec, err := configStore().Read()
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), warnStyle.Render("warning:"), err)
		}
		fmt.Fprint(out, tui.Summary(config.ConfigPath(dataDir), rec))
		return nil
	},
}

var configSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Configure this terminal interactively",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store := configStore()
		rec, _ := store.Read()
		fields, err := tui.RunSetup(rec.Fields)
		if errors.Is(err, tui.ErrCancelled) {
			fmt.Fprintln(cmd.ErrOrStderr(), dimStyle.Render("nothing saved"))
			return nil
		}
		if err != nil {
			return err
		}
		saved, err := store.Save(fields)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), tui.Summary("Saved "+store.Path(), saved))
		return nil
	},
}

var configSetOpts struct {
	account string
	posID   string
	token   string
	mode    string
}

var configSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set configuration values non-interactively",
	Example: `  flickpos config set --account acme --pos-id 7
  flickpos config set --mode self --token "$TOKEN"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store := configStore()
		rec, _ := store.Read()
		fields, err := applyFlags(rec.Fields, cmd)
		if err != nil {
			return err
		}
		saved, err := store.Save(fields)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), tui.Summary("Saved "+store.Path(), saved))
		return nil
	},
}

// applyFlags overlays the flags that were given on f.
func applyFlags(f config.Fields, cmd *cobra.Command) (config.Fields, error) {
	flags := cmd.Flags()
	if !flags.Changed("account") && !flags.Changed("pos-id") && !flags.Changed("token") && !flags.Changed("mode") {
		return f, errors.New("nothing to set: pass --account, --pos-id, --token or --mode")
	}
	if flags.Changed("account") {
		if err := tui.ValidateAccount(configSetOpts.account); err != nil {
			return f, fmt.Errorf("--account: %w", err)
		}
		f.Account = configSetOpts.account
	}
	if flags.Changed("pos-id") {
		if err := tui.ValidatePosID(configSetOpts.posID); err != nil {
			return f, fmt.Errorf("--pos-id: %w", err)
		}
		f.PosID = configSetOpts.posID
	}
	if flags.Changed("token") {
		f.AccessToken = configSetOpts.token
	}
	if flags.Changed("mode") {
		mode := strings.TrimSpace(configSetOpts.mode)
		if mode != config.ModePOS && mode != config.ModeSelf {
			return f, fmt.Errorf("--mode must be %q or %q", config.ModePOS, config.ModeSelf)
		}
		f.Screen1Mode = mode
	}
	return tui.Normalize(f), nil
}

func init() {
	configShowCmd.Flags().BoolVar(&configShowOpts.settings, "settings", false,
		"Print the effective kiosk.yaml settings instead")

	configSetCmd.Flags().StringVar(&configSetOpts.account, "account", "", "Flickpay account (subdomain)")
	configSetCmd.Flags().StringVar(&configSetOpts.posID, "pos-id", "", "POS identifier")
	configSetCmd.Flags().StringVar(&configSetOpts.token, "token", "", "Access token for self-service mode")
	configSetCmd.Flags().StringVar(&configSetOpts.mode, "mode", "", "Screen 1 mode: pos or self")

	configCmd.AddCommand(configPathCmd, configShowCmd, configSetupCmd, configSetCmd)
	rootCmd.AddCommand(configCmd)
}

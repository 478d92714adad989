package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flickpay/flickpos/internal/ipc"
)

var statusOpts struct {
	json bool
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of the running kiosk",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := newClient().GetStatus()
		if err != nil {
			return err
		}
		if statusOpts.json {
			return printJSON(cmd.OutOrStdout(), st)
		}
		fmt.Fprint(cmd.OutOrStdout(), renderStatus(st, now()))
		return nil
	},
}

var displaysOpts struct {
	json bool
}

var displaysCmd = &cobra.Command{
	Use:   "displays",
	Short: "List connected displays and the surface each one shows",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := newClient().GetDisplays()
		if err != nil {
			return err
		}
		if displaysOpts.json {
			return printJSON(cmd.OutOrStdout(), data)
		}
		fmt.Fprint(cmd.OutOrStdout(), renderDisplays(data))
		return nil
	},
}

var logsOpts struct {
	tail int
}

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Print the kiosk log",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if logsOpts.tail < 0 {
			return fmt.Errorf("--tail must not be negative")
		}
		data, err := newClient().ReadLog(logsOpts.tail)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.ErrOrStderr(), renderLogHeader(data))
		fmt.Fprint(cmd.OutOrStdout(), data.Text)
		return nil
	},
}

func actionCmd(use, short, done string, fn func(*ipc.Client) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := fn(newClient()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("✓"), done)
			return nil
		},
	}
}

func init() {
	statusCmd.Flags().BoolVar(&statusOpts.json, "json", false, "Print the raw status as JSON")
	displaysCmd.Flags().BoolVar(&displaysOpts.json, "json", false, "Print the displays as JSON")
	logsCmd.Flags().IntVarP(&logsOpts.tail, "tail", "n", 200, "Only print the last N lines (0 for all)")

	rootCmd.AddCommand(
		statusCmd,
		displaysCmd,
		logsCmd,
		actionCmd("reload", "Reload the operator and customer surfaces", "surfaces reloading",
			(*ipc.Client).Reload),
		actionCmd("rebuild", "Recreate every surface for the current displays", "surfaces rebuilt",
			(*ipc.Client).Rebuild),
		actionCmd("settings", "Open the PIN-protected settings panel on the kiosk", "settings opened",
			(*ipc.Client).OpenSettings),
		actionCmd("quit", "Shut the kiosk down", "kiosk shutting down",
			(*ipc.Client).Quit),
	)
}

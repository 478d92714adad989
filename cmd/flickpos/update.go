package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/flickpay/flickpos/internal/update"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Self-update commands",
}

var updateRepo string

var updateCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check GitHub for a newer release",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		repo := updateRepo
		if repo == "" {
			repo = settings.Update.Repository
		}
		ch, err := update.New(update.Config{Repository: repo, Version: version, Logger: logger})
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		st, err := ch.Check(ctx)
		if errors.Is(err, update.ErrDevBuild) {
			fmt.Fprintln(cmd.OutOrStdout(), warnStyle.Render("development build"), "- updates are disabled")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderUpdate(st))
		return nil
	},
}

func renderUpdate(st update.Status) string {
	if st.Latest == nil || !st.Latest.Newer {
		return okStyle.Render("up to date") + " " + dimStyle.Render(st.Current)
	}
	line := fmt.Sprintf("%s %s -> %s", warnStyle.Render("update available"), st.Current, st.Latest.Version)
	if !st.Latest.PublishedAt.IsZero() {
		line += dimStyle.Render(" (published " + humanize.Time(st.Latest.PublishedAt) + ")")
	}
	return line
}

func init() {
	updateCheckCmd.Flags().StringVar(&updateRepo, "repository", "", "GitHub owner/name (defaults to update.repository)")
	updateCmd.AddCommand(updateCheckCmd)
	rootCmd.AddCommand(updateCmd)
}

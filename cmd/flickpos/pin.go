package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/flickpay/flickpos/internal/pin"
)

var errPinRejected = errors.New("PIN rejected")

var pinCmd = &cobra.Command{
	Use:   "pin",
	Short: "Check a settings PIN",
	Long: `Check a settings PIN the same way the kiosk's PIN screen does.

On a terminal the PIN is read without echo; otherwise one line is read from
standard input.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		attempt, err := readPIN(cmd.InOrStdin(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		if !pin.NewGate(pin.DefaultSecret).Verify(attempt) {
			return errPinRejected
		}
		fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("✓"), "PIN accepted")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pinCmd)
}

func readPIN(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "PIN: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("read PIN: %w", err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read PIN: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

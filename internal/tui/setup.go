// Package tui holds the terminal setup flow used to provision a kiosk
// before its first boot.
package tui

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/flickpay/flickpos/internal/config"
)

// ErrCancelled is returned when the operator backs out of the form.
var ErrCancelled = errors.New("setup cancelled")

var accountPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// ValidateAccount accepts a single DNS label: the account becomes the
// subdomain of every derived URL.
func ValidateAccount(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return errors.New("account is required")
	}
	if len(s) > 63 || !accountPattern.MatchString(s) {
		return errors.New("use lowercase letters, digits and inner hyphens only")
	}
	return nil
}

// ValidatePosID requires a non-empty identifier without path characters.
func ValidatePosID(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return errors.New("POS ID is required")
	}
	if strings.ContainsAny(s, "/?#& ") {
		return errors.New("POS ID must not contain spaces or URL characters")
	}
	return nil
}

// NewSetupForm binds a form to f. confirm is set when the operator agrees
// to save.
func NewSetupForm(f *config.Fields, confirm *bool) *huh.Form {
	if f.Screen1Mode == "" {
		f.Screen1Mode = config.ModePOS
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("account").
				Title("Account").
				Description("Your Flickpay subdomain, e.g. acme for acme."+config.Domain).
				Value(&f.Account).
				Validate(ValidateAccount),

			huh.NewInput().
				Key("posId").
				Title("POS ID").
				Description("Identifier of this till").
				Value(&f.PosID).
				Validate(ValidatePosID),

			huh.NewSelect[string]().
				Key("screen1Mode").
				Title("Screen 1").
				Description("What the operator screen shows").
				Options(
					huh.NewOption("Point of sale", config.ModePOS),
					huh.NewOption("Self-service kiosk", config.ModeSelf),
				).
				Value(&f.Screen1Mode),
		),
		huh.NewGroup(
			huh.NewInput().
				Key("accessToken").
				Title("Access token").
				Description("Only used in self-service mode. Leave empty otherwise.").
				EchoMode(huh.EchoModePassword).
				Value(&f.AccessToken),

			huh.NewConfirm().
				Key("confirm").
				Title("Save configuration?").
				Affirmative("Save").
				Negative("Cancel").
				Value(confirm),
		),
	).WithShowHelp(true).WithShowErrors(true)
}

// RunSetup asks for the configuration interactively, starting from
// initial.
func RunSetup(initial config.Fields) (config.Fields, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return config.Fields{}, fmt.Errorf("setup requires an interactive terminal (stdin/stdout must be TTYs)")
	}
	f := initial
	var confirm bool
	form := NewSetupForm(&f, &confirm).WithTheme(huh.ThemeCharm())
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return config.Fields{}, ErrCancelled
		}
		return config.Fields{}, err
	}
	if !confirm {
		return config.Fields{}, ErrCancelled
	}
	return Normalize(f), nil
}

// Normalize trims every field and canonicalises the mode.
func Normalize(f config.Fields) config.Fields {
	return config.Fields{
		Account:     strings.TrimSpace(f.Account),
		PosID:       strings.TrimSpace(f.PosID),
		AccessToken: strings.TrimSpace(f.AccessToken),
		Screen1Mode: config.NormalizeMode(f.Screen1Mode),
	}
}

package tui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flickpay/flickpos/internal/config"
)

func TestValidateAccount(t *testing.T) {
	for _, ok := range []string{"acme", "acme-shop", "a1", " acme "} {
		assert.NoError(t, ValidateAccount(ok), ok)
	}
	for _, bad := range []string{"", "  ", "Acme", "-acme", "acme-", "acme.shop", "ac me", strings.Repeat("a", 64)} {
		assert.Error(t, ValidateAccount(bad), bad)
	}
}

func TestValidatePosID(t *testing.T) {
	assert.NoError(t, ValidatePosID("till-7"))
	for _, bad := range []string{"", "a/b", "a?b", "a b", "a#b"} {
		assert.Error(t, ValidatePosID(bad), bad)
	}
}

func TestNormalize(t *testing.T) {
	got := Normalize(config.Fields{
		Account:     " acme ",
		PosID:       " 7 ",
		AccessToken: " tok ",
		Screen1Mode: "weird",
	})
	assert.Equal(t, config.Fields{Account: "acme", PosID: "7", AccessToken: "tok", Screen1Mode: config.ModePOS}, got)
}

func TestNewSetupFormDefaultsMode(t *testing.T) {
	var f config.Fields
	var confirm bool
	form := NewSetupForm(&f, &confirm)
	require.NotNil(t, form)
	assert.Equal(t, config.ModePOS, f.Screen1Mode)

	f = config.Fields{Screen1Mode: config.ModeSelf}
	NewSetupForm(&f, &confirm)
	assert.Equal(t, config.ModeSelf, f.Screen1Mode)
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", MaskSecret(""))
	assert.Equal(t, "•••", MaskSecret("abc"))
	assert.Equal(t, "••••••••wxyz", MaskSecret("abcdefghijklmnopqrstuvwxyz"))
}

func TestSummaryMasksToken(t *testing.T) {
	r := config.Record{
		Fields: config.Fields{Account: "acme", PosID: "7", AccessToken: "super-secret-token", Screen1Mode: "self"},
		URLs:   config.BuildURLs("acme", "7", "self", "super-secret-token"),
	}
	out := Summary("Kiosk configuration", r)
	assert.Contains(t, out, "Kiosk configuration")
	assert.Contains(t, out, "acme")
	assert.Contains(t, out, "oken")
	assert.NotContains(t, out, "super-secret")
}

func TestSummaryEmpty(t *testing.T) {
	out := Summary("Kiosk configuration", config.Record{})
	assert.Contains(t, out, "(not set)")
}

package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/flickpay/flickpos/internal/config"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("250")).Width(14).Align(lipgloss.Right)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	emptyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// Summary renders a record for the terminal. The access token is masked.
func Summary(title string, r config.Record) string {
	rows := []struct{ label, value string }{
		{"Account", r.Account},
		{"POS ID", r.PosID},
		{"Screen 1 mode", config.NormalizeMode(r.Screen1Mode)},
		{"Access token", MaskSecret(r.AccessToken)},
		{"Screen 1 URL", r.Screen1},
		{"Screen 2 URL", r.Screen2},
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
	for _, row := range rows {
		value := valueStyle.Render(row.value)
		if row.value == "" {
			value = emptyStyle.Render("(not set)")
		}
		b.WriteString(labelStyle.Render(row.label))
		b.WriteString("  ")
		b.WriteString(value)
		b.WriteString("\n")
	}
	return b.String()
}

// MaskSecret keeps the last four characters of long secrets.
func MaskSecret(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) <= 8:
		return strings.Repeat("•", len(s))
	default:
		return strings.Repeat("•", 8) + s[len(s)-4:]
	}
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/flickpay/flickpos/internal/ipc"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// now is replaced in tests.
var now = time.Now

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func field(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "%s %s\n", labelStyle.Render(fmt.Sprintf("%-10s", label)), value)
}

func renderStatus(st *ipc.StatusData, at time.Time) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("flickpos " + st.Version))
	b.WriteString("\n")

	started := at.Add(-time.Duration(st.UptimeSeconds) * time.Second)
	field(&b, "pid", fmt.Sprint(st.PID))
	field(&b, "started", humanize.RelTime(started, at, "ago", "from now"))
	field(&b, "browser", st.Browser)

	state := okStyle.Render("running")
	switch {
	case st.Kiosk.Quitting:
		state = warnStyle.Render("shutting down")
	case st.Kiosk.Rebuilding:
		state = warnStyle.Render("rebuilding")
	}
	field(&b, "state", state)

	modal := dimStyle.Render("closed")
	if st.Kiosk.Modal != "" && st.Kiosk.ModalPhase != "closed" {
		modal = fmt.Sprintf("%s (%s)", st.Kiosk.Modal, st.Kiosk.ModalPhase)
	}
	field(&b, "overlay", modal)
	if st.Kiosk.Popups > 0 {
		field(&b, "popups", fmt.Sprint(st.Kiosk.Popups))
	}
	if st.UpdateStaged {
		field(&b, "update", warnStyle.Render("staged, installs on exit"))
	}

	if len(st.Kiosk.Surfaces) == 0 {
		b.WriteString(dimStyle.Render("no surfaces"))
		b.WriteString("\n")
		return b.String()
	}
	b.WriteString("\n")
	for _, s := range st.Kiosk.Surfaces {
		b.WriteString(titleStyle.Render(s.Role))
		fmt.Fprintf(&b, " on %s %dx%d+%d+%d\n", s.Display, s.Bounds.Width, s.Bounds.Height, s.Bounds.X, s.Bounds.Y)
		field(&b, "boot", s.Boot)
		url := s.URL
		if s.Loading {
			url += dimStyle.Render(" (loading)")
		}
		field(&b, "url", url)
		if s.Target != s.URL {
			field(&b, "target", s.Target)
		}
	}
	return b.String()
}

func renderDisplays(data *ipc.DisplaysData) string {
	if len(data.Displays) == 0 {
		return dimStyle.Render("no displays") + "\n"
	}
	var b strings.Builder
	for _, d := range data.Displays {
		role := dimStyle.Render("unused")
		if d.Role != "" {
			role = okStyle.Render(d.Role)
		}
		primary := ""
		if d.Primary {
			primary = labelStyle.Render(" primary")
		}
		fmt.Fprintf(&b, "%d  %-10s %dx%d+%d+%d  %s%s\n", d.ID, d.Name, d.Width, d.Height, d.X, d.Y, role, primary)
	}
	return b.String()
}

func renderLogHeader(data *ipc.LogData) string {
	return dimStyle.Render(fmt.Sprintf("%s (%s shown)", data.Path, humanize.Bytes(uint64(len(data.Text)))))
}

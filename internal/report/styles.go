// internal/report/styles.go
package report

import "github.com/charmbracelet/lipgloss"

var (
	colorTitle = lipgloss.Color("#cba6f7")
	colorOK    = lipgloss.Color("#a6e3a1")
	colorWarn  = lipgloss.Color("#f9e2af")
	colorError = lipgloss.Color("#f38ba8")
	colorMuted = lipgloss.Color("#6c7086")
)

// styles are bound to the printer's writer so a plain buffer gets plain text.
type styles struct {
	title lipgloss.Style
	label lipgloss.Style
	value lipgloss.Style
	ok    lipgloss.Style
	warn  lipgloss.Style
	err   lipgloss.Style
	muted lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		title: r.NewStyle().Bold(true).Foreground(colorTitle),
		label: r.NewStyle().Width(labelWidth),
		value: r.NewStyle().Bold(true),
		ok:    r.NewStyle().Bold(true).Foreground(colorOK),
		warn:  r.NewStyle().Foreground(colorWarn),
		err:   r.NewStyle().Bold(true).Foreground(colorError),
		muted: r.NewStyle().Foreground(colorMuted),
	}
}

const labelWidth = 36

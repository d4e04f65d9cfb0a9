package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/janekbaraniewski/copilotspend/internal/core"
)

// Catppuccin Mocha.
var (
	colorMantle   = lipgloss.Color("#181825")
	colorSurface1 = lipgloss.Color("#45475A")
	colorText     = lipgloss.Color("#CDD6F4")
	colorSubtext  = lipgloss.Color("#A6ADC8")
	colorDim      = lipgloss.Color("#585B70")
	colorAccent   = lipgloss.Color("#CBA6F7")
	colorSapphire = lipgloss.Color("#74C7EC")
	colorGreen    = lipgloss.Color("#A6E3A1")
	colorYellow   = lipgloss.Color("#F9E2AF")
	colorRed      = lipgloss.Color("#F38BA8")
	colorPeach    = lipgloss.Color("#FAB387")
	colorTeal     = lipgloss.Color("#94E2D5")

	colorOK      = colorGreen
	colorWarn    = colorYellow
	colorCrit    = colorRed
	colorAuth    = colorPeach
	colorUnknown = colorDim
)

var (
	brandStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorAccent)

	helpStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(colorSapphire).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorSubtext)

	valueStyle = lipgloss.NewStyle().
			Foreground(colorText)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	tealStyle = lipgloss.NewStyle().
			Foreground(colorTeal)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorRed)

	gaugeTrackStyle = lipgloss.NewStyle().
			Foreground(colorSurface1)

	statusPillStyle = lipgloss.NewStyle().
			Foreground(colorMantle).
			Bold(true).
			Padding(0, 1)
)

func statusColor(s core.Status) lipgloss.Color {
	switch s {
	case core.StatusOK:
		return colorOK
	case core.StatusNearLimit:
		return colorWarn
	case core.StatusLimited, core.StatusError:
		return colorCrit
	case core.StatusAuth, core.StatusUnsupported:
		return colorAuth
	default:
		return colorUnknown
	}
}

func statusLabel(s core.Status) string {
	switch s {
	case core.StatusOK:
		return "OK"
	case core.StatusNearLimit:
		return "WARN"
	case core.StatusLimited:
		return "LIMIT"
	case core.StatusAuth:
		return "AUTH"
	case core.StatusUnsupported:
		return "N/A"
	case core.StatusError:
		return "ERR"
	default:
		return "..."
	}
}

func renderStatusPill(s core.Status) string {
	return statusPillStyle.Background(statusColor(s)).Render(statusLabel(s))
}

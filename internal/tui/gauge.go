package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/janekbaraniewski/copilotspend/internal/core"
)

// RenderGauge draws budget consumption as a bar filling left to right.
// percent is 0-100 used; negative renders a dimmed track with "N/A".
func RenderGauge(percent float64, width int, th core.Thresholds) string {
	if width < 5 {
		width = 5
	}
	if percent < 0 {
		return gaugeTrackStyle.Render(strings.Repeat("─", width)) + dimStyle.Render(" N/A")
	}

	shown := min(percent, 100)
	filled := int(shown / 100 * float64(width))
	empty := width - filled

	color := statusColor(th.StatusFor(percent))
	bar := lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("━", filled)) +
		gaugeTrackStyle.Render(strings.Repeat("━", empty))

	pct := lipgloss.NewStyle().Foreground(color).Bold(true).Render(fmt.Sprintf("%5.1f%%", percent))
	return bar + " " + pct
}

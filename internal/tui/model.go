package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/janekbaraniewski/copilotspend/internal/billing"
	"github.com/janekbaraniewski/copilotspend/internal/core"
)

const (
	gaugeWidth     = 16
	maxBreakdown   = 6
	manualHintText = "e.g. $95.86 spent $150.00 budget"
)

// SnapshotMsg delivers a refresh outcome from the engine.
type SnapshotMsg struct {
	Snapshot core.Snapshot
}

// SettingsMsg updates the values the model renders with, typically after a config reload.
type SettingsMsg struct {
	Manual     core.ManualFallback
	Thresholds core.Thresholds
}

type manualSavedMsg struct {
	amounts billing.ManualAmounts
	err     error
}

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Model is the persistent status element: one status line, an optional
// breakdown, and a manual-entry prompt.
type Model struct {
	width int
	now   time.Time

	snapshot   core.Snapshot
	hasData    bool
	refreshing bool
	manual     core.ManualFallback
	thresholds core.Thresholds

	showBreakdown bool
	editing       bool
	input         textinput.Model
	notice        string
	noticeErr     bool

	onRefresh func()
	onManual  func(billing.ManualAmounts) error
}

func NewModel(manual core.ManualFallback, th core.Thresholds) Model {
	return Model{
		manual:     manual,
		thresholds: th,
		refreshing: true,
		now:        time.Now(),
	}
}

// SetOnRefresh sets a callback invoked when the user requests a manual refresh.
func (m *Model) SetOnRefresh(fn func()) {
	m.onRefresh = fn
}

// SetOnManual sets the callback that persists manually entered figures.
func (m *Model) SetOnManual(fn func(billing.ManualAmounts) error) {
	m.onManual = fn
}

func (m Model) Init() tea.Cmd { return tickCmd() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tickMsg:
		m.now = time.Time(msg)
		return m, tickCmd()
	case SnapshotMsg:
		m.snapshot = msg.Snapshot
		m.hasData = true
		m.refreshing = false
		return m, nil
	case SettingsMsg:
		m.manual = msg.Manual
		m.thresholds = msg.Thresholds
		return m, nil
	case manualSavedMsg:
		if msg.err != nil {
			m.notice, m.noticeErr = "could not save: "+msg.err.Error(), true
			return m, nil
		}
		spent, budget := msg.amounts.Spent, msg.amounts.Budget
		m.manual = core.ManualFallback{Spent: &spent, Budget: &budget}
		m.notice, m.noticeErr = "manual values saved", false
		return m, nil
	case tea.KeyMsg:
		if m.editing {
			return m.handleInputKey(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "r":
		return m.requestRefresh(), nil
	case "b":
		m.showBreakdown = !m.showBreakdown
	case "m":
		return m.startManualEntry()
	case "esc":
		m.notice = ""
	}
	return m, nil
}

func (m Model) requestRefresh() Model {
	if m.refreshing && m.hasData {
		return m
	}
	m.refreshing = true
	m.notice = ""
	if m.onRefresh != nil {
		m.onRefresh()
	}
	return m
}

func (m Model) startManualEntry() (tea.Model, tea.Cmd) {
	ti := textinput.New()
	ti.Placeholder = manualHintText
	ti.CharLimit = 128
	ti.Width = 40
	if m.manual.Spent != nil && m.manual.Budget != nil {
		ti.SetValue(fmt.Sprintf("%s spent %s budget", core.FormatUSD(*m.manual.Spent), core.FormatUSD(*m.manual.Budget)))
	}
	ti.Focus()
	m.input = ti
	m.editing = true
	m.notice = ""
	return m, textinput.Blink
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.editing = false
		return m, nil
	case "enter":
		amounts, err := billing.ParseManualInput(m.input.Value())
		if err != nil {
			m.notice, m.noticeErr = "need two dollar amounts, "+manualHintText, true
			if errors.Is(err, billing.ErrManualGrouped) {
				m.notice = err.Error()
			}
			return m, nil
		}
		m.editing = false
		return m, m.saveManualCmd(amounts)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) saveManualCmd(amounts billing.ManualAmounts) tea.Cmd {
	save := m.onManual
	return func() tea.Msg {
		var err error
		if save != nil {
			err = save(amounts)
		}
		return manualSavedMsg{amounts: amounts, err: err}
	}
}

func (m Model) Display() core.Display {
	return core.BuildDisplay(m.snapshot, m.manual, m.thresholds)
}

func (m Model) View() string {
	lines := []string{m.renderStatusLine()}

	if m.editing {
		lines = append(lines, labelStyle.Render("manual: ")+m.input.View())
	}
	if m.notice != "" {
		style := tealStyle
		if m.noticeErr {
			style = errorStyle
		}
		lines = append(lines, style.Render(m.notice))
	}
	if m.hasData {
		d := m.Display()
		if d.Guidance != "" && !d.Manual {
			lines = append(lines, dimStyle.Render(d.Guidance))
		}
		if m.showBreakdown {
			lines = append(lines, m.renderBreakdown(d)...)
		}
	}
	lines = append(lines, m.renderHelp())

	if m.width > 0 {
		for i, l := range lines {
			lines[i] = ansi.Truncate(l, m.width, "…")
		}
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderStatusLine() string {
	brand := brandStyle.Render("copilot")
	if !m.hasData {
		return brand + " " + renderStatusPill(core.StatusUnknown) + " " + dimStyle.Render("loading...")
	}

	d := m.Display()
	parts := []string{brand, renderStatusPill(d.Status), valueStyle.Render(d.Text)}
	if d.Percent >= 0 {
		parts = append(parts, RenderGauge(d.Percent, gaugeWidth, m.thresholds))
	}
	if d.BudgetLabel != "" && !d.Manual {
		parts = append(parts, dimStyle.Render("["+d.BudgetLabel+"]"))
	}
	if m.refreshing {
		parts = append(parts, tealStyle.Render("refreshing"))
	} else if !d.UpdatedAt.IsZero() {
		parts = append(parts, dimStyle.Render(formatAge(m.now.Sub(d.UpdatedAt))))
	}
	return strings.Join(parts, " ")
}

func (m Model) renderBreakdown(d core.Display) []string {
	if len(d.Breakdown) == 0 {
		return []string{dimStyle.Render("  no breakdown available")}
	}
	rows := d.Breakdown
	more := 0
	if len(rows) > maxBreakdown {
		more = len(rows) - maxBreakdown
		rows = rows[:maxBreakdown]
	}
	out := make([]string, 0, len(rows)+1)
	for _, row := range rows {
		out = append(out, "  "+labelStyle.Render(fmt.Sprintf("%-28s", row.Product))+" "+valueStyle.Render(core.FormatUSD(row.Amount)))
	}
	if more > 0 {
		out = append(out, dimStyle.Render(fmt.Sprintf("  +%d more", more)))
	}
	return out
}

func (m Model) renderHelp() string {
	if m.editing {
		return helpKeyStyle.Render("enter") + helpStyle.Render(" save  ") +
			helpKeyStyle.Render("esc") + helpStyle.Render(" cancel")
	}
	keys := []struct{ key, desc string }{
		{"r", "refresh"},
		{"b", "breakdown"},
		{"m", "manual"},
		{"q", "quit"},
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, helpKeyStyle.Render(k.key)+helpStyle.Render(" "+k.desc))
	}
	return strings.Join(parts, "  ")
}

func formatAge(d time.Duration) string {
	switch {
	case d < 0:
		return "just now"
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	}
}

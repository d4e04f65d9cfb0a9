package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/janekbaraniewski/copilotspend/internal/billing"
	"github.com/janekbaraniewski/copilotspend/internal/core"
	"github.com/janekbaraniewski/copilotspend/internal/githubapi"
)

func fptr(v float64) *float64 { return &v }

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return out, cmd
}

func TestRequestRefreshInvokesCallback(t *testing.T) {
	m := NewModel(core.ManualFallback{}, core.DefaultThresholds())
	m, _ = update(t, m, SnapshotMsg{Snapshot: core.Snapshot{Result: &billing.FetchResult{Spent: 1}}})

	calls := 0
	m.SetOnRefresh(func() { calls++ })

	m, _ = update(t, m, keyMsg("r"))
	if !m.refreshing {
		t.Fatal("refreshing = false, want true")
	}
	m, _ = update(t, m, keyMsg("r"))
	if calls != 1 {
		t.Fatalf("refresh callback calls = %d, want 1 while a refresh is pending", calls)
	}

	m, _ = update(t, m, SnapshotMsg{Snapshot: core.Snapshot{Result: &billing.FetchResult{Spent: 2}}})
	if m.refreshing {
		t.Error("snapshot should clear the refreshing flag")
	}
}

func TestViewShowsLoadingThenResult(t *testing.T) {
	m := NewModel(core.ManualFallback{}, core.DefaultThresholds())
	if !strings.Contains(ansi.Strip(m.View()), "loading") {
		t.Errorf("initial view = %q", m.View())
	}

	m, _ = update(t, m, SnapshotMsg{Snapshot: core.Snapshot{Result: &billing.FetchResult{
		Spent: 80, Budget: fptr(100), BudgetLabel: "copilot_premium_request", FetchedAt: time.Now(),
	}}})
	view := ansi.Strip(m.View())
	for _, want := range []string{"$80.00 / $100.00", "WARN", "80.0%", "[copilot_premium_request]"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestViewUnknownBudgetHasNoGauge(t *testing.T) {
	m := NewModel(core.ManualFallback{}, core.DefaultThresholds())
	m, _ = update(t, m, SnapshotMsg{Snapshot: core.Snapshot{Result: &billing.FetchResult{Spent: 3}}})
	view := ansi.Strip(m.View())
	if !strings.Contains(view, "$3.00 spent") {
		t.Errorf("view = %q", view)
	}
	if strings.Contains(view, "$0.00") || strings.Contains(view, "%") {
		t.Errorf("unknown budget rendered as a number: %q", view)
	}
}

func TestViewErrorShowsGuidance(t *testing.T) {
	m := NewModel(core.ManualFallback{}, core.DefaultThresholds())
	err := &githubapi.StatusError{Status: 403, Path: "/user"}
	m, _ = update(t, m, SnapshotMsg{Snapshot: core.Snapshot{Err: err}})
	view := ansi.Strip(m.View())
	if !strings.Contains(view, "AUTH") || !strings.Contains(view, "billing unavailable") {
		t.Errorf("view = %q", view)
	}
	if !strings.Contains(view, billing.Guidance(err)[:20]) {
		t.Errorf("guidance missing from %q", view)
	}
}

func TestBreakdownToggle(t *testing.T) {
	m := NewModel(core.ManualFallback{}, core.DefaultThresholds())
	m, _ = update(t, m, SnapshotMsg{Snapshot: core.Snapshot{Result: &billing.FetchResult{
		Spent:     5,
		Breakdown: []billing.ProductAmount{{Product: "Copilot", Amount: 4}, {Product: "Other", Amount: 1}},
	}}})
	if strings.Contains(ansi.Strip(m.View()), "Other") {
		t.Fatal("breakdown shown before toggle")
	}
	m, _ = update(t, m, keyMsg("b"))
	view := ansi.Strip(m.View())
	if !strings.Contains(view, "Copilot") || !strings.Contains(view, "$1.00") {
		t.Errorf("breakdown missing:\n%s", view)
	}
}

func TestManualEntryFlow(t *testing.T) {
	m := NewModel(core.ManualFallback{}, core.DefaultThresholds())
	m, _ = update(t, m, SnapshotMsg{Snapshot: core.Snapshot{
		Err: &billing.FetchError{Status: 404, Message: "billing: premium request usage is not available for octocat"},
	}})

	var saved billing.ManualAmounts
	m.SetOnManual(func(a billing.ManualAmounts) error { saved = a; return nil })

	m, _ = update(t, m, keyMsg("m"))
	if !m.editing {
		t.Fatal("m should open the manual prompt")
	}
	m.input.SetValue("nothing useful")
	m, cmd := update(t, m, keyMsg("enter"))
	if !m.editing || !m.noticeErr || cmd != nil {
		t.Fatal("unparseable input should keep the prompt open with an error")
	}

	m.input.SetValue("$1,234.56 spent $2,000.00 budget")
	m, cmd = update(t, m, keyMsg("enter"))
	if !m.editing || cmd != nil || !strings.Contains(m.notice, "thousands separators") {
		t.Fatalf("grouped amounts should be refused, notice = %q", m.notice)
	}

	m.input.SetValue("$95.86 spent $150.00 budget")
	m, cmd = update(t, m, keyMsg("enter"))
	if m.editing || cmd == nil {
		t.Fatal("valid input should close the prompt and save")
	}
	m, _ = update(t, m, cmd())
	if saved.Spent != 95.86 || saved.Budget != 150 {
		t.Errorf("saved = %+v", saved)
	}

	view := ansi.Strip(m.View())
	if !strings.Contains(view, "$95.86 / $150.00") || !strings.Contains(view, "(manual)") {
		t.Errorf("view after manual entry = %q", view)
	}
}

func TestManualSaveError(t *testing.T) {
	m := NewModel(core.ManualFallback{}, core.DefaultThresholds())
	m.SetOnManual(func(billing.ManualAmounts) error { return errors.New("disk full") })
	m, _ = update(t, m, keyMsg("m"))
	m.input.SetValue("$1 $2")
	m, cmd := update(t, m, keyMsg("enter"))
	m, _ = update(t, m, cmd())
	if !m.noticeErr || !strings.Contains(m.notice, "disk full") {
		t.Errorf("notice = %q", m.notice)
	}
	if m.manual.Configured() {
		t.Error("failed save must not apply manual values")
	}
}

func TestEscCancelsManualEntry(t *testing.T) {
	m := NewModel(core.ManualFallback{}, core.DefaultThresholds())
	m, _ = update(t, m, keyMsg("m"))
	m, _ = update(t, m, keyMsg("esc"))
	if m.editing {
		t.Error("esc should close the prompt")
	}
	// q inside the prompt is text, outside it quits.
	m, _ = update(t, m, keyMsg("m"))
	m, _ = update(t, m, keyMsg("q"))
	if !m.editing || m.input.Value() != "q" {
		t.Errorf("q while editing should be typed, value = %q", m.input.Value())
	}
	m, _ = update(t, m, keyMsg("esc"))
	_, cmd := update(t, m, keyMsg("q"))
	if cmd == nil {
		t.Fatal("q should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should return tea.Quit")
	}
}

func TestViewTruncatesToWidth(t *testing.T) {
	m := NewModel(core.ManualFallback{}, core.DefaultThresholds())
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 20, Height: 5})
	m, _ = update(t, m, SnapshotMsg{Snapshot: core.Snapshot{Result: &billing.FetchResult{Spent: 12345.67, Budget: fptr(20000)}}})
	for _, line := range strings.Split(m.View(), "\n") {
		if w := ansi.StringWidth(line); w > 20 {
			t.Errorf("line width %d > 20: %q", w, ansi.Strip(line))
		}
	}
}

func TestSettingsMsgUpdatesThresholds(t *testing.T) {
	m := NewModel(core.ManualFallback{}, core.DefaultThresholds())
	m, _ = update(t, m, SnapshotMsg{Snapshot: core.Snapshot{Result: &billing.FetchResult{Spent: 60, Budget: fptr(100)}}})
	if m.Display().Status != core.StatusOK {
		t.Fatalf("status = %s", m.Display().Status)
	}
	m, _ = update(t, m, SettingsMsg{Thresholds: core.Thresholds{Warn: 0.5, Crit: 0.55}})
	if m.Display().Status != core.StatusLimited {
		t.Errorf("status after settings = %s, want limited", m.Display().Status)
	}
}

func TestFormatAge(t *testing.T) {
	tests := map[time.Duration]string{
		-time.Second:     "just now",
		5 * time.Second:  "5s ago",
		3 * time.Minute:  "3m ago",
		26 * time.Hour:   "26h ago",
		59 * time.Second: "59s ago",
	}
	for d, want := range tests {
		if got := formatAge(d); got != want {
			t.Errorf("formatAge(%v) = %q, want %q", d, got, want)
		}
	}
}

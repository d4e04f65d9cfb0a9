package core

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/janekbaraniewski/copilotspend/internal/billing"
	"github.com/janekbaraniewski/copilotspend/internal/githubapi"
)

func fptr(v float64) *float64 { return &v }

func TestBuildDisplay_NothingYet(t *testing.T) {
	d := BuildDisplay(Snapshot{}, ManualFallback{}, DefaultThresholds())
	if d.Status != StatusUnknown || d.Spent != nil {
		t.Errorf("display = %+v", d)
	}
}

func TestBuildDisplay_Result(t *testing.T) {
	at := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		name       string
		spent      float64
		budget     *float64
		wantText   string
		wantStatus Status
	}{
		{"no budget never shows zero", 12.5, nil, "$12.50 spent", StatusOK},
		{"under warn", 10, fptr(100), "$10.00 / $100.00 (10%)", StatusOK},
		{"warn", 80, fptr(100), "$80.00 / $100.00 (80%)", StatusNearLimit},
		{"critical", 95.86, fptr(100), "$95.86 / $100.00 (96%)", StatusLimited},
		{"zero budget", 3, fptr(0), "$3.00 / $0.00", StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := Snapshot{
				Result:     &billing.FetchResult{Spent: tt.spent, Budget: tt.budget, Source: billing.SourceUser, FetchedAt: at},
				AuthSource: "gh",
			}
			d := BuildDisplay(snap, ManualFallback{}, DefaultThresholds())
			if d.Text != tt.wantText {
				t.Errorf("Text = %q, want %q", d.Text, tt.wantText)
			}
			if d.Status != tt.wantStatus {
				t.Errorf("Status = %s, want %s", d.Status, tt.wantStatus)
			}
			if d.Manual || d.Stale {
				t.Error("fresh result must not be marked manual or stale")
			}
			if !d.UpdatedAt.Equal(at) || d.Source != "user" || d.AuthSource != "gh" {
				t.Errorf("display = %+v", d)
			}
		})
	}
}

func TestBuildDisplay_ManualDegrade(t *testing.T) {
	manual := ManualFallback{Spent: fptr(95.86), Budget: fptr(150)}
	for _, err := range []error{
		fmt.Errorf("billing: organization %q: %w", "acme", billing.ErrNoUsageData),
		&billing.FetchError{Status: http.StatusNotFound, Message: "billing: premium request usage is not available for octocat"},
		&githubapi.StatusError{Status: 404, Path: "/x", Body: "Not Found"},
		errors.New("migrate to the enhanced billing platform"),
	} {
		d := BuildDisplay(Snapshot{Err: err}, manual, DefaultThresholds())
		if !d.Manual {
			t.Errorf("%v: expected manual degrade", err)
			continue
		}
		if d.Text != "$95.86 / $150.00 (64%) (manual)" {
			t.Errorf("%v: Text = %q", err, d.Text)
		}
		if d.Guidance != "" {
			t.Errorf("%v: manual display should not carry guidance", err)
		}
	}
}

func TestBuildDisplay_ManualNotUsedForOtherErrors(t *testing.T) {
	manual := ManualFallback{Spent: fptr(1), Budget: fptr(2)}
	err := &githubapi.StatusError{Status: http.StatusForbidden, Path: "/x", Body: "Resource not accessible by integration"}
	d := BuildDisplay(Snapshot{Err: err}, manual, DefaultThresholds())
	if d.Manual {
		t.Fatal("403 must not degrade to manual values")
	}
	if d.Status != StatusAuth {
		t.Errorf("Status = %s, want auth", d.Status)
	}
	if !strings.Contains(d.Guidance, "token") {
		t.Errorf("Guidance = %q", d.Guidance)
	}
}

func TestBuildDisplay_ErrorWithoutManual(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus Status
	}{
		{&githubapi.StatusError{Status: 404, Path: "/x"}, StatusUnsupported},
		{&githubapi.StatusError{Status: 401, Path: "/x"}, StatusAuth},
		{&githubapi.StatusError{Status: 500, Path: "/x"}, StatusError},
		{fmt.Errorf("core: %w: %w", ErrNoCredentials, errors.New("empty")), StatusAuth},
		{&githubapi.TransportError{Op: "request", Path: "/x", Err: errors.New("dial")}, StatusError},
	}
	for _, tt := range tests {
		d := BuildDisplay(Snapshot{Err: tt.err}, ManualFallback{}, DefaultThresholds())
		if d.Status != tt.wantStatus {
			t.Errorf("%v: Status = %s, want %s", tt.err, d.Status, tt.wantStatus)
		}
		if d.Text != "billing unavailable" || d.Guidance == "" || d.Error == "" {
			t.Errorf("%v: display = %+v", tt.err, d)
		}
		if d.Spent != nil {
			t.Errorf("%v: failure without history must not show an amount", tt.err)
		}
	}
}

func TestBuildDisplay_StaleIsMarked(t *testing.T) {
	snap := Snapshot{
		Err:      errors.New("connection reset"),
		Previous: &billing.FetchResult{Spent: 4, Budget: fptr(10)},
	}
	d := BuildDisplay(snap, ManualFallback{}, DefaultThresholds())
	if !d.Stale || !strings.HasSuffix(d.Text, "(stale)") {
		t.Errorf("display = %+v, want stale marker", d)
	}
	if d.Status != StatusError || d.Percent != 40 {
		t.Errorf("display = %+v", d)
	}
}

func TestThresholds_StatusFor(t *testing.T) {
	th := Thresholds{Warn: 0.5, Crit: 0.8}
	for pct, want := range map[float64]Status{
		-1: StatusOK, 0: StatusOK, 49.9: StatusOK, 50: StatusNearLimit, 79: StatusNearLimit, 80: StatusLimited, 140: StatusLimited,
	} {
		if got := th.StatusFor(pct); got != want {
			t.Errorf("StatusFor(%v) = %s, want %s", pct, got, want)
		}
	}
}

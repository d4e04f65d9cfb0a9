package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/janekbaraniewski/copilotspend/internal/billing"
	"github.com/janekbaraniewski/copilotspend/internal/config"
	"github.com/janekbaraniewski/copilotspend/internal/core"
)

func writeSettings(t *testing.T, cfg map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.json")
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("COPILOTSPEND_DEBUG", "")
	var out bytes.Buffer
	root := newRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(args)
	err := root.ExecuteContext(t.Context())
	return out.String(), err
}

func billingServer(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q", got)
		}
		body, ok := routes[r.URL.Path]
		if !ok {
			http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchCommand_OrganizationText(t *testing.T) {
	srv := billingServer(t, map[string]string{
		"/organizations/acme/settings/billing/premium_request/usage": `{"usageItems":[
			{"product":"Copilot","sku":"Copilot Premium Request","netAmount":25}
		]}`,
		"/organizations/acme/settings/billing/budgets": `{"budgets":[
			{"budget_amount":100,"budget_product_sku":"copilot_premium_request"}
		]}`,
	})
	path := writeSettings(t, map[string]any{"api_base_url": srv.URL})

	out, err := runRoot(t, "fetch", "--config", path, "--token", "test-token", "--org", "acme")
	if err != nil {
		t.Fatalf("fetch error: %v\n%s", err, out)
	}
	if !strings.Contains(out, "$25.00 / $100.00 (25%)") {
		t.Errorf("output missing amounts:\n%s", out)
	}
	if !strings.Contains(out, "copilot_premium_request") {
		t.Errorf("output missing budget label:\n%s", out)
	}
	if !strings.Contains(out, "token:   flag") {
		t.Errorf("output missing token source:\n%s", out)
	}
}

func TestFetchCommand_ManualDegradeJSON(t *testing.T) {
	srv := billingServer(t, map[string]string{})
	path := writeSettings(t, map[string]any{
		"api_base_url": srv.URL,
		"org":          "acme",
		"manual":       map[string]any{"spent": 40, "budget": 50},
	})

	out, err := runRoot(t, "fetch", "--config", path, "--token", "test-token", "--json")
	if err != nil {
		t.Fatalf("manual degrade should not fail: %v", err)
	}
	var got fetchOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if !got.Manual {
		t.Error("expected manual figures")
	}
	if !strings.Contains(got.Display, "$40.00 / $50.00") {
		t.Errorf("display = %q", got.Display)
	}
	if got.Status != core.StatusNearLimit {
		t.Errorf("status = %q, want %q", got.Status, core.StatusNearLimit)
	}
}

func TestFetchCommand_ServerErrorFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()
	path := writeSettings(t, map[string]any{
		"api_base_url": srv.URL,
		"manual":       map[string]any{"spent": 1, "budget": 2},
	})

	out, err := runRoot(t, "fetch", "--config", path, "--token", "test-token", "--org", "acme")
	if err == nil {
		t.Fatal("expected error for HTTP 500")
	}
	if !strings.Contains(out, "billing unavailable") {
		t.Errorf("output = %q", out)
	}
}

func TestManualCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")

	out, err := runRoot(t, "manual", "--config", path, "$95.86", "spent", "of", "$150.00")
	if err != nil {
		t.Fatalf("manual error: %v", err)
	}
	if !strings.Contains(out, "$95.86 spent of $150.00 budget") {
		t.Errorf("output = %q", out)
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Manual.Spent == nil || *cfg.Manual.Spent != 95.86 {
		t.Errorf("spent = %v", cfg.Manual.Spent)
	}

	if _, err := runRoot(t, "manual", "--config", path, "--clear"); err != nil {
		t.Fatalf("manual --clear error: %v", err)
	}
	cfg, _ = config.LoadFrom(path)
	if cfg.Manual.Spent != nil {
		t.Errorf("spent = %v after clear", *cfg.Manual.Spent)
	}
}

func TestManualCommand_RejectsSingleAmount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if _, err := runRoot(t, "manual", "--config", path, "$12"); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("settings file should not be written on parse failure")
	}
}

func TestManualCommand_RejectsThousandsSeparators(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	_, err := runRoot(t, "manual", "--config", path, "$1,234.56 spent $2,000.00 budget")
	if !errors.Is(err, billing.ErrManualGrouped) {
		t.Fatalf("err = %v, want ErrManualGrouped", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("settings file should not be written for grouped amounts")
	}
}

func TestOrgCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")

	if _, err := runRoot(t, "org", "--config", path, "acme"); err != nil {
		t.Fatal(err)
	}
	out, err := runRoot(t, "org", "--config", path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "acme" {
		t.Errorf("org = %q, want acme", out)
	}

	if _, err := runRoot(t, "org", "--config", path, "--personal"); err != nil {
		t.Fatal(err)
	}
	out, _ = runRoot(t, "org", "--config", path)
	if strings.TrimSpace(out) != "personal account" {
		t.Errorf("org = %q, want personal account", out)
	}
}

func TestAuthCommands_CredentialsFollowConfigDir(t *testing.T) {
	for _, name := range []string{"COPILOTSPEND_TOKEN", "GITHUB_TOKEN", "GH_TOKEN"} {
		t.Setenv(name, "")
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/user" || r.Header.Get("Authorization") != "Bearer ghp_stored_token" {
			http.Error(w, `{"message":"Bad credentials"}`, http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"login":"octocat"}`))
	}))
	defer srv.Close()
	path := writeSettings(t, map[string]any{"api_base_url": srv.URL})
	credsPath := filepath.Join(filepath.Dir(path), "credentials.json")

	out, err := runRoot(t, "auth", "login", "--config", path, "--token", "ghp_stored_token")
	if err != nil {
		t.Fatalf("auth login: %v\n%s", err, out)
	}
	if !strings.Contains(out, "authenticated as octocat") || !strings.Contains(out, credsPath) {
		t.Errorf("login output = %q", out)
	}
	creds, err := config.LoadCredentialsFrom(credsPath)
	if err != nil {
		t.Fatal(err)
	}
	if tok, ok := creds.Token(config.GitHubAccount); !ok || tok.Login != "octocat" {
		t.Fatalf("stored token = %+v, %v", tok, ok)
	}

	out, err = runRoot(t, "auth", "status", "--config", path)
	if err != nil {
		t.Fatalf("auth status: %v", err)
	}
	if !strings.Contains(out, "source: credentials") || !strings.Contains(out, "user:   octocat") {
		t.Errorf("status output = %q", out)
	}

	if out, err = runRoot(t, "auth", "logout", "--config", path); err != nil || !strings.Contains(out, "stored token removed") {
		t.Fatalf("auth logout = %q, %v", out, err)
	}
	creds, _ = config.LoadCredentialsFrom(credsPath)
	if _, ok := creds.Token(config.GitHubAccount); ok {
		t.Error("token should be removed from the config directory")
	}
}

func TestApplyOverrides(t *testing.T) {
	opts := &globalOptions{org: " acme ", filter: "actions"}
	cfg := opts.applyOverrides(config.Config{Org: "other", Filter: "premium"})
	if cfg.Org != "acme" || cfg.Filter != "actions" {
		t.Errorf("overrides = %q/%q", cfg.Org, cfg.Filter)
	}

	cfg = (&globalOptions{}).applyOverrides(config.Config{Org: "other", Filter: "premium"})
	if cfg.Org != "other" || cfg.Filter != "premium" {
		t.Errorf("empty overrides changed config: %q/%q", cfg.Org, cfg.Filter)
	}
}

func TestEngineSettings_FetchTimeout(t *testing.T) {
	cfg := config.DefaultConfig()
	if got := engineSettings(cfg).FetchTimeout; got != core.DefaultFetchTimeout {
		t.Errorf("fetch timeout = %v, want %v", got, core.DefaultFetchTimeout)
	}

	cfg.RequestTimeoutSeconds = 30
	if got := engineSettings(cfg).FetchTimeout; got != 2*time.Minute {
		t.Errorf("fetch timeout = %v, want 2m", got)
	}
}

func TestMetricsMux_Healthz(t *testing.T) {
	srv := httptest.NewServer(metricsMux(prometheus.NewRegistry()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

package appupdate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/mod/semver"

	"github.com/janekbaraniewski/copilotspend/internal/parsers"
)

const (
	LatestReleasePath     = "/repos/janekbaraniewski/copilotspend/releases/latest"
	defaultRequestTimeout = 3 * time.Second
	binaryName            = "copilotspend"
)

// Getter is satisfied by githubapi.Client.
type Getter interface {
	Get(ctx context.Context, token, path string) (parsers.Value, error)
}

type InstallMethod string

const (
	InstallMethodUnknown   InstallMethod = "unknown"
	InstallMethodHomebrew  InstallMethod = "homebrew"
	InstallMethodGoInstall InstallMethod = "go_install"
)

type CheckOptions struct {
	CurrentVersion string
	ExecutablePath string
	Token          string // optional, raises the anonymous rate limit
	Timeout        time.Duration
}

type Result struct {
	UpdateAvailable bool
	CurrentVersion  string
	LatestVersion   string
	InstallMethod   InstallMethod
	UpgradeHint     string
}

// Check compares the running version with the latest GitHub release.
// Development builds (non-semver versions) are never reported as outdated.
func Check(ctx context.Context, api Getter, opts CheckOptions) (Result, error) {
	current := normalizeReleaseVersion(opts.CurrentVersion)
	method := detectInstallMethod(resolveExecutablePath(opts.ExecutablePath))

	result := Result{
		CurrentVersion: current,
		InstallMethod:  method,
		UpgradeHint:    upgradeHint(method),
	}
	if current == "" {
		return result, nil
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	payload, err := api.Get(ctx, opts.Token, LatestReleasePath)
	if err != nil {
		return result, fmt.Errorf("fetch latest release: %w", err)
	}
	tag := payload.TextField("tag_name")
	latest := normalizeReleaseVersion(tag)
	if latest == "" {
		return result, fmt.Errorf("latest release tag is not a stable semver: %q", tag)
	}

	result.LatestVersion = latest
	result.UpdateAvailable = semver.Compare(latest, current) > 0
	return result, nil
}

func resolveExecutablePath(explicit string) string {
	if p := strings.TrimSpace(explicit); p != "" {
		return normalizePath(p)
	}
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil && resolved != "" {
		exe = resolved
	}
	return normalizePath(exe)
}

func normalizePath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	return strings.ToLower(filepath.ToSlash(filepath.Clean(path)))
}

func detectInstallMethod(path string) InstallMethod {
	switch {
	case path == "":
		return InstallMethodUnknown
	case strings.Contains(path, "/cellar/"+binaryName+"/"), path == "/opt/homebrew/bin/"+binaryName:
		return InstallMethodHomebrew
	case isGoBinPath(path):
		return InstallMethodGoInstall
	default:
		return InstallMethodUnknown
	}
}

func isGoBinPath(path string) bool {
	dir := filepath.ToSlash(filepath.Dir(path))
	if strings.HasSuffix(dir, "/go/bin") {
		return true
	}
	if gobin := normalizePath(os.Getenv("GOBIN")); gobin != "" && dir == gobin {
		return true
	}
	for _, gp := range filepath.SplitList(os.Getenv("GOPATH")) {
		if gp = normalizePath(gp); gp != "" && dir == gp+"/bin" {
			return true
		}
	}
	return false
}

func upgradeHint(method InstallMethod) string {
	switch method {
	case InstallMethodHomebrew:
		return "brew upgrade janekbaraniewski/tap/" + binaryName
	case InstallMethodGoInstall:
		return "go install github.com/janekbaraniewski/copilotspend/cmd/copilotspend@latest"
	default:
		return "download the latest release from https://github.com/janekbaraniewski/copilotspend/releases/latest"
	}
}

func normalizeReleaseVersion(value string) string {
	v := strings.TrimSpace(value)
	if v == "" {
		return ""
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) || semver.Prerelease(v) != "" || semver.Build(v) != "" {
		return ""
	}
	return semver.Canonical(v)
}

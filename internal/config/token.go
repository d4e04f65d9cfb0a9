package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/samber/lo"
)

// ErrNoToken means no source in the chain produced a token.
var ErrNoToken = errors.New("no GitHub token found: set GITHUB_TOKEN, run `copilotspend auth login`, or sign in with `gh auth login`")

var tokenEnvVars = []string{"COPILOTSPEND_TOKEN", "GITHUB_TOKEN", "GH_TOKEN"}

const ghTimeout = 5 * time.Second

// TokenResolver walks a ranked chain of token sources:
// explicit flag, environment, credentials file, then `gh auth token`.
type TokenResolver struct {
	Explicit        string
	CredentialsPath string
	GHBinary        string

	// Overridable for tests.
	Getenv func(string) string
	RunGH  func(ctx context.Context, binary string, args ...string) (string, error)
}

type tokenSource struct {
	name   string
	lookup func(ctx context.Context) string
}

func NewTokenResolver(explicit string) *TokenResolver {
	return &TokenResolver{
		Explicit:        explicit,
		CredentialsPath: CredentialsPath(),
		GHBinary:        "gh",
	}
}

// Resolve returns the first non-empty token and a label naming its source.
func (r *TokenResolver) Resolve(ctx context.Context) (string, string, error) {
	for _, src := range r.chain() {
		if tok := strings.TrimSpace(src.lookup(ctx)); tok != "" {
			return tok, src.name, nil
		}
	}
	return "", "", ErrNoToken
}

func (r *TokenResolver) chain() []tokenSource {
	getenv := r.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	sources := []tokenSource{{name: "flag", lookup: func(context.Context) string { return r.Explicit }}}
	sources = append(sources, lo.Map(tokenEnvVars, func(name string, _ int) tokenSource {
		return tokenSource{name: name, lookup: func(context.Context) string { return getenv(name) }}
	})...)
	return append(sources,
		tokenSource{name: "credentials", lookup: func(context.Context) string { return r.fromCredentials() }},
		tokenSource{name: "gh", lookup: r.fromGH},
	)
}

func (r *TokenResolver) fromCredentials() string {
	if r.CredentialsPath == "" {
		return ""
	}
	creds, err := LoadCredentialsFrom(r.CredentialsPath)
	if err != nil {
		return ""
	}
	tok, _ := creds.Token(GitHubAccount)
	return tok.Token
}

func (r *TokenResolver) fromGH(ctx context.Context) string {
	if r.GHBinary == "" {
		return ""
	}
	run := r.RunGH
	if run == nil {
		if _, err := exec.LookPath(r.GHBinary); err != nil {
			return ""
		}
		run = runGH
	}
	ctx, cancel := context.WithTimeout(ctx, ghTimeout)
	defer cancel()
	out, err := run(ctx, r.GHBinary, "auth", "token")
	if err != nil {
		return ""
	}
	return firstLine(out)
}

func runGH(ctx context.Context, binary string, args ...string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s %s: %w: %s", binary, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(line)
}

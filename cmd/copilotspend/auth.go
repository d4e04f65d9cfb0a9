package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/janekbaraniewski/copilotspend/internal/billing"
	"github.com/janekbaraniewski/copilotspend/internal/config"
	"github.com/janekbaraniewski/copilotspend/internal/parsers"
)

func newAuthCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the stored GitHub token",
		Long: "Tokens are resolved in order: --token, COPILOTSPEND_TOKEN, GITHUB_TOKEN,\n" +
			"GH_TOKEN, the credentials file written by 'auth login', then 'gh auth token'.",
	}

	cmd.AddCommand(newAuthLoginCommand(opts))
	cmd.AddCommand(newAuthLogoutCommand(opts))
	cmd.AddCommand(newAuthStatusCommand(opts))
	return cmd
}

func newAuthLoginCommand(opts *globalOptions) *cobra.Command {
	var skipVerify bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store a token read from --token or standard input",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			token := strings.TrimSpace(opts.token)
			if token == "" {
				var err error
				if token, err = readToken(cmd.InOrStdin()); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			stored := config.StoredToken{Token: token}
			if !skipVerify {
				login, err := verifyToken(cmd.Context(), opts, token)
				if err != nil {
					return fmt.Errorf("token rejected: %w", err)
				}
				stored.Login = login
				fmt.Fprintf(out, "authenticated as %s\n", login)
			}

			path := opts.credentialsPath()
			if err := config.SaveTokenTo(path, config.GitHubAccount, stored); err != nil {
				return fmt.Errorf("save token: %w", err)
			}
			fmt.Fprintf(out, "token %s saved to %s\n", parsers.RedactToken(token), path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipVerify, "skip-verify", false, "store the token without calling the GitHub API")
	return cmd
}

func newAuthLogoutCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			removed, err := config.DeleteTokenFrom(opts.credentialsPath(), config.GitHubAccount)
			if err != nil {
				return fmt.Errorf("delete token: %w", err)
			}
			if !removed {
				fmt.Fprintln(cmd.OutOrStdout(), "no stored token")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "stored token removed")
			return nil
		},
	}
}

func newAuthStatusCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which token would be used",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if _, err := config.LoadCredentialsFrom(opts.credentialsPath()); err != nil {
				fmt.Fprintf(out, "warning: stored token ignored: %v\n", err)
			}

			token, source, err := opts.tokenResolver().Resolve(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "token:  %s\n", parsers.RedactToken(token))
			fmt.Fprintf(out, "source: %s\n", source)

			login, err := verifyToken(cmd.Context(), opts, token)
			if err != nil {
				fmt.Fprintf(out, "user:   unknown (%v)\n", err)
				if hint := billing.Guidance(err); hint != "" {
					fmt.Fprintf(out, "hint:   %s\n", hint)
				}
				return nil
			}
			fmt.Fprintf(out, "user:   %s\n", login)
			return nil
		},
	}
}

func readToken(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read token: %w", err)
	}
	token := strings.TrimSpace(line)
	if token == "" {
		return "", errors.New("no token given: pass --token or pipe one on standard input")
	}
	return token, nil
}

// verifyToken asks GitHub who the token belongs to.
func verifyToken(ctx context.Context, opts *globalOptions, token string) (string, error) {
	rt, err := newRuntime(opts, runtimeOptions{})
	if err != nil {
		return "", err
	}
	user, err := rt.client.Get(ctx, token, "/user")
	if err != nil {
		return "", err
	}
	login := user.TextField("login")
	if login == "" {
		return "", billing.ErrIdentityUnknown
	}
	return login, nil
}

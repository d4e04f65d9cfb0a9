package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/janekbaraniewski/copilotspend/internal/appupdate"
	"github.com/janekbaraniewski/copilotspend/internal/version"
)

func newVersionCommand(opts *globalOptions) *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "copilotspend %s\n", version.String())
			if !check {
				return nil
			}

			rt, err := newRuntime(opts, runtimeOptions{})
			if err != nil {
				return err
			}
			// Anonymous requests work, a token only raises the rate limit.
			token, _, _ := opts.tokenResolver().Resolve(cmd.Context())

			res, err := appupdate.Check(cmd.Context(), rt.client, appupdate.CheckOptions{
				CurrentVersion: version.Version,
				Token:          token,
			})
			if err != nil {
				return fmt.Errorf("update check: %w", err)
			}
			switch {
			case res.CurrentVersion == "":
				fmt.Fprintln(out, "development build, update check skipped")
			case res.UpdateAvailable:
				fmt.Fprintf(out, "update available: %s -> %s\n", res.CurrentVersion, res.LatestVersion)
				fmt.Fprintf(out, "  %s\n", res.UpgradeHint)
			default:
				fmt.Fprintf(out, "up to date (latest %s)\n", res.LatestVersion)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "check GitHub for a newer release")
	return cmd
}

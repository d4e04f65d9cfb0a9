package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "copilotspend",
		Short: "copilotspend shows GitHub Copilot premium request spend against your budget.",
		Long: "copilotspend polls the GitHub billing API and keeps a one-line status of\n" +
			"spend versus budget in the terminal. Without --org it reports on the\n" +
			"authenticated user's personal account.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDashboard(cmd.Context(), opts)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "settings file; credentials.json is kept in the same directory (default "+defaultConfigHint()+")")
	flags.StringVar(&opts.token, "token", "", "GitHub token (overrides environment and stored credentials)")
	flags.StringVar(&opts.org, "org", "", "organization to report on (default: personal account)")
	flags.StringVar(&opts.filter, "filter", "", "product/SKU filter text (default \"premium\")")

	root.AddCommand(
		newFetchCommand(opts),
		newWatchCommand(opts),
		newManualCommand(opts),
		newOrgCommand(opts),
		newAuthCommand(opts),
		newVersionCommand(opts),
	)
	return root
}

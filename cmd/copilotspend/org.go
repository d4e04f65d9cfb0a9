package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/janekbaraniewski/copilotspend/internal/config"
)

func newOrgCommand(opts *globalOptions) *cobra.Command {
	var personal bool

	cmd := &cobra.Command{
		Use:   "org [name]",
		Short: "Show or set the organization billed against",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.settingsPath()
			out := cmd.OutOrStdout()

			switch {
			case personal:
				if err := config.SaveOrgTo(path, ""); err != nil {
					return err
				}
				fmt.Fprintln(out, "reporting on the personal account")
			case len(args) == 1:
				if err := config.SaveOrgTo(path, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(out, "reporting on organization %s\n", args[0])
			default:
				cfg, err := opts.loadConfig()
				if err != nil {
					return err
				}
				if cfg.Org == "" {
					fmt.Fprintln(out, "personal account")
				} else {
					fmt.Fprintln(out, cfg.Org)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&personal, "personal", false, "clear the organization and use the personal account")
	return cmd
}

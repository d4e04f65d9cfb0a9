package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/janekbaraniewski/copilotspend/internal/billing"
	"github.com/janekbaraniewski/copilotspend/internal/config"
	"github.com/janekbaraniewski/copilotspend/internal/core"
)

func newManualCommand(opts *globalOptions) *cobra.Command {
	var clearFigures bool

	cmd := &cobra.Command{
		Use:   "manual <text>",
		Short: "Store spend and budget copied from the GitHub billing page",
		Long: "Store manual figures shown when the billing API is unavailable for the account.\n" +
			"The first dollar amount in the text is spent, the second is the budget.\n" +
			"Write amounts without thousands separators (\"$1234.56\", not \"$1,234.56\"):\n\n" +
			"  copilotspend manual '$95.86 spent of $150.00 budget'",
		Args: func(cmd *cobra.Command, args []string) error {
			if clearFigures {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.MinimumNArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.settingsPath()
			if clearFigures {
				if err := config.ClearManualTo(path); err != nil {
					return fmt.Errorf("clear manual figures: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "manual figures cleared")
				return nil
			}

			amounts, err := billing.ParseManualInput(strings.Join(args, " "))
			if err != nil {
				return err
			}
			if err := config.SaveManualTo(path, amounts.Spent, amounts.Budget); err != nil {
				return fmt.Errorf("save manual figures: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s spent of %s budget to %s\n",
				core.FormatUSD(amounts.Spent), core.FormatUSD(amounts.Budget), path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&clearFigures, "clear", false, "remove stored manual figures")
	return cmd
}

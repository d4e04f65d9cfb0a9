package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/janekbaraniewski/copilotspend/internal/billing"
	"github.com/janekbaraniewski/copilotspend/internal/core"
)

type fetchOutput struct {
	Result     *billing.FetchResult `json:"result,omitempty"`
	Display    string               `json:"display"`
	Status     core.Status          `json:"status"`
	Manual     bool                 `json:"manual,omitempty"`
	AuthSource string               `json:"auth_source,omitempty"`
	Error      string               `json:"error,omitempty"`
	Guidance   string               `json:"guidance,omitempty"`
}

func newFetchCommand(opts *globalOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch spend once and print it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newRuntime(opts, runtimeOptions{})
			if err != nil {
				return err
			}
			defer func() { _ = rt.logger.Sync() }()

			snap, fetchErr := rt.engine.Refresh(cmd.Context())
			d := core.BuildDisplay(snap, manualFallback(rt.config()), thresholds(rt.config()))

			out := cmd.OutOrStdout()
			if asJSON {
				if err := writeFetchJSON(out, snap, d); err != nil {
					return err
				}
			} else {
				writeFetchText(out, d)
			}
			// A manual degrade is a usable answer.
			if fetchErr != nil && !d.Manual {
				return fetchErr
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

func writeFetchJSON(w io.Writer, snap core.Snapshot, d core.Display) error {
	out := fetchOutput{
		Result:     snap.Result,
		Display:    d.Text,
		Status:     d.Status,
		Manual:     d.Manual,
		AuthSource: snap.AuthSource,
		Error:      d.Error,
		Guidance:   d.Guidance,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func writeFetchText(w io.Writer, d core.Display) {
	fmt.Fprintf(w, "%s  %s\n", d.Status, d.Text)
	if d.BudgetLabel != "" {
		fmt.Fprintf(w, "budget:  %s\n", d.BudgetLabel)
	}
	if d.AuthSource != "" {
		fmt.Fprintf(w, "token:   %s\n", d.AuthSource)
	}
	for _, row := range d.Breakdown {
		fmt.Fprintf(w, "  %-28s %s\n", row.Product, core.FormatUSD(row.Amount))
	}
	if d.Error != "" {
		fmt.Fprintf(w, "error:   %s\n", d.Error)
	}
	if d.Guidance != "" {
		fmt.Fprintf(w, "hint:    %s\n", d.Guidance)
	}
	if !d.UpdatedAt.IsZero() {
		fmt.Fprintf(w, "as of:   %s\n", d.UpdatedAt.Local().Format(time.RFC1123))
	}
}

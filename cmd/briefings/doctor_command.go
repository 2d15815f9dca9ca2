package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"briefings/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run local readiness checks without the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			color := shouldColorize(out)

			results := preflight.RunAll(cmd.Context(), cfg)
			printLines(out, renderSectionHeader("Preflight", color))
			for _, r := range results {
				fmt.Fprintln(out, renderStatusLine(r.Name, passFail(r.Passed), r.Detail, color))
			}
			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d of %d checks failed", len(failed), len(results))
			}
			return nil
		},
	}
}

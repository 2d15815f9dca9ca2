package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"briefings/internal/apiclient"
	"briefings/internal/workflow"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check the generation and speech services through the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				report, err := client.Health(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, report)
				}
				out := cmd.OutOrStdout()
				color := shouldColorize(out)
				printLines(out, renderSectionHeader("Services", color))
				fmt.Fprintln(out, renderStatusLine("Speech", healthKind(report.Health.Speech.Status, report.Health.Speech.Warning), speechDetail(report.Health.Speech), color))
				gen := report.Health.Generation
				detail := gen.WarningReason
				if detail == "" {
					detail = "key configured: " + yesNo(gen.KeyConfigured)
				}
				fmt.Fprintln(out, renderStatusLine("Generation", healthKind(gen.Status, gen.Warning), detail, color))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func healthKind(status string, warning bool) statusKind {
	switch {
	case status != "ok":
		return statusError
	case warning:
		return statusWarn
	default:
		return statusOK
	}
}

func speechDetail(h workflow.SpeechHealth) string {
	if h.Error != "" {
		return h.Error
	}
	if h.CharactersLimit == 0 {
		return h.Status
	}
	return fmt.Sprintf("%d of %d characters used (%.1f%%, %s tier)", h.CharactersUsed, h.CharactersLimit, h.PctUsed, h.Tier)
}

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"briefings/internal/apiclient"
)

var cronRoutines = []string{"nightly-trailers", "autoqueue", "morning-prep"}

func newCronCommand(ctx *commandContext) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:       "cron <" + strings.Join(cronRoutines, "|") + ">",
		Short:     "Trigger a scheduled routine now",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: cronRoutines,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				raw, err := client.Cron(cmd.Context(), args[0], force)
				if err != nil {
					return err
				}
				return writeRawJSON(cmd, raw)
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Run even if the routine already ran today")

	cmd.AddCommand(&cobra.Command{
		Use:   "nightly-status",
		Short: "Show the last nightly trailer run",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				run, err := client.NightlyStatus(cmd.Context())
				if err != nil {
					return err
				}
				if run == nil {
					fmt.Fprintln(cmd.OutOrStdout(), "No nightly run recorded")
					return nil
				}
				return writeJSON(cmd, run)
			})
		},
	})
	return cmd
}

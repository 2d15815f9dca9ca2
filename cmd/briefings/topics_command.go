package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"briefings/internal/apiclient"
)

func newTopicsCommand(ctx *commandContext) *cobra.Command {
	var refresh bool
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "topics",
		Short: "Show today's topics and weekly usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				view, err := client.Topics(cmd.Context(), refresh)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, view)
				}
				out := cmd.OutOrStdout()
				rows := make([][]string, 0, len(view.Topics))
				for i, topic := range view.Topics {
					rank := topic.Rank
					if rank == 0 {
						rank = i + 1
					}
					rows = append(rows, []string{strconv.Itoa(rank), truncate(topic.Title, 44), truncate(topic.Tension, 44)})
				}
				if len(rows) > 0 {
					fmt.Fprint(out, renderTable([]string{"#", "Title", "Tension"}, rows, []columnAlignment{alignRight}))
				}
				fmt.Fprintf(out, "%d of %d productions this week, %d remaining\n",
					view.ProductionsThisWeek, view.WeeklyCap, view.Remaining)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Regenerate today's topics")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

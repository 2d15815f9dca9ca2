package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"briefings/internal/apiclient"
)

func newSeriesCommand(ctx *commandContext) *cobra.Command {
	seriesCmd := &cobra.Command{
		Use:   "series",
		Short: "Create and inspect multi-episode series",
	}
	seriesCmd.AddCommand(newSeriesListCommand(ctx))
	seriesCmd.AddCommand(newSeriesCreateCommand(ctx))
	seriesCmd.AddCommand(newSeriesShowCommand(ctx))
	return seriesCmd
}

func newSeriesListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List series",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				list, err := client.SeriesList(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, list)
				}
				out := cmd.OutOrStdout()
				if len(list) == 0 {
					fmt.Fprintln(out, "No series yet")
					return nil
				}
				color := shouldColorize(out)
				rows := make([][]string, 0, len(list))
				for _, s := range list {
					rows = append(rows, []string{
						s.ID,
						truncate(s.Title, 40),
						colorStatus(string(s.Status), color),
						fmt.Sprintf("%d/%d", s.Completed, s.Total),
						formatTime(s.CreatedAt),
					})
				}
				fmt.Fprint(out, renderTable(
					[]string{"ID", "Title", "Status", "Done", "Created"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newSeriesCreateCommand(ctx *commandContext) *cobra.Command {
	var episodesFlag int
	var voices voiceFlags
	cmd := &cobra.Command{
		Use:   "create <topic>",
		Short: "Outline and produce a series",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				id, title, err := client.CreateSeries(cmd.Context(), apiclient.SeriesParams{
					Prompt:      strings.TrimSpace(strings.Join(args, " ")),
					NumEpisodes: episodesFlag,
					VoiceA:      voices.alex,
					VoiceB:      voices.morgan,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Started series %s: %s\n", id, title)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&episodesFlag, "episodes", "n", 0, "Number of episodes (default 6)")
	voices.register(cmd)
	return cmd
}

func newSeriesShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a series and its episode jobs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				view, err := client.Series(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, view)
				}
				out := cmd.OutOrStdout()
				color := shouldColorize(out)
				fmt.Fprintf(out, "%s  %s  [%s]  %d/%d episodes\n", view.ID, view.Title,
					colorStatus(string(view.Status), color), view.Completed, view.Total)
				if view.Error != "" {
					fmt.Fprintf(out, "Error: %s\n", view.Error)
				}
				if len(view.JobStatuses) == 0 {
					return nil
				}
				rows := make([][]string, 0, len(view.JobStatuses))
				for _, ep := range view.JobStatuses {
					rows = append(rows, []string{
						strconv.Itoa(ep.Episode),
						truncate(ep.Title, 40),
						ep.JobID,
						colorStatus(ep.Status, color),
						truncate(ep.Progress, 32),
					})
				}
				fmt.Fprint(out, renderTable(
					[]string{"#", "Title", "Job", "Status", "Progress"},
					rows,
					[]columnAlignment{alignRight},
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

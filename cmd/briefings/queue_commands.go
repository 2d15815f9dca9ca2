package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"briefings/internal/apiclient"
	"briefings/internal/jobs"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage active jobs",
	}
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued and running jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				view, err := client.Queue(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, view)
				}
				out := cmd.OutOrStdout()
				if len(view.Active) == 0 {
					fmt.Fprintln(out, "Queue is empty")
					return nil
				}
				fmt.Fprint(out, renderTable(
					[]string{"ID", "Type", "Status", "Progress", "Updated"},
					buildJobRows(view.Active, shouldColorize(out)),
					nil,
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove queued and failed jobs (running jobs are kept)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				cleared, err := client.ClearQueue(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d job(s)\n", cleared)
				return nil
			})
		},
	}
}

func newJobCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "job <id>",
		Short: "Show one job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				job, err := client.Job(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, job)
				}
				out := cmd.OutOrStdout()
				color := shouldColorize(out)
				fmt.Fprintf(out, "Job:      %s (%s)\n", job.ID, job.Type)
				fmt.Fprintf(out, "Status:   %s\n", colorStatus(string(job.Status), color))
				fmt.Fprintf(out, "Progress: %s\n", job.Progress)
				fmt.Fprintf(out, "Created:  %s\n", formatTime(job.CreatedAt))
				fmt.Fprintf(out, "Updated:  %s\n", formatTime(job.UpdatedAt))
				if job.SeriesID != "" {
					fmt.Fprintf(out, "Series:   %s episode %d\n", job.SeriesID, job.SeriesEp)
				}
				if job.Error != "" {
					fmt.Fprintf(out, "Error:    %s\n", job.Error)
				}
				if len(job.Result) > 0 {
					fmt.Fprintf(out, "Result:   %s\n", string(job.Result))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func buildJobRows(list []jobs.Job, color bool) [][]string {
	rows := make([][]string, 0, len(list))
	for _, job := range list {
		rows = append(rows, []string{
			job.ID,
			string(job.Type),
			colorStatus(string(job.Status), color),
			truncate(job.Progress, 40),
			formatTime(job.UpdatedAt),
		})
	}
	return rows
}

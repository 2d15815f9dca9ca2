package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"briefings/internal/apiclient"
)

func newEpisodesCommand(ctx *commandContext) *cobra.Command {
	episodesCmd := &cobra.Command{
		Use:   "episodes",
		Short: "List and delete published episodes",
	}
	episodesCmd.AddCommand(newEpisodesListCommand(ctx))
	episodesCmd.AddCommand(newEpisodesDeleteCommand(ctx))
	return episodesCmd
}

func newEpisodesListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var trailers bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List episodes, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				listing, err := client.Episodes(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, listing)
				}
				out := cmd.OutOrStdout()
				rows := make([][]string, 0, len(listing.Episodes))
				for _, ep := range listing.Episodes {
					if ep.IsTrailer && !trailers {
						continue
					}
					kind := ep.Depth
					if ep.IsTrailer {
						kind = "trailer"
					}
					rows = append(rows, []string{
						ep.ID,
						truncate(ep.Title, 44),
						kind,
						formatSize(ep.FileSize),
						formatTime(ep.Published),
					})
				}
				if len(rows) == 0 {
					fmt.Fprintln(out, "No episodes yet")
					return nil
				}
				fmt.Fprint(out, renderTable(
					[]string{"ID", "Title", "Kind", "Size", "Published"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
				fmt.Fprintf(out, "%d full episode(s), %d trailer(s)\n", listing.FullCount, listing.TrailerCount)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&trailers, "trailers", false, "Include trailers")
	return cmd
}

func newEpisodesDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an episode and its audio",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				title, err := client.DeleteEpisode(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s (%s)\n", args[0], title)
				return nil
			})
		},
	}
}

func newFeedCommand(ctx *commandContext) *cobra.Command {
	feedCmd := &cobra.Command{
		Use:   "feed",
		Short: "Podcast feed utilities",
	}
	feedCmd.AddCommand(&cobra.Command{
		Use:   "rebuild",
		Short: "Re-render feed.xml from the episode list",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				count, err := client.RebuildFeed(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Feed rebuilt with %d episode(s)\n", count)
				return nil
			})
		},
	})
	return feedCmd
}

func formatSize(bytes int64) string {
	const mb = 1 << 20
	if bytes <= 0 {
		return "-"
	}
	if bytes < mb {
		return fmt.Sprintf("%d KB", bytes/1024)
	}
	return fmt.Sprintf("%.1f MB", float64(bytes)/mb)
}

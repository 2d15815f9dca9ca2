package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"briefings/internal/bus"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow job and episode events from the event bus",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.Events.NATSURL == "" {
				return errors.New("events.nats_url is not configured")
			}
			client, err := bus.Connect(cfg.Events.NATSURL)
			if err != nil {
				return fmt.Errorf("connect to event bus: %w", err)
			}
			defer client.Close()

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			out := cmd.OutOrStdout()
			color := shouldColorize(out)
			var mu sync.Mutex
			subject := strings.Trim(cfg.Events.SubjectPrefix, ".") + ".>"
			sub, err := client.SubscribeJSON(subject, func(_ context.Context, subject string, data []byte) {
				mu.Lock()
				defer mu.Unlock()
				printEvent(out, subject, data, color)
			})
			if err != nil {
				return fmt.Errorf("subscribe %s: %w", subject, err)
			}
			defer func() { _ = sub.Unsubscribe() }()

			fmt.Fprintf(out, "Watching %s on %s (Ctrl-C to stop)\n", subject, cfg.Events.NATSURL)
			<-signalCtx.Done()
			return nil
		},
	}
}

func printEvent(w io.Writer, subject string, data []byte, color bool) {
	fmt.Fprintln(w, formatEvent(subject, data, color))
}

func formatEvent(subject string, data []byte, color bool) string {
	switch {
	case strings.HasSuffix(subject, ".episode.published"):
		var ev bus.EpisodeEvent
		if err := json.Unmarshal(data, &ev); err == nil {
			return fmt.Sprintf("%s published %s %q (job %s)",
				formatTime(ev.Episode.Published), ev.Episode.ID, ev.Episode.Title, ev.JobID)
		}
	case strings.Contains(subject, ".job."):
		var ev bus.JobEvent
		if err := json.Unmarshal(data, &ev); err == nil {
			line := fmt.Sprintf("%s job %s %s %s", formatTime(ev.At), ev.JobID, ev.Type, colorStatus(ev.Status, color))
			if ev.SeriesID != "" {
				line += fmt.Sprintf(" series=%s ep=%d", ev.SeriesID, ev.SeriesEp)
			}
			if ev.Error != "" {
				return line + " error=" + ev.Error
			}
			if ev.Progress != "" {
				return line + " " + ev.Progress
			}
			return line
		}
	}
	return subject + " " + string(data)
}

package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"briefings/internal/apiclient"
	"briefings/internal/daemonctl"
	"briefings/internal/daemonrun"
)

func newDaemonRunCommand(ctx *commandContext) *cobra.Command {
	var logLevel string
	var development bool
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the briefings daemon in the foreground",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel:    logLevel,
				Development: development,
			})
		},
	}
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&development, "dev", false, "Include source locations in log lines")
	return cmd
}

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	var startLogLevel string
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the briefings daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("resolve executable: %w", err)
			}
			result, err := daemonctl.EnsureStarted(cmd.Context(), daemonctl.APIProbe{Client: client}, exe,
				daemonctl.LaunchOptions{ConfigPath: ctx.configPath(), LogLevel: startLogLevel},
				15*time.Second,
			)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch result.State {
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintf(out, "Daemon already running (pid %d)\n", result.PID)
			default:
				fmt.Fprintf(out, "Daemon started (pid %d)\n", result.PID)
			}
			return nil
		},
	}
	startCmd.Flags().StringVar(&startLogLevel, "log-level", "", "Override logging.level for the launched daemon")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the briefings daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			result, err := daemonctl.Stop(cmd.Context(), cfg, 10*time.Second)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(out, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.ForcedKill {
				fmt.Fprintf(out, "Daemon did not exit in time; killed pid %d\n", result.PID)
				return nil
			}
			fmt.Fprintf(out, "Daemon stopped (pid %d)\n", result.PID)
			return nil
		},
	}

	var statusJSON bool
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and workflow status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			st, err := client.Status(cmd.Context())
			if err != nil && !apiclient.IsUnavailable(err) {
				return err
			}
			if statusJSON {
				if err != nil {
					return writeJSON(cmd, map[string]any{"running": false})
				}
				return writeJSON(cmd, st)
			}

			out := cmd.OutOrStdout()
			color := shouldColorize(out)
			printLines(out, renderSectionHeader("Daemon", color))
			if err != nil {
				fmt.Fprintln(out, renderStatusLine("Briefings", statusError, "Not running", color))
				return nil
			}
			fmt.Fprintln(out, renderStatusLine("Briefings", statusOK, fmt.Sprintf("Running (pid %d)", st.PID), color))
			fmt.Fprintln(out, renderStatusLine("API", statusInfo, st.APIBind, color))
			fmt.Fprintln(out, renderStatusLine("Data directory", statusInfo, st.DataDir, color))

			wf := st.Workflow
			fmt.Fprintln(out)
			printLines(out, renderSectionHeader("Workflow", color))
			fmt.Fprintln(out, renderStatusLine("Workers", statusInfo, fmt.Sprintf("%d busy of %d", wf.Running, wf.Workers), color))
			fmt.Fprintln(out, renderStatusLine("Active jobs", statusInfo, fmt.Sprintf("%d", wf.ActiveJobs), color))
			fmt.Fprintln(out, renderStatusLine("Episodes", statusInfo, fmt.Sprintf("%d", wf.Episodes), color))
			fmt.Fprintln(out, renderStatusLine("Series", statusInfo, fmt.Sprintf("%d", wf.Series), color))
			usage := wf.Productions
			capKind := statusOK
			if usage.Remaining <= 0 {
				capKind = statusWarn
			}
			fmt.Fprintln(out, renderStatusLine("This week", capKind,
				fmt.Sprintf("%d of %d productions (%d remaining)", usage.ThisWeek, usage.WeeklyCap, usage.Remaining), color))
			fmt.Fprintln(out, renderStatusLine("Generation key", passFail(wf.GenerationOK), yesNo(wf.GenerationOK), color))
			fmt.Fprintln(out, renderStatusLine("Speech key", passFail(wf.SpeechOK), yesNo(wf.SpeechOK), color))
			return nil
		},
	}
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output as JSON")

	return []*cobra.Command{startCmd, stopCmd, statusCmd}
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"briefings/internal/apiclient"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				sent, message, err := client.TestNotification(cmd.Context())
				if err != nil {
					return err
				}
				switch {
				case message != "":
					fmt.Fprintln(cmd.OutOrStdout(), message)
				case sent:
					fmt.Fprintln(cmd.OutOrStdout(), "Test notification sent")
				default:
					fmt.Fprintln(cmd.OutOrStdout(), "Notification not sent")
				}
				return nil
			})
		},
	}
}

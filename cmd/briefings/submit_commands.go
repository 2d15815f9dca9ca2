package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"briefings/internal/apiclient"
)

type voiceFlags struct {
	alex   string
	morgan string
}

func (v *voiceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&v.alex, "voice-alex", "", "Voice name or id for the Alex host")
	cmd.Flags().StringVar(&v.morgan, "voice-morgan", "", "Voice name or id for the Morgan host")
}

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var params apiclient.GenerateParams
	var voices voiceFlags

	cmd := &cobra.Command{
		Use:   "generate <topic title>",
		Short: "Queue one episode or trailer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params.Title = strings.TrimSpace(strings.Join(args, " "))
			params.VoiceA, params.VoiceB = voices.alex, voices.morgan
			return ctx.withClient(func(client *apiclient.Client) error {
				id, err := client.Generate(cmd.Context(), params)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued job %s\n", id)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&params.Depth, "depth", "", "Episode depth: quick, standard or deep")
	cmd.Flags().BoolVar(&params.Trailer, "trailer", false, "Produce a short trailer instead of a full episode")
	cmd.Flags().StringVar(&params.TrailerHook, "hook", "", "Trailer hook line")
	cmd.Flags().StringVar(&params.Brief, "brief", "", "Production brief passed to the script writer")
	voices.register(cmd)
	return cmd
}

func newChatCommand(ctx *commandContext) *cobra.Command {
	var voices voiceFlags

	cmd := &cobra.Command{
		Use:   "chat <message>",
		Short: "Queue an episode from a free-form request",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			message := strings.TrimSpace(strings.Join(args, " "))
			if message == "" {
				return errors.New("message is required")
			}
			return ctx.withClient(func(client *apiclient.Client) error {
				id, err := client.Chat(cmd.Context(), apiclient.ChatParams{
					Message: message,
					VoiceA:  voices.alex,
					VoiceB:  voices.morgan,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued job %s\n", id)
				return nil
			})
		},
	}
	voices.register(cmd)
	return cmd
}

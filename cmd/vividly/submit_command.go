package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"vividly/internal/api"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var correlationID string
	var personalization string
	var style string
	var answer string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "submit <topic>",
		Short: "Submit a content generation request",
		Long: "Submit a content generation request to the daemon. Submission is\n" +
			"idempotent on the correlation ID: resubmitting with the same ID returns\n" +
			"the existing request instead of creating a duplicate.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}

			if correlationID == "" {
				correlationID = uuid.NewString()
			}
			response, err := client.submit(cmd.Context(), api.SubmitRequest{
				CorrelationID:       correlationID,
				TopicRef:            args[0],
				PersonalizationRef:  personalization,
				Style:               style,
				ClarificationAnswer: answer,
			})
			if err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(cmd, response)
			}

			out := cmd.OutOrStdout()
			if response.Created {
				fmt.Fprintf(out, "Submitted request %s (correlation %s)\n", response.Request.ID, response.Request.CorrelationID)
			} else {
				fmt.Fprintf(out, "Request %s already exists for correlation %s\n", response.Request.ID, response.Request.CorrelationID)
			}
			printRequestDetail(out, response.Request)
			return nil
		},
	}

	cmd.Flags().StringVar(&correlationID, "correlation-id", "", "Idempotency key (generated when omitted)")
	cmd.Flags().StringVar(&personalization, "personalization", "", "Personalization context reference")
	cmd.Flags().StringVar(&style, "style", "", "Requested style: text_only, text_and_audio, or text_and_video")
	cmd.Flags().StringVar(&answer, "answer", "", "Clarification answer for a parked request")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON output")
	return cmd
}

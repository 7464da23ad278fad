package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"vividly/internal/api"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and maintain the request queue",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List requests, optionally filtered by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			views, err := client.list(cmd.Context(), statuses)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, api.RequestListResponse{Requests: views})
			}

			out := cmd.OutOrStdout()
			if len(views) == 0 {
				fmt.Fprintln(out, "Queue is empty")
				return nil
			}

			rows := make([][]string, 0, len(views))
			for _, view := range views {
				detail := ""
				if view.Error != nil {
					detail = view.Error.Code
				} else if view.Degraded {
					detail = "degraded"
				}
				rows = append(rows, []string{
					view.ID,
					truncateRef(view.TopicRef, 32),
					view.Style,
					view.Status,
					strconv.Itoa(view.Progress) + "%",
					detail,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Topic", "Style", "Status", "Progress", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Filter by status (repeatable)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON output")
	return cmd
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "retry [request-id...]",
		Short: "Requeue failed requests (all failed requests when no IDs given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			response, err := client.retryFailed(cmd.Context(), args)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Requeued %d request(s)\n", response.Requeued)
			return nil
		},
	}
	return cmd
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove completed requests from the tracker",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			response, err := client.clearCompleted(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d completed request(s)\n", response.Removed)
			return nil
		},
	}
	return cmd
}

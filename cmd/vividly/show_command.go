package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"vividly/internal/api"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <request-id|correlation-id>",
		Short: "Show the current state of a request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			view, err := client.describe(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, api.RequestResponse{Request: view})
			}
			printRequestDetail(cmd.OutOrStdout(), view)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON output")
	return cmd
}

func printRequestDetail(out io.Writer, view api.RequestView) {
	colorize := shouldColorize(out)

	fmt.Fprintf(out, "Request %s\n", view.ID)
	fmt.Fprintln(out, renderStatusLine("Status", statusKindForRequest(view), fmt.Sprintf("%s (%d%%)", view.Status, view.Progress), colorize))
	fmt.Fprintln(out, renderStatusLine("Style", statusInfo, view.Style, colorize))
	if view.ResolvedTitle != "" {
		fmt.Fprintln(out, renderStatusLine("Title", statusInfo, view.ResolvedTitle, colorize))
	}
	if view.Degraded {
		fmt.Fprintln(out, renderStatusLine("Degraded", statusWarn, "artifact produced with fallback content", colorize))
	}
	if view.RetryCount > 0 {
		fmt.Fprintln(out, renderStatusLine("Retries", statusWarn, fmt.Sprintf("%d", view.RetryCount), colorize))
	}
	refs := []struct {
		label string
		value string
	}{
		{"Script", view.ScriptRef},
		{"Audio", view.AudioRef},
		{"Video", view.VideoRef},
	}
	for _, ref := range refs {
		if ref.value != "" {
			fmt.Fprintln(out, renderStatusLine(ref.label, statusOK, ref.value, colorize))
		}
	}
	if view.Clarification != nil {
		fmt.Fprintln(out, renderStatusLine("Clarification", statusWarn, view.Clarification.Reason, colorize))
		for _, question := range view.Clarification.Questions {
			fmt.Fprintf(out, "    - %s\n", question)
		}
		fmt.Fprintln(out, "  Resubmit with --correlation-id and --answer to continue.")
	}
	if view.Error != nil {
		detail := fmt.Sprintf("%s in %s: %s", view.Error.Code, view.Error.Stage, view.Error.Message)
		fmt.Fprintln(out, renderStatusLine("Error", statusError, detail, colorize))
	}
}

func statusKindForRequest(view api.RequestView) statusKind {
	switch view.Status {
	case "completed":
		return statusOK
	case "failed", "blocked":
		return statusError
	case "clarification_needed":
		return statusWarn
	default:
		return statusInfo
	}
}

func truncateRef(ref string, max int) string {
	if len(ref) <= max {
		return ref
	}
	if max <= 3 {
		return ref[:max]
	}
	return strings.TrimSpace(ref[:max-3]) + "..."
}

package cli

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

// NewEventsCommand creates the events command.
func NewEventsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "events",
		Short:         "List the gateway's debug events",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			envelope, err := newGatewayClient(rootOpts).getJSON(cmd.Context(), "/api/v1/debug/events")
			if err != nil {
				return err
			}
			if rootOpts.Format == "json" {
				return printResponse(cmd.OutOrStdout(), rootOpts.Format, envelope)
			}

			data, _ := envelope.Data.(map[string]interface{})
			events, _ := data["events"].([]interface{})
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d debug events (enabled: %v)\n", len(events), data["enabled"])
			for _, raw := range events {
				event, ok := raw.(map[string]interface{})
				if !ok {
					continue
				}
				fmt.Fprintf(out, "%s  %s  %s\n", event["id"], event["event_type"], event["summary"])
			}
			return nil
		},
	}
}

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	EventID string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "export",
		Short:         "Print the debug session export, or one event with --event",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/debug/export"
			if opts.EventID != "" {
				path = "/api/v1/debug/events/" + url.PathEscape(opts.EventID) + "/export"
			}

			text, err := newGatewayClient(opts.RootOptions).getText(cmd.Context(), path)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), text)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.EventID, "event", "", "export a single event by id")

	return cmd
}

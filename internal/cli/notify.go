package cli

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"notification-bridge/pkg/models"
)

// NotifyOptions holds flags for the notify command.
type NotifyOptions struct {
	*RootOptions
	State   string
	Payload string
}

// NewNotifyCommand creates the notify command.
func NewNotifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &NotifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "notify <device-id>",
		Short: "Deliver a remote notification for a device",
		Long: `Deliver a remote notification for a device.

The gateway routes it to foreground-push when the lifecycle state is
active and to push-opened otherwise.

Example:
  bridgectl notify device-1 --state background --payload '{"id":"42"}'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var payload models.Payload
			if err := json.Unmarshal([]byte(opts.Payload), &payload); err != nil {
				return fmt.Errorf("invalid --payload JSON: %w", err)
			}

			envelope, err := newGatewayClient(opts.RootOptions).postJSON(cmd.Context(), "/api/v1/notifications", models.NotificationRequest{
				DeviceID:       args[0],
				LifecycleState: opts.State,
				Payload:        payload,
			})
			if err != nil {
				return err
			}
			return printResponse(cmd.OutOrStdout(), opts.Format, envelope)
		},
	}

	cmd.Flags().StringVar(&opts.State, "state", "active", "application lifecycle state (active|inactive|background)")
	cmd.Flags().StringVar(&opts.Payload, "payload", "{}", "notification payload as JSON")

	return cmd
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

package cli

import (
	"github.com/spf13/cobra"

	"notification-bridge/pkg/models"
)

// RegisterOptions holds flags for the register command.
type RegisterOptions struct {
	*RootOptions
	Status       string
	WithCallback bool
}

// NewRegisterCommand creates the register command.
func NewRegisterCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RegisterOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "register <device-id> <hex-token>",
		Short: "Register a device token",
		Long: `Register a device token with the upstream SDK.

Without --status the gateway resolves the device's current
authorization status from its stored settings.

Example:
  bridgectl register device-1 0a1b2c3d... --status authorized --callback`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			envelope, err := newGatewayClient(opts.RootOptions).postJSON(cmd.Context(), "/api/v1/tokens", models.TokenRequest{
				DeviceID:            args[0],
				Token:               args[1],
				AuthorizationStatus: opts.Status,
				WithCallback:        opts.WithCallback,
			})
			if err != nil {
				return err
			}
			return printResponse(cmd.OutOrStdout(), opts.Format, envelope)
		},
	}

	cmd.Flags().StringVar(&opts.Status, "status", "", "authorization status label")
	cmd.Flags().BoolVar(&opts.WithCallback, "callback", false, "use the callback registration path")

	return cmd
}

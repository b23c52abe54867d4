package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ibeckermayer/rewards4me/internal/auth"
)

func loginCmd() *cobra.Command {
	var email, device string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log accounts in now",
		Long: `Log every configured account in on each of its device classes, or a
single account with --email. One-time codes are read from the terminal.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, closeApp, err := newApp()
			if err != nil {
				return err
			}
			defer closeApp()

			if email == "" {
				return a.LoginAll(cmd.Context())
			}

			class, err := auth.ParseDeviceClass(device)
			if err != nil {
				return err
			}
			result, err := a.LoginAccount(cmd.Context(), email, class)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s): %s, bing: %s\n",
				email, class, result.Outcome, result.Secondary)
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "only log this account in")
	cmd.Flags().StringVarP(&device, "device", "d", string(auth.Desktop), "device class for --email (desktop or mobile)")
	return cmd
}

package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/ibeckermayer/rewards4me/internal/auth"
	browseropts "github.com/ibeckermayer/rewards4me/internal/browser"
)

func openCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "open <config|sessions>",
		Short:     "Open the config file or the sessions directory",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"config", "sessions"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			var err error

			switch args[0] {
			case "config":
				path, err = configPath()
			case "sessions":
				path, err = cfg.SessionsDir()
				if err == nil {
					err = os.MkdirAll(path, 0700)
				}
			}
			if err != nil {
				return fmt.Errorf("failed to get path: %w", err)
			}

			return browser.OpenFile(path)
		},
	}
}

func botTestCmd() *cobra.Command {
	var device string

	cmd := &cobra.Command{
		Use:   "bot-test",
		Short: "Open bot.sannysoft.com to audit the browser fingerprint",
		RunE: func(cmd *cobra.Command, args []string) error {
			class, err := auth.ParseDeviceClass(device)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			go func() {
				fmt.Fprintln(cmd.OutOrStdout(), "Press Enter to close the browser...")
				fmt.Fscanln(os.Stdin)
				cancel()
			}()

			return browseropts.Open(ctx, "https://bot.sannysoft.com", class)
		},
	}

	cmd.Flags().StringVarP(&device, "device", "d", string(auth.Desktop), "device class to emulate")
	return cmd
}

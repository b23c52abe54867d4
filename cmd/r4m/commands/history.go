package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ibeckermayer/rewards4me/internal/store"
)

func historyCmd() *cobra.Command {
	var email string
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent login attempts",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := cfg.HistoryPath()
			if err != nil {
				return err
			}
			s, err := store.New(path)
			if err != nil {
				return err
			}
			defer s.Close()

			attempts, err := s.RecentAttempts(cmd.Context(), email, limit)
			if err != nil {
				return err
			}
			if len(attempts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No login attempts recorded yet")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "STARTED\tACCOUNT\tDEVICE\tOUTCOME\tCHALLENGE\tBING\tTOOK\tERROR")
			for _, a := range attempts {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					a.StartedAt.Local().Format("2006-01-02 15:04"),
					a.Email, a.Device, a.Outcome, a.Challenge, a.Secondary,
					a.Duration().Round(time.Second), a.Error)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "only show this account")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of attempts to show")
	return cmd
}

package cmd

import (
	"fmt"
	"io"

	"github.com/matlukowski/readTube-sub000/internal/models"
	"github.com/matlukowski/readTube-sub000/internal/services/usage"
	"github.com/spf13/cobra"
)

func newQuotaCmd(state *runtimeState) *cobra.Command {
	quotaCmd := &cobra.Command{
		Use:   "quota",
		Short: "Inspect or grant transcription minutes",
		Long: `Manage the per-caller usage ledger. Callers are identified by the
X-Caller-ID header; requests without one are charged to "anonymous".`,
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show a caller's ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, _ := cmd.Flags().GetString("caller")
			return withUsage(cmd, state, func(svc *usage.Service) error {
				ledger, err := svc.Ledger(cmd.Context(), caller)
				if err != nil {
					return err
				}
				printLedger(cmd.OutOrStdout(), ledger)
				return nil
			})
		},
	}

	grantCmd := &cobra.Command{
		Use:   "grant",
		Short: "Add minutes to a caller's allowance",
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, _ := cmd.Flags().GetString("caller")
			minutes, _ := cmd.Flags().GetInt64("minutes")
			if minutes <= 0 {
				return fmt.Errorf("--minutes must be positive")
			}
			return withUsage(cmd, state, func(svc *usage.Service) error {
				ledger, err := svc.Grant(cmd.Context(), caller, minutes)
				if err != nil {
					return err
				}
				printLedger(cmd.OutOrStdout(), ledger)
				return nil
			})
		},
	}
	grantCmd.Flags().Int64("minutes", 0, "minutes to add")

	for _, c := range []*cobra.Command{showCmd, grantCmd} {
		c.Flags().String("caller", "anonymous", "caller id")
		quotaCmd.AddCommand(c)
	}
	return quotaCmd
}

// withUsage opens only the database and the ledger backend
func withUsage(cmd *cobra.Command, state *runtimeState, fn func(*usage.Service) error) error {
	db, err := openDatabase(state.cfg, state.logger)
	if err != nil {
		return err
	}
	defer db.Close()

	svc, closer, err := newUsageService(cmd.Context(), state.cfg, db, state.logger)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}
	return fn(svc)
}

func printLedger(w io.Writer, l *models.UsageLedger) {
	fmt.Fprintf(w, "Caller:     %s\n", l.CallerID)
	fmt.Fprintf(w, "Used:       %d min\n", l.MinutesUsed)
	fmt.Fprintf(w, "Granted:    %d min\n", l.MinutesGranted)
	fmt.Fprintf(w, "Remaining:  %d min\n", l.Remaining())
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Marga-Ghale/ora-family-backend/internal/repository"
	"github.com/spf13/cobra"
)

// errUnbalanced is returned when any wallet disagrees with its history, so
// scripts can rely on the exit status.
var errUnbalanced = errors.New("unbalanced wallets found")

// NewReconcileCommand creates the reconcile command.
func NewReconcileCommand(rootOpts *RootOptions) *cobra.Command {
	var family string

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Compare every wallet of a family with the sum of its history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer rt.Close()

			familyID, err := resolveFamily(cmd.Context(), rt.store.Repos(), family)
			if err != nil {
				return err
			}

			report, err := rt.services.Wallet.Reconcile(cmd.Context(), familyID)
			if err != nil {
				return err
			}

			unbalanced := 0
			for _, e := range report {
				if !e.Balanced {
					unbalanced++
				}
			}
			if err := writeResult(cmd.OutOrStdout(), rootOpts.Format, report, func(w io.Writer) {
				for _, e := range report {
					status := "ok"
					if !e.Balanced {
						status = "MISMATCH"
					}
					printf(w, "%-8s %-32s total=%d history=%d\n", status, e.MemberEmail, e.TotalPoints, e.HistorySum)
				}
				printf(w, "%d wallets, %d unbalanced\n", len(report), unbalanced)
			}); err != nil {
				return err
			}
			if unbalanced > 0 {
				return errUnbalanced
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&family, "family", "", "family id or account email")
	_ = cmd.MarkFlagRequired("family")
	return cmd
}

// resolveFamily accepts either a family id or the family account email.
func resolveFamily(ctx context.Context, repos *repository.Repositories, ref string) (string, error) {
	var (
		f   *repository.Family
		err error
	)
	if strings.Contains(ref, "@") {
		f, err = repos.FamilyRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(ref)))
	} else {
		f, err = repos.FamilyRepo.FindByID(ctx, ref)
	}
	if err != nil {
		return "", err
	}
	if f == nil {
		return "", fmt.Errorf("family %q not found", ref)
	}
	return f.ID, nil
}

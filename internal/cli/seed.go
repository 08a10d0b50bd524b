package cli

import (
	"io"

	"github.com/Marga-Ghale/ora-family-backend/internal/seed"
	"github.com/spf13/cobra"
)

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a YAML fixture of families, members and tasks",
		Long: `Load a YAML fixture through the service layer.

Families whose account email already exists are skipped, so the same
file can be applied repeatedly.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fixture, err := seed.Load(file)
			if err != nil {
				return err
			}

			rt, err := newRuntime(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer rt.Close()

			sum, err := seed.NewSeeder(rt.services, rt.store, rt.log.Component("Seed")).Apply(cmd.Context(), fixture)
			if err != nil {
				return err
			}
			return writeResult(cmd.OutOrStdout(), rootOpts.Format, sum, func(w io.Writer) {
				printf(w, "seeded %d families (%d skipped): %d members, %d tasks, %d assignments, %d wishlist items\n",
					sum.Families, sum.Skipped, sum.Members, sum.Tasks, sum.Assignments, sum.Items)
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "seed/dev.yaml", "fixture file")
	return cmd
}

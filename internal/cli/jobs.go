package cli

import (
	"github.com/Marga-Ghale/ora-family-backend/internal/cron"
	"github.com/spf13/cobra"
)

// NewJobsCommand creates the jobs command, which runs scheduled jobs once.
func NewJobsCommand(rootOpts *RootOptions) *cobra.Command {
	var penalize bool

	cmd := &cobra.Command{
		Use:       "jobs <overdue|cleanup|all>",
		Short:     "Run a scheduled job immediately",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"overdue", "cleanup", "all"},
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer rt.Close()

			if !cmd.Flags().Changed("penalize") {
				penalize = rt.cfg.AutoPenaltyEnabled
			}
			scheduler := cron.NewScheduler(rt.services.Task, rt.services.Auth, cron.Options{
				AutoPenalty: penalize,
			}, rt.log.Component("Cron"))
			return scheduler.ManualTrigger(args[0])
		},
	}

	cmd.Flags().BoolVar(&penalize, "penalize", false, "apply penalties to assignments marked late (default AUTO_PENALTY_ENABLED)")
	return cmd
}

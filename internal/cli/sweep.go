package cli

import (
	"quiz-battle-arena/internal/app"
	"quiz-battle-arena/internal/config"

	"github.com/spf13/cobra"
)

// NewSweepCmd runs a single maintenance pass, for use from cron when the
// server's own sweeper is not enough.
func NewSweepCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Pair the queue once and expire stale challenges, battles and queue entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			s, err := buildStack(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer s.Close()

			report, err := app.NewSweeper(s.engine, s.matcher, cfg.SweepInterval(), logger).RunOnce(cmd.Context())
			logger.Info("sweep finished",
				"matched", report.Matched,
				"queue_expired", report.QueueExpired,
				"challenges_expired", report.ChallengesExpired,
				"battles_timed_out", report.BattlesTimedOut)
			return err
		},
	}
}

package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// SweepReport counts what one maintenance pass changed.
type SweepReport struct {
	Matched           int `json:"matched"`
	QueueExpired      int `json:"queueExpired"`
	ChallengesExpired int `json:"challengesExpired"`
	BattlesTimedOut   int `json:"battlesTimedOut"`
}

// Sweeper periodically pairs the queue and enforces expiry and battle timeouts.
type Sweeper struct {
	engine   *BattleEngine
	matcher  *QueueMatcher
	interval time.Duration
	logger   *slog.Logger

	scheduler gocron.Scheduler
}

func NewSweeper(engine *BattleEngine, matcher *QueueMatcher, interval time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{engine: engine, matcher: matcher, interval: interval, logger: logger}
}

// RunOnce performs a single pass. Every step runs even if an earlier one failed.
func (s *Sweeper) RunOnce(ctx context.Context) (SweepReport, error) {
	var report SweepReport
	var errs []error

	n, err := s.engine.ExpireChallenges(ctx)
	report.ChallengesExpired = n
	errs = append(errs, err)

	n, err = s.engine.ForceCompleteStale(ctx)
	report.BattlesTimedOut = n
	errs = append(errs, err)

	n, err = s.matcher.CleanupExpired(ctx)
	report.QueueExpired = n
	errs = append(errs, err)

	created, err := s.matcher.ProcessQueue(ctx)
	report.Matched = len(created)
	errs = append(errs, err)

	return report, errors.Join(errs...)
}

// Start schedules RunOnce every interval until Stop or ctx is done.
func (s *Sweeper) Start(ctx context.Context) error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	_, err = sched.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() {
			report, err := s.RunOnce(ctx)
			if err != nil {
				s.logger.Error("sweep failed", "error", err)
			}
			if report != (SweepReport{}) {
				s.logger.Info("sweep finished",
					"matched", report.Matched,
					"queue_expired", report.QueueExpired,
					"challenges_expired", report.ChallengesExpired,
					"battles_timed_out", report.BattlesTimedOut)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return err
	}
	s.scheduler = sched
	sched.Start()
	s.logger.Info("sweeper started", "interval", s.interval)
	return nil
}

func (s *Sweeper) Stop() error {
	if s.scheduler == nil {
		return nil
	}
	return s.scheduler.Shutdown()
}

package scheduler

import (
	"context"
	"time"

	"press_distributor/internal/app"
	"press_distributor/internal/domain/destination"
	"press_distributor/internal/infra/alert"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Notifier pushes audit findings to the operations channel. Nil-safe via the
// audit scheduler's own checks so alerting stays optional.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// BackfillAuditScheduler periodically scans every registered destination for
// publication gaps. By default it only reports (dry run); execution stays a
// human-driven operation unless auto-execute is explicitly enabled.
type BackfillAuditScheduler struct {
	cronEngine      *cron.Cron
	backfillService *app.BackfillService
	registry        *destination.Registry
	notifier        Notifier
	logger          *logrus.Entry
	cronSpec        string
	lookbackHours   int
	autoExecute     bool
}

func NewBackfillAuditScheduler(
	backfillService *app.BackfillService,
	registry *destination.Registry,
	notifier Notifier,
	logger *logrus.Entry,
	cronSpec string, // e.g. "0 * * * *" (hourly)
	lookbackHours int,
	autoExecute bool,
) *BackfillAuditScheduler {
	return &BackfillAuditScheduler{
		cronEngine:      cron.New(cron.WithLocation(time.Local)),
		backfillService: backfillService,
		registry:        registry,
		notifier:        notifier,
		logger:          logger,
		cronSpec:        cronSpec,
		lookbackHours:   lookbackHours,
		autoExecute:     autoExecute,
	}
}

func (s *BackfillAuditScheduler) Start() {
	s.logger.Info("Starting backfill audit scheduler...")

	_, err := s.cronEngine.AddFunc(s.cronSpec, func() {
		s.logger.Info("Cron job triggered for backfill audit.")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		s.runAudit(ctx)
	})
	if err != nil {
		s.logger.Fatalf("FATAL: Could not add backfill audit cron job: %v", err)
	}

	s.cronEngine.Start()
	s.logger.Info("Backfill audit scheduler started.")
}

func (s *BackfillAuditScheduler) runAudit(ctx context.Context) {
	mode := app.ModeDryRun
	if s.autoExecute {
		mode = app.ModeExecute
	}

	for _, dest := range s.registry.All() {
		report, err := s.backfillService.Run(ctx, s.lookbackHours, dest.ID, mode)
		if err != nil {
			s.logger.WithError(err).WithField("destination", dest.ID).Error("Backfill audit failed for destination")
			continue
		}
		if report.CandidateCount == 0 {
			continue
		}
		s.logger.WithFields(logrus.Fields{
			"destination": dest.ID,
			"mode":        mode,
			"gap_count":   report.CandidateCount,
		}).Warn("Backfill audit found unscheduled published notes")

		if s.notifier != nil {
			if err := s.notifier.Notify(ctx, alert.FormatBackfillReport(report)); err != nil {
				s.logger.WithError(err).Error("Failed to notify operations channel about backfill audit")
			}
		}
	}
}

func (s *BackfillAuditScheduler) Stop() {
	s.logger.Info("Stopping backfill audit scheduler...")
	ctx := s.cronEngine.Stop() // Stops the scheduler from adding new jobs, waits for running jobs.
	<-ctx.Done()               // Wait for graceful shutdown
	s.logger.Info("Backfill audit scheduler gracefully stopped.")
}

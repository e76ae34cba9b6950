// internal/app/backfill_service.go
package app

import (
	"context"
	"fmt"
	"time"

	"press_distributor/internal/domain/destination"
	"press_distributor/internal/domain/note"
	"press_distributor/internal/domain/schedule"
	idb "press_distributor/internal/infra/database"

	"github.com/sirupsen/logrus"
)

// BackfillMode selects between reporting and re-driving.
type BackfillMode string

const (
	ModeDryRun  BackfillMode = "dry_run"
	ModeExecute BackfillMode = "execute"
)

// BackfillResult is the per-note outcome of one reconcile pass.
type BackfillResult struct {
	NoteID       int64         `json:"note_id"`
	NoteSlug     string        `json:"note_slug"`
	Outcome      OutcomeStatus `json:"outcome"`
	ScheduledFor *time.Time    `json:"scheduled_for,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// BackfillReport summarizes one backfill run.
type BackfillReport struct {
	Mode           BackfillMode     `json:"mode"`
	DestinationID  string           `json:"destination"`
	LookbackHours  int              `json:"lookback_hours"`
	CandidateCount int              `json:"candidate_count"`
	Results        []BackfillResult `json:"results"`
}

// BackfillService audits for published notes that never made it to a
// destination and re-drives them through the publish scheduler. Re-driving
// social posts is externally visible and irreversible, so backfill is an
// explicit, auditable operation with a dry-run mode rather than an automatic
// retry loop.
type BackfillService struct {
	noteRepo     note.Repository
	scheduleRepo schedule.Repository
	publishSvc   *PublishService
	registry     *destination.Registry
	logger       *logrus.Entry
}

func NewBackfillService(
	nr note.Repository,
	sr schedule.Repository,
	ps *PublishService,
	registry *destination.Registry,
	logger *logrus.Entry,
) *BackfillService {
	return &BackfillService{
		noteRepo:     nr,
		scheduleRepo: sr,
		publishSvc:   ps,
		registry:     registry,
		logger:       logger,
	}
}

// FindGaps returns published notes created within the lookback window that
// carry no SCHEDULED record for the destination.
func (s *BackfillService) FindGaps(ctx context.Context, lookbackHours int, dest destination.Destination) ([]*note.Note, error) {
	// The lookback window is anchored on the scheduler's clock so audits and
	// schedules agree on what "now" is.
	since := s.publishSvc.now().Add(-time.Duration(lookbackHours) * time.Hour)
	candidates, err := s.noteRepo.ListPublishedSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list published notes since %s: %w", since.Format(time.RFC3339), err)
	}

	gaps := make([]*note.Note, 0, len(candidates))
	for _, n := range candidates {
		_, err := s.scheduleRepo.GetScheduled(ctx, n.ID, dest.ID)
		if err == nil {
			continue // already scheduled, not a gap
		}
		if err != idb.ErrRecordNotFound {
			return nil, fmt.Errorf("failed to check schedule record for note %d: %w", n.ID, err)
		}
		gaps = append(gaps, n)
	}
	return gaps, nil
}

// Reconcile resubmits the given notes through the publish scheduler. In
// dry-run mode only the would-be slots are reported and no state is touched;
// in execute mode notes are scheduled sequentially so the per-destination
// monotonic slot guarantee holds for the whole run.
func (s *BackfillService) Reconcile(ctx context.Context, notes []*note.Note, dest destination.Destination, mode BackfillMode) *BackfillReport {
	report := &BackfillReport{
		Mode:           mode,
		DestinationID:  dest.ID,
		CandidateCount: len(notes),
		Results:        make([]BackfillResult, 0, len(notes)),
	}

	if mode == ModeDryRun {
		// Config gaps are simulated too: a note execute mode would skip must
		// not be previewed as scheduled, and it consumes no slot.
		slots := s.publishSvc.PreviewSlots(ctx, dest, len(notes))
		nextSlot := 0
		for _, n := range notes {
			result := BackfillResult{NoteID: n.ID, NoteSlug: n.Slug}
			if _, err := s.publishSvc.checkDeliverable(ctx, n, dest); err != nil {
				switch err {
				case ErrMissingInstitutionSlug, ErrMissingDestinationCredential:
					result.Outcome = OutcomeSkipped
				default:
					result.Outcome = OutcomeFailed
				}
				result.Error = err.Error()
			} else {
				slot := slots[nextSlot]
				nextSlot++
				result.Outcome = OutcomeScheduled
				result.ScheduledFor = &slot
			}
			report.Results = append(report.Results, result)
		}
		return report
	}

	for _, n := range notes {
		outcome := s.publishSvc.Schedule(ctx, n, dest, ScheduleOptions{})
		result := BackfillResult{
			NoteID:   n.ID,
			NoteSlug: n.Slug,
			Outcome:  outcome.Status,
			Error:    outcome.Error,
		}
		if !outcome.ScheduledFor.IsZero() {
			t := outcome.ScheduledFor
			result.ScheduledFor = &t
		}
		report.Results = append(report.Results, result)
	}
	return report
}

// Run is the full audit pass used by the HTTP endpoint, the cron trigger and
// the operator bot: find the gaps, then reconcile them in the requested mode.
func (s *BackfillService) Run(ctx context.Context, lookbackHours int, destinationID string, mode BackfillMode) (*BackfillReport, error) {
	dest, err := s.registry.Get(destinationID)
	if err != nil {
		return nil, err
	}

	gaps, err := s.FindGaps(ctx, lookbackHours, dest)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"destination":    dest.ID,
		"lookback_hours": lookbackHours,
		"mode":           mode,
		"gap_count":      len(gaps),
	}).Info("Backfill scan complete")

	report := s.Reconcile(ctx, gaps, dest, mode)
	report.LookbackHours = lookbackHours
	return report, nil
}

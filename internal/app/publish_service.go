// internal/app/publish_service.go
package app

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"press_distributor/internal/domain/destination"
	"press_distributor/internal/domain/institution"
	"press_distributor/internal/domain/note"
	"press_distributor/internal/domain/schedule"
	"press_distributor/internal/domain/social"
	idb "press_distributor/internal/infra/database"

	"github.com/sirupsen/logrus"
)

// Application-level errors surfaced by the publish scheduler.
var ErrNoteNotPublished = fmt.Errorf("note is not published")
var ErrMissingInstitutionSlug = fmt.Errorf("institution has no slug, cannot build public URL")
var ErrMissingDestinationCredential = fmt.Errorf("destination has no page id or access token configured")

// OutcomeStatus classifies the result of one Schedule invocation.
type OutcomeStatus string

const (
	OutcomeScheduled        OutcomeStatus = "scheduled"
	OutcomeAlreadyScheduled OutcomeStatus = "already_scheduled"
	OutcomeSkipped          OutcomeStatus = "skipped"
	OutcomeFailed           OutcomeStatus = "failed"
)

// Outcome reports what the scheduler did for one (note, destination) pair.
type Outcome struct {
	Status         OutcomeStatus
	ScheduledFor   time.Time
	PlatformPostID string
	Error          string
}

// Notifier pushes operator-actionable conditions to the operations channel.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// ScheduleOptions carries optional overrides used by manual recovery tooling.
type ScheduleOptions struct {
	// OverrideTime, when set, takes precedence over the computed slot. The
	// cursor is still advanced past it so automatic scheduling stays spaced.
	OverrideTime *time.Time
	// VideoURL posts a video in place of the link card.
	VideoURL string
}

// PublishService is the core scheduling state machine. It guarantees at most
// one SCHEDULED record per (note, destination) pair and monotonically
// increasing, minimum-spaced slots per destination.
type PublishService struct {
	noteRepo        note.Repository
	institutionRepo institution.Repository
	scheduleRepo    schedule.Repository
	registry        *destination.Registry
	socialClient    social.Client
	siteURL         string
	deliveryTimeout time.Duration
	now             func() time.Time
	notifier        Notifier
	logger          *logrus.Entry

	// Invocations for the same destination are serialized in-process; the
	// compare-and-swap cursor update in the repository guards against other
	// writers of the same row.
	mu        sync.Mutex
	destLocks map[string]*sync.Mutex
}

func NewPublishService(
	nr note.Repository,
	ir institution.Repository,
	sr schedule.Repository,
	registry *destination.Registry,
	client social.Client,
	siteURL string,
	deliveryTimeout time.Duration,
	logger *logrus.Entry,
) *PublishService {
	return &PublishService{
		noteRepo:        nr,
		institutionRepo: ir,
		scheduleRepo:    sr,
		registry:        registry,
		socialClient:    client,
		siteURL:         strings.TrimRight(siteURL, "/"),
		deliveryTimeout: deliveryTimeout,
		now:             time.Now,
		logger:          logger,
	}
}

// SetNotifier attaches the operations channel. Alerting is optional; a nil
// notifier only silences the channel, never the logs.
func (s *PublishService) SetNotifier(n Notifier) {
	s.notifier = n
}

func (s *PublishService) alert(ctx context.Context, text string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, text); err != nil {
		s.logger.WithError(err).Error("Failed to alert operations channel")
	}
}

func (s *PublishService) lockDestination(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destLocks == nil {
		s.destLocks = make(map[string]*sync.Mutex)
	}
	l, ok := s.destLocks[id]
	if !ok {
		l = &sync.Mutex{}
		s.destLocks[id] = l
	}
	return l
}

// NotifyPublished resolves a freshly published note by slug and schedules it
// for the given destination. This is the entry point behind the publish
// trigger webhook.
func (s *PublishService) NotifyPublished(ctx context.Context, noteSlug, destinationID string, opts ScheduleOptions) (Outcome, error) {
	n, err := s.noteRepo.GetBySlug(ctx, noteSlug)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to get note by slug %q: %w", noteSlug, err)
	}
	if !n.Published {
		return Outcome{}, ErrNoteNotPublished
	}
	dest, err := s.registry.Get(destinationID)
	if err != nil {
		return Outcome{}, err
	}
	return s.Schedule(ctx, n, dest, opts), nil
}

// Schedule decides whether and when the note's announcement goes out to the
// destination and records the outcome. It is safe to invoke multiple times
// for the same pair: a pair that already carries a SCHEDULED record
// short-circuits without touching the delivery adapter.
func (s *PublishService) Schedule(ctx context.Context, n *note.Note, dest destination.Destination, opts ScheduleOptions) Outcome {
	log := s.logger.WithFields(logrus.Fields{
		"note_id":     n.ID,
		"note_slug":   n.Slug,
		"destination": dest.ID,
	})

	// The idempotency check and the cursor read-modify-write must happen under
	// the same per-destination lock, otherwise two concurrent calls for one
	// note could both pass the check and double-post.
	destLock := s.lockDestination(dest.ID)
	destLock.Lock()
	defer destLock.Unlock()

	existing, err := s.scheduleRepo.GetScheduled(ctx, n.ID, dest.ID)
	if err == nil {
		log.WithField("scheduled_for", existing.ScheduledFor.Time).Info("Note already scheduled for destination, skipping")
		out := Outcome{Status: OutcomeAlreadyScheduled}
		if existing.ScheduledFor.Valid {
			out.ScheduledFor = existing.ScheduledFor.Time
		}
		if existing.PlatformPostID.Valid {
			out.PlatformPostID = existing.PlatformPostID.String
		}
		return out
	}
	if err != idb.ErrRecordNotFound {
		log.WithError(err).Error("Failed idempotency lookup")
		return Outcome{Status: OutcomeFailed, Error: err.Error()}
	}

	inst, err := s.checkDeliverable(ctx, n, dest)
	if err != nil {
		switch err {
		case ErrMissingInstitutionSlug, ErrMissingDestinationCredential:
			return s.recordSkip(ctx, log, n, dest, err)
		default:
			log.WithError(err).Error("Failed to get institution for note")
			return Outcome{Status: OutcomeFailed, Error: err.Error()}
		}
	}

	slot, prev, nextCursor, err := s.computeSlot(ctx, dest, opts.OverrideTime)
	if err != nil {
		// Scheduling without the cursor could land a post closer than minGap
		// to the previous one, or even ahead of it. Refuse instead.
		log.WithError(err).Error("Failed to read destination cursor, refusing to schedule")
		return Outcome{Status: OutcomeFailed, Error: err.Error()}
	}

	message := composeMessage(n)
	publicURL := s.PublicURL(inst.Slug, n.Slug)

	rec := &schedule.Record{
		NoteID:        n.ID,
		DestinationID: dest.ID,
		ScheduledFor:  sql.NullTime{Time: slot, Valid: true},
		Status:        schedule.StatusPending,
	}
	if err := s.scheduleRepo.CreateRecord(ctx, rec); err != nil {
		if err == idb.ErrDuplicateRecord {
			return s.resolveStrandedPending(ctx, log, n, dest)
		}
		log.WithError(err).Error("Failed to create pending schedule record")
		return Outcome{Status: OutcomeFailed, Error: err.Error()}
	}

	deliveryCtx, cancel := context.WithTimeout(ctx, s.deliveryTimeout)
	defer cancel()
	result, err := s.socialClient.SchedulePost(deliveryCtx, social.ScheduleRequest{
		Message:     message,
		LinkURL:     publicURL,
		PageID:      dest.PageID,
		AccessToken: dest.AccessToken,
		PublishAt:   slot.Unix(),
		VideoURL:    opts.VideoURL,
	})
	if err != nil {
		// A failed attempt must not consume the slot: the cursor stays where
		// it was so a later retry is not pushed needlessly into the future.
		log.WithError(err).Error("Delivery adapter reported failure")
		rec.Status = schedule.StatusFailed
		rec.LastError = sql.NullString{String: err.Error(), Valid: true}
		if updErr := s.scheduleRepo.UpdateRecord(ctx, rec); updErr != nil {
			log.WithError(updErr).Error("Failed to persist FAILED schedule record")
		}
		return Outcome{Status: OutcomeFailed, Error: err.Error()}
	}

	rec.Status = schedule.StatusScheduled
	if result != nil && result.PlatformPostID != "" {
		rec.PlatformPostID = sql.NullString{String: result.PlatformPostID, Valid: true}
	}
	if err := s.scheduleRepo.UpdateRecord(ctx, rec); err != nil {
		// Adapter succeeded but persistence failed: this is the documented
		// crash-gap risk. Surface it loudly instead of masking it.
		log.WithError(err).Error("Delivery succeeded but schedule record update failed; pair is at risk of double-posting on retry")
		return Outcome{Status: OutcomeFailed, Error: err.Error()}
	}

	if err := s.scheduleRepo.AdvanceCursor(ctx, dest.ID, prev, nextCursor); err != nil {
		log.WithError(err).Warn("Cursor advance failed, retrying with a fresh read")
		if err := s.retryAdvanceCursor(ctx, dest.ID, nextCursor); err != nil {
			// The post is out but the cursor is stale; the next schedule
			// could be assigned an under-spaced slot.
			log.WithError(err).Error("Cursor advance failed after retries; upcoming slots may be under-spaced")
			s.alert(ctx, fmt.Sprintf("El cursor de %s no avanzó a %s: los próximos horarios pueden quedar mal espaciados. Error: %s",
				dest.ID, nextCursor.Format(time.RFC3339), err.Error()))
		}
	}

	log.WithFields(logrus.Fields{
		"scheduled_for":    slot,
		"platform_post_id": rec.PlatformPostID.String,
	}).Info("Note scheduled for destination")

	out := Outcome{Status: OutcomeScheduled, ScheduledFor: slot}
	if rec.PlatformPostID.Valid {
		out.PlatformPostID = rec.PlatformPostID.String
	}
	return out
}

// checkDeliverable verifies the pair can actually reach the delivery adapter:
// the institution must carry a slug for the public URL and the destination
// must carry credentials. Shared by the scheduler and the dry-run preview.
func (s *PublishService) checkDeliverable(ctx context.Context, n *note.Note, dest destination.Destination) (*institution.Institution, error) {
	inst, err := s.institutionRepo.GetByID(ctx, n.InstitutionID)
	if err != nil {
		return nil, err
	}
	if inst.Slug == "" {
		return nil, ErrMissingInstitutionSlug
	}
	if dest.PageID == "" || dest.AccessToken == "" {
		return nil, ErrMissingDestinationCredential
	}
	return inst, nil
}

// computeSlot picks the next available slot for the destination. Without an
// override the slot is max(now+minGap, lastAssigned+minGap); an override wins
// but the cursor still advances to max(cursor, override). A cursor read
// failure aborts the computation: without the cursor the slot cannot be
// proven spaced.
func (s *PublishService) computeSlot(ctx context.Context, dest destination.Destination, override *time.Time) (slot time.Time, prev sql.NullTime, nextCursor time.Time, err error) {
	cursor, err := s.scheduleRepo.GetCursor(ctx, dest.ID)
	if err == nil {
		prev = cursor.LastAssignedAt
	} else if err != idb.ErrCursorNotFound {
		return time.Time{}, sql.NullTime{}, time.Time{}, fmt.Errorf("failed to read cursor for destination %s: %w", dest.ID, err)
	}

	slot = s.now().Add(dest.MinGap)
	if prev.Valid {
		if spaced := prev.Time.Add(dest.MinGap); spaced.After(slot) {
			slot = spaced
		}
	}
	if override != nil {
		slot = *override
	}

	nextCursor = slot
	if prev.Valid && prev.Time.After(nextCursor) {
		nextCursor = prev.Time
	}
	return slot, prev, nextCursor, nil
}

// retryAdvanceCursor re-reads the cursor and re-applies the swap. A stored
// value already at or past next means another writer got there first and no
// correction is needed.
func (s *PublishService) retryAdvanceCursor(ctx context.Context, destinationID string, next time.Time) error {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		var prev sql.NullTime
		cursor, err := s.scheduleRepo.GetCursor(ctx, destinationID)
		if err == nil {
			prev = cursor.LastAssignedAt
		} else if err != idb.ErrCursorNotFound {
			lastErr = err
			continue
		}
		if prev.Valid && !prev.Time.Before(next) {
			return nil
		}
		if err := s.scheduleRepo.AdvanceCursor(ctx, destinationID, prev, next); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}

// resolveStrandedPending handles a live record the idempotency lookup did not
// see. Under the destination lock that can only be a PENDING record left
// behind by a crash between delivery and persistence, or by a failed record
// update after a successful delivery. Once the attempt is old enough to be
// certainly dead it is terminalized as FAILED so the pair stays recoverable;
// the original delivery may have gone through, so operators are told to check
// the page before retrying.
func (s *PublishService) resolveStrandedPending(ctx context.Context, log *logrus.Entry, n *note.Note, dest destination.Destination) Outcome {
	live, err := s.scheduleRepo.GetLive(ctx, n.ID, dest.ID)
	if err != nil {
		log.WithError(err).Error("Duplicate live record reported but lookup failed")
		return Outcome{Status: OutcomeFailed, Error: err.Error()}
	}
	if live.Status == schedule.StatusScheduled {
		// Another writer completed the pair between our lookup and insert.
		out := Outcome{Status: OutcomeAlreadyScheduled}
		if live.ScheduledFor.Valid {
			out.ScheduledFor = live.ScheduledFor.Time
		}
		if live.PlatformPostID.Valid {
			out.PlatformPostID = live.PlatformPostID.String
		}
		return out
	}

	if age := s.now().Sub(live.UpdatedAt); age <= s.deliveryTimeout {
		log.WithField("record_id", live.ID).Warn("Live PENDING record may still be in flight, leaving it alone")
		return Outcome{Status: OutcomeFailed, Error: fmt.Sprintf("pending delivery attempt from %s may still be in flight", live.UpdatedAt.Format(time.RFC3339))}
	}

	live.Status = schedule.StatusFailed
	live.LastError = sql.NullString{String: "stranded pending attempt terminalized; verify the destination page before retrying", Valid: true}
	if err := s.scheduleRepo.UpdateRecord(ctx, live); err != nil {
		log.WithError(err).Error("Failed to terminalize stranded pending record")
		return Outcome{Status: OutcomeFailed, Error: err.Error()}
	}
	log.WithField("record_id", live.ID).Warn("Stranded PENDING record terminalized, pair reopened for retry")
	s.alert(ctx, fmt.Sprintf("Registro PENDING varado para la nota %s en %s fue marcado FAILED. Verificá la página antes de reintentar: la entrega original pudo haber salido.", n.Slug, dest.ID))
	return Outcome{Status: OutcomeFailed, Error: "stranded pending attempt terminalized; retry to reschedule"}
}

// PreviewSlots simulates the slots the next count schedules would receive,
// without mutating any state. Used by backfill dry runs.
func (s *PublishService) PreviewSlots(ctx context.Context, dest destination.Destination, count int) []time.Time {
	var last sql.NullTime
	if cursor, err := s.scheduleRepo.GetCursor(ctx, dest.ID); err == nil {
		last = cursor.LastAssignedAt
	}
	slots := make([]time.Time, 0, count)
	for i := 0; i < count; i++ {
		slot := s.now().Add(dest.MinGap)
		if last.Valid {
			if spaced := last.Time.Add(dest.MinGap); spaced.After(slot) {
				slot = spaced
			}
		}
		slots = append(slots, slot)
		last = sql.NullTime{Time: slot, Valid: true}
	}
	return slots
}

// PublicURL builds the canonical slug-based link for a note. Numeric ids never
// appear here: the slug URL is the stable user-facing link and must match what
// the sitemap records.
func (s *PublishService) PublicURL(institutionSlug, noteSlug string) string {
	return fmt.Sprintf("%s/%s/%s", s.siteURL, institutionSlug, noteSlug)
}

func (s *PublishService) recordSkip(ctx context.Context, log *logrus.Entry, n *note.Note, dest destination.Destination, cause error) Outcome {
	log.WithError(cause).Warn("Configuration gap, note skipped for destination")
	rec := &schedule.Record{
		NoteID:        n.ID,
		DestinationID: dest.ID,
		Status:        schedule.StatusSkipped,
		LastError:     sql.NullString{String: cause.Error(), Valid: true},
	}
	if err := s.scheduleRepo.CreateRecord(ctx, rec); err != nil {
		log.WithError(err).Error("Failed to persist SKIPPED schedule record")
	}
	return Outcome{Status: OutcomeSkipped, Error: cause.Error()}
}

var markupPattern = regexp.MustCompile(`<[^>]*>`)

// composeMessage builds the outward-facing text: the summary when present,
// the title otherwise, with markup stripped and whitespace collapsed.
func composeMessage(n *note.Note) string {
	text := n.Title
	if n.Summary.Valid && strings.TrimSpace(n.Summary.String) != "" {
		text = n.Summary.String
	}
	text = markupPattern.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(text), " ")
}

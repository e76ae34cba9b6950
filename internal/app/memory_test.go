package app

// In-memory repository fakes backing the scheduler tests. They mirror the
// postgres repositories' contracts, including the sentinel errors and the
// partial-unique behavior of the schedule_records table.

import (
	"context"
	"database/sql"
	"io"
	"sync"
	"time"

	"press_distributor/internal/domain/institution"
	"press_distributor/internal/domain/note"
	"press_distributor/internal/domain/schedule"
	"press_distributor/internal/domain/social"
	idb "press_distributor/internal/infra/database"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l.WithField("component", "test")
}

type memNoteRepo struct {
	mu    sync.Mutex
	notes map[int64]*note.Note
}

func newMemNoteRepo(notes ...*note.Note) *memNoteRepo {
	r := &memNoteRepo{notes: make(map[int64]*note.Note)}
	for _, n := range notes {
		r.notes[n.ID] = n
	}
	return r
}

func (r *memNoteRepo) GetByID(_ context.Context, id int64) (*note.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notes[id]
	if !ok {
		return nil, idb.ErrNoteNotFound
	}
	return n, nil
}

func (r *memNoteRepo) GetBySlug(_ context.Context, slug string) (*note.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.notes {
		if n.Slug == slug {
			return n, nil
		}
	}
	return nil, idb.ErrNoteNotFound
}

func (r *memNoteRepo) ListPublishedSince(_ context.Context, since time.Time) ([]*note.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*note.Note, 0)
	for _, n := range r.notes {
		if n.Published && !n.CreatedAt.Before(since) {
			out = append(out, n)
		}
	}
	return out, nil
}

type memInstitutionRepo struct {
	mu           sync.Mutex
	institutions map[int64]*institution.Institution
}

func newMemInstitutionRepo(institutions ...*institution.Institution) *memInstitutionRepo {
	r := &memInstitutionRepo{institutions: make(map[int64]*institution.Institution)}
	for _, inst := range institutions {
		r.institutions[inst.ID] = inst
	}
	return r
}

func (r *memInstitutionRepo) GetByID(_ context.Context, id int64) (*institution.Institution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.institutions[id]
	if !ok {
		return nil, idb.ErrInstitutionNotFound
	}
	return inst, nil
}

func (r *memInstitutionRepo) ListActiveByHour(_ context.Context, hour *int) ([]*institution.Institution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*institution.Institution, 0)
	for _, inst := range r.institutions {
		if !inst.IsActive {
			continue
		}
		if hour != nil && (!inst.PublicationHour.Valid || inst.PublicationHour.Int64 != int64(*hour)) {
			continue
		}
		out = append(out, inst)
	}
	return out, nil
}

type memScheduleRepo struct {
	mu      sync.Mutex
	records []*schedule.Record
	cursors map[string]sql.NullTime
	nextID  int64
	now     func() time.Time
}

func newMemScheduleRepo() *memScheduleRepo {
	return &memScheduleRepo{cursors: make(map[string]sql.NullTime), now: time.Now}
}

func (r *memScheduleRepo) CreateRecord(_ context.Context, rec *schedule.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec.Status == schedule.StatusPending || rec.Status == schedule.StatusScheduled {
		for _, existing := range r.records {
			if existing.NoteID == rec.NoteID && existing.DestinationID == rec.DestinationID &&
				(existing.Status == schedule.StatusPending || existing.Status == schedule.StatusScheduled) {
				return idb.ErrDuplicateRecord
			}
		}
	}
	r.nextID++
	rec.ID = r.nextID
	rec.CreatedAt = r.now()
	rec.UpdatedAt = rec.CreatedAt
	stored := *rec
	r.records = append(r.records, &stored)
	return nil
}

func (r *memScheduleRepo) UpdateRecord(_ context.Context, rec *schedule.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.records {
		if existing.ID == rec.ID {
			rec.UpdatedAt = r.now()
			stored := *rec
			r.records[i] = &stored
			return nil
		}
	}
	return idb.ErrRecordNotFound
}

func (r *memScheduleRepo) GetScheduled(_ context.Context, noteID int64, destinationID string) (*schedule.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.records) - 1; i >= 0; i-- {
		rec := r.records[i]
		if rec.NoteID == noteID && rec.DestinationID == destinationID && rec.Status == schedule.StatusScheduled {
			out := *rec
			return &out, nil
		}
	}
	return nil, idb.ErrRecordNotFound
}

func (r *memScheduleRepo) GetLive(_ context.Context, noteID int64, destinationID string) (*schedule.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.records) - 1; i >= 0; i-- {
		rec := r.records[i]
		if rec.NoteID == noteID && rec.DestinationID == destinationID &&
			(rec.Status == schedule.StatusPending || rec.Status == schedule.StatusScheduled) {
			out := *rec
			return &out, nil
		}
	}
	return nil, idb.ErrRecordNotFound
}

func (r *memScheduleRepo) ListByNote(_ context.Context, noteID int64) ([]*schedule.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*schedule.Record, 0)
	for _, rec := range r.records {
		if rec.NoteID == noteID {
			copied := *rec
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *memScheduleRepo) GetCursor(_ context.Context, destinationID string) (*schedule.Cursor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	last, ok := r.cursors[destinationID]
	if !ok {
		return nil, idb.ErrCursorNotFound
	}
	return &schedule.Cursor{DestinationID: destinationID, LastAssignedAt: last}, nil
}

func (r *memScheduleRepo) AdvanceCursor(_ context.Context, destinationID string, prev sql.NullTime, next time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current := r.cursors[destinationID]
	if current.Valid != prev.Valid || (current.Valid && !current.Time.Equal(prev.Time)) {
		return idb.ErrCursorConflict
	}
	r.cursors[destinationID] = sql.NullTime{Time: next, Valid: true}
	return nil
}

// countByStatus tallies records for assertions.
func (r *memScheduleRepo) countByStatus(noteID int64, destinationID string, status schedule.Status) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, rec := range r.records {
		if rec.NoteID == noteID && rec.DestinationID == destinationID && rec.Status == status {
			count++
		}
	}
	return count
}

type fakeSocialClient struct {
	mu       sync.Mutex
	requests []social.ScheduleRequest
	failOn   map[int]error // 1-based call index -> error to return
}

func newFakeSocialClient() *fakeSocialClient {
	return &fakeSocialClient{failOn: make(map[int]error)}
}

func (c *fakeSocialClient) SchedulePost(_ context.Context, req social.ScheduleRequest) (*social.ScheduleResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
	if err, ok := c.failOn[len(c.requests)]; ok {
		return nil, err
	}
	return &social.ScheduleResult{PlatformPostID: "post_ok"}, nil
}

func (c *fakeSocialClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

func (c *fakeSocialClient) request(i int) social.ScheduleRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requests[i]
}

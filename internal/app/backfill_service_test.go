package app

import (
	"context"
	"fmt"
	"testing"
	"time"

	"press_distributor/internal/domain/destination"
	"press_distributor/internal/domain/institution"
	"press_distributor/internal/domain/note"
)

type backfillFixture struct {
	*publishFixture
	backfill *BackfillService
}

func newBackfillFixture(t *testing.T, dests ...destination.Destination) *backfillFixture {
	t.Helper()
	pf := newPublishFixture(t, dests...)
	return &backfillFixture{
		publishFixture: pf,
		backfill:       NewBackfillService(pf.notes, pf.records, pf.svc, pf.registry, testLogger()),
	}
}

func TestFindGapsSkipsScheduledAndOldNotes(t *testing.T) {
	f := newBackfillFixture(t)
	dest, _ := f.registry.Get("primary")

	// The window is anchored on the scheduler's clock, so these fixed
	// timestamps make the 72 hour cut deterministic.
	scheduled := testNote(1, "nota-programada", "Titular", "", 1)
	scheduled.CreatedAt = testNow.Add(-2 * time.Hour)
	missed := testNote(2, "nota-perdida", "Titular", "", 1)
	missed.CreatedAt = testNow.Add(-3 * time.Hour)
	old := testNote(3, "nota-vieja", "Titular", "", 1)
	old.CreatedAt = testNow.Add(-73 * time.Hour)
	draft := testNote(4, "nota-borrador", "Titular", "", 1)
	draft.Published = false
	draft.CreatedAt = testNow.Add(-time.Hour)
	for _, n := range []*note.Note{scheduled, missed, old, draft} {
		f.notes.notes[n.ID] = n
	}

	if out := f.svc.Schedule(context.Background(), scheduled, dest, ScheduleOptions{}); out.Status != OutcomeScheduled {
		t.Fatalf("setup schedule outcome = %s", out.Status)
	}

	gaps, err := f.backfill.FindGaps(context.Background(), 72, dest)
	if err != nil {
		t.Fatalf("FindGaps: %v", err)
	}
	if len(gaps) != 1 || gaps[0].ID != missed.ID {
		ids := make([]int64, 0, len(gaps))
		for _, g := range gaps {
			ids = append(ids, g.ID)
		}
		t.Fatalf("gap ids = %v, want only [%d]", ids, missed.ID)
	}
}

func TestReconcileDryRunIsPure(t *testing.T) {
	f := newBackfillFixture(t)
	dest, _ := f.registry.Get("primary")

	candidates := []*note.Note{
		testNote(1, "nota-1", "Titular", "", 1),
		testNote(2, "nota-2", "Titular", "", 1),
	}

	first := f.backfill.Reconcile(context.Background(), candidates, dest, ModeDryRun)
	second := f.backfill.Reconcile(context.Background(), candidates, dest, ModeDryRun)

	if first.CandidateCount != 2 || second.CandidateCount != 2 {
		t.Fatalf("candidate counts = %d, %d, want 2, 2", first.CandidateCount, second.CandidateCount)
	}
	for i := range first.Results {
		a, b := first.Results[i], second.Results[i]
		if a.NoteID != b.NoteID || !a.ScheduledFor.Equal(*b.ScheduledFor) {
			t.Errorf("dry run reports diverge at %d: %+v vs %+v", i, a, b)
		}
	}

	// Dry-run slots are spaced like real ones would be.
	if gap := first.Results[1].ScheduledFor.Sub(*first.Results[0].ScheduledFor); gap < 30*time.Minute {
		t.Errorf("dry run slot gap = %v, want >= 30m", gap)
	}

	// No mutation: no records, no cursor, no adapter calls.
	if got := f.client.callCount(); got != 0 {
		t.Errorf("adapter called %d times during dry run, want 0", got)
	}
	if recs, _ := f.records.ListByNote(context.Background(), 1); len(recs) != 0 {
		t.Errorf("dry run created %d records", len(recs))
	}
	if _, err := f.records.GetCursor(context.Background(), "primary"); err == nil {
		t.Error("dry run advanced the destination cursor")
	}
}

func TestReconcileDryRunReportsConfigGaps(t *testing.T) {
	f := newBackfillFixture(t)
	dest, _ := f.registry.Get("primary")
	f.insts.institutions[2] = &institution.Institution{ID: 2, Name: "Sin Slug", IsActive: true}

	candidates := []*note.Note{
		testNote(1, "nota-1", "Titular", "", 1),
		testNote(2, "nota-sin-slug", "Titular", "", 2),
		testNote(3, "nota-3", "Titular", "", 1),
	}

	report := f.backfill.Reconcile(context.Background(), candidates, dest, ModeDryRun)
	if report.Results[1].Outcome != OutcomeSkipped || report.Results[1].Error == "" {
		t.Errorf("slugless note previewed as %+v, want skipped with reason", report.Results[1])
	}
	if report.Results[0].Outcome != OutcomeScheduled || report.Results[2].Outcome != OutcomeScheduled {
		t.Fatalf("deliverable notes previewed as %s and %s, want both scheduled",
			report.Results[0].Outcome, report.Results[2].Outcome)
	}
	// The skipped note consumes no slot: the deliverable pair sits one gap apart.
	gap := report.Results[2].ScheduledFor.Sub(*report.Results[0].ScheduledFor)
	if gap != 30*time.Minute {
		t.Errorf("gap between previewed slots = %v, want 30m", gap)
	}

	// Still a pure preview.
	if got := f.client.callCount(); got != 0 {
		t.Errorf("adapter called %d times during dry run, want 0", got)
	}
	if recs, _ := f.records.ListByNote(context.Background(), 2); len(recs) != 0 {
		t.Errorf("dry run created %d records for the skipped note", len(recs))
	}
}

func TestReconcileExecuteReportsPerNoteOutcomes(t *testing.T) {
	f := newBackfillFixture(t)
	dest, _ := f.registry.Get("primary")
	f.client.failOn[2] = fmt.Errorf("timeout talking to graph")

	candidates := []*note.Note{
		testNote(1, "nota-1", "Titular", "", 1),
		testNote(2, "nota-2", "Titular", "", 1),
	}

	report := f.backfill.Reconcile(context.Background(), candidates, dest, ModeExecute)
	if report.CandidateCount != 2 {
		t.Fatalf("candidate count = %d, want 2", report.CandidateCount)
	}
	if report.Results[0].Outcome != OutcomeScheduled {
		t.Errorf("first outcome = %s, want %s", report.Results[0].Outcome, OutcomeScheduled)
	}
	if report.Results[1].Outcome != OutcomeFailed || report.Results[1].Error == "" {
		t.Errorf("second outcome = %+v, want failed with error", report.Results[1])
	}

	// Only the successful schedule advanced the cursor.
	cursor, err := f.records.GetCursor(context.Background(), "primary")
	if err != nil {
		t.Fatalf("GetCursor: %v", err)
	}
	if !cursor.LastAssignedAt.Time.Equal(*report.Results[0].ScheduledFor) {
		t.Errorf("cursor = %v, want %v", cursor.LastAssignedAt.Time, *report.Results[0].ScheduledFor)
	}
}

func TestRunRejectsUnknownDestination(t *testing.T) {
	f := newBackfillFixture(t)
	if _, err := f.backfill.Run(context.Background(), 24, "mirror-3", ModeDryRun); err == nil {
		t.Fatal("Run accepted an unknown destination")
	}
}

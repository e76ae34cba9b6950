package app

import (
	"context"
	"database/sql"
	"testing"

	"press_distributor/internal/domain/institution"
)

func activeInstitution(id int64, slug string, hour int64, hourSet bool, active bool, channelURL string) *institution.Institution {
	inst := &institution.Institution{ID: id, Slug: slug, Name: slug, IsActive: active}
	if hourSet {
		inst.PublicationHour = sql.NullInt64{Int64: hour, Valid: true}
	}
	if channelURL != "" {
		inst.FacebookPageURL = sql.NullString{String: channelURL, Valid: true}
	}
	return inst
}

func TestSelectSourcesHourFilter(t *testing.T) {
	repo := newMemInstitutionRepo(
		activeInstitution(1, "municipalidad-a", 6, true, true, "https://facebook.com/muni-a"),
		activeInstitution(2, "municipalidad-b", 12, true, true, "https://facebook.com/muni-b"),
		activeInstitution(3, "municipalidad-c", 6, true, false, "https://facebook.com/muni-c"),
		activeInstitution(4, "municipalidad-d", 0, false, true, "https://facebook.com/muni-d"),
	)
	svc := NewSourceService(repo, testLogger())

	hour := 6
	sources, err := svc.SelectSources(context.Background(), &hour)
	if err != nil {
		t.Fatalf("SelectSources: %v", err)
	}
	if len(sources) != 1 {
		t.Fatalf("got %d sources, want 1", len(sources))
	}
	if sources[0].InstitutionID != 1 {
		t.Errorf("selected institution %d, want 1", sources[0].InstitutionID)
	}
}

func TestSelectSourcesAllHours(t *testing.T) {
	repo := newMemInstitutionRepo(
		activeInstitution(1, "municipalidad-a", 6, true, true, "https://facebook.com/muni-a"),
		activeInstitution(2, "municipalidad-b", 0, false, true, "https://facebook.com/muni-b"),
		activeInstitution(3, "municipalidad-c", 6, true, false, "https://facebook.com/muni-c"),
	)
	svc := NewSourceService(repo, testLogger())

	sources, err := svc.SelectSources(context.Background(), nil)
	if err != nil {
		t.Fatalf("SelectSources: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("got %d sources, want 2 (inactive excluded, no hour filter)", len(sources))
	}
}

func TestSelectSourcesDropsMissingChannel(t *testing.T) {
	repo := newMemInstitutionRepo(
		activeInstitution(1, "municipalidad-a", 0, false, true, "https://facebook.com/muni-a"),
		activeInstitution(2, "municipalidad-sin-canal", 0, false, true, ""),
	)
	svc := NewSourceService(repo, testLogger())

	sources, err := svc.SelectSources(context.Background(), nil)
	if err != nil {
		t.Fatalf("SelectSources: %v", err)
	}
	if len(sources) != 1 {
		t.Fatalf("got %d sources, want 1 (missing channel dropped, not errored)", len(sources))
	}
	if sources[0].ChannelURL != "https://facebook.com/muni-a" {
		t.Errorf("channel URL = %q", sources[0].ChannelURL)
	}
}

package app

import (
	"context"
	"fmt"

	"press_distributor/internal/domain/institution"

	"github.com/sirupsen/logrus"
)

// Source is one institution resolved for the platform being queried: the data
// the scrape/distribution pipeline needs to process its channel.
type Source struct {
	InstitutionID int64  `json:"institution_id"`
	Slug          string `json:"slug"`
	Name          string `json:"name"`
	Abbreviation  string `json:"abbreviation,omitempty"`
	LogoURL       string `json:"logo_url,omitempty"`
	ChannelURL    string `json:"channel_url"`
}

// SourceService selects the batch of institutions to process for a given
// operational hour.
type SourceService struct {
	institutionRepo institution.Repository
	logger          *logrus.Entry
}

func NewSourceService(ir institution.Repository, logger *logrus.Entry) *SourceService {
	return &SourceService{institutionRepo: ir, logger: logger}
}

// SelectSources returns the active institutions whose configured publication
// hour matches. A nil hour means no hour filter. Institutions without a
// channel URL for the platform are dropped with a warning; a missing channel
// is a configuration gap, not a system fault. Result order is unspecified.
func (s *SourceService) SelectSources(ctx context.Context, hour *int) ([]Source, error) {
	institutions, err := s.institutionRepo.ListActiveByHour(ctx, hour)
	if err != nil {
		return nil, fmt.Errorf("failed to list active institutions: %w", err)
	}

	sources := make([]Source, 0, len(institutions))
	for _, inst := range institutions {
		if !inst.FacebookPageURL.Valid || inst.FacebookPageURL.String == "" {
			s.logger.WithFields(logrus.Fields{
				"institution_id":   inst.ID,
				"institution_slug": inst.Slug,
			}).Warn("Institution has no channel URL for the platform, dropping from batch")
			continue
		}
		src := Source{
			InstitutionID: inst.ID,
			Slug:          inst.Slug,
			Name:          inst.Name,
			ChannelURL:    inst.FacebookPageURL.String,
		}
		if inst.Abbreviation.Valid {
			src.Abbreviation = inst.Abbreviation.String
		}
		if inst.LogoURL.Valid {
			src.LogoURL = inst.LogoURL.String
		}
		sources = append(sources, src)
	}
	return sources, nil
}

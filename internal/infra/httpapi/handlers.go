package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"press_distributor/internal/app"
	"press_distributor/internal/domain/destination"
	idb "press_distributor/internal/infra/database"

	"github.com/sirupsen/logrus"
)

// DistributionScheduler is the slice of the publish service the API needs.
type DistributionScheduler interface {
	NotifyPublished(ctx context.Context, noteSlug, destinationID string, opts app.ScheduleOptions) (app.Outcome, error)
}

// BackfillRunner is the slice of the backfill service the API needs.
type BackfillRunner interface {
	Run(ctx context.Context, lookbackHours int, destinationID string, mode app.BackfillMode) (*app.BackfillReport, error)
}

// SourceSelector is the slice of the source service the API needs.
type SourceSelector interface {
	SelectSources(ctx context.Context, hour *int) ([]app.Source, error)
}

// Handler holds API route handlers.
type Handler struct {
	scheduler          DistributionScheduler
	backfill           BackfillRunner
	sources            SourceSelector
	ping               func(ctx context.Context) error
	defaultDestination string
	logger             *logrus.Entry
}

func NewHandler(
	scheduler DistributionScheduler,
	backfill BackfillRunner,
	sources SourceSelector,
	ping func(ctx context.Context) error,
	defaultDestination string,
	logger *logrus.Entry,
) *Handler {
	return &Handler{
		scheduler:          scheduler,
		backfill:           backfill,
		sources:            sources,
		ping:               ping,
		defaultDestination: defaultDestination,
		logger:             logger,
	}
}

// NotifyPublished handles POST /api/distribution/notify. It always answers
// with the success/failure envelope; scheduler errors never escape unhandled.
func (h *Handler) NotifyPublished(w http.ResponseWriter, r *http.Request) {
	var req NotifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	destID := req.Destination
	if destID == "" {
		destID = h.defaultDestination
	}

	opts := app.ScheduleOptions{VideoURL: req.VideoURL, OverrideTime: req.OverrideTime}
	outcome, err := h.scheduler.NotifyPublished(r.Context(), req.NoteSlug, destID, opts)
	if err != nil {
		switch {
		case errors.Is(err, idb.ErrNoteNotFound):
			writeJSON(w, http.StatusNotFound, NotifyResponse{Success: false, Error: "note not found"})
		case errors.Is(err, destination.ErrUnknownDestination):
			writeJSON(w, http.StatusBadRequest, NotifyResponse{Success: false, Error: err.Error()})
		case errors.Is(err, app.ErrNoteNotPublished):
			writeJSON(w, http.StatusConflict, NotifyResponse{Success: false, Error: err.Error()})
		default:
			h.logger.WithError(err).WithField("note_slug", req.NoteSlug).Error("Publish trigger failed")
			writeJSON(w, http.StatusInternalServerError, NotifyResponse{Success: false, Error: err.Error()})
		}
		return
	}

	resp := NotifyResponse{
		Success:        outcome.Status == app.OutcomeScheduled || outcome.Status == app.OutcomeAlreadyScheduled,
		Outcome:        string(outcome.Status),
		PlatformPostID: outcome.PlatformPostID,
		Error:          outcome.Error,
	}
	if !outcome.ScheduledFor.IsZero() {
		t := outcome.ScheduledFor
		resp.ScheduledTime = &t
	}
	writeJSON(w, http.StatusOK, resp)
}

// RunBackfill handles POST /api/distribution/backfill.
func (h *Handler) RunBackfill(w http.ResponseWriter, r *http.Request) {
	var req BackfillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	mode := app.ModeDryRun
	if req.Execute {
		mode = app.ModeExecute
	}

	report, err := h.backfill.Run(r.Context(), req.LookbackHours, req.Destination, mode)
	if err != nil {
		if errors.Is(err, destination.ErrUnknownDestination) {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
			return
		}
		h.logger.WithError(err).WithField("destination", req.Destination).Error("Backfill run failed")
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// ListSources handles GET /api/sources?hour=N|all.
func (h *Handler) ListSources(w http.ResponseWriter, r *http.Request) {
	var hour *int
	raw := strings.TrimSpace(r.URL.Query().Get("hour"))
	if raw != "" && raw != "all" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 || parsed > 23 {
			writeJSON(w, http.StatusBadRequest, errorBody("hour must be 0-23 or \"all\""))
			return
		}
		hour = &parsed
	}

	sources, err := h.sources.SelectSources(r.Context(), hour)
	if err != nil {
		h.logger.WithError(err).Error("Source selection failed")
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, SourcesResponse{Sources: sources})
}

// Healthz handles GET /healthz.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if h.ping != nil {
		if err := h.ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, errorBody("database unreachable"))
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

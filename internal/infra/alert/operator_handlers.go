// internal/infra/alert/operator_handlers.go
package alert

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"press_distributor/internal/app"
	"press_distributor/internal/domain/destination"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// RegisterOperatorHandlers wires the human-in-the-loop recovery commands.
// Backfill execution is deliberately kept behind a dry-run-first workflow:
// the bot only ever reports; the execute path stays on the authenticated
// HTTP endpoint.
func RegisterOperatorHandlers(
	ctx context.Context,
	b *telebot.Bot,
	backfillService *app.BackfillService,
	registry *destination.Registry,
	adminChatID int64,
	baseLogger *logrus.Entry,
) {
	b.Handle("/backfill", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/backfill",
			"sender_id": c.Sender().ID,
		})
		handlerLogger.Info("Command received")

		if c.Sender().ID != adminChatID {
			handlerLogger.Warn("Unauthorized access attempt")
			return c.Send("Error: no tenés permisos para ejecutar este comando.")
		}

		args := c.Args()
		// Expected format: /backfill <destino> [horas]
		if len(args) < 1 || len(args) > 2 {
			handlerLogger.WithField("args_count", len(args)).Warn("Invalid command format")
			return c.Send("Formato inválido. Usá: /backfill <destino> [horas]")
		}

		destID := args[0]
		lookbackHours := 72
		if len(args) == 2 {
			parsed, err := strconv.Atoi(args[1])
			if err != nil || parsed < 1 || parsed > 720 {
				return c.Send("Error: las horas deben ser un número entre 1 y 720.")
			}
			lookbackHours = parsed
		}

		report, err := backfillService.Run(ctx, lookbackHours, destID, app.ModeDryRun)
		if err != nil {
			if errors.Is(err, destination.ErrUnknownDestination) {
				return c.Send(fmt.Sprintf("Error: destino %q desconocido.", destID))
			}
			handlerLogger.WithError(err).Error("Backfill dry run failed")
			return c.Send(fmt.Sprintf("Ocurrió un error al auditar el destino: %s", err.Error()))
		}

		handlerLogger.WithField("gap_count", report.CandidateCount).Info("Backfill dry run reported")
		return c.Send(FormatBackfillReport(report))
	})

	b.Handle("/pendientes", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/pendientes",
			"sender_id": c.Sender().ID,
		})
		handlerLogger.Info("Command received")

		if c.Sender().ID != adminChatID {
			handlerLogger.Warn("Unauthorized access attempt")
			return c.Send("Error: no tenés permisos para ejecutar este comando.")
		}

		args := c.Args()
		if len(args) != 1 {
			return c.Send("Formato inválido. Usá: /pendientes <destino>")
		}

		dest, err := registry.Get(args[0])
		if err != nil {
			return c.Send(fmt.Sprintf("Error: destino %q desconocido.", args[0]))
		}

		gaps, err := backfillService.FindGaps(ctx, 72, dest)
		if err != nil {
			handlerLogger.WithError(err).Error("Gap scan failed")
			return c.Send(fmt.Sprintf("Ocurrió un error al buscar pendientes: %s", err.Error()))
		}

		if len(gaps) == 0 {
			return c.Send(fmt.Sprintf("Sin pendientes para %s en las últimas 72 horas.", dest.ID))
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "Notas publicadas sin programar en %s (últimas 72 hs): %d\n", dest.ID, len(gaps))
		for _, n := range gaps {
			fmt.Fprintf(&sb, "• %s (#%d)\n", n.Slug, n.ID)
		}
		return c.Send(sb.String())
	})
}

// FormatBackfillReport renders a backfill report for the operations chat.
func FormatBackfillReport(report *app.BackfillReport) string {
	var sb strings.Builder
	modeLabel := "simulación"
	if report.Mode == app.ModeExecute {
		modeLabel = "ejecución"
	}
	fmt.Fprintf(&sb, "Backfill (%s) destino %s, ventana %d hs: %d candidatas\n",
		modeLabel, report.DestinationID, report.LookbackHours, report.CandidateCount)
	for _, res := range report.Results {
		switch {
		case res.Error != "":
			fmt.Fprintf(&sb, "• %s → %s: %s\n", res.NoteSlug, res.Outcome, res.Error)
		case res.ScheduledFor != nil:
			fmt.Fprintf(&sb, "• %s → %s (%s)\n", res.NoteSlug, res.Outcome, res.ScheduledFor.Format(time.RFC3339))
		default:
			fmt.Fprintf(&sb, "• %s → %s\n", res.NoteSlug, res.Outcome)
		}
	}
	if report.Mode == app.ModeExecute && report.CandidateCount > 0 {
		sb.WriteString("Atención: si el proceso murió entre la entrega y la persistencia en una corrida anterior, reintentar puede duplicar publicaciones. Verificá la página antes de re-ejecutar.")
	}
	return sb.String()
}

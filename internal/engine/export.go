package engine

import (
	"context"
	"database/sql"
	"errors"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"

	"jornada/internal/dates"
	"jornada/internal/domain"
	"jornada/internal/events"
	"jornada/internal/gantt"
	"jornada/internal/kpi"
	"jornada/internal/repo"
)

var ErrNoDatabase = errors.New("export database not configured")

// WithDB returns a copy of the engine bound to an export database.
func (e Engine) WithDB(conn *sql.DB) Engine {
	e.DB = conn
	e.Repo = repo.Repo{DB: conn}
	e.Events = events.Writer{DB: conn, Now: e.Now}
	return e
}

// Export writes every episode report as one run. The database must be
// migrated. The whole run commits or nothing does.
func (e Engine) Export(ctx context.Context) (domain.ExportRun, error) {
	if e.DB == nil {
		return domain.ExportRun{}, ErrNoDatabase
	}
	now := e.now().UTC()
	entropy := rand.New(rand.NewSource(now.UnixNano()))
	run := domain.ExportRun{
		ID:         ulid.MustNew(ulid.Timestamp(now), entropy).String(),
		DocumentID: e.DocumentID(),
		Policy:     e.Policy.Name(),
		CreatedAt:  now.Format(time.RFC3339),
	}
	reports := e.Reports()
	run.EpisodeCount = len(reports)

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.ExportRun{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertRunTx(ctx, tx, run); err != nil {
		return domain.ExportRun{}, err
	}
	if err := e.Events.Append(ctx, tx, events.ExportStarted, run.ID, "run", run.ID, events.EventPayload{
		"document_id": run.DocumentID,
		"policy":      run.Policy,
	}); err != nil {
		return domain.ExportRun{}, err
	}
	for i, rep := range reports {
		if err := e.exportEpisode(ctx, tx, run.ID, i, rep); err != nil {
			return domain.ExportRun{}, err
		}
	}
	if err := e.Events.Append(ctx, tx, events.ExportCompleted, run.ID, "run", run.ID, events.EventPayload{
		"episodes": run.EpisodeCount,
	}); err != nil {
		return domain.ExportRun{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.ExportRun{}, err
	}
	e.Logger.Info().Str("run", run.ID).Int("episodes", run.EpisodeCount).Msg("export committed")
	return run, nil
}

func (e Engine) exportEpisode(ctx context.Context, tx *sql.Tx, runID string, pos int, rep EpisodeReport) error {
	row := domain.EpisodeRow{
		RunID:           runID,
		ID:              rep.ID,
		Position:        pos,
		Date:            rep.Date,
		Title:           rep.Title,
		Viability:       rep.KPIs.Viability.Percent,
		Schedule:        rep.KPIs.Schedule.Percent,
		Publication:     rep.KPIs.Publication.Percent,
		Tolerance:       rep.KPIs.TolerancePercent,
		Bias:            string(rep.Bias.Label),
		Coherent:        rep.Coherent,
		GanttComputable: rep.Gantt.Computable,
	}
	if err := e.Repo.InsertEpisodeTx(ctx, tx, row); err != nil {
		return err
	}
	for i, r := range rep.layout.Rows {
		if err := e.Repo.InsertGanttBarTx(ctx, tx, barRow(runID, rep.ID, i, r, rep.Gantt.Computable)); err != nil {
			return err
		}
	}
	accepted := kpi.DefaultAcceptedStatuses
	if len(e.config().KPI.AcceptedStatuses) > 0 {
		accepted = e.config().KPI.AcceptedStatuses
	}
	for i, p := range rep.episode.Publications() {
		if err := e.Repo.InsertPublicationTx(ctx, tx, domain.PublicationRow{
			RunID:         runID,
			EpisodeID:     rep.ID,
			Position:      i,
			Titulo:        p.Titulo,
			Tipo:          p.Tipo,
			Status:        p.Status,
			Accepted:      kpi.IsAccepted(p.Status, accepted),
			Local:         p.Local,
			DataSubmissao: p.DataSubmissao,
			DataFinal:     p.DataFinal,
		}); err != nil {
			return err
		}
	}
	if !rep.Gantt.Computable && len(rep.episode.Deliveries()) > 0 {
		if err := e.Events.Append(ctx, tx, events.ScheduleSkipped, runID, "episode", rep.ID, events.EventPayload{
			"tasks":      len(rep.episode.Deliveries()),
			"unresolved": len(rep.Gantt.Unresolved),
		}); err != nil {
			return err
		}
	}
	return e.Events.Append(ctx, tx, events.EpisodeExported, runID, "episode", rep.ID, events.EventPayload{
		"bias":     rep.Bias.Label,
		"coherent": rep.Coherent,
	})
}

// barRow stores geometry only for resolved task rows of a computable layout.
func barRow(runID, episodeID string, pos int, r gantt.Row, computable bool) domain.GanttBarRow {
	b := domain.GanttBarRow{
		RunID:     runID,
		EpisodeID: episodeID,
		Position:  pos,
		TaskID:    r.ID,
		Name:      r.Name,
		Kind:      string(r.Kind),
		Status:    string(r.Status),
	}
	if r.Resolved {
		b.Start = dates.FormatISO(r.Start)
		b.End = dates.FormatISO(r.End)
	}
	if r.Kind == gantt.RowTask && r.Resolved && computable {
		offset, width := r.Offset, r.Width
		b.Offset, b.Width = &offset, &width
	}
	return b
}

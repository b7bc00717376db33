package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"jornada/internal/domain"
)

// Repo reads and writes the SQLite report export.
type Repo struct {
	DB *sql.DB
}

func (r Repo) InsertRunTx(ctx context.Context, tx *sql.Tx, run domain.ExportRun) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO runs(id,document_id,policy,episode_count,created_at) VALUES (?,?,?,?,?)`,
		run.ID, run.DocumentID, run.Policy, run.EpisodeCount, run.CreatedAt)
	return err
}

func (r Repo) InsertEpisodeTx(ctx context.Context, tx *sql.Tx, e domain.EpisodeRow) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO episodes(run_id,id,position,date,title,viability,schedule,publication,tolerance,bias,coherent,gantt_computable) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		e.RunID, e.ID, e.Position, nullable(e.Date), nullable(e.Title), e.Viability, e.Schedule, e.Publication, e.Tolerance, e.Bias, boolInt(e.Coherent), boolInt(e.GanttComputable))
	return err
}

func (r Repo) InsertGanttBarTx(ctx context.Context, tx *sql.Tx, b domain.GanttBarRow) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO gantt_bars(run_id,episode_id,position,task_id,name,kind,start_date,end_date,status,offset_percent,width_percent) VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		b.RunID, b.EpisodeID, b.Position, b.TaskID, nullable(b.Name), b.Kind, nullable(b.Start), nullable(b.End), nullable(b.Status), nullableFloat(b.Offset), nullableFloat(b.Width))
	return err
}

func (r Repo) InsertPublicationTx(ctx context.Context, tx *sql.Tx, p domain.PublicationRow) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO publications(run_id,episode_id,position,titulo,tipo,status,accepted,local,data_submissao,data_final) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		p.RunID, p.EpisodeID, p.Position, nullable(p.Titulo), nullable(p.Tipo), nullable(p.Status), boolInt(p.Accepted), nullable(p.Local), nullable(p.DataSubmissao), nullable(p.DataFinal))
	return err
}

func (r Repo) GetRun(ctx context.Context, id string) (domain.ExportRun, error) {
	var run domain.ExportRun
	err := r.DB.QueryRowContext(ctx, `SELECT id,document_id,policy,episode_count,created_at FROM runs WHERE id=?`, id).
		Scan(&run.ID, &run.DocumentID, &run.Policy, &run.EpisodeCount, &run.CreatedAt)
	if err == sql.ErrNoRows {
		return run, ErrNotFound
	}
	return run, err
}

// ListRuns returns export runs newest first. ULIDs sort by creation time.
func (r Repo) ListRuns(ctx context.Context) ([]domain.ExportRun, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,document_id,policy,episode_count,created_at FROM runs ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.ExportRun
	for rows.Next() {
		var run domain.ExportRun
		if err := rows.Scan(&run.ID, &run.DocumentID, &run.Policy, &run.EpisodeCount, &run.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, run)
	}
	return res, rows.Err()
}

func (r Repo) ListEpisodeRows(ctx context.Context, runID string) ([]domain.EpisodeRow, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT run_id,id,position,COALESCE(date,''),COALESCE(title,''),viability,schedule,publication,tolerance,bias,coherent,gantt_computable FROM episodes WHERE run_id=? ORDER BY position`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.EpisodeRow
	for rows.Next() {
		var e domain.EpisodeRow
		var coherent, computable int
		if err := rows.Scan(&e.RunID, &e.ID, &e.Position, &e.Date, &e.Title, &e.Viability, &e.Schedule, &e.Publication, &e.Tolerance, &e.Bias, &coherent, &computable); err != nil {
			return nil, err
		}
		e.Coherent, e.GanttComputable = coherent == 1, computable == 1
		res = append(res, e)
	}
	return res, rows.Err()
}

func (r Repo) ListGanttBars(ctx context.Context, runID, episodeID string) ([]domain.GanttBarRow, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT run_id,episode_id,position,task_id,COALESCE(name,''),kind,COALESCE(start_date,''),COALESCE(end_date,''),COALESCE(status,''),offset_percent,width_percent FROM gantt_bars WHERE run_id=? AND episode_id=? ORDER BY position`, runID, episodeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.GanttBarRow
	for rows.Next() {
		var b domain.GanttBarRow
		var offset, width sql.NullFloat64
		if err := rows.Scan(&b.RunID, &b.EpisodeID, &b.Position, &b.TaskID, &b.Name, &b.Kind, &b.Start, &b.End, &b.Status, &offset, &width); err != nil {
			return nil, err
		}
		if offset.Valid {
			b.Offset = &offset.Float64
		}
		if width.Valid {
			b.Width = &width.Float64
		}
		res = append(res, b)
	}
	return res, rows.Err()
}

// CountRows returns the number of rows per export table for one run.
func (r Repo) CountRows(ctx context.Context, runID string) (map[string]int, error) {
	res := map[string]int{}
	for _, table := range []string{"episodes", "gantt_bars", "publications", "events"} {
		var n int
		if err := r.DB.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE run_id=?`, table), runID).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		res[table] = n
	}
	return res, nil
}

// LatestEvents returns events newest first, optionally filtered.
func (r Repo) LatestEvents(ctx context.Context, limit int, runID, evtType string) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	clauses := []string{"1=1"}
	var args []any
	if runID != "" {
		clauses = append(clauses, "run_id=?")
		args = append(args, runID)
	}
	if evtType != "" {
		clauses = append(clauses, "type=?")
		args = append(args, evtType)
	}
	where := "WHERE " + strings.Join(clauses, " AND ")
	query := fmt.Sprintf(`SELECT id,ts,type,COALESCE(run_id,''),entity_kind,COALESCE(entity_id,''),payload_json FROM events %s ORDER BY id DESC LIMIT ?`, where)
	args = append(args, limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.RunID, &e.EntityKind, &e.EntityID, &e.Payload); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

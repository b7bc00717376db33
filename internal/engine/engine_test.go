package engine_test

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"jornada/internal/config"
	"jornada/internal/db"
	"jornada/internal/engine"
	"jornada/internal/events"
	"jornada/internal/gantt"
	"jornada/internal/kpi"
	"jornada/internal/migrate"
	"jornada/internal/presenter"
	"jornada/internal/repo"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
	Logs   *bytes.Buffer
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	store, err := repo.LoadFile("../../testdata/dados.json")
	if err != nil {
		t.Fatalf("load document: %v", err)
	}
	logs := &bytes.Buffer{}
	eng, err := engine.New(store, config.Default(), zerolog.New(logs).Level(zerolog.DebugLevel))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	eng.Now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	return testEnv{Engine: eng, Ctx: context.Background(), Logs: logs}
}

func withDB(t *testing.T, env testEnv) engine.Engine {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if _, err := migrate.Migrate(env.Ctx, conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return env.Engine.WithDB(conn)
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestReportsAreChronological(t *testing.T) {
	env := newTestEnv(t)
	reps := env.Engine.Reports()
	var ids []string
	for _, r := range reps {
		ids = append(ids, r.ID)
	}
	if strings.Join(ids, ",") != "ep03,ep01,ep02" {
		t.Fatalf("order = %v", ids)
	}
}

func TestDefaultReportIsEarliest(t *testing.T) {
	env := newTestEnv(t)
	rep, err := env.Engine.Report("")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if rep.ID != "ep03" {
		t.Fatalf("default = %s, want ep03", rep.ID)
	}
	items := env.Engine.Timeline("")
	if len(items) != 3 || !items[0].Active || items[0].ID != "ep03" || items[1].Active || items[2].Active {
		t.Fatalf("timeline = %+v", items)
	}
}

func TestReportScores(t *testing.T) {
	env := newTestEnv(t)
	rep, err := env.Engine.Report("ep01")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	k := rep.KPIs
	if k.Policy != kpi.PolicyWeighted {
		t.Fatalf("policy = %s", k.Policy)
	}
	if !near(k.Viability.Benefit, 300) || !near(k.Viability.Cost, 300) || !near(k.Viability.Percent, 100) {
		t.Fatalf("viability = %+v", k.Viability)
	}
	if !near(k.Schedule.Percent, 50) || !near(k.Publication.Percent, 50) {
		t.Fatalf("schedule %v publication %v", k.Schedule.Percent, k.Publication.Percent)
	}
	if !near(k.TolerancePercent, 10) {
		t.Fatalf("tolerance = %v", k.TolerancePercent)
	}
	if rep.Bias.Label != kpi.ViabilityBias || !rep.Coherent {
		t.Fatalf("bias %s coherent %v", rep.Bias.Label, rep.Coherent)
	}
	if k.Labels.Viability != "100.0%" || k.Labels.Tolerance != `Pesquisa com viés "V" e conteúdo coerente` {
		t.Fatalf("labels = %+v", k.Labels)
	}
	if rep.DateBR != "10/01/2024" {
		t.Fatalf("date = %s", rep.DateBR)
	}
}

func TestReportGantt(t *testing.T) {
	env := newTestEnv(t)
	rep, err := env.Engine.Report("ep01")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	g := rep.Gantt
	if !g.Computable || g.SpanStart != "2024-01-01" || g.SpanEnd != "2024-01-16" || g.SpanDays != 15 {
		t.Fatalf("gantt = %+v", g)
	}
	if len(g.Bars) != 2 || len(g.Phases) != 1 {
		t.Fatalf("bars %d phases %d", len(g.Bars), len(g.Phases))
	}
	if g.Bars[0].Status != gantt.StatusCompleted || g.Bars[1].Status != gantt.StatusInProgress {
		t.Fatalf("statuses = %s %s", g.Bars[0].Status, g.Bars[1].Status)
	}
	if !near(g.Bars[1].Offset, 100*5.0/15) || !near(g.Bars[1].Width, 100*10.0/15) {
		t.Fatalf("bar 1.2 = %+v", g.Bars[1])
	}
	if g.Today == nil || !near(g.Today.RawOffset, 60) || !near(g.Today.Position, 72) {
		t.Fatalf("today = %+v", g.Today)
	}
}

func TestReportUnresolvedScheduleLogs(t *testing.T) {
	env := newTestEnv(t)
	rep, err := env.Engine.Report("ep02")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if rep.Gantt.Computable || rep.Gantt.Message != presenter.NoScheduleText || len(rep.Gantt.Unresolved) != 2 {
		t.Fatalf("gantt = %+v", rep.Gantt)
	}
	if rep.Coherent {
		t.Fatalf("grey cube should be incoherent")
	}
	logs := env.Logs.String()
	if !strings.Contains(logs, "task start undetermined") || !strings.Contains(logs, "gantt cannot be computed") {
		t.Fatalf("logs = %s", logs)
	}
	var buf bytes.Buffer
	if err := env.Engine.WriteGanttSVG(&buf, "ep02"); !errors.Is(err, gantt.ErrNoSchedule) {
		t.Fatalf("svg err = %v", err)
	}
}

func TestReportNotFound(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.Report("nope"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestModal(t *testing.T) {
	env := newTestEnv(t)
	body, err := env.Engine.Modal("ep02", presenter.ModalSchedule)
	if err != nil {
		t.Fatalf("modal: %v", err)
	}
	if !strings.Contains(string(body), presenter.NoScheduleText) {
		t.Fatalf("prazo body = %s", body)
	}
	if _, err := env.Engine.Modal("ep01", presenter.ModalKind("x")); !errors.Is(err, presenter.ErrUnknownModal) {
		t.Fatalf("err = %v", err)
	}
}

func TestWriteGanttSVG(t *testing.T) {
	env := newTestEnv(t)
	var buf bytes.Buffer
	if err := env.Engine.WriteGanttSVG(&buf, "ep01"); err != nil {
		t.Fatalf("svg: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "<?xml") || !strings.Contains(buf.String(), "Coleta") {
		t.Fatalf("svg = %s", buf.String())
	}
}

func TestDocumentIDStable(t *testing.T) {
	a := newTestEnv(t).Engine.DocumentID()
	b := newTestEnv(t).Engine.DocumentID()
	if a == "" || a != b {
		t.Fatalf("ids %q %q", a, b)
	}
}

func TestUnknownPolicy(t *testing.T) {
	store, err := repo.LoadFile("../../testdata/dados.json")
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	cfg.KPI.Policy = "median"
	if _, err := engine.New(store, cfg, zerolog.Nop()); err == nil {
		t.Fatalf("expected policy error")
	}
}

func TestExport(t *testing.T) {
	env := newTestEnv(t)
	eng := withDB(t, env)
	run, err := eng.Export(env.Ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if run.EpisodeCount != 3 || run.Policy != kpi.PolicyWeighted || run.DocumentID != eng.DocumentID() {
		t.Fatalf("run = %+v", run)
	}
	if run.CreatedAt != "2024-03-01T12:00:00Z" {
		t.Fatalf("created = %s", run.CreatedAt)
	}
	counts, err := eng.Repo.CountRows(env.Ctx, run.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	// ep01 has 3 schedule rows, ep02 has 2; only ep01 has publications.
	// Events: started, 3 episodes, 1 skipped schedule, completed.
	want := map[string]int{"episodes": 3, "gantt_bars": 5, "publications": 2, "events": 6}
	for k, v := range want {
		if counts[k] != v {
			t.Fatalf("%s = %d, want %d (%v)", k, counts[k], v, counts)
		}
	}
	rows, err := eng.Repo.ListEpisodeRows(env.Ctx, run.ID)
	if err != nil {
		t.Fatalf("episodes: %v", err)
	}
	if rows[0].ID != "ep03" || rows[1].Bias != "V" || rows[2].GanttComputable {
		t.Fatalf("rows = %+v", rows)
	}
	bars, err := eng.Repo.ListGanttBars(env.Ctx, run.ID, "ep02")
	if err != nil {
		t.Fatalf("bars: %v", err)
	}
	if len(bars) != 2 || bars[0].Offset != nil || bars[0].Start != "" {
		t.Fatalf("unresolved bars = %+v", bars)
	}
	skipped, err := eng.Repo.LatestEvents(env.Ctx, 10, run.ID, events.ScheduleSkipped)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(skipped) != 1 || skipped[0].EntityID != "ep02" {
		t.Fatalf("skipped = %+v", skipped)
	}
	runs, err := eng.Repo.ListRuns(env.Ctx)
	if err != nil || len(runs) != 1 || runs[0].ID != run.ID {
		t.Fatalf("runs = %+v err %v", runs, err)
	}
}

func TestExportWithoutDatabase(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.Export(env.Ctx); !errors.Is(err, engine.ErrNoDatabase) {
		t.Fatalf("err = %v", err)
	}
}

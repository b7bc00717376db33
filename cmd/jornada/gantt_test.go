package main

import (
	"strings"
	"testing"
	"time"

	"jornada/internal/gantt"
)

func TestRenderTerminalGantt(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := gantt.Layout{
		SpanStart: start,
		SpanEnd:   start.AddDate(0, 0, 10),
		SpanDays:  10,
		Rows: []gantt.Row{
			{Kind: gantt.RowPhase, ID: "1", Name: "Coleta"},
			{Kind: gantt.RowTask, ID: "1.1", Name: "Entrevistas", Resolved: true, Status: gantt.StatusCompleted, Offset: 0, Width: 50},
			{Kind: gantt.RowTask, ID: "1.2", Name: "Transcrição", Resolved: true, Status: gantt.StatusInProgress, Offset: 50, Width: 50},
			{Kind: gantt.RowTask, ID: "1.3", Name: "Sem data"},
		},
		Today: &gantt.TodayMarker{Date: start.AddDate(0, 0, 6), RawOffset: 60},
	}
	out := renderTerminalGantt(l, nil, 20)
	for _, want := range []string{"01/01/2024", "11/01/2024", "1.1 Entrevistas", "início indeterminado", "▲ 07/01/2024", "Concluído"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
	if n := strings.Count(out, "█"); n < 20 {
		t.Fatalf("expected two 10-column bars, got %d blocks", n)
	}
}

func TestRenderTerminalGanttNoSchedule(t *testing.T) {
	l := gantt.Layout{Rows: []gantt.Row{{Kind: gantt.RowTask, ID: "2.1", Name: "Ciclo"}}}
	out := renderTerminalGantt(l, gantt.ErrNoSchedule, 40)
	if !strings.Contains(out, "cannot compute schedule") || !strings.Contains(out, "2.1 Ciclo") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestPadTruncates(t *testing.T) {
	if got := pad("abcdef", 4); got != "abc…" {
		t.Fatalf("pad = %q", got)
	}
	if got := pad("ab", 4); got != "ab  " {
		t.Fatalf("pad = %q", got)
	}
}

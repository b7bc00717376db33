// Package gantt turns a delivery list into normalized bar geometry: offsets
// and widths as percentages of the visible timeline span.
package gantt

import (
	"errors"
	"fmt"
	"time"

	"jornada/internal/dates"
	"jornada/internal/domain"
	"jornada/internal/schedule"
)

// ErrNoSchedule is returned when no leaf task has a resolvable span.
var ErrNoSchedule = errors.New("cannot compute schedule: check start dates and dependencies")

type Status string

const (
	StatusCompleted  Status = "concluido"
	StatusLate       Status = "atrasado"
	StatusInProgress Status = "andamento"
	StatusPending    Status = "aguardando"
)

// Label is the display text used in tooltips and legends.
func (s Status) Label() string {
	switch s {
	case StatusCompleted:
		return "Concluído"
	case StatusLate:
		return "Atrasado"
	case StatusInProgress:
		return "Em andamento"
	default:
		return "Aguardando"
	}
}

type RowKind string

const (
	RowPhase RowKind = "fase"
	RowTask  RowKind = "tarefa"
)

// Geometry splits the display width between row labels and the timeline.
// All values are percentages.
type Geometry struct {
	LabelWidth    float64
	TimelineWidth float64
	MinBarWidth   float64
}

func DefaultGeometry() Geometry {
	return Geometry{LabelWidth: 30, TimelineWidth: 70, MinBarWidth: 0.5}
}

type Row struct {
	Kind     RowKind   `json:"kind"`
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Start    time.Time `json:"start,omitzero"`
	End      time.Time `json:"end,omitzero"`
	Resolved bool      `json:"resolved"`
	Status   Status    `json:"status,omitempty"`
	Tooltip  string    `json:"tooltip"`
	Offset   float64   `json:"offset_percent"`
	Width    float64   `json:"width_percent"`
}

// TodayMarker is the reference-date line. Position is already remapped into
// the timeline sub-region of the display (label width + share of timeline).
type TodayMarker struct {
	Date      time.Time `json:"date"`
	RawOffset float64   `json:"raw_offset_percent"`
	Position  float64   `json:"position_percent"`
}

type Layout struct {
	Rows      []Row        `json:"rows"`
	SpanStart time.Time    `json:"span_start"`
	SpanEnd   time.Time    `json:"span_end"`
	SpanDays  int          `json:"span_days"`
	Today     *TodayMarker `json:"today,omitempty"`
	Geometry  Geometry     `json:"-"`
}

// Bars returns the leaf tasks that have geometry, in input order.
func (l Layout) Bars() []Row {
	var out []Row
	for _, r := range l.Rows {
		if r.Kind == RowTask && r.Resolved {
			out = append(out, r)
		}
	}
	return out
}

// Unresolved returns leaf tasks whose start could not be determined.
func (l Layout) Unresolved() []Row {
	var out []Row
	for _, r := range l.Rows {
		if r.Kind == RowTask && !r.Resolved {
			out = append(out, r)
		}
	}
	return out
}

// Compute lays out tasks against reference, the episode's own date. A nil
// reference disables date-derived status and the today marker. When no
// leaf task resolves, Compute returns the rows it could classify together
// with ErrNoSchedule.
func Compute(tasks []domain.Delivery, reference *time.Time, geo Geometry) (Layout, error) {
	if geo.LabelWidth == 0 && geo.TimelineWidth == 0 {
		geo = DefaultGeometry()
	}
	resolver := schedule.NewResolver(tasks)
	layout := Layout{Rows: make([]Row, 0, len(tasks)), Geometry: geo}

	var minStart, maxEnd time.Time
	haveSpan := false
	for _, t := range tasks {
		id := string(t.ID)
		if schedule.IsPhase(t) {
			layout.Rows = append(layout.Rows, Row{
				Kind:    RowPhase,
				ID:      id,
				Name:    t.Tarefa,
				Tooltip: fmt.Sprintf("%s [%s]", t.Tarefa, id),
			})
			continue
		}
		row := Row{Kind: RowTask, ID: id, Name: t.Tarefa, Status: StatusPending}
		if start, end, ok := resolver.Span(t); ok {
			row.Start, row.End, row.Resolved = start, end, true
			if !haveSpan || start.Before(minStart) {
				minStart = start
			}
			if !haveSpan || end.After(maxEnd) {
				maxEnd = end
			}
			haveSpan = true
		}
		row.Status = classify(t, row, reference)
		row.Tooltip = tooltip(row)
		layout.Rows = append(layout.Rows, row)
	}

	if !haveSpan {
		return layout, ErrNoSchedule
	}

	// One day of margin after the last end date.
	spanEnd := dates.AddDays(maxEnd, 1)
	spanDays := dates.DaysBetween(minStart, spanEnd)
	layout.SpanStart, layout.SpanEnd, layout.SpanDays = minStart, spanEnd, spanDays

	total := float64(spanDays)
	for i := range layout.Rows {
		r := &layout.Rows[i]
		if r.Kind != RowTask || !r.Resolved {
			continue
		}
		offset := 100 * float64(dates.DaysBetween(minStart, r.Start)) / total
		width := 100 * float64(dates.DaysBetween(r.Start, r.End)+1) / total
		r.Offset = max(0, offset)
		r.Width = max(geo.MinBarWidth, width)
	}

	if reference != nil && !reference.Before(minStart) && reference.Before(spanEnd) {
		raw := 100 * float64(dates.DaysBetween(minStart, *reference)) / total
		layout.Today = &TodayMarker{
			Date:      *reference,
			RawOffset: raw,
			Position:  geo.LabelWidth + geo.TimelineWidth*(raw/100),
		}
	}
	return layout, nil
}

func classify(t domain.Delivery, row Row, reference *time.Time) Status {
	switch {
	case t.ConclusaoReal.Set:
		return StatusCompleted
	case !row.Resolved || reference == nil:
		return StatusPending
	case row.End.Before(*reference):
		return StatusLate
	case !row.Start.After(*reference):
		return StatusInProgress
	default:
		return StatusPending
	}
}

func tooltip(r Row) string {
	start, end := "N/A", "N/A"
	if r.Resolved {
		start, end = dates.FormatBR(r.Start), dates.FormatBR(r.End)
	}
	return fmt.Sprintf("%s [%s]\nInício: %s\nFim: %s", r.Name, r.ID, start, end)
}

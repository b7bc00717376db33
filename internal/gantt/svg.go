package gantt

import (
	"fmt"
	"io"
	"math"

	svg "github.com/ajstarks/svgo"

	"jornada/internal/dates"
)

const (
	svgWidth     = 960
	svgRowHeight = 26
	svgHeader    = 44
	svgFooter    = 40
	svgPad       = 12
)

var statusFill = map[Status]string{
	StatusCompleted:  "#16a34a",
	StatusLate:       "#dc2626",
	StatusInProgress: "#2563eb",
	StatusPending:    "#9ca3af",
}

const (
	colorText    = "#111827"
	colorSubtle  = "#6b7280"
	colorPhaseBG = "#f3f4f6"
	colorGrid    = "#e5e7eb"
	colorToday   = "#f59e0b"
)

// WriteSVG draws the layout: one row per phase or task, label column on the
// left, bars inside the timeline column, and the reference-date line.
// Unresolved tasks keep their row with an "N/A" label and no bar.
func WriteSVG(w io.Writer, title string, l Layout) error {
	if len(l.Rows) == 0 || l.SpanDays <= 0 {
		return ErrNoSchedule
	}
	geo := l.Geometry
	if geo.LabelWidth == 0 && geo.TimelineWidth == 0 {
		geo = DefaultGeometry()
	}
	height := svgHeader + len(l.Rows)*svgRowHeight + svgFooter
	labelW := pct(svgWidth, geo.LabelWidth)
	timelineW := pct(svgWidth, geo.TimelineWidth)

	canvas := svg.New(w)
	canvas.Start(svgWidth, height)
	canvas.Rect(0, 0, svgWidth, height, "fill:#ffffff")
	canvas.Text(svgPad, 24, title, fmt.Sprintf("fill:%s;font-size:15px;font-family:sans-serif;font-weight:bold", colorText))
	canvas.Text(labelW, 24, fmt.Sprintf("%s → %s (%d dias)", dates.FormatBR(l.SpanStart), dates.FormatBR(l.SpanEnd), l.SpanDays),
		fmt.Sprintf("fill:%s;font-size:12px;font-family:sans-serif", colorSubtle))

	for i, r := range l.Rows {
		y := svgHeader + i*svgRowHeight
		if r.Kind == RowPhase {
			canvas.Rect(0, y, svgWidth, svgRowHeight, "fill:"+colorPhaseBG)
			canvas.Text(svgPad, y+17, fmt.Sprintf("%s [%s]", r.Name, r.ID),
				fmt.Sprintf("fill:%s;font-size:12px;font-family:sans-serif;font-weight:bold", colorText))
			continue
		}
		canvas.Line(labelW, y+svgRowHeight, svgWidth, y+svgRowHeight, "stroke:"+colorGrid)
		canvas.Text(svgPad, y+17, truncate(fmt.Sprintf("%s [%s]", r.Name, r.ID), 38),
			fmt.Sprintf("fill:%s;font-size:12px;font-family:sans-serif", colorText))
		if !r.Resolved {
			canvas.Text(labelW+4, y+17, "N/A", fmt.Sprintf("fill:%s;font-size:11px;font-family:sans-serif", colorSubtle))
			continue
		}
		x := labelW + pct(timelineW, r.Offset)
		bw := max(2, pct(timelineW, r.Width))
		if x+bw > svgWidth {
			bw = svgWidth - x
		}
		canvas.Group()
		canvas.Title(r.Tooltip)
		canvas.Roundrect(x, y+5, bw, svgRowHeight-10, 3, 3, "fill:"+statusFill[r.Status])
		canvas.Gend()
	}

	if l.Today != nil {
		x := pct(svgWidth, l.Today.Position)
		top := svgHeader - 6
		bottom := svgHeader + len(l.Rows)*svgRowHeight
		canvas.Line(x, top, x, bottom, fmt.Sprintf("stroke:%s;stroke-width:2;stroke-dasharray:4,3", colorToday))
		canvas.Text(x+3, top, dates.FormatBR(l.Today.Date), fmt.Sprintf("fill:%s;font-size:11px;font-family:sans-serif", colorToday))
	}

	drawLegend(canvas, height-svgFooter+14)
	canvas.End()
	return nil
}

func drawLegend(canvas *svg.SVG, y int) {
	x := svgPad
	for _, s := range []Status{StatusCompleted, StatusInProgress, StatusLate, StatusPending} {
		canvas.Roundrect(x, y, 14, 14, 3, 3, "fill:"+statusFill[s])
		canvas.Text(x+20, y+12, s.Label(), fmt.Sprintf("fill:%s;font-size:12px;font-family:sans-serif", colorSubtle))
		x += 140
	}
}

func pct(total int, p float64) int {
	return int(math.Round(float64(total) * p / 100))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

package main

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"jornada/internal/dates"
	"jornada/internal/gantt"
)

const labelCols = 28

var (
	phaseStyle   = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	todayStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#e74c3c")).Bold(true)
	statusStyles = map[gantt.Status]lipgloss.Style{
		gantt.StatusCompleted:  lipgloss.NewStyle().Foreground(lipgloss.Color("#2ecc71")),
		gantt.StatusLate:       lipgloss.NewStyle().Foreground(lipgloss.Color("#e74c3c")),
		gantt.StatusInProgress: lipgloss.NewStyle().Foreground(lipgloss.Color("#f1c40f")),
		gantt.StatusPending:    lipgloss.NewStyle().Foreground(lipgloss.Color("#95a5a6")),
	}
)

// renderTerminalGantt draws the layout as one text line per row, scaled to
// width columns. err is the error returned alongside the layout.
func renderTerminalGantt(l gantt.Layout, err error, width int) string {
	if width < 10 {
		width = 10
	}
	var b strings.Builder
	if errors.Is(err, gantt.ErrNoSchedule) {
		b.WriteString(mutedStyle.Render(err.Error()))
		b.WriteString("\n")
		for _, r := range l.Unresolved() {
			fmt.Fprintf(&b, "  %s %s\n", r.ID, r.Name)
		}
		return b.String()
	}
	if len(l.Rows) == 0 {
		return mutedStyle.Render("Nenhuma entrega cadastrada.") + "\n"
	}

	header := fmt.Sprintf("%s → %s (%d dias)", dates.FormatBR(l.SpanStart), dates.FormatBR(l.SpanEnd), l.SpanDays)
	b.WriteString(pad("", labelCols) + " " + mutedStyle.Render(header) + "\n")

	for _, r := range l.Rows {
		label := pad(r.ID+" "+r.Name, labelCols)
		switch {
		case r.Kind == gantt.RowPhase:
			b.WriteString(phaseStyle.Render(label) + "\n")
		case !r.Resolved:
			b.WriteString(label + " " + mutedStyle.Render("início indeterminado") + "\n")
		default:
			b.WriteString(label + " " + bar(r, width) + "\n")
		}
	}

	if l.Today != nil {
		col := cols(l.Today.RawOffset, width)
		if col >= width {
			col = width - 1
		}
		b.WriteString(pad("", labelCols) + " " + strings.Repeat(" ", col) +
			todayStyle.Render("▲ "+dates.FormatBR(l.Today.Date)) + "\n")
	}

	var legend []string
	for _, s := range []gantt.Status{gantt.StatusCompleted, gantt.StatusInProgress, gantt.StatusLate, gantt.StatusPending} {
		legend = append(legend, statusStyles[s].Render("█")+" "+s.Label())
	}
	b.WriteString(pad("", labelCols) + " " + strings.Join(legend, "  ") + "\n")
	return b.String()
}

func bar(r gantt.Row, width int) string {
	offset := cols(r.Offset, width)
	length := cols(r.Width, width)
	if length < 1 {
		length = 1
	}
	if offset+length > width {
		offset = max(0, width-length)
	}
	style, ok := statusStyles[r.Status]
	if !ok {
		style = statusStyles[gantt.StatusPending]
	}
	return strings.Repeat(" ", offset) + style.Render(strings.Repeat("█", length))
}

func cols(percent float64, width int) int {
	return int(math.Round(percent / 100 * float64(width)))
}

func pad(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n-1]) + "…"
	}
	return s + strings.Repeat(" ", n-len(r))
}

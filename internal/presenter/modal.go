package presenter

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"

	"jornada/internal/dates"
	"jornada/internal/domain"
	"jornada/internal/gantt"
	"jornada/internal/kpi"
)

type ModalKind string

const (
	ModalViability   ModalKind = "viabilidade"
	ModalSchedule    ModalKind = "prazo"
	ModalPublication ModalKind = "publicidade"
	ModalTolerance   ModalKind = "tolerancia"
	ModalLegend      ModalKind = "legenda"
	ModalDrive       ModalKind = "drive"
)

// ModalKinds lists every known modal in display order.
var ModalKinds = []ModalKind{ModalViability, ModalSchedule, ModalPublication, ModalTolerance, ModalLegend, ModalDrive}

const (
	UnknownModalText = "Tipo de KPI não reconhecido."
	NoScheduleText   = "Não foi possível calcular o cronograma (verifique as datas de início e dependências)."
)

// ErrUnknownModal is returned with the fallback body for an unknown kind.
var ErrUnknownModal = errors.New("unknown modal kind")

//go:embed templates/*.html
var templateFS embed.FS

var modalTemplates = template.Must(template.New("modals").Funcs(template.FuncMap{
	"money":     func(v float64) string { return fmt.Sprintf("R$ %.2f", v) },
	"pct":       kpi.FormatPercent,
	"ratio":     func(v float64) string { return fmt.Sprintf("%.3f", v) },
	"br":        dates.ISOToBR,
	"fmtBR":     dates.FormatBR,
	"orNA":      func(s string) string { return or(s, "N/A") },
	"orMemo":    func(s string) string { return or(s, "Cálculo não disponível.") },
	"mul100":    func(v float64) float64 { return v * 100 },
	"barCSS":    barCSS,
	"todayCSS":  todayCSS,
	"biasAlert": biasAlert,
}).ParseFS(templateFS, "templates/*.html"))

// ModalInput is everything a modal body can draw from.
type ModalInput struct {
	Episode  domain.Episode
	Result   kpi.Result
	Gantt    gantt.Layout
	GanttErr error
	DriveURL string
}

type scheduleView struct {
	ModalInput
	HasTasks   bool
	Computable bool
	Message    string
}

// Modal renders the body for kind. An unknown kind yields the fallback
// paragraph together with ErrUnknownModal.
func Modal(kind ModalKind, in ModalInput) (template.HTML, error) {
	var data any = in
	name := string(kind)
	switch kind {
	case ModalViability, ModalPublication, ModalTolerance, ModalLegend, ModalDrive:
	case ModalSchedule:
		data = scheduleView{
			ModalInput: in,
			HasTasks:   len(in.Episode.Deliveries()) > 0,
			Computable: in.GanttErr == nil,
			Message:    NoScheduleText,
		}
	default:
		return template.HTML("<p>" + template.HTMLEscapeString(UnknownModalText) + "</p>"), ErrUnknownModal
	}
	var buf bytes.Buffer
	if err := modalTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render modal %s: %w", kind, err)
	}
	return template.HTML(buf.String()), nil
}

// Modals renders every known modal body for one episode.
func Modals(in ModalInput) (map[ModalKind]template.HTML, error) {
	out := make(map[ModalKind]template.HTML, len(ModalKinds))
	for _, k := range ModalKinds {
		body, err := Modal(k, in)
		if err != nil {
			return nil, err
		}
		out[k] = body
	}
	return out, nil
}

func barCSS(r gantt.Row) template.CSS {
	return template.CSS(fmt.Sprintf("left: %.2f%%; width: %.2f%%;", r.Offset, r.Width))
}

func biasAlert(l kpi.Label) *kpi.Alert {
	a, ok := l.Alert()
	if !ok {
		return nil
	}
	return &a
}

func todayCSS(m *gantt.TodayMarker) template.CSS {
	return template.CSS(fmt.Sprintf("left: %.2f%%;", m.Position))
}

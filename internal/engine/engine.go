package engine

import (
	"database/sql"
	"errors"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"jornada/internal/config"
	"jornada/internal/dates"
	"jornada/internal/domain"
	"jornada/internal/events"
	"jornada/internal/gantt"
	"jornada/internal/kpi"
	"jornada/internal/presenter"
	"jornada/internal/repo"
)

// documentNamespace scopes document ids derived from the document bytes.
var documentNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://jornada.local/dados.json"))

type Engine struct {
	Store  *repo.Store
	Config *config.Config
	Policy kpi.Policy
	Logger zerolog.Logger
	Now    func() time.Time

	// Export target; nil until WithDB.
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
}

// New builds an engine for a loaded store. A nil cfg means defaults.
func New(store *repo.Store, cfg *config.Config, logger zerolog.Logger) (Engine, error) {
	if store == nil {
		return Engine{}, errors.New("document not loaded")
	}
	if cfg == nil {
		cfg = config.Default()
	}
	policy, err := kpi.NewPolicy(cfg.KPI.Policy, Rules(cfg))
	if err != nil {
		return Engine{}, err
	}
	return Engine{
		Store:  store,
		Config: cfg,
		Policy: policy,
		Logger: logger,
		Now:    time.Now,
	}, nil
}

// Rules maps the kpi section of the config onto scoring rules.
func Rules(cfg *config.Config) kpi.Rules {
	return kpi.Rules{
		AcceptedStatuses: cfg.KPI.AcceptedStatuses,
		Sentinel:         cfg.KPI.ViabilitySentinel,
		DefaultTolerance: cfg.KPI.DefaultTolerance,
	}
}

// Geometry maps the gantt section of the config onto layout geometry.
func Geometry(cfg *config.Config) gantt.Geometry {
	return gantt.Geometry{
		LabelWidth:    cfg.Gantt.LabelWidth,
		TimelineWidth: cfg.Gantt.TimelineWidth,
		MinBarWidth:   cfg.Gantt.MinBarWidth,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) config() *config.Config {
	if e.Config == nil {
		return config.Default()
	}
	return e.Config
}

// DocumentID is a stable UUIDv5 of the loaded document bytes, or of the
// episode ids when the store was built in memory.
func (e Engine) DocumentID() string {
	raw := e.Store.Raw()
	if raw == nil {
		for _, ep := range e.Store.List() {
			raw = append(raw, ep.ID...)
			raw = append(raw, 0)
		}
	}
	return uuid.NewSHA1(documentNamespace, raw).String()
}

// EpisodeReport is everything computed for one episode.
type EpisodeReport struct {
	ID       string          `json:"id"`
	Date     string          `json:"date"`
	DateBR   string          `json:"date_br"`
	Title    string          `json:"title"`
	KPIs     KPIReport       `json:"kpis"`
	Bias     kpi.Bias        `json:"bias"`
	Coherent bool            `json:"coherent"`
	Gantt    GanttReport     `json:"gantt"`
	Panel    presenter.Panel `json:"panel"`

	episode domain.Episode
	result  kpi.Result
	layout  gantt.Layout
	gantErr error
}

type KPIReport struct {
	Policy           string        `json:"policy"`
	Viability        kpi.Viability `json:"viability"`
	Schedule         kpi.Score     `json:"schedule"`
	Publication      kpi.Score     `json:"publication"`
	Tolerance        kpi.Tolerance `json:"tolerance"`
	TolerancePercent float64       `json:"tolerance_percent"`
	Labels           kpi.Labels    `json:"labels"`
}

type GanttReport struct {
	Computable bool               `json:"computable"`
	Message    string             `json:"message,omitempty"`
	SpanStart  string             `json:"span_start,omitempty"`
	SpanEnd    string             `json:"span_end,omitempty"`
	SpanDays   int                `json:"span_days,omitempty"`
	Bars       []gantt.Row        `json:"bars"`
	Phases     []gantt.Row        `json:"phases"`
	Unresolved []gantt.Row        `json:"unresolved,omitempty"`
	Today      *gantt.TodayMarker `json:"today,omitempty"`
}

// Episode returns the source episode of the report.
func (r EpisodeReport) Episode() domain.Episode { return r.episode }

// Layout returns the full row layout, phases included, and the layout error.
func (r EpisodeReport) Layout() (gantt.Layout, error) { return r.layout, r.gantErr }

// Report computes the report for id; an empty id selects the earliest episode.
func (e Engine) Report(id string) (EpisodeReport, error) {
	var (
		ep  domain.Episode
		err error
	)
	if id == "" {
		ep, err = e.Store.Default()
	} else {
		ep, err = e.Store.Get(id)
	}
	if err != nil {
		return EpisodeReport{}, err
	}
	return e.report(ep), nil
}

// Reports computes every episode in chronological order.
func (e Engine) Reports() []EpisodeReport {
	eps := e.Store.List()
	out := make([]EpisodeReport, 0, len(eps))
	for _, ep := range eps {
		out = append(out, e.report(ep))
	}
	return out
}

func (e Engine) report(ep domain.Episode) EpisodeReport {
	log := e.Logger.With().Str("episode", ep.ID).Logger()
	res := kpi.Evaluate(ep, e.Policy)

	var ref *time.Time
	if t, ok := ep.Time(); ok {
		ref = &t
	} else {
		log.Debug().Str("date", ep.Date).Msg("episode date invalid; gantt status uses no reference date")
	}
	layout, gerr := gantt.Compute(ep.Deliveries(), ref, Geometry(e.config()))
	for _, r := range layout.Unresolved() {
		log.Debug().Str("task", r.ID).Msg("task start undetermined")
	}

	g := GanttReport{
		Computable: gerr == nil,
		Bars:       layout.Bars(),
		Unresolved: layout.Unresolved(),
		Today:      layout.Today,
	}
	for _, r := range layout.Rows {
		if r.Kind == gantt.RowPhase {
			g.Phases = append(g.Phases, r)
		}
	}
	if gerr != nil {
		g.Message = presenter.NoScheduleText
		if len(ep.Deliveries()) > 0 {
			log.Warn().Int("tasks", len(ep.Deliveries())).Msg("gantt cannot be computed")
		}
	} else {
		g.SpanStart = dates.FormatISO(layout.SpanStart)
		g.SpanEnd = dates.FormatISO(layout.SpanEnd)
		g.SpanDays = layout.SpanDays
	}

	return EpisodeReport{
		ID:     ep.ID,
		Date:   ep.Date,
		DateBR: dates.ISOToBR(ep.Date),
		Title:  ep.Title,
		KPIs: KPIReport{
			Policy:           res.Policy,
			Viability:        res.Viability,
			Schedule:         res.Schedule,
			Publication:      res.Publication,
			Tolerance:        res.Tolerance,
			TolerancePercent: res.Tolerance.Percent,
			Labels:           res.Labels(),
		},
		Bias:     res.Bias,
		Coherent: res.Coherent,
		Gantt:    g,
		Panel:    presenter.NewPanel(ep, res),
		episode:  ep,
		result:   res,
		layout:   layout,
		gantErr:  gerr,
	}
}

// Timeline lists every episode; activeID empty marks the earliest.
func (e Engine) Timeline(activeID string) []presenter.TimelineItem {
	return presenter.Timeline(e.Store.List(), activeID)
}

// Modal renders one modal body for an episode.
func (e Engine) Modal(id string, kind presenter.ModalKind) (template.HTML, error) {
	rep, err := e.Report(id)
	if err != nil {
		return "", err
	}
	return presenter.Modal(kind, e.modalInput(rep))
}

// Modals renders every modal body for a computed report.
func (e Engine) Modals(rep EpisodeReport) (map[presenter.ModalKind]template.HTML, error) {
	return presenter.Modals(e.modalInput(rep))
}

func (e Engine) modalInput(rep EpisodeReport) presenter.ModalInput {
	return presenter.ModalInput{
		Episode:  rep.episode,
		Result:   rep.result,
		Gantt:    rep.layout,
		GanttErr: rep.gantErr,
		DriveURL: e.config().Site.DriveURL,
	}
}

// WriteGanttSVG renders the episode's schedule as SVG.
func (e Engine) WriteGanttSVG(w io.Writer, id string) error {
	rep, err := e.Report(id)
	if err != nil {
		return err
	}
	if rep.gantErr != nil {
		return rep.gantErr
	}
	title := fmt.Sprintf("Cronograma %s: %s", rep.ID, rep.Title)
	return gantt.WriteSVG(w, title, rep.layout)
}

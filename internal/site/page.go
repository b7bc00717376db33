package site

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	"jornada/internal/engine"
	"jornada/internal/presenter"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.New("site").Funcs(template.FuncMap{
	"join": func(s []string) string { return strings.Join(s, ",") },
}).ParseFS(templateFS, "templates/*.html"))

var modalTitles = map[presenter.ModalKind]string{
	presenter.ModalViability:   "Viabilidade (Eixo V)",
	presenter.ModalSchedule:    "Prazo (Eixo T)",
	presenter.ModalPublication: "Publicidade (Eixo P)",
	presenter.ModalTolerance:   "Tolerância e Diagnóstico",
	presenter.ModalLegend:      "Legenda do Cubo",
	presenter.ModalDrive:       "Documentos",
}

type modalView struct {
	Kind  presenter.ModalKind
	Title string
	Body  template.HTML
}

type pageData struct {
	SiteTitle string
	Root      string
	Report    engine.EpisodeReport
	Timeline  []presenter.TimelineItem
	Modals    []modalView
	GanttSVG  string
}

// RenderPage writes the full episode page. root prefixes every link to
// other pages and assets ("" at the site root, "../" one level down, "/"
// when served).
func RenderPage(w io.Writer, eng engine.Engine, rep engine.EpisodeReport, root string) error {
	bodies, err := eng.Modals(rep)
	if err != nil {
		return err
	}
	data := pageData{
		SiteTitle: siteTitle(eng),
		Root:      root,
		Report:    rep,
		Timeline:  eng.Timeline(rep.ID),
	}
	for _, k := range presenter.ModalKinds {
		data.Modals = append(data.Modals, modalView{Kind: k, Title: modalTitles[k], Body: bodies[k]})
	}
	if rep.Gantt.Computable {
		data.GanttSVG = root + "gantt/" + rep.ID + ".svg"
	}
	if err := pageTemplate.ExecuteTemplate(w, "page", data); err != nil {
		return fmt.Errorf("render page %s: %w", rep.ID, err)
	}
	return nil
}

func siteTitle(eng engine.Engine) string {
	if eng.Config != nil && eng.Config.Site.Title != "" {
		return eng.Config.Site.Title
	}
	return "Jornada da Pesquisa"
}

// Package presenter turns computed scores into the strings and view models
// the pages render. It holds no state: every function is a pure mapping of
// its inputs.
package presenter

import (
	"strings"

	"jornada/internal/dates"
	"jornada/internal/domain"
	"jornada/internal/kpi"
)

const (
	DefaultCubeImage = "cubo-E1-azul.png"
	FinalCubeImage   = "cubo-E0.png"

	placeholder = "--"
)

type Face struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Text  string `json:"text"`
}

// Panel is the detail view of one episode.
type Panel struct {
	ID        string     `json:"id"`
	Diagnosis string     `json:"diagnosis"`
	Heading   string     `json:"heading"`
	Summary   string     `json:"summary"`
	Faces     []Face     `json:"faces"`
	KPIs      kpi.Labels `json:"kpis"`
	Bias      kpi.Label  `json:"bias"`
	Coherent  bool       `json:"coherent"`
	Cube      []string   `json:"cube_candidates"`
	DateBR    string     `json:"date_br"`
}

func NewPanel(ep domain.Episode, r kpi.Result) Panel {
	c := ep.Components
	return Panel{
		ID:        ep.ID,
		Diagnosis: "Diagnóstico da pesquisa: " + or(ep.Nome, "Sem Título"),
		Heading:   "Episódio (" + or(ep.ID, "N/A") + "): " + or(ep.Title, "Sem Título"),
		Summary:   or(ep.Summary, placeholder),
		Faces: []Face{
			{"problema", "Problema", or(c.Problema, placeholder)},
			{"hipoteses", "Hipóteses", or(c.Hipoteses, placeholder)},
			{"referencial", "Referencial Teórico", or(c.Referencial, placeholder)},
			{"metodologia", "Metodologia", or(c.Metodologia, placeholder)},
			{"impacto", "Impacto na Sociedade", or(c.Impacto, placeholder)},
			{"produto", "Produto da Pesquisa", or(c.Produto, placeholder)},
		},
		KPIs:     r.Labels(),
		Bias:     r.Bias.Label,
		Coherent: r.Coherent,
		Cube:     CubeCandidates(ep.KPIs.CuboImagem),
		DateBR:   dates.ISOToBR(ep.Date),
	}
}

// TimelineItem is one entry of the episode list.
type TimelineItem struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Date   string `json:"date"`
	Active bool   `json:"active"`
}

// Timeline lists episodes in the given order. activeID marks the selected
// entry; when empty the first episode is active.
func Timeline(episodes []domain.Episode, activeID string) []TimelineItem {
	if activeID == "" && len(episodes) > 0 {
		activeID = episodes[0].ID
	}
	items := make([]TimelineItem, 0, len(episodes))
	for _, ep := range episodes {
		items = append(items, TimelineItem{
			ID:     ep.ID,
			Title:  ep.Title,
			Date:   dates.ISOToBR(ep.Date),
			Active: ep.ID == activeID,
		})
	}
	return items
}

// CubeCandidates lists the images to try for a cube, best first: the
// declared name, its blue variant, its colourless variant, then the neutral
// cube. Duplicates are removed.
func CubeCandidates(name string) []string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultCubeImage
	}
	base := FinalCubeImage[:len(FinalCubeImage)-len(".png")]
	if i := strings.LastIndex(name, "-"); i > 0 {
		base = name[:i]
	}
	out := make([]string, 0, 4)
	seen := map[string]bool{}
	for _, c := range []string{name, base + "-azul.png", base + ".png", FinalCubeImage} {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

func or(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

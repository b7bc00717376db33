package kpi

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Label names the dominant axis, or E when the axes are balanced.
type Label string

const (
	Balanced        Label = "E"
	ViabilityBias   Label = "V"
	ScheduleBias    Label = "T"
	PublicationBias Label = "P"
)

type Bias struct {
	Label            Label   `json:"label"`
	Title            string  `json:"title"`
	Range            float64 `json:"range"`
	Mean             float64 `json:"mean"`
	TolerancePercent float64 `json:"tolerance_percent"`
}

// Classify compares the spread of V%, T% and P% against tolerancePercent.
// Within tolerance the episode is balanced; otherwise the axis furthest
// above the mean wins. Ties go to T, then P, then V.
func Classify(v, t, p, tolerancePercent float64) Bias {
	if tolerancePercent == 0 {
		tolerancePercent = toPercent(DefaultTolerance)
	}
	scores := []float64{t, p, v}
	b := Bias{
		Label:            Balanced,
		Range:            floats.Max(scores) - floats.Min(scores),
		Mean:             stat.Mean(scores, nil),
		TolerancePercent: tolerancePercent,
	}
	if b.Range > tolerancePercent {
		axes := []Label{ScheduleBias, PublicationBias, ViabilityBias}
		best := 0.0
		for i, s := range scores {
			if dev := s - b.Mean; dev > best {
				best = dev
				b.Label = axes[i]
			}
		}
	}
	b.Title = b.Label.Title()
	return b
}

// Title is the short name of the bias.
func (l Label) Title() string {
	switch l {
	case ViabilityBias:
		return "Paralisia por Análise"
	case ScheduleBias:
		return "Executor Apressado"
	case PublicationBias:
		return "Acadêmico Teórico"
	default:
		return "Equilíbrio"
	}
}

// Summary is the one-line panel text.
func (l Label) Summary() string {
	switch l {
	case ViabilityBias, ScheduleBias, PublicationBias:
		return `Pesquisa com viés "` + string(l) + `"`
	default:
		return "Pesquisa equilibrada"
	}
}

// Alert is the fixed explanatory block shown for a bias.
type Alert struct {
	Heading        string
	Finding        string
	Interpretation string
	Favors         string
	Neglects       string
}

// Alert returns the explanation for l; ok is false for a balanced episode.
func (l Label) Alert() (Alert, bool) {
	a, ok := alerts[l]
	return a, ok
}

var alerts = map[Label]Alert{
	ViabilityBias: {
		Heading:        `Diagnóstico (Alerta "V"): O Viés da "Paralisia por Análise"`,
		Finding:        `O Pilar Dominante "Viabilidade" (recursos) está saudável, mas o projeto não avança na execução (Prazo e Publicação fracos).`,
		Interpretation: `O pesquisador, evitando tarefas de execução (Metodologia), tende a alocar esforço em atividades "seguras":`,
		Favors:         `"Referencial Teórico" (Face 3), em um ciclo de refinamento infinito; e "Impacto na Sociedade" (Face 5), teorizando sobre a relevância sem construir a solução.`,
		Neglects:       `"Hipóteses de Solução" (Face 2) e "Produto da Pesquisa" (Face 6), que exigem a execução prática.`,
	},
	ScheduleBias: {
		Heading:        `Diagnóstico (Alerta "T"): O Viés do "Executor Apressado"`,
		Finding:        `O Pilar Dominante "Prazo" (progresso) está forte, mas o Custo pode estar estourado ou a Qualidade da Publicação baixa.`,
		Interpretation: `O pesquisador confunde "fazer" com "pesquisar". O foco obsessivo em avançar o cronograma leva à negligência do rigor científico e do controle de recursos.`,
		Favors:         `"Produto da Pesquisa" (Face 6), pois é a entrega tangível; e "Impacto na Sociedade" (Face 5), usado como justificativa para a pressa.`,
		Neglects:       `"Referencial Teórico" (Face 3), visto como "perda de tempo"; e "Hipóteses" (Face 2), que são implementadas sem validação rigorosa.`,
	},
	PublicationBias: {
		Heading:        `Diagnóstico (Alerta "P"): O Viés do "Acadêmico Teórico"`,
		Finding:        `O Pilar Dominante "Publicação" (artigos) está forte, mas o Custo e o Prazo do projeto principal (tese/protótipo) estão comprometidos.`,
		Interpretation: `O pilar 'Publicação' é alimentado por "spin-offs" teóricos, e não pela execução do projeto central.`,
		Favors:         `"Referencial Teórico" (Face 3), resultando em revisões publicáveis; e "Hipóteses" (Face 2), gerando ensaios teóricos não testados.`,
		Neglects:       `"Produto da Pesquisa" (Face 6), que é o objetivo central e está atrasado; e "Impacto na Sociedade" (Face 5), pois o diálogo foca apenas nos pares acadêmicos.`,
	},
}

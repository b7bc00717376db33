package domain

import (
	"time"

	"jornada/internal/dates"
)

// Document is the root of dados.json.
type Document struct {
	Historia []Episode `json:"historia"`
}

type Episode struct {
	ID         string              `json:"id"`
	Date       string              `json:"date" format:"date"`
	Title      string              `json:"title"`
	Nome       string              `json:"nome,omitempty"`
	Summary    string              `json:"summary,omitempty"`
	Components Components          `json:"components"`
	KPIs       KPIs                `json:"kpis"`
	Estimates  *ViabilityEstimates `json:"viabilidade_estimativas,omitempty"`
}

// Components holds the six fixed research faces.
type Components struct {
	Problema    string `json:"problema,omitempty"`
	Hipoteses   string `json:"hipoteses,omitempty"`
	Referencial string `json:"referencial,omitempty"`
	Metodologia string `json:"metodologia,omitempty"`
	Impacto     string `json:"impacto,omitempty"`
	Produto     string `json:"produto,omitempty"`
}

type KPIs struct {
	Viabilidade    *ViabilityKPI   `json:"viabilidade,omitempty"`
	Prazo          *ScheduleKPI    `json:"prazo,omitempty"`
	Publicidade    *PublicationKPI `json:"publicidade,omitempty"`
	Tolerancia     *Tolerance      `json:"tolerancia,omitempty"`
	MetaCusto      float64         `json:"metaCusto,omitempty"`
	MetaPrazo      float64         `json:"metaPrazo,omitempty"`
	MetaPublicacao float64         `json:"metaPublicacao,omitempty"`
	CuboImagem     string          `json:"cuboImagem,omitempty"`
}

// ViabilityKPI is the tactical budget log kept next to the strategic estimates.
type ViabilityKPI struct {
	Valor            float64      `json:"valor,omitempty"`
	Resumo           string       `json:"resumo,omitempty"`
	MemoriaDeCalculo string       `json:"memoriaDeCalculo,omitempty"`
	Itens            []BudgetItem `json:"itens,omitempty"`
}

type BudgetItem struct {
	Item  string  `json:"item,omitempty"`
	Tipo  string  `json:"tipo,omitempty"`
	Data  string  `json:"data,omitempty"`
	Valor float64 `json:"valor,omitempty"`
}

type ScheduleKPI struct {
	Valor            float64    `json:"valor,omitempty"`
	MetaPrazo        float64    `json:"metaPrazo,omitempty"`
	Resumo           string     `json:"resumo,omitempty"`
	MemoriaDeCalculo string     `json:"memoriaDeCalculo,omitempty"`
	Entregas         []Delivery `json:"entregas,omitempty"`
}

// Delivery is one schedule row. IDs without a "." are phase headings.
type Delivery struct {
	ID            FlexString `json:"id"`
	Tarefa        string     `json:"tarefa"`
	Anterior      FlexString `json:"anterior,omitempty"`
	Duracao       Days       `json:"duracao"`
	ConclusaoReal Marker     `json:"conclusaoReal,omitempty"`
}

type PublicationKPI struct {
	Valor            float64       `json:"valor,omitempty"`
	Resumo           string        `json:"resumo,omitempty"`
	MemoriaDeCalculo string        `json:"memoriaDeCalculo,omitempty"`
	Publicacoes      []Publication `json:"publicacoes,omitempty"`
}

type Publication struct {
	Titulo        string `json:"titulo,omitempty"`
	Tipo          string `json:"tipo,omitempty"`
	Status        string `json:"status,omitempty"`
	Local         string `json:"local,omitempty"`
	DataSubmissao string `json:"dataSubmissao,omitempty"`
	DataFinal     string `json:"dataFinal,omitempty"`
	Autores       string `json:"autores,omitempty"`
	Resumo        string `json:"resumo,omitempty"`
}

// ViabilityEstimates are the four strategic cost/benefit components.
type ViabilityEstimates struct {
	Impacto  Estimate `json:"B5_impacto"`
	Produto  Estimate `json:"B6_produto"`
	Problema Estimate `json:"C1_problema"`
	Solucao  Estimate `json:"CV_solucao"`
}

// Time returns the episode date at UTC midnight.
func (e Episode) Time() (time.Time, bool) {
	return dates.ParseISO(e.Date)
}

func (e Episode) Deliveries() []Delivery {
	if e.KPIs.Prazo == nil {
		return nil
	}
	return e.KPIs.Prazo.Entregas
}

func (e Episode) Publications() []Publication {
	if e.KPIs.Publicidade == nil {
		return nil
	}
	return e.KPIs.Publicidade.Publicacoes
}

func (e Episode) BudgetItems() []BudgetItem {
	if e.KPIs.Viabilidade == nil {
		return nil
	}
	return e.KPIs.Viabilidade.Itens
}

// EstimatesOrZero never returns nil.
func (e Episode) EstimatesOrZero() ViabilityEstimates {
	if e.Estimates == nil {
		return ViabilityEstimates{}
	}
	return *e.Estimates
}

package kpi

import (
	"jornada/internal/domain"
	"jornada/internal/schedule"
)

// Component is one strategic estimate after maturity resolution.
type Component struct {
	Key       string  `json:"key"`
	Label     string  `json:"label"`
	Benefit   bool    `json:"benefit"`
	Value     float64 `json:"value"`
	Maturity  float64 `json:"maturity"`
	Effective float64 `json:"effective"`
	Just      string  `json:"just,omitempty"`
}

type Viability struct {
	Components []Component `json:"components"`
	Benefit    float64     `json:"benefit"`
	Cost       float64     `json:"cost"`
	// Index is benefit/cost, 0 when cost is not positive.
	Index   float64 `json:"index"`
	Percent float64 `json:"percent"`
}

func viability(ep domain.Episode, sentinel float64, weighted bool) Viability {
	est := ep.EstimatesOrZero()
	tasks := ep.Deliveries()
	specs := []struct {
		key, label string
		benefit    bool
		e          domain.Estimate
	}{
		{"B5", "(B5) Benefício - Impacto (Face 5)", true, est.Impacto},
		{"B6", "(B6) Benefício - Produto (Face 6)", true, est.Produto},
		{"C1", "(C1) Custo - Problema (Face 1)", false, est.Problema},
		{"CV", "(CV) Custo - Solução (Eixo V)", false, est.Solucao},
	}

	var v Viability
	for _, s := range specs {
		m := 1.0
		if weighted {
			m = Maturity(s.e, tasks)
		}
		c := Component{
			Key:       s.key,
			Label:     s.label,
			Benefit:   s.benefit,
			Value:     s.e.Valor,
			Maturity:  m,
			Effective: s.e.Valor * m,
			Just:      s.e.Just,
		}
		v.Components = append(v.Components, c)
		if c.Benefit {
			v.Benefit = finite(v.Benefit + c.Effective)
		} else {
			v.Cost = finite(v.Cost + c.Effective)
		}
	}
	v.Percent = ViabilityPercent(v.Benefit, v.Cost, sentinel)
	if v.Cost > 0 {
		v.Index = finite(v.Benefit / v.Cost)
	}
	return v
}

// ViabilityPercent is 100*benefit/cost. A zero cost reports sentinel when
// benefit is positive and 0 otherwise.
func ViabilityPercent(benefit, cost, sentinel float64) float64 {
	if cost > 0 {
		return finite(benefit / cost * 100)
	}
	if benefit > 0 {
		return sentinel
	}
	return 0
}

// Maturity resolves the 0..1 weight of an estimate: an explicit value wins,
// then the completion of the named phase, then 1.
func Maturity(e domain.Estimate, tasks []domain.Delivery) float64 {
	if e.Maturidade != nil {
		return clamp01(*e.Maturidade)
	}
	if e.Fase != "" {
		if p, ok := schedule.PhaseProgress(e.Fase, tasks); ok {
			return clamp01(p)
		}
	}
	return 1
}

func clamp01(f float64) float64 {
	switch {
	case f != f, f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

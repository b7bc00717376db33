// Package kpi scores an episode along the viability, schedule and
// publication axes and classifies which axis dominates. Everything here is a
// pure function of the episode; missing fields count as zero.
package kpi

import (
	"fmt"
	"math"
	"strings"

	"jornada/internal/domain"
)

const (
	PolicyWeighted = "weighted"
	PolicySimple   = "simple"

	DefaultSentinel  = 999.0
	DefaultTolerance = 0.10
)

// DefaultAcceptedStatuses are publication statuses that count as achieved.
var DefaultAcceptedStatuses = []string{"Aceito", "Aceita", "Publicado", "Publicada"}

// Rules are the knobs shared by every policy.
type Rules struct {
	// AcceptedStatuses are compared case- and accent-insensitively.
	AcceptedStatuses []string
	// Sentinel is reported as V% when cost is zero and benefit is positive.
	Sentinel float64
	// DefaultTolerance replaces a declared tolerance of exactly zero.
	DefaultTolerance float64
}

func DefaultRules() Rules {
	return Rules{
		AcceptedStatuses: append([]string(nil), DefaultAcceptedStatuses...),
		Sentinel:         DefaultSentinel,
		DefaultTolerance: DefaultTolerance,
	}
}

func (r Rules) withDefaults() Rules {
	if len(r.AcceptedStatuses) == 0 {
		r.AcceptedStatuses = DefaultAcceptedStatuses
	}
	if r.Sentinel == 0 {
		r.Sentinel = DefaultSentinel
	}
	if r.DefaultTolerance <= 0 {
		r.DefaultTolerance = DefaultTolerance
	}
	return r
}

// Policy is one consistent scoring rule set.
type Policy interface {
	Name() string
	Viability(ep domain.Episode) Viability
	Schedule(ep domain.Episode) Score
	Publication(ep domain.Episode) Score
	Tolerance(ep domain.Episode) Tolerance
}

// NewPolicy returns the named policy. An empty name selects the weighted one.
func NewPolicy(name string, rules Rules) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", PolicyWeighted:
		return WeightedPolicy{base{rules.withDefaults()}}, nil
	case PolicySimple:
		return SimplePolicy{base{rules.withDefaults()}}, nil
	default:
		return nil, fmt.Errorf("unknown kpi policy %q (want %s or %s)", name, PolicyWeighted, PolicySimple)
	}
}

// base holds the scoring shared by both policies; they differ only in how
// the viability components are summed.
type base struct {
	rules Rules
}

func (b base) Schedule(ep domain.Episode) Score {
	var achieved, target float64
	if p := ep.KPIs.Prazo; p != nil {
		achieved = p.Valor
		target = p.MetaPrazo
	}
	if target <= 0 {
		target = ep.KPIs.MetaPrazo
	}
	return newScore(achieved, target)
}

func (b base) Publication(ep domain.Episode) Score {
	pubs := ep.Publications()
	var achieved float64
	if len(pubs) == 0 {
		if p := ep.KPIs.Publicidade; p != nil {
			achieved = p.Valor
		}
	} else {
		achieved = float64(CountAccepted(pubs, b.rules.AcceptedStatuses))
	}
	return newScore(achieved, ep.KPIs.MetaPublicacao)
}

func (b base) Tolerance(ep domain.Episode) Tolerance {
	return newTolerance(ep.KPIs.Tolerancia, b.rules.DefaultTolerance)
}

// WeightedPolicy scales every viability component by its maturity.
type WeightedPolicy struct{ base }

func (WeightedPolicy) Name() string { return PolicyWeighted }

func (p WeightedPolicy) Viability(ep domain.Episode) Viability {
	return viability(ep, p.rules.Sentinel, true)
}

// SimplePolicy sums raw estimate values.
type SimplePolicy struct{ base }

func (SimplePolicy) Name() string { return PolicySimple }

func (p SimplePolicy) Viability(ep domain.Episode) Viability {
	return viability(ep, p.rules.Sentinel, false)
}

// Score is an achieved/target ratio expressed as a percentage.
type Score struct {
	Achieved float64 `json:"achieved"`
	Target   float64 `json:"target"`
	Percent  float64 `json:"percent"`
}

func newScore(achieved, target float64) Score {
	return Score{Achieved: achieved, Target: target, Percent: Ratio(achieved, target)}
}

// Ratio is 100*achieved/target. With no target, doing nothing meets the
// target (100) and any achievement is reported as 0.
func Ratio(achieved, target float64) float64 {
	if target > 0 {
		return finite(achieved / target * 100)
	}
	if achieved == 0 {
		return 100
	}
	return 0
}

// maxValue bounds every score so that sums and means of three of them stay
// finite and JSON-encodable.
const maxValue = math.MaxFloat64 / 4

// finite clamps x into [-maxValue, maxValue]; NaN becomes 0.
func finite(x float64) float64 {
	switch {
	case math.IsNaN(x):
		return 0
	case x > maxValue:
		return maxValue
	case x < -maxValue:
		return -maxValue
	}
	return x
}

// FormatPercent renders a percentage with one decimal place.
func FormatPercent(p float64) string {
	return fmt.Sprintf("%.1f%%", p)
}

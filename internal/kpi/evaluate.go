package kpi

import (
	"strings"

	"jornada/internal/domain"
)

// Result is every score for one episode under one policy.
type Result struct {
	Policy      string    `json:"policy"`
	Viability   Viability `json:"viability"`
	Schedule    Score     `json:"schedule"`
	Publication Score     `json:"publication"`
	Tolerance   Tolerance `json:"tolerance"`
	Bias        Bias      `json:"bias"`
	Coherent    bool      `json:"coherent"`
}

// Labels are the four panel strings.
type Labels struct {
	Viability   string `json:"viability"`
	Schedule    string `json:"schedule"`
	Publication string `json:"publication"`
	Tolerance   string `json:"tolerance"`
}

func Evaluate(ep domain.Episode, p Policy) Result {
	r := Result{
		Policy:      p.Name(),
		Viability:   p.Viability(ep),
		Schedule:    p.Schedule(ep),
		Publication: p.Publication(ep),
		Tolerance:   p.Tolerance(ep),
		Coherent:    Coherent(ep.KPIs.CuboImagem),
	}
	r.Bias = Classify(r.Viability.Percent, r.Schedule.Percent, r.Publication.Percent, r.Tolerance.Percent)
	return r
}

func (r Result) Labels() Labels {
	return Labels{
		Viability:   FormatPercent(r.Viability.Percent),
		Schedule:    FormatPercent(r.Schedule.Percent),
		Publication: FormatPercent(r.Publication.Percent),
		Tolerance:   r.Bias.Label.Summary() + " " + coherenceText(r.Coherent),
	}
}

// Coherent reports whether the cube asset marks the content as aligned.
// Grey ("-cinza") cubes are incoherent.
func Coherent(cubeImage string) bool {
	return !strings.Contains(cubeImage, "-cinza")
}

func coherenceText(coherent bool) string {
	if coherent {
		return "e conteúdo coerente"
	}
	return "e conteúdo incoerente"
}

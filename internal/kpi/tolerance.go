package kpi

import (
	"math"
	"strconv"

	"jornada/internal/domain"
)

// Tolerance is the allowed spread between the three performance axes.
type Tolerance struct {
	Declared bool    `json:"declared"`
	Fraction float64 `json:"fraction"`
	// Percent is what the classifier uses: the declared fraction as a
	// percentage, or the default when the declared value is zero.
	Percent float64 `json:"percent"`
	Limit   string  `json:"limit"`
	Summary string  `json:"summary"`
	Memo    string  `json:"memo"`
}

func newTolerance(t *domain.Tolerance, fallback float64) Tolerance {
	out := Tolerance{Limit: "N/D", Summary: "--", Memo: "Análise não disponível."}
	if t != nil {
		out.Declared = true
		out.Fraction = t.Valor
		out.Limit = PlainPercent(t.Valor)
		if t.Bare {
			out.Summary = out.Limit + " (Definida)"
			out.Memo = "A tolerância para este episódio foi definida em " + out.Limit + "."
		} else {
			if t.Resumo != "" {
				out.Summary = t.Resumo
			}
			if t.MemoriaDeCalculo != "" {
				out.Memo = t.MemoriaDeCalculo
			}
		}
	}
	out.Percent = toPercent(out.Fraction)
	if out.Percent == 0 {
		out.Percent = toPercent(fallback)
	}
	return out
}

// toPercent drops the float noise of fraction*100 (0.15*100 is not 15).
// Beyond 1e9 the noise is below float precision and rounding is skipped.
func toPercent(fraction float64) float64 {
	p := finite(fraction * 100)
	if math.Abs(p) < 1e9 {
		p = math.Round(p*1e6) / 1e6
	}
	return p
}

// PlainPercent renders a fraction as a percentage without trailing zeros
// (0.15 -> "15%", 0.125 -> "12.5%").
func PlainPercent(fraction float64) string {
	return strconv.FormatFloat(toPercent(fraction), 'f', -1, 64) + "%"
}

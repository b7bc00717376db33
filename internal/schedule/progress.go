package schedule

import (
	"strings"

	"jornada/internal/domain"
)

// PhaseProgress returns the fraction (0..1) of a phase's leaf-task days that
// carry a completion marker. Leaf tasks belong to phase "2" when their id
// starts with "2.". When every task has zero duration the fraction is taken
// over task count. ok is false when the phase has no leaf tasks.
func PhaseProgress(phase string, tasks []domain.Delivery) (float64, bool) {
	phase = strings.TrimSpace(phase)
	if phase == "" {
		return 0, false
	}
	prefix := phase + PhaseSeparator
	var (
		days, doneDays   int
		count, doneCount int
	)
	for _, t := range tasks {
		if !strings.HasPrefix(string(t.ID), prefix) {
			continue
		}
		d := int(t.Duracao)
		if d < 0 {
			d = 0
		}
		count++
		days += d
		if t.ConclusaoReal.Set {
			doneCount++
			doneDays += d
		}
	}
	if count == 0 {
		return 0, false
	}
	if days == 0 {
		return float64(doneCount) / float64(count), true
	}
	return float64(doneDays) / float64(days), true
}

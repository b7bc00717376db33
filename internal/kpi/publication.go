package kpi

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"jornada/internal/domain"
)

// NormalizeStatus folds case and strips accents so "PUBLICADA", "publicada"
// and "Publicáda" compare equal.
func NormalizeStatus(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.TrimSpace(s))
	if err != nil {
		out = strings.TrimSpace(s)
	}
	return strings.ToLower(out)
}

// CountAccepted counts publications whose status is in accepted.
func CountAccepted(pubs []domain.Publication, accepted []string) int {
	set := make(map[string]struct{}, len(accepted))
	for _, a := range accepted {
		set[NormalizeStatus(a)] = struct{}{}
	}
	n := 0
	for _, p := range pubs {
		if _, ok := set[NormalizeStatus(p.Status)]; ok {
			n++
		}
	}
	return n
}

// IsAccepted reports whether status counts under the given set.
func IsAccepted(status string, accepted []string) bool {
	return CountAccepted([]domain.Publication{{Status: status}}, accepted) == 1
}

package kpi

import (
	"encoding/json"
	"math"
	"testing"

	"pgregory.net/rapid"

	"jornada/internal/domain"
)

func weighted(t *testing.T) Policy {
	t.Helper()
	p, err := NewPolicy("", DefaultRules())
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	return p
}

func f(v float64) *float64 { return &v }

func TestRatioZeroTarget(t *testing.T) {
	if got := Ratio(0, 0); got != 100 {
		t.Fatalf("0/0 = %v, want 100", got)
	}
	if got := Ratio(3, 0); got != 0 {
		t.Fatalf("3/0 = %v, want 0", got)
	}
	if got := Ratio(3, 4); got != 75 {
		t.Fatalf("3/4 = %v, want 75", got)
	}
}

func TestViabilityPercentEdges(t *testing.T) {
	if got := ViabilityPercent(50, 0, DefaultSentinel); got != 999 {
		t.Fatalf("cost 0 benefit 50 = %v, want 999", got)
	}
	if got := ViabilityPercent(0, 0, DefaultSentinel); got != 0 {
		t.Fatalf("cost 0 benefit 0 = %v, want 0", got)
	}
	if got := ViabilityPercent(150, 100, DefaultSentinel); got != 150 {
		t.Fatalf("150/100 = %v", got)
	}
}

func TestClassifyDominantAxis(t *testing.T) {
	b := Classify(120, 100, 90, 5)
	if b.Label != ViabilityBias {
		t.Fatalf("label = %s, want V", b.Label)
	}
	if b.Range != 30 || math.Abs(b.Mean-310.0/3) > 1e-9 {
		t.Fatalf("range/mean = %v/%v", b.Range, b.Mean)
	}
	if b.Title != "Paralisia por Análise" {
		t.Fatalf("title = %q", b.Title)
	}
}

func TestClassifyBalanced(t *testing.T) {
	if b := Classify(100, 102, 98, 10); b.Label != Balanced {
		t.Fatalf("label = %s, want E", b.Label)
	}
	// zero tolerance falls back to 10%
	if b := Classify(100, 108, 100, 0); b.Label != Balanced || b.TolerancePercent != 10 {
		t.Fatalf("zero tolerance: %+v", b)
	}
	// only an exact zero is replaced; a negative tolerance is used as declared
	if b := Classify(100, 108, 100, -5); b.Label != ScheduleBias || b.TolerancePercent != -5 {
		t.Fatalf("negative tolerance: %+v", b)
	}
}

func TestClassifyTieGoesToSchedule(t *testing.T) {
	if b := Classify(150, 150, 0, 10); b.Label != ScheduleBias {
		t.Fatalf("tie label = %s, want T", b.Label)
	}
	if b := Classify(150, 0, 150, 10); b.Label != PublicationBias {
		t.Fatalf("tie label = %s, want P", b.Label)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := rapid.Float64Range(0, 1000).Draw(t, "v")
		tt := rapid.Float64Range(0, 1000).Draw(t, "t")
		p := rapid.Float64Range(0, 1000).Draw(t, "p")
		tol := rapid.Float64Range(0, 100).Draw(t, "tol")
		a, b := Classify(v, tt, p, tol), Classify(v, tt, p, tol)
		if a != b {
			t.Fatalf("classification not deterministic: %+v vs %+v", a, b)
		}
		if a.Range <= a.TolerancePercent && a.Label != Balanced {
			t.Fatalf("within tolerance must be balanced: %+v", a)
		}
		scores := map[Label]float64{ViabilityBias: v, ScheduleBias: tt, PublicationBias: p}
		if a.Label != Balanced && scores[a.Label] <= a.Mean {
			t.Fatalf("dominant axis must be above the mean: %+v", a)
		}
	})
}

func TestNormalizeStatus(t *testing.T) {
	for _, s := range []string{"Publicada", "PUBLICADA", " publicada ", "Publicáda"} {
		if NormalizeStatus(s) != "publicada" {
			t.Fatalf("normalize %q = %q", s, NormalizeStatus(s))
		}
	}
	if !IsAccepted("aceita", DefaultAcceptedStatuses) || IsAccepted("Submetido", DefaultAcceptedStatuses) {
		t.Fatalf("unexpected acceptance")
	}
}

func episode() domain.Episode {
	done := domain.Delivery{ID: "1.1", Anterior: "01/01/2024", Duracao: 3, ConclusaoReal: domain.Marker{Set: true}}
	open := domain.Delivery{ID: "1.2", Anterior: "1.1", Duracao: 1}
	return domain.Episode{
		ID:   "ep01",
		Date: "2024-01-05",
		KPIs: domain.KPIs{
			Prazo:          &domain.ScheduleKPI{Valor: 30, MetaPrazo: 40, Entregas: []domain.Delivery{{ID: "1"}, done, open}},
			MetaPrazo:      99,
			MetaPublicacao: 2,
			Publicidade: &domain.PublicationKPI{Valor: 7, Publicacoes: []domain.Publication{
				{Status: "Publicado"}, {Status: "aceita"}, {Status: "Submetido"},
			}},
			Tolerancia: &domain.Tolerance{Valor: 0.15, Bare: true},
			CuboImagem: "cubo-T75-cinza.png",
		},
		Estimates: &domain.ViabilityEstimates{
			Impacto:  domain.Estimate{Valor: 1000},
			Produto:  domain.Estimate{Valor: 400, Fase: "1"},
			Problema: domain.Estimate{Valor: 500, Maturidade: f(2)},
			Solucao:  domain.Estimate{Valor: 500, Maturidade: f(0.5)},
		},
	}
}

func TestEvaluateWeighted(t *testing.T) {
	r := Evaluate(episode(), weighted(t))
	// benefit = 1000 + 400*0.75, cost = 500*1 + 500*0.5
	if r.Viability.Benefit != 1300 || r.Viability.Cost != 750 {
		t.Fatalf("benefit/cost = %v/%v", r.Viability.Benefit, r.Viability.Cost)
	}
	if math.Abs(r.Viability.Percent-100*1300.0/750) > 1e-9 {
		t.Fatalf("V%% = %v", r.Viability.Percent)
	}
	if r.Schedule.Target != 40 || r.Schedule.Percent != 75 {
		t.Fatalf("schedule = %+v", r.Schedule)
	}
	if r.Publication.Achieved != 2 || r.Publication.Percent != 100 {
		t.Fatalf("publication = %+v", r.Publication)
	}
	if r.Tolerance.Percent != 15 || r.Tolerance.Summary != "15% (Definida)" {
		t.Fatalf("tolerance = %+v", r.Tolerance)
	}
	if r.Coherent {
		t.Fatalf("grey cube must be incoherent")
	}
	if r.Bias.Label != ViabilityBias {
		t.Fatalf("bias = %+v", r.Bias)
	}
	labels := r.Labels()
	if labels.Schedule != "75.0%" || labels.Tolerance != `Pesquisa com viés "V" e conteúdo incoerente` {
		t.Fatalf("labels = %+v", labels)
	}
}

func TestEvaluateSimpleIgnoresMaturity(t *testing.T) {
	p, err := NewPolicy("simple", DefaultRules())
	if err != nil {
		t.Fatal(err)
	}
	r := Evaluate(episode(), p)
	if r.Policy != PolicySimple || r.Viability.Benefit != 1400 || r.Viability.Cost != 1000 {
		t.Fatalf("simple viability = %+v", r.Viability)
	}
}

func TestEvaluateMissingFieldsAreZero(t *testing.T) {
	r := Evaluate(domain.Episode{ID: "ep00"}, weighted(t))
	if r.Viability.Percent != 0 || r.Schedule.Percent != 100 || r.Publication.Percent != 100 {
		t.Fatalf("empty episode = %+v", r)
	}
	if r.Tolerance.Declared || r.Tolerance.Percent != 10 || r.Tolerance.Limit != "N/D" {
		t.Fatalf("tolerance = %+v", r.Tolerance)
	}
	if !r.Coherent || r.Bias.Label != ScheduleBias {
		// 0, 100, 100: T and P tie above the mean; T wins
		t.Fatalf("bias = %+v coherent=%v", r.Bias, r.Coherent)
	}
}

func TestScheduleFallsBackToEpisodeTarget(t *testing.T) {
	ep := domain.Episode{KPIs: domain.KPIs{Prazo: &domain.ScheduleKPI{Valor: 20}, MetaPrazo: 80}}
	if s := weighted(t).Schedule(ep); s.Target != 80 || s.Percent != 25 {
		t.Fatalf("schedule = %+v", s)
	}
}

func TestPublicationFallsBackToValor(t *testing.T) {
	ep := domain.Episode{KPIs: domain.KPIs{Publicidade: &domain.PublicationKPI{Valor: 1}, MetaPublicacao: 4}}
	if s := weighted(t).Publication(ep); s.Percent != 25 {
		t.Fatalf("publication = %+v", s)
	}
}

func TestToleranceObject(t *testing.T) {
	tol := newTolerance(&domain.Tolerance{Valor: 0.1, Resumo: "Equilibrado", MemoriaDeCalculo: "range 4"}, DefaultTolerance)
	if tol.Limit != "10%" || tol.Summary != "Equilibrado" || tol.Memo != "range 4" {
		t.Fatalf("tolerance = %+v", tol)
	}
	if PlainPercent(0.125) != "12.5%" {
		t.Fatalf("plain percent = %s", PlainPercent(0.125))
	}
}

func TestUnknownPolicy(t *testing.T) {
	if _, err := NewPolicy("legacy", DefaultRules()); err == nil {
		t.Fatalf("expected error for unknown policy")
	}
}

func TestExtremeInputsStayFinite(t *testing.T) {
	for _, got := range []float64{Ratio(1e307, 0.5), Ratio(-1e307, 0.5), ViabilityPercent(1e307, 1e-300, DefaultSentinel)} {
		if math.IsInf(got, 0) || math.IsNaN(got) {
			t.Fatalf("non-finite score %v", got)
		}
	}
	ep := domain.Episode{
		ID: "ep-big",
		KPIs: domain.KPIs{
			Prazo:      &domain.ScheduleKPI{Valor: 1e307, MetaPrazo: 0.5},
			Tolerancia: &domain.Tolerance{Valor: 0.1, Bare: true},
		},
		Estimates: &domain.ViabilityEstimates{
			Impacto:  domain.Estimate{Valor: 1.5e308},
			Produto:  domain.Estimate{Valor: 1.5e308},
			Problema: domain.Estimate{Valor: 1e-300},
		},
	}
	r := Evaluate(ep, weighted(t))
	if _, err := json.Marshal(r); err != nil {
		t.Fatalf("result must encode: %v", err)
	}
	if math.IsInf(r.Bias.Mean, 0) || math.IsInf(r.Bias.Range, 0) {
		t.Fatalf("bias = %+v", r.Bias)
	}
	// V and T both clamp to the same bound; the tie goes to T
	if r.Bias.Label != ScheduleBias {
		t.Fatalf("bias = %+v", r.Bias)
	}
	if tol := newTolerance(&domain.Tolerance{Valor: 1e307, Bare: true}, DefaultTolerance); math.IsInf(tol.Percent, 0) {
		t.Fatalf("tolerance percent = %v", tol.Percent)
	}
}

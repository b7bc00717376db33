package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Site.Data != "dados.json" || cfg.KPI.Policy != "weighted" || cfg.Gantt.LabelWidth != 30 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if len(cfg.KPI.AcceptedStatuses) != 4 || cfg.KPI.ViabilitySentinel != 999 {
		t.Fatalf("unexpected kpi defaults: %+v", cfg.KPI)
	}
}

func TestFromYAMLKeepsDefaultsForMissingKeys(t *testing.T) {
	cfg, err := FromYAML([]byte("site:\n  title: Minha Jornada\nkpi:\n  policy: simple\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Site.Title != "Minha Jornada" || cfg.KPI.Policy != "simple" {
		t.Fatalf("overrides lost: %+v", cfg)
	}
	if cfg.Site.Output != "public" || cfg.KPI.DefaultTolerance != 0.10 || cfg.Gantt.TimelineWidth != 70 {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"policy":   "kpi:\n  policy: legacy\n",
		"widths":   "gantt:\n  label_width: 40\n",
		"minbar":   "gantt:\n  min_bar_width: 0\n",
		"digest":   "verify:\n  catalog:\n    relatorio.pdf:\n      name: Relatório\n      sha256: abc\n",
		"statuses": "kpi:\n  accepted_statuses: ['']\n",
	}
	for name, doc := range cases {
		if _, err := FromYAML([]byte(doc)); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
	if _, err := FromYAML([]byte("site: [")); err == nil || !strings.Contains(err.Error(), "invalid config yaml") {
		t.Fatalf("expected yaml error, got %v", err)
	}
}

func TestLoadOptional(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadOptional(dir)
	if err != nil || cfg == nil || cfg.Site.Data != "dados.json" {
		t.Fatalf("missing file should yield defaults: %+v %v", cfg, err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatalf("Load must fail without a config file")
	}
	digest := strings.Repeat("ab", 32)
	yml := "verify:\n  catalog:\n    relatorio.pdf:\n      name: Relatório final\n      sha256: " + digest + "\n"
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = LoadOptional(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Verify.Catalog["relatorio.pdf"].SHA256 != digest {
		t.Fatalf("catalog not loaded: %+v", cfg.Verify.Catalog)
	}
	if got := cfg.DataPath(dir); got != filepath.Join(dir, "dados.json") {
		t.Fatalf("data path = %s", got)
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	out, err := Default().YAML()
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := FromYAML([]byte(out))
	if err != nil {
		t.Fatalf("re-parse rendered config: %v\n%s", err, out)
	}
	if cfg.Gantt.MinBarWidth != 0.5 {
		t.Fatalf("min bar width = %v", cfg.Gantt.MinBarWidth)
	}
}

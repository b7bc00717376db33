package config

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const FileName = "jornada.yml"

// Config models jornada.yml.
type Config struct {
	Site struct {
		Title    string `yaml:"title"`
		Data     string `yaml:"data"`
		Output   string `yaml:"output"`
		DriveURL string `yaml:"drive_url"`
	} `yaml:"site"`
	KPI struct {
		Policy            string   `yaml:"policy"`
		DefaultTolerance  float64  `yaml:"default_tolerance"`
		AcceptedStatuses  []string `yaml:"accepted_statuses"`
		ViabilitySentinel float64  `yaml:"viability_sentinel"`
	} `yaml:"kpi"`
	Gantt struct {
		LabelWidth    float64 `yaml:"label_width"`
		TimelineWidth float64 `yaml:"timeline_width"`
		MinBarWidth   float64 `yaml:"min_bar_width"`
	} `yaml:"gantt"`
	Verify struct {
		Catalog map[string]CatalogEntry `yaml:"catalog"`
	} `yaml:"verify"`
}

// CatalogEntry is the known-good digest of one published file.
type CatalogEntry struct {
	Name   string `yaml:"name"`
	SHA256 string `yaml:"sha256"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with jornada config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Site.Data) == "" {
		return fmt.Errorf("config.site.data is required")
	}
	if strings.TrimSpace(c.Site.Output) == "" {
		return fmt.Errorf("config.site.output is required")
	}
	switch c.KPI.Policy {
	case "weighted", "simple":
	default:
		return fmt.Errorf("config.kpi.policy must be 'weighted' or 'simple', got %q", c.KPI.Policy)
	}
	if c.KPI.DefaultTolerance <= 0 || c.KPI.DefaultTolerance > 1 {
		return fmt.Errorf("config.kpi.default_tolerance must be a fraction in (0,1]")
	}
	if len(c.KPI.AcceptedStatuses) == 0 {
		return fmt.Errorf("config.kpi.accepted_statuses is required")
	}
	for _, s := range c.KPI.AcceptedStatuses {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("config.kpi.accepted_statuses has empty status")
		}
	}
	if c.KPI.ViabilitySentinel <= 0 {
		return fmt.Errorf("config.kpi.viability_sentinel must be positive")
	}
	g := c.Gantt
	if g.LabelWidth < 0 || g.TimelineWidth <= 0 {
		return fmt.Errorf("config.gantt widths must be positive")
	}
	if math.Abs(g.LabelWidth+g.TimelineWidth-100) > 1e-9 {
		return fmt.Errorf("config.gantt.label_width + timeline_width must equal 100, got %v", g.LabelWidth+g.TimelineWidth)
	}
	if g.MinBarWidth <= 0 || g.MinBarWidth > g.TimelineWidth {
		return fmt.Errorf("config.gantt.min_bar_width must be in (0,%v]", g.TimelineWidth)
	}
	for file, entry := range c.Verify.Catalog {
		if file == "" {
			return fmt.Errorf("config.verify.catalog has empty file name")
		}
		if !isHexDigest(entry.SHA256) {
			return fmt.Errorf("catalog entry %s has invalid sha256", file)
		}
	}
	return nil
}

func isHexDigest(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return false
		}
	}
	return true
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, FileName)
}

// DataPath resolves site.data against the workspace.
func (c *Config) DataPath(workspace string) string {
	return resolve(workspace, c.Site.Data)
}

// OutputPath resolves site.output against the workspace.
func (c *Config) OutputPath(workspace string) string {
	return resolve(workspace, c.Site.Output)
}

func resolve(workspace, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, p)
}

// GenerateDefault returns default config YAML.
func GenerateDefault(title string) string {
	return fmt.Sprintf(defaultTemplate, title)
}

// LoadOptional returns the defaults if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(GenerateDefault("Jornada da Pesquisa"))).Decode(&cfg)
	return &cfg
}

// FromYAML parses config from raw YAML bytes over the defaults and validates
// the result. Keys absent from data keep their default value.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// YAML renders the config back to YAML.
func (c *Config) YAML() (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const defaultTemplate = `site:
  title: %q
  data: dados.json
  output: public
  drive_url: ""

kpi:
  # weighted scales each viability estimate by its maturity; simple sums raw values
  policy: weighted
  default_tolerance: 0.10
  accepted_statuses: [Aceito, Aceita, Publicado, Publicada]
  viability_sentinel: 999

gantt:
  label_width: 30
  timeline_width: 70
  min_bar_width: 0.5

verify:
  catalog: {}
`

// Package site writes the static build: one page per episode, the Gantt
// SVGs and a machine-readable report.json.
package site

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"jornada/internal/engine"
	"jornada/internal/gantt"
)

const (
	EpisodesDir = "episodios"
	GanttDir    = "gantt"
	ReportFile  = "report.json"
	IndexFile   = "index.html"
)

type Builder struct {
	Engine engine.Engine
	Logger zerolog.Logger
	Out    string
	// Workers bounds concurrent page renders; 0 means GOMAXPROCS.
	Workers int
}

// Summary describes what a build wrote.
type Summary struct {
	Out      string   `json:"out"`
	Pages    int      `json:"pages"`
	Charts   int      `json:"charts"`
	Skipped  []string `json:"skipped,omitempty"`
	Episodes int      `json:"episodes"`
}

// Report is the report.json document.
type Report struct {
	Title      string                 `json:"title"`
	DocumentID string                 `json:"document_id"`
	Policy     string                 `json:"policy"`
	Episodes   []engine.EpisodeReport `json:"episodes"`
}

type pageResult struct {
	chart   bool
	skipped bool
}

// Build renders the whole site into b.Out.
func (b Builder) Build(ctx context.Context) (Summary, error) {
	if b.Out == "" {
		return Summary{}, errors.New("output directory not set")
	}
	for _, dir := range []string{b.Out, filepath.Join(b.Out, EpisodesDir), filepath.Join(b.Out, GanttDir)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Summary{}, err
		}
	}
	reports := b.Engine.Reports()
	sum := Summary{Out: b.Out, Episodes: len(reports)}
	if len(reports) == 0 {
		return sum, errors.New("document has no episodes")
	}

	workers := b.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	results := make([]pageResult, len(reports))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, rep := range reports {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := b.writeEpisode(rep)
			results[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return sum, err
	}
	for i, r := range results {
		sum.Pages++
		if r.chart {
			sum.Charts++
		}
		if r.skipped {
			sum.Skipped = append(sum.Skipped, reports[i].ID)
		}
	}

	if err := b.writePage(filepath.Join(b.Out, IndexFile), reports[0], ""); err != nil {
		return sum, err
	}
	sum.Pages++
	if err := b.writeReport(reports); err != nil {
		return sum, err
	}
	b.Logger.Info().Str("out", b.Out).Int("pages", sum.Pages).Int("charts", sum.Charts).Msg("site built")
	return sum, nil
}

func (b Builder) writeEpisode(rep engine.EpisodeReport) (pageResult, error) {
	var res pageResult
	if err := b.writePage(filepath.Join(b.Out, EpisodesDir, rep.ID+".html"), rep, "../"); err != nil {
		return res, err
	}
	if !rep.Gantt.Computable {
		res.skipped = len(rep.Episode().Deliveries()) > 0
		return res, nil
	}
	layout, _ := rep.Layout()
	var buf bytes.Buffer
	if err := gantt.WriteSVG(&buf, fmt.Sprintf("Cronograma %s: %s", rep.ID, rep.Title), layout); err != nil {
		return res, fmt.Errorf("gantt %s: %w", rep.ID, err)
	}
	if err := os.WriteFile(filepath.Join(b.Out, GanttDir, rep.ID+".svg"), buf.Bytes(), 0o644); err != nil {
		return res, err
	}
	res.chart = true
	return res, nil
}

func (b Builder) writePage(path string, rep engine.EpisodeReport, root string) error {
	var buf bytes.Buffer
	if err := RenderPage(&buf, b.Engine, rep, root); err != nil {
		return err
	}
	b.Logger.Debug().Str("episode", rep.ID).Str("path", path).Msg("page written")
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func (b Builder) writeReport(reports []engine.EpisodeReport) error {
	doc := Report{
		Title:      siteTitle(b.Engine),
		DocumentID: b.Engine.DocumentID(),
		Policy:     b.Engine.Policy.Name(),
		Episodes:   reports,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return os.WriteFile(filepath.Join(b.Out, ReportFile), append(data, '\n'), 0o644)
}

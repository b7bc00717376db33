package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"jornada/internal/app"
	"jornada/internal/config"
	"jornada/internal/db"
	"jornada/internal/engine"
	"jornada/internal/kpi"
	"jornada/internal/migrate"
	"jornada/internal/repo"
	"jornada/internal/server"
	"jornada/internal/site"
	"jornada/internal/verify"
)

var rootCmd = &cobra.Command{
	Use:   "jornada",
	Short: "Jornada research timeline",
	Long: `Jornada turns a research timeline document (dados.json) into KPI panels,
bias diagnoses and dependency-resolved Gantt charts.
- Episode: one dated snapshot of the research, with its six faces and KPIs.
- KPIs: viability (V%), schedule (T%) and publication (P%) against their targets.
- Bias: which axis dominates when the spread exceeds the episode tolerance (E when balanced).
- Gantt: tasks chained by "anterior" predecessors or literal start dates.
Build the static site with 'jornada render' or preview it with 'jornada serve'.`,
	SilenceUsage: true,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("JORNADA")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	pf := rootCmd.PersistentFlags()
	pf.StringP("workspace", "w", ".", "workspace directory")
	pf.String("config", "", "config file (default <workspace>/jornada.yml)")
	pf.String("data", "", "timeline document (overrides site.data)")
	pf.String("policy", "", "kpi policy: weighted or simple (overrides kpi.policy)")
	pf.Bool("json", false, "output JSON")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	for _, name := range []string{"workspace", "config", "data", "policy", "json", "log-level"} {
		_ = viper.BindPFlag(name, pf.Lookup(name))
	}
}

func registerCommands() {
	rootCmd.AddCommand(episodesCmd())
	rootCmd.AddCommand(kpiCmd())
	rootCmd.AddCommand(ganttCmd())
	rootCmd.AddCommand(renderCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(runsCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(verifyCmd())
	rootCmd.AddCommand(configCmd())
}

func episodesCmd() *cobra.Command {
	eps := &cobra.Command{Use: "episodes", Short: "Browse timeline episodes"}
	eps.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List episodes in chronological order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(e engine.Engine) error {
				items := e.Timeline("")
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable()
				tw.AppendHeader(table.Row{"", "ID", "Date", "Title"})
				for _, it := range items {
					marker := ""
					if it.Active {
						marker = "*"
					}
					tw.AppendRow(table.Row{marker, it.ID, it.Date, it.Title})
				}
				tw.Render()
				return nil
			})
		},
	})
	eps.AddCommand(&cobra.Command{
		Use:   "show [id]",
		Short: "Show one episode panel (earliest when id is omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(e engine.Engine) error {
				rep, err := e.Report(firstArg(args))
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(rep)
				}
				p := rep.Panel
				fmt.Println(p.Diagnosis)
				fmt.Println(p.Heading)
				fmt.Printf("%s\n\n%s\n\n", p.DateBR, p.Summary)
				tw := newTable()
				tw.AppendHeader(table.Row{"Face", "Conteúdo"})
				for _, f := range p.Faces {
					tw.AppendRow(table.Row{f.Label, f.Text})
				}
				tw.AppendSeparator()
				tw.AppendRow(table.Row{"Viabilidade (V)", p.KPIs.Viability})
				tw.AppendRow(table.Row{"Prazo (T)", p.KPIs.Schedule})
				tw.AppendRow(table.Row{"Publicidade (P)", p.KPIs.Publication})
				tw.AppendRow(table.Row{"Diagnóstico", p.KPIs.Tolerance})
				tw.Render()
				return nil
			})
		},
	})
	return eps
}

func kpiCmd() *cobra.Command {
	var episode string
	cmd := &cobra.Command{
		Use:   "kpi",
		Short: "Show V%, T%, P%, tolerance and bias per episode",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(e engine.Engine) error {
				reports := e.Reports()
				if episode != "" {
					rep, err := e.Report(episode)
					if err != nil {
						return err
					}
					reports = []engine.EpisodeReport{rep}
				}
				if viper.GetBool("json") {
					out := make([]engine.KPIReport, 0, len(reports))
					for _, r := range reports {
						out = append(out, r.KPIs)
					}
					return printJSON(out)
				}
				tw := newTable()
				tw.AppendHeader(table.Row{"ID", "Date", "V%", "T%", "P%", "Tolerance", "Bias", "Coherent"})
				for _, r := range reports {
					tw.AppendRow(table.Row{
						r.ID, r.DateBR,
						r.KPIs.Labels.Viability, r.KPIs.Labels.Schedule, r.KPIs.Labels.Publication,
						kpi.PlainPercent(r.KPIs.TolerancePercent / 100),
						fmt.Sprintf("%s (%s)", r.Bias.Label, r.Bias.Title),
						r.Coherent,
					})
				}
				tw.SetCaption("policy: %s", e.Policy.Name())
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&episode, "episode", "", "episode id")
	return cmd
}

func ganttCmd() *cobra.Command {
	var svgPath string
	var width int
	cmd := &cobra.Command{
		Use:   "gantt [id]",
		Short: "Draw an episode schedule in the terminal (earliest when id is omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(e engine.Engine) error {
				rep, err := e.Report(firstArg(args))
				if err != nil {
					return err
				}
				if svgPath != "" {
					f, err := os.Create(svgPath)
					if err != nil {
						return err
					}
					if err := e.WriteGanttSVG(f, rep.ID); err != nil {
						f.Close()
						return err
					}
					if err := f.Close(); err != nil {
						return err
					}
					fmt.Printf("Gantt for %s written to %s\n", rep.ID, svgPath)
					return nil
				}
				if viper.GetBool("json") {
					return printJSON(rep.Gantt)
				}
				layout, lerr := rep.Layout()
				fmt.Print(renderTerminalGantt(layout, lerr, width))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&svgPath, "svg", "", "write the chart as SVG to this path")
	cmd.Flags().IntVar(&width, "width", 60, "timeline width in columns")
	return cmd
}

func renderCmd() *cobra.Command {
	var out string
	var workers int
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Build the static site",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, e, err := loadWorkspace()
			if err != nil {
				return err
			}
			if out == "" {
				out = ws.Config.OutputPath(ws.Dir)
			}
			sum, err := site.Builder{Engine: e, Logger: e.Logger, Out: out, Workers: workers}.Build(cmd.Context())
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(sum)
			}
			fmt.Printf("Built %d pages and %d charts in %s\n", sum.Pages, sum.Charts, sum.Out)
			if len(sum.Skipped) > 0 {
				fmt.Printf("No chart for: %s\n", strings.Join(sum.Skipped, ", "))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output directory (overrides site.output)")
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent page renders (0 = GOMAXPROCS)")
	return cmd
}

func exportCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export computed reports to SQLite",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, e, err := loadWorkspace()
			if err != nil {
				return err
			}
			conn, err := db.Open(db.Config{Path: path, Workspace: ws.Dir})
			if err != nil {
				return err
			}
			defer conn.Close()
			version, err := migrate.Migrate(cmd.Context(), conn)
			if err != nil {
				return err
			}
			e.Logger.Debug().Int("schema_version", version).Msg("export schema ready")
			run, err := e.WithDB(conn).Export(cmd.Context())
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(run)
			}
			fmt.Printf("Exported run %s (%d episodes) to %s\n", run.ID, run.EpisodeCount, db.Path(db.Config{Path: path, Workspace: ws.Dir}))
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "sqlite", "", "database file (default <workspace>/.jornada/jornada.db)")
	return cmd
}

func runsCmd() *cobra.Command {
	var path string
	runs := &cobra.Command{Use: "runs", Short: "Inspect SQLite exports"}
	runs.PersistentFlags().StringVar(&path, "sqlite", "", "database file (default <workspace>/.jornada/jornada.db)")

	open := func(cmd *cobra.Command) (repo.Repo, func(), error) {
		conn, err := db.Open(db.Config{Path: path, Workspace: viper.GetString("workspace")})
		if err != nil {
			return repo.Repo{}, nil, err
		}
		if _, err := migrate.Migrate(cmd.Context(), conn); err != nil {
			conn.Close()
			return repo.Repo{}, nil, err
		}
		return repo.Repo{DB: conn}, func() { conn.Close() }, nil
	}

	runs.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List export runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, closeFn, err := open(cmd)
			if err != nil {
				return err
			}
			defer closeFn()
			items, err := r.ListRuns(cmd.Context())
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(items)
			}
			tw := newTable()
			tw.AppendHeader(table.Row{"ID", "Created", "Policy", "Episodes", "Document"})
			for _, run := range items {
				tw.AppendRow(table.Row{run.ID, run.CreatedAt, run.Policy, run.EpisodeCount, run.DocumentID})
			}
			tw.Render()
			return nil
		},
	})
	runs.AddCommand(&cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the episodes stored by one export run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, closeFn, err := open(cmd)
			if err != nil {
				return err
			}
			defer closeFn()
			run, err := r.GetRun(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("run %s: %w", args[0], err)
			}
			eps, err := r.ListEpisodeRows(cmd.Context(), run.ID)
			if err != nil {
				return err
			}
			counts, err := r.CountRows(cmd.Context(), run.ID)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(map[string]any{"run": run, "episodes": eps, "counts": counts})
			}
			tw := newTable()
			tw.AppendHeader(table.Row{"#", "ID", "Date", "V%", "T%", "P%", "Bias", "Gantt"})
			for _, ep := range eps {
				tw.AppendRow(table.Row{ep.Position, ep.ID, ep.Date,
					kpi.FormatPercent(ep.Viability), kpi.FormatPercent(ep.Schedule), kpi.FormatPercent(ep.Publication),
					ep.Bias, ep.GanttComputable})
			}
			tw.SetCaption("run %s (%s): %d gantt rows, %d publications, %d events",
				run.ID, run.Policy, counts["gantt_bars"], counts["publications"], counts["events"])
			tw.Render()
			return nil
		},
	})
	var limit int
	var runID, evtType string
	eventsCmd := &cobra.Command{
		Use:   "events",
		Short: "List export events, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, closeFn, err := open(cmd)
			if err != nil {
				return err
			}
			defer closeFn()
			evts, err := r.LatestEvents(cmd.Context(), limit, runID, evtType)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(evts)
			}
			tw := newTable()
			tw.AppendHeader(table.Row{"ID", "TS", "Type", "Run", "Entity", "Payload"})
			for _, e := range evts {
				tw.AppendRow(table.Row{e.ID, e.TS, e.Type, e.RunID, e.EntityKind + ":" + e.EntityID, e.Payload})
			}
			tw.Render()
			return nil
		},
	}
	eventsCmd.Flags().IntVar(&limit, "limit", 50, "maximum events")
	eventsCmd.Flags().StringVar(&runID, "run", "", "filter by run id")
	eventsCmd.Flags().StringVar(&evtType, "type", "", "filter by event type")
	runs.AddCommand(eventsCmd)
	return runs
}

func serveCmd() *cobra.Command {
	var addr string
	var basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the site and the read-only API",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, e, err := loadWorkspace()
			if err != nil {
				return err
			}
			handler, err := server.New(server.Config{Engine: e, BasePath: basePath, Logger: e.Logger})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			e.Logger.Info().Str("addr", addr).Str("base_path", basePath).Msg("serving")
			fmt.Printf("Serving Jornada on http://%s/ (API at %s, OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}

func verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <file>...",
		Short: "Check files against the catalog of published digests",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			v := verify.New(cfg.Verify.Catalog)
			var results []verify.Result
			failed := false
			for _, path := range args {
				res, err := v.File(path)
				if err != nil && !errors.Is(err, verify.ErrUnknownFile) {
					return err
				}
				if res.Verdict != verify.Authentic {
					failed = true
				}
				results = append(results, res)
			}
			if viper.GetBool("json") {
				if err := printJSON(results); err != nil {
					return err
				}
			} else {
				tw := newTable()
				tw.AppendHeader(table.Row{"File", "Verdict", "Message"})
				for _, r := range results {
					tw.AppendRow(table.Row{r.File, r.Verdict, r.Message})
				}
				tw.Render()
			}
			if failed {
				return errors.New("some files are not authentic")
			}
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	cfgCmd := &cobra.Command{Use: "config", Short: "Manage jornada.yml"}
	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(cfg)
			}
			out, err := cfg.YAML()
			if err != nil {
				return err
			}
			fmt.Print(out)
			return nil
		},
	})
	cfgCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate jornada.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath()
			var err error
			if viper.GetString("config") != "" {
				_, err = config.FromFile(path)
			} else {
				_, err = config.Load(viper.GetString("workspace"))
			}
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			fmt.Printf("%s is valid\n", path)
			return nil
		},
	})
	var title string
	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default jornada.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath()
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault(title)), 0o644); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().StringVar(&title, "title", "Jornada da Pesquisa", "site title")
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cfgCmd.AddCommand(initCmd)
	return cfgCmd
}

// --- helpers ---

func newLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(viper.GetString("log-level")))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()
}

func configPath() string {
	if p := viper.GetString("config"); p != "" {
		return p
	}
	return config.Path(viper.GetString("workspace"))
}

func loadConfig() (*config.Config, error) {
	if p := viper.GetString("config"); p != "" {
		return config.FromFile(p)
	}
	return config.LoadOptional(viper.GetString("workspace"))
}

func loadWorkspace() (app.Workspace, engine.Engine, error) {
	ws, err := app.ResolveDocument(viper.GetString("workspace"), viper.GetString("config"), viper.GetString("data"))
	if err != nil {
		return ws, engine.Engine{}, err
	}
	if p := viper.GetString("policy"); p != "" {
		ws.Config.KPI.Policy = p
	}
	e, err := ws.Engine(newLogger())
	return ws, e, err
}

func withEngine(fn func(engine.Engine) error) error {
	_, e, err := loadWorkspace()
	if err != nil {
		return err
	}
	return fn(e)
}

func newTable() table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	return tw
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

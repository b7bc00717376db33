package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"reflect"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"jornada/internal/engine"
	"jornada/internal/gantt"
	"jornada/internal/presenter"
	"jornada/internal/repo"
	"jornada/internal/site"
	"jornada/internal/verify"
)

// Config for the preview server handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
	Logger   zerolog.Logger
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"not_found"`
	Message string         `json:"message" example:"episode ep09: not found"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true" example:"{\"id\":\"ep09\"}"`
}

// apiError is the {"error": {...}} envelope every failure is rendered as.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns the handler serving the read-only API under BasePath and the
// rendered pages at the root.
func New(cfg Config) (http.Handler, error) {
	if cfg.Engine.Store == nil {
		return nil, errors.New("server: engine has no document")
	}
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(requestLogger(cfg.Logger))
	hcfg := huma.DefaultConfig("Jornada API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = ""
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerEpisodes(group, cfg.Engine)
	registerGantt(group, cfg.Engine)
	registerModals(group, cfg.Engine)
	registerVerify(group, cfg.Engine)
	registerOpenAPI(router, api, basePath)
	registerPages(router, cfg.Engine)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, repo.ErrNotFound), errors.Is(err, presenter.ErrUnknownModal):
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, gantt.ErrNoSchedule):
		return newAPIError(http.StatusUnprocessableEntity, "unprocessable_schedule", err.Error(), nil)
	case errors.Is(err, repo.ErrInvalidDocument):
		return newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": err.Error()})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusUnprocessableEntity:
		return "unprocessable_schedule"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

// writeError renders err on a plain chi route with the same envelope.
func writeError(w http.ResponseWriter, err error) {
	se := handleError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(se.GetStatus())
	json.NewEncoder(w).Encode(se)
}

func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			evt := logger.Debug()
			if status >= http.StatusInternalServerError {
				evt = logger.Error()
			}
			evt.Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			oas := api.OpenAPI()
			ensureDefaultErrorResponses(oas)
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func ensureDefaultErrorResponses(oas *huma.OpenAPI) {
	if oas == nil || oas.Paths == nil || oas.Components == nil || oas.Components.Schemas == nil {
		return
	}
	ref := oas.Components.Schemas.Schema(reflect.TypeOf(apiError{}), true, "ApiError")
	for _, item := range oas.Paths {
		for _, op := range []*huma.Operation{item.Get, item.Post} {
			if op == nil {
				continue
			}
			if op.Responses == nil {
				op.Responses = map[string]*huma.Response{}
			}
			op.Responses["default"] = &huma.Response{
				Description: "Error",
				Content: map[string]*huma.MediaType{
					"application/json": {Schema: ref},
				},
			}
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="pt-BR">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Jornada API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

type episodePath struct {
	ID string `path:"id" doc:"Episode id"`
}

func registerEpisodes(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-episodes",
		Method:      http.MethodGet,
		Path:        "/episodes",
		Summary:     "List episodes in chronological order",
	}, func(ctx context.Context, input *struct {
		Active string `query:"active" doc:"Episode to mark active; defaults to the earliest"`
	}) (*struct {
		Body EpisodeList `json:"body"`
	}, error) {
		return &struct {
			Body EpisodeList `json:"body"`
		}{Body: episodeList(e, input.Active)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-episode",
		Method:      http.MethodGet,
		Path:        "/episodes/{id}",
		Summary:     "Computed report for one episode",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *episodePath) (*struct {
		Body engine.EpisodeReport `json:"body"`
	}, error) {
		rep, err := e.Report(input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.EpisodeReport `json:"body"`
		}{Body: rep}, nil
	})
}

func registerGantt(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-gantt",
		Method:      http.MethodGet,
		Path:        "/episodes/{id}/gantt",
		Summary:     "Gantt bar geometry for one episode",
		Errors:      []int{http.StatusNotFound, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *episodePath) (*struct {
		Body engine.GanttReport `json:"body"`
	}, error) {
		rep, err := e.Report(input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		if !rep.Gantt.Computable {
			return nil, newAPIError(http.StatusUnprocessableEntity, "unprocessable_schedule", gantt.ErrNoSchedule.Error(), map[string]any{
				"episode":    rep.ID,
				"unresolved": rowIDs(rep.Gantt.Unresolved),
			})
		}
		return &struct {
			Body engine.GanttReport `json:"body"`
		}{Body: rep.Gantt}, nil
	})
}

func registerModals(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-modal",
		Method:      http.MethodGet,
		Path:        "/episodes/{id}/modals/{kind}",
		Summary:     "Rendered modal body",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string `path:"id"`
		Kind string `path:"kind"`
	}) (*struct {
		Body ModalResponse `json:"body"`
	}, error) {
		kind := presenter.ModalKind(input.Kind)
		body, err := e.Modal(input.ID, kind)
		if errors.Is(err, presenter.ErrUnknownModal) {
			return nil, newAPIError(http.StatusNotFound, "not_found", err.Error(), map[string]any{
				"kind": input.Kind,
				"html": string(body),
			})
		}
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ModalResponse `json:"body"`
		}{Body: ModalResponse{EpisodeID: input.ID, Kind: input.Kind, HTML: string(body)}}, nil
	})
}

func registerVerify(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "verify-file",
		Method:      http.MethodPost,
		Path:        "/verify",
		Summary:     "Check a file digest against the catalog",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body VerifyRequest
	}) (*struct {
		Body verify.Result `json:"body"`
	}, error) {
		var v verify.Verifier
		if e.Config != nil {
			v = verify.New(e.Config.Verify.Catalog)
		}
		res, err := v.Digest(input.Body.Name, input.Body.SHA256)
		if err != nil && !errors.Is(err, verify.ErrUnknownFile) {
			return nil, handleError(err)
		}
		return &struct {
			Body verify.Result `json:"body"`
		}{Body: res}, nil
	})
}

func registerPages(r chi.Router, e engine.Engine) {
	page := func(w http.ResponseWriter, id string) {
		rep, err := e.Report(id)
		if err != nil {
			writeError(w, err)
			return
		}
		var buf bytes.Buffer
		if err := site.RenderPage(&buf, e, rep, "/"); err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(buf.Bytes())
	}
	r.Get("/", func(w http.ResponseWriter, r *http.Request) { page(w, "") })
	r.Get("/"+site.EpisodesDir+"/{file}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := strings.CutSuffix(chi.URLParam(r, "file"), ".html")
		if !ok {
			writeError(w, fmt.Errorf("page %s: %w", chi.URLParam(r, "file"), repo.ErrNotFound))
			return
		}
		page(w, id)
	})
	r.Get("/"+site.GanttDir+"/{file}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := strings.CutSuffix(chi.URLParam(r, "file"), ".svg")
		if !ok {
			writeError(w, fmt.Errorf("chart %s: %w", chi.URLParam(r, "file"), repo.ErrNotFound))
			return
		}
		var buf bytes.Buffer
		if err := e.WriteGanttSVG(&buf, id); err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "image/svg+xml")
		w.Write(buf.Bytes())
	})
}

func rowIDs(rows []gantt.Row) []string {
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	return ids
}

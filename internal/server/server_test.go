package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"jornada/internal/config"
	"jornada/internal/engine"
	"jornada/internal/repo"
)

// sha256("hello\n")
const helloDigest = "5891b5b522d5df086d0ff0b110fbd9d21bb4fc7163af34d08286a2e846f6be03"

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	store, err := repo.LoadFile("../../testdata/dados.json")
	if err != nil {
		t.Fatalf("load document: %v", err)
	}
	cfg := config.Default()
	cfg.Verify.Catalog = map[string]config.CatalogEntry{
		"hello.txt": {Name: "Saudação", SHA256: helloDigest},
	}
	e, err := engine.New(store, cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	handler, err := New(Config{Engine: e, BasePath: "/v0", Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

type errorEnvelope struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func decodeError(t *testing.T, data []byte) errorEnvelope {
	t.Helper()
	var env errorEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("decode error envelope: %v (%s)", err, data)
	}
	return env
}

func TestHealth(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/health", nil)
	if res.StatusCode != http.StatusOK || !strings.Contains(string(data), `"ok"`) {
		t.Fatalf("health %d %s", res.StatusCode, data)
	}
}

func TestListEpisodes(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/episodes", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list %d %s", res.StatusCode, data)
	}
	var list EpisodeList
	if err := json.Unmarshal(data, &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list.Items) != 3 || list.Items[0].ID != "ep03" || !list.Items[0].Active {
		t.Fatalf("items = %+v", list.Items)
	}

	_, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/episodes?active=ep02", nil)
	if err := json.Unmarshal(data, &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if list.Items[0].Active || !list.Items[2].Active {
		t.Fatalf("active flags = %+v", list.Items)
	}
}

func TestGetEpisode(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/episodes/ep01", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get %d %s", res.StatusCode, data)
	}
	var rep struct {
		ID   string `json:"id"`
		KPIs struct {
			Labels struct {
				Schedule string `json:"schedule"`
			} `json:"labels"`
		} `json:"kpis"`
		Bias struct {
			Label string `json:"label"`
		} `json:"bias"`
	}
	if err := json.Unmarshal(data, &rep); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rep.ID != "ep01" || rep.KPIs.Labels.Schedule != "50.0%" || rep.Bias.Label != "V" {
		t.Fatalf("report = %+v", rep)
	}
}

func TestGetEpisodeNotFound(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/episodes/ep99", nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d %s", res.StatusCode, data)
	}
	if env := decodeError(t, data); env.Error.Code != "not_found" {
		t.Fatalf("code = %s", env.Error.Code)
	}
}

func TestGantt(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/episodes/ep01/gantt", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("gantt %d %s", res.StatusCode, data)
	}
	var g engine.GanttReport
	if err := json.Unmarshal(data, &g); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !g.Computable || len(g.Bars) != 2 || g.Today == nil {
		t.Fatalf("gantt = %+v", g)
	}

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/episodes/ep02/gantt", nil)
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d %s", res.StatusCode, data)
	}
	env := decodeError(t, data)
	if env.Error.Code != "unprocessable_schedule" {
		t.Fatalf("code = %s", env.Error.Code)
	}
	if ids, _ := env.Error.Details["unresolved"].([]any); len(ids) != 2 {
		t.Fatalf("details = %v", env.Error.Details)
	}
}

func TestModal(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/episodes/ep01/modals/viabilidade", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("modal %d %s", res.StatusCode, data)
	}
	var m ModalResponse
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.Kind != "viabilidade" || !strings.Contains(m.HTML, "100.0%") {
		t.Fatalf("modal = %+v", m)
	}

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/episodes/ep01/modals/desconhecido", nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d %s", res.StatusCode, data)
	}
	env := decodeError(t, data)
	if html, _ := env.Error.Details["html"].(string); !strings.Contains(html, "Tipo de KPI não reconhecido.") {
		t.Fatalf("details = %v", env.Error.Details)
	}
}

func TestVerify(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	cases := []struct {
		name, digest, verdict string
	}{
		{"hello.txt", helloDigest, "authentic"},
		{"hello.txt", strings.Repeat("0", 64), "modified"},
		{"outro.html", helloDigest, "unknown"},
	}
	for _, c := range cases {
		res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/verify", VerifyRequest{Name: c.name, SHA256: c.digest})
		if res.StatusCode != http.StatusOK {
			t.Fatalf("%s: %d %s", c.name, res.StatusCode, data)
		}
		var out struct {
			Verdict string `json:"verdict"`
		}
		if err := json.Unmarshal(data, &out); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if out.Verdict != c.verdict {
			t.Fatalf("%s/%s verdict = %s, want %s", c.name, c.digest[:4], out.Verdict, c.verdict)
		}
	}
}

func TestVerifyRejectsBadDigest(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/verify", VerifyRequest{Name: "hello.txt", SHA256: "xyz"})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d %s", res.StatusCode, data)
	}
	if env := decodeError(t, data); env.Error.Code != "bad_request" {
		t.Fatalf("code = %s", env.Error.Code)
	}
}

func TestPages(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/", nil)
	if res.StatusCode != http.StatusOK || !strings.Contains(string(data), `id="painel-ep03"`) {
		t.Fatalf("index %d", res.StatusCode)
	}
	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/episodios/ep01.html", nil)
	if res.StatusCode != http.StatusOK || !strings.Contains(string(data), `src="/gantt/ep01.svg"`) {
		t.Fatalf("episode page %d", res.StatusCode)
	}
	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/gantt/ep01.svg", nil)
	if res.StatusCode != http.StatusOK || res.Header.Get("Content-Type") != "image/svg+xml" || !bytes.Contains(data, []byte("<svg")) {
		t.Fatalf("svg %d %s", res.StatusCode, res.Header.Get("Content-Type"))
	}
	res, _ = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/gantt/ep02.svg", nil)
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("ep02 svg status %d", res.StatusCode)
	}
	res, _ = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/episodios/ep99.html", nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("missing page status %d", res.StatusCode)
	}
}

func TestOpenAPI(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/openapi.json", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("openapi %d", res.StatusCode)
	}
	for _, p := range []string{"/v0/episodes/{id}/gantt", "/v0/verify"} {
		if !strings.Contains(string(data), p) {
			t.Fatalf("openapi missing %s", p)
		}
	}
}

package jornadasdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal client for the read-only Jornada API.
type Client struct {
	BaseURL    string
	BasePath   string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "/v0",
		Timeout:  10 * time.Second,
	}
}

// Episode is one timeline entry (partial).
type Episode struct {
	ID       string            `json:"id"`
	Date     string            `json:"date"`
	DateBR   string            `json:"date_br"`
	Title    string            `json:"title"`
	Active   bool              `json:"active"`
	Bias     string            `json:"bias"`
	Coherent bool              `json:"coherent"`
	KPIs     map[string]string `json:"kpis"`
}

// Score is an achieved/target percentage.
type Score struct {
	Achieved float64 `json:"achieved"`
	Target   float64 `json:"target"`
	Percent  float64 `json:"percent"`
}

// Report is the computed episode report (partial).
type Report struct {
	ID    string `json:"id"`
	Date  string `json:"date"`
	Title string `json:"title"`
	KPIs  struct {
		Policy    string `json:"policy"`
		Viability struct {
			Benefit float64 `json:"benefit"`
			Cost    float64 `json:"cost"`
			Percent float64 `json:"percent"`
		} `json:"viability"`
		Schedule         Score             `json:"schedule"`
		Publication      Score             `json:"publication"`
		TolerancePercent float64           `json:"tolerance_percent"`
		Labels           map[string]string `json:"labels"`
	} `json:"kpis"`
	Bias struct {
		Label string `json:"label"`
		Title string `json:"title"`
	} `json:"bias"`
	Coherent bool  `json:"coherent"`
	Gantt    Gantt `json:"gantt"`
}

// Bar is one Gantt row with geometry in percent of the timeline.
type Bar struct {
	Kind    string  `json:"kind"`
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Status  string  `json:"status"`
	Tooltip string  `json:"tooltip"`
	Offset  float64 `json:"offset_percent"`
	Width   float64 `json:"width_percent"`
}

type Gantt struct {
	Computable bool   `json:"computable"`
	Message    string `json:"message,omitempty"`
	SpanStart  string `json:"span_start"`
	SpanEnd    string `json:"span_end"`
	SpanDays   int    `json:"span_days"`
	Bars       []Bar  `json:"bars"`
	Phases     []Bar  `json:"phases"`
	Today      *struct {
		RawOffset float64 `json:"raw_offset_percent"`
		Position  float64 `json:"position_percent"`
	} `json:"today,omitempty"`
}

// Verification is the catalog check result for one file.
type Verification struct {
	File     string `json:"file"`
	Name     string `json:"name"`
	Verdict  string `json:"verdict"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	Message  string `json:"message"`
}

// APIError wraps non-2xx responses. Code is taken from the error envelope
// when the body carries one.
type APIError struct {
	StatusCode int
	Code       string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d code=%s body=%s", e.StatusCode, e.Code, e.Body)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.StatusCode == http.StatusNotFound
}

// Episodes lists episodes in chronological order; active may be empty.
func (c *Client) Episodes(ctx context.Context, active string) ([]Episode, error) {
	endpoint := "episodes"
	if active != "" {
		endpoint += "?active=" + url.QueryEscape(active)
	}
	var resp struct {
		Items []Episode `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Items, err
}

// Report fetches the computed report for an episode.
func (c *Client) Report(ctx context.Context, id string) (Report, error) {
	var resp Report
	err := c.do(ctx, http.MethodGet, "episodes/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// Gantt fetches bar geometry. An unresolvable schedule is an APIError with
// code unprocessable_schedule.
func (c *Client) Gantt(ctx context.Context, id string) (Gantt, error) {
	var resp Gantt
	err := c.do(ctx, http.MethodGet, "episodes/"+url.PathEscape(id)+"/gantt", nil, &resp)
	return resp, err
}

// Modal fetches one rendered modal body.
func (c *Client) Modal(ctx context.Context, id, kind string) (string, error) {
	var resp struct {
		HTML string `json:"html"`
	}
	endpoint := fmt.Sprintf("episodes/%s/modals/%s", url.PathEscape(id), url.PathEscape(kind))
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.HTML, err
}

// Verify checks a file digest against the server's catalog.
func (c *Client) Verify(ctx context.Context, name, sha256 string) (Verification, error) {
	body := map[string]any{
		"name":   name,
		"sha256": sha256,
	}
	var resp Verification
	err := c.do(ctx, http.MethodPost, "verify", body, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	target := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, target, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		ae := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var env struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &env) == nil {
			ae.Code = env.Error.Code
		}
		return ae
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	basePath := c.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.Trim(basePath, "/")
}

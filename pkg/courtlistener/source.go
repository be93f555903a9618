// Package courtlistener retrieves federal docket records from the
// CourtListener search API and exposes them as a catalog source.
package courtlistener

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/profile-cli/internal/model"
	"github.com/sells-group/profile-cli/internal/resilience"
)

const (
	defaultBaseURL = "https://www.courtlistener.com/api/rest/v4"
	defaultTimeout = 45 * time.Second
)

// Source fetches litigation dockets naming an entity. Entity-list
// scoped: subsidiaries are sued under their own names, so each family
// member is searched separately.
type Source struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	http    *http.Client
}

// Option configures the source.
type Option func(*Source)

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) Option {
	return func(s *Source) {
		if u != "" {
			s.baseURL = u
		}
	}
}

// WithAPIKey sets the API token. Anonymous access works but is heavily
// throttled.
func WithAPIKey(key string) Option {
	return func(s *Source) {
		s.apiKey = key
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *Source) {
		s.http = hc
	}
}

// WithTimeout overrides the per-call budget.
func WithTimeout(d time.Duration) Option {
	return func(s *Source) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// New creates the litigation source.
func New(opts ...Option) *Source {
	s := &Source{
		baseURL: defaultBaseURL,
		timeout: defaultTimeout,
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Source) ID() string               { return "courtlistener" }
func (s *Source) Category() string         { return "litigation" }
func (s *Source) Scope() model.SourceScope { return model.ScopeEntityList }
func (s *Source) Timeout() time.Duration   { return s.timeout }
func (s *Source) Jurisdictions() []string  { return nil }

type searchResponse struct {
	Count   int      `json:"count"`
	Results []docket `json:"results"`
}

type docket struct {
	CaseName       string `json:"caseName"`
	DocketNumber   string `json:"docketNumber"`
	DateFiled      string `json:"dateFiled"`
	DateTerminated string `json:"dateTerminated"`
	AbsoluteURL    string `json:"absolute_url"`
}

// Fetch searches dockets naming one entity. A docket without a
// termination date counts as open.
func (s *Source) Fetch(ctx context.Context, entityKey string) (*model.Payload, error) {
	q := url.Values{}
	q.Set("q", `"`+entityKey+`"`)
	q.Set("type", "r")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/search/?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "courtlistener: build request")
	}
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Token "+s.apiKey)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "courtlistener: fetch %q", entityKey)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		err := eris.Errorf("courtlistener: unexpected status %d: %s", resp.StatusCode, string(body))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, eris.Wrap(err, "courtlistener: decode response")
	}

	if len(sr.Results) == 0 {
		return &model.Payload{}, nil
	}

	payload := &model.Payload{
		CanonicalName: entityKey,
		ByYear:        make(map[int]float64),
		Metrics:       make(map[string]float64),
	}
	for _, d := range sr.Results {
		payload.Metrics["cases"]++
		if d.DateTerminated == "" {
			payload.Metrics["open_cases"]++
		}
		var filed time.Time
		if t, err := time.Parse("2006-01-02", d.DateFiled); err == nil {
			filed = t
			payload.ByYear[t.Year()]++
		}
		payload.Items = append(payload.Items, model.Item{
			Title: d.CaseName,
			URL:   d.AbsoluteURL,
			Date:  filed,
			Kind:  "docket",
		})
	}
	return payload, nil
}

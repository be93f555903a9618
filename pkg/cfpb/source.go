// Package cfpb retrieves consumer complaint records from the CFPB public
// complaint database and exposes them as a catalog source.
package cfpb

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/profile-cli/internal/model"
	"github.com/sells-group/profile-cli/internal/resilience"
)

const (
	defaultBaseURL = "https://www.consumerfinance.gov/data-research/consumer-complaints/search/api/v1"
	defaultTimeout = 30 * time.Second
	pageSize       = 500
)

// Source fetches complaints filed against an entity. The database only
// covers US-supervised institutions, so the source is jurisdiction
// filtered to US entities.
type Source struct {
	baseURL string
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

// New creates the complaints source.
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

func (s *Source) ID() string               { return "cfpb" }
func (s *Source) Category() string         { return "complaints" }
func (s *Source) Scope() model.SourceScope { return model.ScopeJurisdiction }
func (s *Source) Timeout() time.Duration   { return s.timeout }
func (s *Source) Jurisdictions() []string  { return []string{"US"} }

// searchResponse mirrors the database's Elasticsearch-style envelope.
type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source complaint `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

type complaint struct {
	Company      string `json:"company"`
	DateReceived string `json:"date_received"`
	Product      string `json:"product"`
	Issue        string `json:"issue"`
	Disputed     string `json:"consumer_disputed"`
	Timely       string `json:"timely"`
	ComplaintID  string `json:"complaint_id"`
}

// Fetch retrieves complaints against one entity. Ratio inputs (disputed,
// timely responses) are reported as raw counts so they stay summable
// across entities.
func (s *Source) Fetch(ctx context.Context, entityKey string) (*model.Payload, error) {
	q := url.Values{}
	q.Set("company", entityKey)
	q.Set("size", strconv.Itoa(pageSize))
	q.Set("no_aggs", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "cfpb: build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "cfpb: fetch %q", entityKey)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		err := eris.Errorf("cfpb: unexpected status %d: %s", resp.StatusCode, string(body))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, eris.Wrap(err, "cfpb: decode response")
	}

	payload := &model.Payload{
		ByYear:  make(map[int]float64),
		Metrics: make(map[string]float64),
	}
	for _, hit := range sr.Hits.Hits {
		c := hit.Source
		if payload.CanonicalName == "" {
			payload.CanonicalName = c.Company
		}
		payload.Metrics["complaints"]++
		if c.Disputed == "Yes" {
			payload.Metrics["disputed"]++
		}
		if c.Timely == "Yes" {
			payload.Metrics["timely_responses"]++
		}
		if d, err := time.Parse("2006-01-02", c.DateReceived); err == nil {
			payload.ByYear[d.Year()]++
		}
		payload.Items = append(payload.Items, model.Item{
			Title: c.Product + ": " + c.Issue,
			Kind:  "complaint",
		})
	}
	if len(sr.Hits.Hits) == 0 {
		return &model.Payload{}, nil
	}
	return payload, nil
}

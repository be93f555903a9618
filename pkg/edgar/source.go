// Package edgar retrieves regulatory filings from SEC EDGAR full-text
// search and exposes them as a catalog source.
package edgar

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
	defaultBaseURL = "https://efts.sec.gov/LATEST/search-index"
	defaultTimeout = 120 * time.Second
)

// Source fetches filings for a corporate family. Family scoped: filings
// are consolidated at the parent, so one call with the representative
// entity covers the group. Full-text search is slow, hence the long
// default budget.
type Source struct {
	baseURL   string
	userAgent string
	timeout   time.Duration
	http      *http.Client
}

// Option configures the source.
type Option func(*Source)

// WithBaseURL overrides the search endpoint.
func WithBaseURL(u string) Option {
	return func(s *Source) {
		if u != "" {
			s.baseURL = u
		}
	}
}

// WithUserAgent sets the User-Agent header. SEC requires a descriptive
// identity on automated requests.
func WithUserAgent(ua string) Option {
	return func(s *Source) {
		if ua != "" {
			s.userAgent = ua
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

// New creates the filings source.
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

func (s *Source) ID() string               { return "edgar" }
func (s *Source) Category() string         { return "filings" }
func (s *Source) Scope() model.SourceScope { return model.ScopeFamily }
func (s *Source) Timeout() time.Duration   { return s.timeout }
func (s *Source) Jurisdictions() []string  { return nil }

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source filing `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

type filing struct {
	FileDate     string   `json:"file_date"`
	RootForm     string   `json:"root_form"`
	DisplayNames []string `json:"display_names"`
}

// Fetch runs a full-text search for the representative entity's filings.
func (s *Source) Fetch(ctx context.Context, entityKey string) (*model.Payload, error) {
	q := url.Values{}
	q.Set("q", `"`+entityKey+`"`)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "edgar: build request")
	}
	req.Header.Set("Accept", "application/json")
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "edgar: fetch %q", entityKey)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		err := eris.Errorf("edgar: unexpected status %d: %s", resp.StatusCode, string(body))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, eris.Wrap(err, "edgar: decode response")
	}

	if len(sr.Hits.Hits) == 0 {
		return &model.Payload{}, nil
	}

	payload := &model.Payload{
		ByYear:  make(map[int]float64),
		Metrics: make(map[string]float64),
	}
	for _, hit := range sr.Hits.Hits {
		f := hit.Source
		if payload.CanonicalName == "" && len(f.DisplayNames) > 0 {
			payload.CanonicalName = f.DisplayNames[0]
		}
		payload.Metrics["filings"]++
		var filed time.Time
		if d, err := time.Parse("2006-01-02", f.FileDate); err == nil {
			filed = d
			payload.ByYear[d.Year()]++
		}
		payload.Items = append(payload.Items, model.Item{
			Title: f.RootForm,
			Date:  filed,
			Kind:  "filing",
		})
	}
	return payload, nil
}

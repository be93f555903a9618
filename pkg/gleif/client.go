// Package gleif is a client for the GLEIF LEI registry API. It backs the
// resolver's registry contract: canonical lookup, name search, and the
// ultimate-parent / direct-children hierarchy endpoints.
package gleif

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/profile-cli/internal/resilience"
	"github.com/sells-group/profile-cli/internal/resolve"
)

const defaultBaseURL = "https://api.gleif.org/api/v1"

// Client queries the GLEIF LEI registry.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithRateLimit caps requests per second. GLEIF throttles anonymous
// clients, so the default is a conservative 1 rps.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// New creates a GLEIF client.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 20 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(1), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// leiRecord mirrors the subset of the GLEIF lei-records document the
// resolver needs.
type leiRecord struct {
	Attributes struct {
		LEI    string `json:"lei"`
		Entity struct {
			LegalName struct {
				Name string `json:"name"`
			} `json:"legalName"`
			LegalAddress struct {
				Country string `json:"country"`
			} `json:"legalAddress"`
			LegalForm struct {
				ID string `json:"id"`
			} `json:"legalForm"`
			Category string `json:"category"`
			Status   string `json:"status"`
		} `json:"entity"`
	} `json:"attributes"`
}

type singleResponse struct {
	Data leiRecord `json:"data"`
}

type listResponse struct {
	Data []leiRecord `json:"data"`
}

// Lookup fetches the canonical record for an LEI. An unknown LEI returns
// nil without error.
func (c *Client) Lookup(ctx context.Context, lei string) (*resolve.RegistryRecord, error) {
	var resp singleResponse
	found, err := c.get(ctx, "/lei-records/"+url.PathEscape(lei), nil, &resp)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	rec := toRecord(resp.Data)
	return &rec, nil
}

// Search returns up to limit candidates matching a legal name.
func (c *Client) Search(ctx context.Context, name string, limit int) ([]resolve.RegistryRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	q := url.Values{}
	q.Set("filter[fulltext]", name)
	q.Set("page[size]", strconv.Itoa(limit))

	var resp listResponse
	if _, err := c.get(ctx, "/lei-records", q, &resp); err != nil {
		return nil, err
	}
	return toRecords(resp.Data), nil
}

// UltimateParent returns the ultimate parent record, or nil when the
// entity reports none.
func (c *Client) UltimateParent(ctx context.Context, lei string) (*resolve.RegistryRecord, error) {
	var resp singleResponse
	found, err := c.get(ctx, "/lei-records/"+url.PathEscape(lei)+"/ultimate-parent", nil, &resp)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	rec := toRecord(resp.Data)
	return &rec, nil
}

// Children returns the direct subsidiaries of an entity.
func (c *Client) Children(ctx context.Context, lei string) ([]resolve.RegistryRecord, error) {
	var resp listResponse
	found, err := c.get(ctx, "/lei-records/"+url.PathEscape(lei)+"/direct-children", nil, &resp)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return toRecords(resp.Data), nil
}

// get performs one GET against the registry. Returns found=false on 404,
// which GLEIF uses for both unknown LEIs and absent relationships.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) (bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return false, eris.Wrap(err, "gleif: rate limit wait")
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, eris.Wrap(err, "gleif: build request")
	}
	req.Header.Set("Accept", "application/vnd.api+json")

	resp, err := c.http.Do(req)
	if err != nil {
		return false, eris.Wrap(err, "gleif: request")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		err := eris.Errorf("gleif: unexpected status %d: %s", resp.StatusCode, string(body))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return false, resilience.NewTransientError(err, resp.StatusCode)
		}
		return false, err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, eris.Wrap(err, "gleif: decode response")
	}
	return true, nil
}

func toRecord(rec leiRecord) resolve.RegistryRecord {
	return resolve.RegistryRecord{
		LEI:       rec.Attributes.LEI,
		LegalName: rec.Attributes.Entity.LegalName.Name,
		Country:   rec.Attributes.Entity.LegalAddress.Country,
		LegalForm: rec.Attributes.Entity.LegalForm.ID,
		Category:  rec.Attributes.Entity.Category,
		Status:    rec.Attributes.Entity.Status,
	}
}

func toRecords(recs []leiRecord) []resolve.RegistryRecord {
	out := make([]resolve.RegistryRecord, len(recs))
	for i, rec := range recs {
		out[i] = toRecord(rec)
	}
	return out
}

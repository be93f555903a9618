// Package newsfeed retrieves press coverage from an RSS news index and
// exposes it as a catalog source.
package newsfeed

import (
	"context"
	"net/url"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rotisserie/eris"

	"github.com/sells-group/profile-cli/internal/model"
)

const (
	defaultFeedURL  = "https://news.google.com/rss/search"
	defaultMaxItems = 100
	defaultTimeout  = 30 * time.Second
)

// Source fetches news items mentioning an entity by name. Entity-list
// scoped: coverage is attributed per entity, not per family.
type Source struct {
	feedURL  string
	maxItems int
	timeout  time.Duration
	parser   *gofeed.Parser
}

// Option configures the source.
type Option func(*Source)

// WithFeedURL overrides the RSS search endpoint.
func WithFeedURL(u string) Option {
	return func(s *Source) {
		if u != "" {
			s.feedURL = u
		}
	}
}

// WithMaxItems caps the number of items retained per entity.
func WithMaxItems(n int) Option {
	return func(s *Source) {
		if n > 0 {
			s.maxItems = n
		}
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

// New creates the news source.
func New(opts ...Option) *Source {
	s := &Source{
		feedURL:  defaultFeedURL,
		maxItems: defaultMaxItems,
		timeout:  defaultTimeout,
		parser:   gofeed.NewParser(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Source) ID() string               { return "news_rss" }
func (s *Source) Category() string         { return "news" }
func (s *Source) Scope() model.SourceScope { return model.ScopeEntityList }
func (s *Source) Timeout() time.Duration   { return s.timeout }
func (s *Source) Jurisdictions() []string  { return nil }

// Fetch queries the feed for one entity name and converts matching items.
func (s *Source) Fetch(ctx context.Context, entityKey string) (*model.Payload, error) {
	q := url.Values{}
	q.Set("q", `"`+entityKey+`"`)

	feed, err := s.parser.ParseURLWithContext(s.feedURL+"?"+q.Encode(), ctx)
	if err != nil {
		return nil, eris.Wrapf(err, "newsfeed: fetch %q", entityKey)
	}

	payload := &model.Payload{
		CanonicalName: entityKey,
		ByYear:        make(map[int]float64),
	}
	for i, item := range feed.Items {
		if i >= s.maxItems {
			break
		}
		var published time.Time
		if item.PublishedParsed != nil {
			published = *item.PublishedParsed
			payload.ByYear[published.Year()]++
		}
		payload.Items = append(payload.Items, model.Item{
			Title: item.Title,
			URL:   item.Link,
			Date:  published,
			Kind:  "article",
		})
	}
	if len(payload.ByYear) == 0 {
		payload.ByYear = nil
	}
	return payload, nil
}

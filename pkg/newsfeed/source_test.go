package newsfeed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/profile-cli/internal/model"
)

const feedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
	<title>search results</title>
	<item>
		<title>Alpha Bank fined over compliance lapses</title>
		<link>https://example.com/a</link>
		<pubDate>Mon, 12 Feb 2024 09:00:00 GMT</pubDate>
	</item>
	<item>
		<title>Alpha Bank expands mortgage arm</title>
		<link>https://example.com/b</link>
		<pubDate>Tue, 05 Sep 2023 12:30:00 GMT</pubDate>
	</item>
</channel>
</rss>`

func TestSourceMetadata(t *testing.T) {
	s := New()
	assert.Equal(t, "news_rss", s.ID())
	assert.Equal(t, "news", s.Category())
	assert.Equal(t, model.ScopeEntityList, s.Scope())
	assert.Empty(t, s.Jurisdictions())
}

func TestFetch_ParsesFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, `"Alpha Bank"`, r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, feedXML)
	}))
	defer srv.Close()

	s := New(WithFeedURL(srv.URL))
	payload, err := s.Fetch(context.Background(), "Alpha Bank")
	require.NoError(t, err)

	assert.Equal(t, "Alpha Bank", payload.CanonicalName)
	assert.Equal(t, 1.0, payload.ByYear[2024])
	assert.Equal(t, 1.0, payload.ByYear[2023])
	require.Len(t, payload.Items, 2)
	assert.Equal(t, "Alpha Bank fined over compliance lapses", payload.Items[0].Title)
	assert.Equal(t, "https://example.com/a", payload.Items[0].URL)
	assert.Equal(t, "article", payload.Items[0].Kind)
}

func TestFetch_MaxItemsCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, feedXML)
	}))
	defer srv.Close()

	s := New(WithFeedURL(srv.URL), WithMaxItems(1))
	payload, err := s.Fetch(context.Background(), "Alpha Bank")
	require.NoError(t, err)
	assert.Len(t, payload.Items, 1)
}

func TestFetch_EmptyFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<?xml version="1.0"?><rss version="2.0"><channel><title>empty</title></channel></rss>`)
	}))
	defer srv.Close()

	s := New(WithFeedURL(srv.URL))
	payload, err := s.Fetch(context.Background(), "Ghost Bank")
	require.NoError(t, err)
	assert.True(t, payload.Empty())
}

func TestFetch_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := New(WithFeedURL(srv.URL))
	_, err := s.Fetch(context.Background(), "Alpha Bank")
	assert.Error(t, err)
}

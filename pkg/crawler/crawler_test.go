package crawler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/go-rss-harvester/internal/logger"
	"github.com/shouni/go-rss-harvester/pkg/dates"
	"github.com/shouni/go-rss-harvester/pkg/types"
)

const testFeedURL = "https://news.example.com/rss.xml"

var fixedNow = time.Date(2025, 6, 3, 12, 0, 0, 0, time.UTC)

// MockFeedParser は固定のフィードまたはエラーを返します。
type MockFeedParser struct {
	feed *gofeed.Feed
	err  error
}

func (m *MockFeedParser) FetchAndParse(ctx context.Context, url string) (*gofeed.Feed, error) {
	return m.feed, m.err
}

// MockExtractor はリンクごとの結果を返す extract.Extractor です。
type MockExtractor struct {
	mu       sync.Mutex
	articles map[string]*types.Article
	errs     map[string]error
	calls    []string
}

func (m *MockExtractor) Extract(ctx context.Context, url string) (*types.Article, error) {
	m.mu.Lock()
	m.calls = append(m.calls, url)
	m.mu.Unlock()
	if err := m.errs[url]; err != nil {
		return nil, err
	}
	if a := m.articles[url]; a != nil {
		return a, nil
	}
	return &types.Article{}, nil
}

func rssItem(title, link string, published time.Time) *gofeed.Item {
	return &gofeed.Item{
		Title:       title,
		Link:        link,
		Description: title + " summary",
		Published:   published.Format(time.RFC1123Z),
		Categories:  []string{"News"},
		Authors:     []*gofeed.Person{{Name: "Feed Author"}},
	}
}

func TestCrawl_TimeWindowKeepsFeedOrder(t *testing.T) {
	parser := &MockFeedParser{feed: &gofeed.Feed{FeedVersion: "2.0", Items: []*gofeed.Item{
		rssItem("today", "https://news.example.com/a", fixedNow),
		rssItem("yesterday", "https://news.example.com/b", fixedNow.Add(-24*time.Hour)),
		rssItem("old", "https://news.example.com/c", fixedNow.Add(-5*24*time.Hour)),
	}}}
	extractor := &MockExtractor{articles: map[string]*types.Article{
		"https://news.example.com/a": {Title: "Today full", Text: "body a", Authors: []string{"Reporter"}},
		"https://news.example.com/b": {Title: "Yesterday full", Text: "body b"},
	}}

	c := NewFeedCrawler(parser, extractor, logger.NewNop(), WithClock(func() time.Time { return fixedNow }), WithConcurrency(2))
	records, err := c.Crawl(context.Background(), testFeedURL, 2)
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, "Today full", records[0].Title)
	assert.Equal(t, "Yesterday full", records[1].Title)
	assert.Equal(t, []string{"Reporter"}, records[0].Authors)
	assert.Equal(t, []string{"Feed Author"}, records[1].Authors, "抽出側の著者が空ならフィードの著者を使う")
	assert.NotContains(t, extractor.calls, "https://news.example.com/c", "期間外のエントリは抽出しない")

	for _, r := range records {
		assert.Equal(t, testFeedURL, r.SourceFeed)
		assert.Equal(t, "news.example.com", r.SourceDomain)
		assert.Equal(t, "News", r.Category)
		require.NotNil(t, r.PublishedDate)
	}
	assert.Equal(t, "2025-06-03T12:00:00Z", *records[0].PublishedDate)
}

func TestCrawl_ExtractionFailureIsolated(t *testing.T) {
	parser := &MockFeedParser{feed: &gofeed.Feed{FeedVersion: "2.0", Items: []*gofeed.Item{
		rssItem("broken", "https://news.example.com/broken", fixedNow),
		rssItem("fine", "https://news.example.com/fine", fixedNow),
	}}}
	extractor := &MockExtractor{errs: map[string]error{
		"https://news.example.com/broken": errors.New("timeout"),
	}}

	c := NewFeedCrawler(parser, extractor, nil, WithClock(func() time.Time { return fixedNow }))
	records, err := c.Crawl(context.Background(), testFeedURL, 2)
	require.NoError(t, err)

	require.Len(t, records, 1)
	assert.Equal(t, "fine", records[0].Title, "抽出結果が空ならフィードのタイトルを使う")
	assert.Equal(t, "fine summary", records[0].Text)
	assert.Equal(t, "fine summary", records[0].Description)
	assert.Equal(t, "https://news.example.com/fine", records[0].Link)
}

func TestCrawl_ProvenanceNotOverwritten(t *testing.T) {
	parser := &MockFeedParser{feed: &gofeed.Feed{FeedVersion: "2.0", Items: []*gofeed.Item{
		rssItem("entry", "https://news.example.com/a", fixedNow),
	}}}
	extractor := &MockExtractor{articles: map[string]*types.Article{
		"https://news.example.com/a": {Title: "t", Text: "x", Description: "excerpt", Language: "ja", Image: "https://img/1.png", Canonical: "https://www.example.com/canonical/a"},
	}}

	c := NewFeedCrawler(parser, extractor, nil, WithClock(func() time.Time { return fixedNow }))
	records, err := c.Crawl(context.Background(), testFeedURL, 2)
	require.NoError(t, err)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, "https://news.example.com/a", r.Link)
	assert.Equal(t, testFeedURL, r.SourceFeed)
	assert.Equal(t, "news.example.com", r.SourceDomain)
	assert.Equal(t, "entry summary", r.Description, "フィードの説明を優先する")
	assert.Equal(t, "ja", r.Language)
	assert.Equal(t, "https://img/1.png", r.Image)
	assert.Equal(t, "https://www.example.com/canonical/a", r.Canonical, "canonical は link を置き換えない")
}

func TestCrawl_SkipsUndatedAndLinkless(t *testing.T) {
	undated := rssItem("undated", "https://news.example.com/u", fixedNow)
	undated.Published = ""
	linkless := rssItem("linkless", "", fixedNow)

	parser := &MockFeedParser{feed: &gofeed.Feed{FeedVersion: "2.0", Items: []*gofeed.Item{undated, linkless}}}
	extractor := &MockExtractor{}

	c := NewFeedCrawler(parser, extractor, nil, WithClock(func() time.Time { return fixedNow }))
	records, err := c.Crawl(context.Background(), testFeedURL, 2)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Empty(t, extractor.calls)
}

func TestCrawl_FeedFailures(t *testing.T) {
	tests := []struct {
		name   string
		parser *MockFeedParser
	}{
		{"fetch error", &MockFeedParser{err: errors.New("フィードの取得失敗")}},
		{"no entries", &MockFeedParser{feed: &gofeed.Feed{FeedVersion: "2.0"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewFeedCrawler(tt.parser, &MockExtractor{}, nil)
			records, err := c.Crawl(context.Background(), testFeedURL, 2)
			assert.NoError(t, err)
			assert.NotNil(t, records)
			assert.Empty(t, records)
		})
	}
}

func TestCrawl_MaxEntries(t *testing.T) {
	parser := &MockFeedParser{feed: &gofeed.Feed{FeedVersion: "2.0", Items: []*gofeed.Item{
		rssItem("1", "https://news.example.com/1", fixedNow),
		rssItem("2", "https://news.example.com/2", fixedNow),
		rssItem("3", "https://news.example.com/3", fixedNow),
	}}}
	c := NewFeedCrawler(parser, &MockExtractor{}, nil, WithClock(func() time.Time { return fixedNow }), WithMaxEntries(2))
	records, err := c.Crawl(context.Background(), testFeedURL, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "1", records[0].Title)
	assert.Equal(t, "2", records[1].Title)
}

func TestCrawl_CanceledContext(t *testing.T) {
	parser := &MockFeedParser{feed: &gofeed.Feed{FeedVersion: "2.0", Items: []*gofeed.Item{
		rssItem("1", "https://news.example.com/1", fixedNow),
	}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewFeedCrawler(parser, &MockExtractor{}, nil, WithClock(func() time.Time { return fixedNow }))
	records, err := c.Crawl(ctx, testFeedURL, 2)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, records)
}

func TestBuildRecord_Fallbacks(t *testing.T) {
	entry := types.RawEntry{Title: "feed title", Link: "https://x/a", Content: "<p>content</p>"}

	r := buildRecord(entry, &types.Article{Description: "excerpt"}, dates.Absent(), testFeedURL, "x")
	assert.Equal(t, "feed title", r.Title)
	assert.Equal(t, "<p>content</p>", r.Text, "description が空なら content を使う")
	assert.Equal(t, "<p>content</p>", r.Description)
	assert.Nil(t, r.PublishedDate)
	assert.NotNil(t, r.Authors)
	assert.Empty(t, r.Authors)

	r = buildRecord(types.RawEntry{Link: "https://x/b"}, &types.Article{Description: "excerpt"}, dates.Absent(), testFeedURL, "x")
	assert.Equal(t, "excerpt", r.Description, "フィード側が空なら抽出側の要約を使う")
}

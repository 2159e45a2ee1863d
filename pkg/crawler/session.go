package crawler

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/shouni/go-rss-harvester/internal/logger"
	"github.com/shouni/go-rss-harvester/pkg/types"
)

// DefaultFeedConcurrency は同時に巡回するフィード数の上限です。
const DefaultFeedConcurrency = 3

// FeedDiscoverer はルートURLから検証済みフィードを返します。*discover.Discoverer が満たします。
type FeedDiscoverer interface {
	Discover(ctx context.Context, rootURL string) []types.ValidatedFeed
}

// Crawler は1フィードを巡回します。*FeedCrawler が満たします。
type Crawler interface {
	Crawl(ctx context.Context, feedURL string, daysLimit int) ([]types.ArticleRecord, error)
}

// Session はルートドメイン1件分の発見と巡回をまとめて実行します。
type Session struct {
	discoverer  FeedDiscoverer
	crawler     Crawler
	log         logger.Logger
	concurrency int
}

// NewSession は Session を生成します。concurrency が 0 以下の場合は DefaultFeedConcurrency を使用します。
func NewSession(discoverer FeedDiscoverer, crawler Crawler, log logger.Logger, concurrency int) *Session {
	if concurrency <= 0 {
		concurrency = DefaultFeedConcurrency
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Session{
		discoverer:  discoverer,
		crawler:     crawler,
		log:         log,
		concurrency: concurrency,
	}
}

// Run はフィードを一度だけ発見し、各フィードを巡回した結果を発見順に連結して返します。
// コンテキストが終了した場合は、完了したフィードのレコードとともに ctx.Err() を返します。
func (s *Session) Run(ctx context.Context, rootURL string, daysLimit int) ([]types.ArticleRecord, error) {
	feeds := s.discoverer.Discover(ctx, rootURL)
	if len(feeds) == 0 {
		s.log.Info("有効なフィードが見つかりませんでした", logger.String("url", rootURL))
		return []types.ArticleRecord{}, ctx.Err()
	}
	s.log.Info("フィードの巡回を開始します", logger.String("url", rootURL), logger.Int("feeds", len(feeds)), logger.Int("days_limit", daysLimit))

	results := s.CrawlFeeds(ctx, feeds, daysLimit)

	records := []types.ArticleRecord{}
	for _, res := range results {
		if res.Err != nil {
			s.log.Warn("フィードの巡回が完了しませんでした", logger.String("feed", res.Feed), logger.Err(res.Err))
			continue
		}
		records = append(records, res.Records...)
	}
	return records, ctx.Err()
}

// CrawlFeeds は各フィードを並列に巡回し、入力と同じ順序の FeedResult を返します。
func (s *Session) CrawlFeeds(ctx context.Context, feeds []types.ValidatedFeed, daysLimit int) []types.FeedResult {
	results := make([]types.FeedResult, len(feeds))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, f := range feeds {
		results[i].Feed = f.URL
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			records, err := s.crawler.Crawl(gctx, f.URL, daysLimit)
			results[i].Records = records
			results[i].Err = err
			return nil
		})
	}
	_ = g.Wait()
	return results
}

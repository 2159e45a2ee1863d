package crawler

import (
	"context"
	"net/url"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"

	"github.com/shouni/go-rss-harvester/internal/logger"
	"github.com/shouni/go-rss-harvester/pkg/dates"
	"github.com/shouni/go-rss-harvester/pkg/extract"
	"github.com/shouni/go-rss-harvester/pkg/feed"
	"github.com/shouni/go-rss-harvester/pkg/types"
)

// DefaultConcurrency は1フィード内で同時に記事抽出を行う最大数です。
const DefaultConcurrency = 4

// FeedParser はフィードを取得してパースします。*feed.Parser が満たします。
type FeedParser interface {
	FetchAndParse(ctx context.Context, url string) (*gofeed.Feed, error)
}

// FeedCrawler は1つのフィードを巡回し、期間内のエントリを記事レコードに変換します。
type FeedCrawler struct {
	parser      FeedParser
	extractor   extract.Extractor
	log         logger.Logger
	now         func() time.Time
	concurrency int
	maxEntries  int
}

// Option は FeedCrawler の設定を変更します。
type Option func(*FeedCrawler)

// WithClock は期間判定に使う現在時刻の取得関数を差し替えます。
func WithClock(now func() time.Time) Option {
	return func(c *FeedCrawler) {
		if now != nil {
			c.now = now
		}
	}
}

// WithConcurrency はエントリ単位の並列数を設定します。
func WithConcurrency(n int) Option {
	return func(c *FeedCrawler) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithMaxEntries はフィードごとに処理するエントリ数の上限を設定します。0 は無制限です。
func WithMaxEntries(n int) Option {
	return func(c *FeedCrawler) {
		if n >= 0 {
			c.maxEntries = n
		}
	}
}

// NewFeedCrawler は FeedCrawler を生成します。
func NewFeedCrawler(parser FeedParser, extractor extract.Extractor, log logger.Logger, opts ...Option) *FeedCrawler {
	if log == nil {
		log = logger.NewNop()
	}
	c := &FeedCrawler{
		parser:      parser,
		extractor:   extractor,
		log:         log,
		now:         time.Now,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Crawl はフィードのエントリのうち、daysLimit 日以内に公開されたものを記事レコードとして返します。
// 結果はフィード内の順序を保ちます。取得・パースの失敗や個々の記事抽出の失敗はログに記録され、
// 該当分が結果から除かれるだけです。エラーが返るのはコンテキストが終了した場合のみです。
func (c *FeedCrawler) Crawl(ctx context.Context, feedURL string, daysLimit int) ([]types.ArticleRecord, error) {
	log := c.log.With(logger.String("feed", feedURL))

	parsed, err := c.parser.FetchAndParse(ctx, feedURL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warn("フィードの読み込みに失敗しました", logger.Err(err))
		return []types.ArticleRecord{}, nil
	}

	entries := feed.AllEntries(feed.NewFeedAdapter(parsed))
	if len(entries) == 0 {
		log.Info("フィードにエントリがありません")
		return []types.ArticleRecord{}, nil
	}
	if c.maxEntries > 0 && len(entries) > c.maxEntries {
		entries = entries[:c.maxEntries]
	}

	domain := sourceDomain(feedURL)
	now := c.now()

	// エントリ順を保つため、結果はインデックスで管理する
	slots := make([]*types.ArticleRecord, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, entry := range entries {
		date := dates.Normalize(entry.DateFields)
		if !dates.WithinWindow(date, now, daysLimit) {
			log.Debug("期間外または日付不明のエントリをスキップします",
				logger.String("title", entry.Title),
				logger.Strings("date_fields", entry.DateFields),
			)
			continue
		}
		if entry.Link == "" {
			log.Debug("リンクのないエントリをスキップします", logger.String("title", entry.Title))
			continue
		}

		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			article, err := c.extractor.Extract(gctx, entry.Link)
			if err != nil {
				log.Warn("記事の抽出に失敗しました", logger.String("link", entry.Link), logger.Err(err))
				return nil
			}
			record := buildRecord(entry, article, date, feedURL, domain)
			slots[i] = &record
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records := make([]types.ArticleRecord, 0, len(slots))
	for _, r := range slots {
		if r != nil {
			records = append(records, *r)
		}
	}
	log.Info("フィードの巡回が完了しました", logger.Int("entries", len(entries)), logger.Int("records", len(records)))
	return records, nil
}

// buildRecord は抽出結果を優先し、空の項目はフィード側の値で補います。
// link, source_feed, source_domain は常にクロール文脈から設定します。
func buildRecord(entry types.RawEntry, article *types.Article, date dates.NormalizedDate, feedURL, domain string) types.ArticleRecord {
	if article == nil {
		article = &types.Article{}
	}

	description := firstNonEmpty(entry.Description, entry.Content, article.Description)

	record := types.ArticleRecord{
		Title:         firstNonEmpty(article.Title, entry.Title),
		Text:          firstNonEmpty(article.Text, entry.Description, entry.Content),
		Description:   description,
		Link:          entry.Link,
		PublishedDate: date.ISO8601(),
		Authors:       entry.Authors,
		Category:      entry.Category,
		SourceFeed:    feedURL,
		SourceDomain:  domain,
		Language:      article.Language,
		Image:         article.Image,
		Canonical:     article.Canonical,
	}
	if len(article.Authors) > 0 {
		record.Authors = article.Authors
	}
	if record.Authors == nil {
		record.Authors = []string{}
	}
	return record
}

func sourceDomain(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil {
		return ""
	}
	return u.Host
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

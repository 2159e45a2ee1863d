package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"time"

	httpkit "github.com/shouni/go-http-kit"

	"github.com/shouni/go-rss-harvester/internal/config"
	"github.com/shouni/go-rss-harvester/internal/logger"
	"github.com/shouni/go-rss-harvester/pkg/crawler"
	"github.com/shouni/go-rss-harvester/pkg/discover"
	"github.com/shouni/go-rss-harvester/pkg/extract"
	"github.com/shouni/go-rss-harvester/pkg/feed"
	"github.com/shouni/go-rss-harvester/pkg/httpclient"
	"github.com/shouni/go-rss-harvester/pkg/output"
	"github.com/shouni/go-rss-harvester/pkg/retry"
	"github.com/shouni/go-rss-harvester/pkg/types"
)

// ErrNoArticles は、期間内の記事が1件も得られなかったことを示します。
// 異常ではなく、結果が空だったという通知として扱います。
var ErrNoArticles = errors.New("期間内の記事が見つかりませんでした")

// Runner はルートURLのクロールを実行します。*crawler.Session が満たします。
type Runner interface {
	Run(ctx context.Context, rootURL string, daysLimit int) ([]types.ArticleRecord, error)
}

// FeedCount はフィードごとの収集件数です。
type FeedCount struct {
	Feed    string
	Records int
}

// Summary はクロール1回分の結果概要です。
type Summary struct {
	RootURL    string
	Domain     string
	Records    int
	PerFeed    []FeedCount
	OutputPath string
	Elapsed    time.Duration
}

// Components はクロールに必要な部品一式です。各サブコマンドは必要な部品のみを使います。
type Components struct {
	Discoverer *discover.Discoverer
	Extractor  *extract.ArticleExtractor
	Crawler    *crawler.FeedCrawler
	Session    *crawler.Session
}

// newPageClient はHTMLページ (ルートページと記事ページ) 用のクライアントを生成します。
// Content-Type を保持するため、フィード取得とは別のクライアントを使います。
// リトライはデバッグログに記録されます。
func newPageClient(cfg *config.Config, log logger.Logger) *httpclient.Client {
	retryCfg := retry.DefaultConfig()
	retryCfg.MaxRetries = uint64(cfg.MaxRetries)
	retryCfg.OnRetry = func(operationName string, err error, wait time.Duration) {
		log.Debug("リトライします",
			logger.String("operation", operationName),
			logger.Duration("wait", wait),
			logger.Err(err),
		)
	}
	return httpclient.New(
		time.Duration(cfg.TimeoutSec)*time.Second,
		httpclient.WithRetryConfig(retryCfg),
	)
}

// newFeedFetcher はフィードXML取得用のクライアントを生成します。
func newFeedFetcher(cfg *config.Config) *httpkit.Client {
	return httpkit.New(
		time.Duration(cfg.TimeoutSec)*time.Second,
		httpkit.WithMaxRetries(uint64(cfg.MaxRetries)),
	)
}

// Build は設定値から各部品を組み立てます。
func Build(cfg *config.Config, log logger.Logger) (*Components, error) {
	client := newPageClient(cfg, log)
	parser := feed.NewParser(newFeedFetcher(cfg))

	extractor, err := extract.NewArticleExtractor(client)
	if err != nil {
		return nil, fmt.Errorf("Extractorの初期化エラー: %w", err)
	}

	discoverer := discover.NewDiscoverer(client, parser, log, cfg.Concurrency)
	feedCrawler := crawler.NewFeedCrawler(parser, extractor, log,
		crawler.WithConcurrency(cfg.Concurrency),
		crawler.WithMaxEntries(cfg.MaxEntries),
	)

	return &Components{
		Discoverer: discoverer,
		Extractor:  extractor,
		Crawler:    feedCrawler,
		Session:    crawler.NewSession(discoverer, feedCrawler, log, cfg.FeedConcurrency),
	}, nil
}

// Run は設定値に従ってクロールを実行し、結果を JSON ファイルに書き出します。
func Run(ctx context.Context, cfg *config.Config, log logger.Logger) (*Summary, error) {
	components, err := Build(cfg, log)
	if err != nil {
		return nil, err
	}
	return Harvest(ctx, components.Session, output.NewJSONWriter(cfg.OutputDir), cfg.RootURL, cfg.DaysLimit, log)
}

// Harvest はクロールを実行し、得られたレコードを writer に渡します。
// キャンセルされた場合も、完了したフィード分のレコードは書き出した上でエラーを返します。
func Harvest(ctx context.Context, runner Runner, writer output.Writer, rootURL string, daysLimit int, log logger.Logger) (*Summary, error) {
	start := time.Now()

	root, err := url.Parse(rootURL)
	if err != nil {
		return nil, fmt.Errorf("ルートURLのパースエラー: %w", err)
	}

	records, runErr := runner.Run(ctx, rootURL, daysLimit)

	summary := &Summary{
		RootURL: rootURL,
		Domain:  root.Host,
		Records: len(records),
		PerFeed: countPerFeed(records),
	}

	if len(records) > 0 {
		path, err := writer.Write(summary.Domain, records)
		if err != nil {
			return summary, fmt.Errorf("結果の書き出しに失敗しました: %w", err)
		}
		summary.OutputPath = path
	}
	summary.Elapsed = time.Since(start)

	if runErr != nil {
		return summary, fmt.Errorf("クロールが中断されました: %w", runErr)
	}
	if len(records) == 0 {
		return summary, ErrNoArticles
	}

	log.Info("クロールが完了しました",
		logger.String("domain", summary.Domain),
		logger.Int("records", summary.Records),
		logger.String("output", summary.OutputPath),
		logger.Duration("elapsed", summary.Elapsed),
	)
	return summary, nil
}

func countPerFeed(records []types.ArticleRecord) []FeedCount {
	counts := make(map[string]int)
	for _, r := range records {
		counts[r.SourceFeed]++
	}
	result := make([]FeedCount, 0, len(counts))
	for f, n := range counts {
		result = append(result, FeedCount{Feed: f, Records: n})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Feed < result[j].Feed })
	return result
}

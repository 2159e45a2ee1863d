package discover

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"

	"github.com/shouni/go-rss-harvester/internal/logger"
	"github.com/shouni/go-rss-harvester/pkg/types"
)

// DefaultConcurrency は候補フィードを同時に検証する最大数です。
const DefaultConcurrency = 5

// linkSelector はフィード候補を探す要素です。
const linkSelector = "a[href], link[href]"

var (
	feedExtensionPattern = regexp.MustCompile(`.*\.(rss|xml|atom)$`)
	feedKeywordPattern   = regexp.MustCompile(`.*(rss|feed|atom|syndication).*`)
)

// PageFetcher はルートページを取得し、UTF-8 に変換済みのドキュメントを返します。
type PageFetcher interface {
	FetchDocument(ctx context.Context, url string) (*goquery.Document, error)
}

// FeedParser はフィードを取得してパースします。*feed.Parser が満たします。
type FeedParser interface {
	FetchAndParse(ctx context.Context, url string) (*gofeed.Feed, error)
}

// Validation は候補フィード1件の検証結果です。
// Valid が false の場合、Reason に除外理由が入ります。
type Validation struct {
	Feed   types.ValidatedFeed
	Valid  bool
	Reason error
}

// Discoverer はサイトのルートページから RSS / Atom フィードを発見し、検証します。
type Discoverer struct {
	pages       PageFetcher
	parser      FeedParser
	log         logger.Logger
	concurrency int
}

// NewDiscoverer は Discoverer を生成します。concurrency が 0 以下の場合は DefaultConcurrency を使用します。
func NewDiscoverer(pages PageFetcher, parser FeedParser, log logger.Logger, concurrency int) *Discoverer {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Discoverer{
		pages:       pages,
		parser:      parser,
		log:         log,
		concurrency: concurrency,
	}
}

// Discover はルートページに掲載された同一ドメインのフィード候補を集め、
// パース可能でエントリを1件以上持つものだけを URL 順に返します。
// ルートページの取得に失敗した場合は空のリストを返します。
func (d *Discoverer) Discover(ctx context.Context, rootURL string) []types.ValidatedFeed {
	root, err := url.Parse(rootURL)
	if err != nil || root.Host == "" {
		d.log.Warn("ルートURLが不正です", logger.String("url", rootURL), logger.Err(err))
		return []types.ValidatedFeed{}
	}

	doc, err := d.pages.FetchDocument(ctx, rootURL)
	if err != nil {
		d.log.Warn("ルートページの取得に失敗しました", logger.String("url", rootURL), logger.Err(err))
		return []types.ValidatedFeed{}
	}

	candidates := extractCandidates(doc, root)
	d.log.Debug("フィード候補を抽出しました", logger.String("url", rootURL), logger.Int("candidates", len(candidates)))
	if len(candidates) == 0 {
		return []types.ValidatedFeed{}
	}

	urls := make([]string, 0, len(candidates))
	for u := range candidates {
		urls = append(urls, u)
	}
	sort.Strings(urls)

	results := d.validateAll(ctx, urls)

	feeds := make([]types.ValidatedFeed, 0, len(results))
	for i, v := range results {
		if !v.Valid {
			d.log.Debug("フィード候補を除外しました",
				logger.String("feed", urls[i]),
				logger.String("matched_by", candidates[urls[i]].MatchedBy.String()),
				logger.Err(v.Reason),
			)
			continue
		}
		feeds = append(feeds, v.Feed)
	}
	d.log.Info("フィードを発見しました", logger.String("url", rootURL), logger.Int("feeds", len(feeds)))
	return feeds
}

// validateAll は候補を並列に検証し、入力と同じ順序で結果を返します。
func (d *Discoverer) validateAll(ctx context.Context, urls []string) []Validation {
	results := make([]Validation, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)
	for i, u := range urls {
		g.Go(func() error {
			results[i] = d.Validate(gctx, u)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Validate は候補URLをパースし、フィードとして有効か判定します。
// 失敗はエラーではなく、Valid=false の結果として返されます。
func (d *Discoverer) Validate(ctx context.Context, feedURL string) Validation {
	parsed, err := d.parser.FetchAndParse(ctx, feedURL)
	if err != nil {
		return Validation{Reason: err}
	}
	if len(parsed.Items) == 0 {
		return Validation{Reason: fmt.Errorf("エントリがありません (URL: %s)", feedURL)}
	}
	if parsed.FeedVersion == "" {
		return Validation{Reason: fmt.Errorf("フィードのバージョンを判定できません (URL: %s)", feedURL)}
	}
	return Validation{
		Valid: true,
		Feed: types.ValidatedFeed{
			URL:         feedURL,
			EntryCount:  len(parsed.Items),
			FeedVersion: parsed.FeedVersion,
		},
	}
}

// extractCandidates はドキュメント中のリンクから、ルートと同じホストのフィード候補を絶対URLの集合として返します。
func extractCandidates(doc *goquery.Document, root *url.URL) map[string]types.FeedCandidate {
	candidates := make(map[string]types.FeedCandidate)

	doc.Find(linkSelector).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		// 空の href はルートページ自身に解決されるため候補にしない
		if href == "" {
			return
		}
		typeAttr, _ := s.Attr("type")

		kind, ok := classify(href, typeAttr)
		if !ok {
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		resolved := root.ResolveReference(ref)
		if resolved.Host != root.Host {
			return
		}
		resolved.Fragment = ""

		abs := resolved.String()
		if _, seen := candidates[abs]; !seen {
			candidates[abs] = types.FeedCandidate{URL: abs, MatchedBy: kind}
		}
	})
	return candidates
}

// classify は type 属性、次に href のパターンでフィード候補か判定します。
func classify(href, typeAttr string) (types.MatchKind, bool) {
	t := strings.ToLower(typeAttr)
	if strings.Contains(t, "rss") || strings.Contains(t, "atom") || strings.Contains(t, "xml") {
		return types.MatchTypeAttribute, true
	}
	h := strings.ToLower(href)
	if feedExtensionPattern.MatchString(h) || feedKeywordPattern.MatchString(h) {
		return types.MatchURLPattern, true
	}
	return 0, false
}

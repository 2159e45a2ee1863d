package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"golang.org/x/net/html/charset"

	"github.com/shouni/go-rss-harvester/pkg/httpclient"
	"github.com/shouni/go-rss-harvester/pkg/types"
)

// ErrNothingExtracted は、ページからタイトルも本文も得られなかったことを示します。
var ErrNothingExtracted = errors.New("webページから何も抽出できませんでした")

// Fetcher は、HTMLドキュメントの本文と Content-Type を取得する機能のインターフェースです。
// *httpclient.Client はこのインターフェースを満たします。
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*httpclient.Response, error)
}

// Extractor は記事URLから本文とメタデータを取り出す協調者です。
// クローラーはこのインターフェースにのみ依存します。
type Extractor interface {
	Extract(ctx context.Context, articleURL string) (*types.Article, error)
}

// ArticleExtractor は go-readability で記事を解析し、
// 本文が得られない場合は goquery のヒューリスティックで補完します。
type ArticleExtractor struct {
	fetcher Fetcher
}

// NewArticleExtractor は、新しい ArticleExtractor のインスタンスを生成します。
func NewArticleExtractor(fetcher Fetcher) (*ArticleExtractor, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("extract.NewArticleExtractor: Fetcher cannot be nil")
	}
	return &ArticleExtractor{fetcher: fetcher}, nil
}

// Extract は指定されたURLのページを取得し、記事情報を抽出します。
func (e *ArticleExtractor) Extract(ctx context.Context, articleURL string) (*types.Article, error) {
	pageURL, err := url.Parse(articleURL)
	if err != nil {
		return nil, fmt.Errorf("記事URLの解析に失敗しました (URL: %s): %w", articleURL, err)
	}

	resp, err := e.fetcher.Fetch(ctx, articleURL)
	if err != nil {
		return nil, err
	}

	decoded, err := decodeHTML(resp.Body, resp.ContentType)
	if err != nil {
		return nil, fmt.Errorf("文字コードの変換に失敗しました (URL: %s): %w", articleURL, err)
	}

	article := &types.Article{}
	// readability の失敗はヒューリスティックに任せる
	if parsed, rerr := readability.FromReader(bytes.NewReader(decoded), pageURL); rerr == nil {
		article.Title = strings.TrimSpace(parsed.Title)
		article.Text = strings.TrimSpace(parsed.TextContent)
		article.Description = strings.TrimSpace(parsed.Excerpt)
		article.Authors = splitByline(parsed.Byline)
		article.Language = parsed.Language
		article.Image = parsed.Image
		if parsed.PublishedTime != nil {
			published := parsed.PublishedTime.UTC()
			article.Date = &published
		}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(decoded))
	if err != nil {
		return nil, fmt.Errorf("HTML解析に失敗しました: %w", err)
	}
	article.Canonical = canonicalURL(doc, pageURL)

	if article.Text == "" || article.Title == "" {
		if article.Title == "" {
			article.Title = pageTitle(doc)
		}
		if article.Text == "" {
			article.Text = heuristicText(doc)
		}
	}

	if article.Title == "" && article.Text == "" {
		return nil, fmt.Errorf("%w (URL: %s)", ErrNothingExtracted, articleURL)
	}
	return article, nil
}

// decodeHTML は Content-Type ヘッダー、<meta charset> の順に文字コードを推定し、UTF-8 に変換します。
func decodeHTML(body []byte, contentType string) ([]byte, error) {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}

// splitByline は "A, B" や "A and B" 形式の署名を著者リストに分割します。
func splitByline(byline string) []string {
	byline = strings.TrimSpace(byline)
	if byline == "" {
		return nil
	}
	byline = strings.ReplaceAll(byline, " and ", ",")
	byline = strings.ReplaceAll(byline, "、", ",")

	var authors []string
	for _, name := range strings.Split(byline, ",") {
		if name = strings.TrimSpace(name); name != "" {
			authors = append(authors, name)
		}
	}
	return authors
}

package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	textUtils "github.com/shouni/go-utils/text"
)

const (
	MinParagraphLength   = 20
	MinHeadingLength     = 3
	mainContentSelectors = "article, main, div[role='main'], #main, #content, .post-content, .article-body, .entry-content, .story-body, .news-body"
	noiseSelectors       = ".related-posts, .social-share, .comments, .ad-banner, .advertisement, script, style"

	// textExtractionTags は本文抽出に使用するHTMLタグを定義します。
	textExtractionTags = "p, h1, h2, h3, h4, h5, h6, li, blockquote"

	tableCaptionPrefix = "【表題】 "
)

// heuristicText は readability が本文を返さなかったページから、
// セレクターの出現順に段落・見出し・表・コードブロックを拾い集めます。
// 本文が見つからない場合は空文字列を返します。
func heuristicText(doc *goquery.Document) string {
	mainContent := findMainContent(doc)
	mainContent.Find(noiseSelectors).Remove()

	var parts []string
	mainContent.Find(textExtractionTags + ", table, pre").Each(func(i int, s *goquery.Selection) {
		var content string
		switch {
		case s.Is("table"):
			content = processTable(s)
		case s.Is("pre"):
			if preText := strings.TrimSpace(s.Text()); preText != "" {
				content = "```\n" + preText + "\n```"
			}
		default:
			content = processGeneralElement(s)
		}
		if content != "" {
			parts = append(parts, content)
		}
	})
	return strings.Join(parts, "\n\n")
}

// pageTitle は <title> 要素のテキストを返します。
func pageTitle(doc *goquery.Document) string {
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// canonicalURL は <link rel="canonical"> の href をページURL基準の絶対URLで返します。
// 指定がない、または http(s) 以外の場合は空文字列です。
func canonicalURL(doc *goquery.Document, pageURL *url.URL) string {
	href, ok := doc.Find(`link[rel~="canonical"]`).First().Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return ""
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	resolved := pageURL.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	return resolved.String()
}

func findMainContent(doc *goquery.Document) *goquery.Selection {
	mainContent := doc.Find(mainContentSelectors).First()
	if mainContent.Length() == 0 {
		mainContent = doc.Find("body")
		mainContent.Find("header, footer, nav, aside, .sidebar, form").Remove()
	}
	return mainContent
}

func processGeneralElement(s *goquery.Selection) string {
	tempSelection := s.Clone()
	tempSelection.Find("pre, table").Remove()

	text := textUtils.NormalizeText(tempSelection.Text())
	if text == "" {
		return ""
	}

	if s.Is("h1, h2, h3, h4, h5, h6") {
		if len(text) > MinHeadingLength {
			return "## " + text
		}
		return ""
	}
	if s.Is("li") || len(text) > MinParagraphLength {
		return text
	}
	return ""
}

// processTable はテーブルをキャプションと " | " 区切りの行に整形します。
func processTable(s *goquery.Selection) string {
	var tableContent []string
	if caption := strings.TrimSpace(s.Find("caption").First().Text()); caption != "" {
		tableContent = append(tableContent, tableCaptionPrefix+caption)
	}
	s.Find("tr").Each(func(rowIndex int, row *goquery.Selection) {
		var rowTexts []string
		row.Find("th, td").Each(func(cellIndex int, cell *goquery.Selection) {
			rowTexts = append(rowTexts, textUtils.NormalizeText(cell.Text()))
		})
		tableContent = append(tableContent, strings.Join(rowTexts, " | "))
	})
	return strings.Join(tableContent, "\n")
}

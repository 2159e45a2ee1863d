package types

import "time"

// MatchKind は、フィード候補がどの条件で検出されたかを表します。
type MatchKind int

const (
	// MatchTypeAttribute は type 属性 (rss / atom / xml) で検出されたことを示します。
	MatchTypeAttribute MatchKind = iota + 1
	// MatchURLPattern は URL パターン (拡張子・キーワード) で検出されたことを示します。
	MatchURLPattern
)

func (k MatchKind) String() string {
	switch k {
	case MatchTypeAttribute:
		return "typeAttribute"
	case MatchURLPattern:
		return "urlPattern"
	default:
		return "unknown"
	}
}

// FeedCandidate は、ルートページから抽出されたフィードURLの候補です。
// 検証後は破棄されます。
type FeedCandidate struct {
	URL       string    // 絶対URL
	MatchedBy MatchKind // 検出条件
}

// ValidatedFeed は、パースに成功し、エントリとバージョンを持つことが確認されたフィードです。
// EntryCount は常に 1 以上、FeedVersion は常に空ではありません。
type ValidatedFeed struct {
	URL         string
	EntryCount  int
	FeedVersion string
}

// RawEntry は、フィードのアイテムを形式に依存しない形で保持します。
type RawEntry struct {
	Title       string
	Link        string
	Description string
	Content     string
	Category    string
	Authors     []string
	// DateFields は published, updated, pubDate の順で、実際に存在するフィールドのみを保持します。
	DateFields []string
}

// Article は、記事抽出器 (Extractor) が返す本文とメタデータです。
type Article struct {
	Title       string
	Text        string
	Description string
	Authors     []string
	Date        *time.Time
	Language    string
	Image       string
	Canonical   string // <link rel="canonical"> の絶対URL
}

// ArticleRecord は、クロールの最終出力単位です。
// Link, SourceFeed, SourceDomain はクロール文脈からのみ設定され、抽出結果で上書きされません。
type ArticleRecord struct {
	Title         string   `json:"title"`
	Text          string   `json:"text"`
	Description   string   `json:"description"`
	Link          string   `json:"link"`
	PublishedDate *string  `json:"published_date"`
	Authors       []string `json:"authors"`
	Category      string   `json:"category"`
	SourceFeed    string   `json:"source_feed"`
	SourceDomain  string   `json:"source_domain"`
	Language      string   `json:"language,omitempty"`
	Image         string   `json:"image,omitempty"`
	Canonical     string   `json:"canonical,omitempty"`
}

// FeedResult は、1つのフィードのクロール結果、またはその処理中に発生したエラーを保持します。
// 並列クロールの集約 (fan-in) に利用されます。
type FeedResult struct {
	Feed    string          // 処理対象のフィードURL
	Records []ArticleRecord // 収集されたレコード
	Err     error           // キャンセル等でフィードが完了しなかった場合のエラー
}

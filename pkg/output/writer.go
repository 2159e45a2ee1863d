package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shouni/go-rss-harvester/pkg/types"
)

const timestampLayout = "20060102_150405"

// Writer は記事レコードを永続化します。
type Writer interface {
	Write(domain string, records []types.ArticleRecord) (string, error)
}

// JSONWriter は1回のクロール結果を1つの JSON ファイルとして書き出します。
type JSONWriter struct {
	dir string
	now func() time.Time
}

// NewJSONWriter は出力先ディレクトリを指定して JSONWriter を生成します。空の場合はカレントディレクトリです。
func NewJSONWriter(dir string) *JSONWriter {
	return &JSONWriter{dir: dir, now: time.Now}
}

// FileName は "<domain>_articles_<YYYYMMDD_HHMMSS>.json" 形式のファイル名を返します。
// ドメイン中のドットとコロンはアンダースコアに置き換えます。
func FileName(domain string, at time.Time) string {
	safe := strings.NewReplacer(".", "_", ":", "_").Replace(domain)
	return fmt.Sprintf("%s_articles_%s.json", safe, at.Format(timestampLayout))
}

// Write はレコードをインデント付き JSON で書き出し、作成したファイルのパスを返します。
// レコードが空の場合は何も書き出さず、空文字列を返します。
func (w *JSONWriter) Write(domain string, records []types.ArticleRecord) (string, error) {
	if len(records) == 0 {
		return "", nil
	}

	if w.dir != "" {
		if err := os.MkdirAll(w.dir, 0o755); err != nil {
			return "", fmt.Errorf("出力ディレクトリの作成に失敗しました (%s): %w", w.dir, err)
		}
	}

	path := filepath.Join(w.dir, FileName(domain, w.now()))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("出力ファイルの作成に失敗しました (%s): %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(records); err != nil {
		return "", fmt.Errorf("JSONの書き込みに失敗しました (%s): %w", path, err)
	}
	return path, f.Close()
}

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shouni/go-rss-harvester/internal/config"
)

var (
	feedURL       string
	feedDaysLimit int
)

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "1つのフィードを巡回し、期間内の記事レコードを JSON で標準出力に表示します",
	Long:  `指定されたURLのRSSまたはAtomフィードを取得し、直近 --days 日以内のエントリの記事本文を抽出して表示します。`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := ensureScheme(feedURL)
		if err != nil {
			return fmt.Errorf("URLスキームの処理エラー: %w", err)
		}
		if feedDaysLimit < 1 || feedDaysLimit > config.MaxDaysLimit {
			return fmt.Errorf("--days は1以上%d以下を指定してください: %d", config.MaxDaysLimit, feedDaysLimit)
		}

		components, err := buildComponents()
		if err != nil {
			return err
		}

		// 記事ごとの取得を含むため、全体タイムアウトは設けずにクライアント側のタイムアウトに任せる
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		records, err := components.Crawler.Crawl(ctx, target, feedDaysLimit)
		if err != nil {
			return fmt.Errorf("フィードの巡回エラー (URL: %s): %w", target, err)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(records)
	},
}

func init() {
	feedCmd.Flags().StringVarP(&feedURL, "url", "u", "", "巡回対象のフィード (RSS/Atom) URL")
	feedCmd.Flags().IntVarP(&feedDaysLimit, "days", "d", config.DefaultDaysLimit, "何日前までの記事を対象にするか")
	_ = feedCmd.MarkFlagRequired("url")
}

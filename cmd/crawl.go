package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/shouni/go-rss-harvester/internal/config"
	"github.com/shouni/go-rss-harvester/internal/logger"
	"github.com/shouni/go-rss-harvester/internal/pipeline"
)

// crawlFlags は crawl コマンド固有のフラグです。明示された値のみ設定を上書きします。
var crawlFlags struct {
	RootURL         string
	DaysLimit       int
	OutputDir       string
	Concurrency     int
	FeedConcurrency int
	MaxEntries      int
}

// applyCrawlFlags は明示されたフラグで設定値を上書きします。
func applyCrawlFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("url") {
		cfg.RootURL = crawlFlags.RootURL
	}
	if f.Changed("days") {
		cfg.DaysLimit = crawlFlags.DaysLimit
	}
	if f.Changed("output-dir") {
		cfg.OutputDir = crawlFlags.OutputDir
	}
	if f.Changed("concurrency") {
		cfg.Concurrency = crawlFlags.Concurrency
	}
	if f.Changed("feed-concurrency") {
		cfg.FeedConcurrency = crawlFlags.FeedConcurrency
	}
	if f.Changed("max-entries") {
		cfg.MaxEntries = crawlFlags.MaxEntries
	}
}

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "サイトのフィードを発見・巡回し、期間内の記事を JSON に書き出します",
	Long: `指定されたルートURLのページから同一ドメインの RSS/Atom フィードを発見・検証し、
各フィードの直近 --days 日以内の記事本文を抽出して <domain>_articles_<timestamp>.json に書き出します。`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := *globalConfig
		applyCrawlFlags(cmd, &cfg)

		rootURL, err := ensureScheme(cfg.RootURL)
		if err != nil {
			return fmt.Errorf("URLスキームの処理エラー: %w", err)
		}
		cfg.RootURL = rootURL
		if err := cfg.Validate(); err != nil {
			return err
		}

		// Ctrl+C で中断しても、完了したフィード分は書き出す
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		globalLogger.Info("クロールを開始します",
			logger.String("url", cfg.RootURL),
			logger.Int("days_limit", cfg.DaysLimit),
		)

		summary, err := pipeline.Run(ctx, &cfg, globalLogger)
		if summary != nil {
			printSummary(summary)
		}
		if errors.Is(err, pipeline.ErrNoArticles) {
			fmt.Println(err.Error())
			return nil
		}
		return err
	},
}

func printSummary(summary *pipeline.Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.SetTitle(summary.Domain)
	t.AppendHeader(table.Row{"Feed", "Articles"})
	for _, fc := range summary.PerFeed {
		t.AppendRow(table.Row{fc.Feed, fc.Records})
	}
	t.AppendFooter(table.Row{"Total", summary.Records})
	t.Render()

	if summary.OutputPath != "" {
		fmt.Printf("%d 件の記事を %s に保存しました (%s)\n", summary.Records, summary.OutputPath, summary.Elapsed.Round(time.Millisecond))
	}
}

func init() {
	f := crawlCmd.Flags()
	f.StringVarP(&crawlFlags.RootURL, "url", "u", "", "クロール対象サイトのルートURL")
	f.IntVarP(&crawlFlags.DaysLimit, "days", "d", config.DefaultDaysLimit, "何日前までの記事を対象にするか")
	f.StringVarP(&crawlFlags.OutputDir, "output-dir", "o", "", "JSONの出力先ディレクトリ")
	f.IntVar(&crawlFlags.Concurrency, "concurrency", config.DefaultConcurrency, "フィード検証・記事抽出の並列数")
	f.IntVar(&crawlFlags.FeedConcurrency, "feed-concurrency", config.DefaultFeedConcurrency, "同時に巡回するフィード数")
	f.IntVar(&crawlFlags.MaxEntries, "max-entries", 0, "フィードごとに処理するエントリ数の上限 (0 は無制限)")
}

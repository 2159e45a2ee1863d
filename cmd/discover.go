package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var discoverURL string

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "ルートページから有効な RSS/Atom フィードを発見して一覧表示します",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rootURL, err := ensureScheme(discoverURL)
		if err != nil {
			return fmt.Errorf("URLスキームの処理エラー: %w", err)
		}

		components, err := buildComponents()
		if err != nil {
			return err
		}

		// 候補の検証はリクエストごとのタイムアウトに任せ、全体は Ctrl+C でのみ中断する
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		feeds := components.Discoverer.Discover(ctx, rootURL)
		if ctx.Err() != nil {
			return fmt.Errorf("フィードの発見が中断されました: %w", ctx.Err())
		}
		if len(feeds) == 0 {
			fmt.Printf("有効なフィードが見つかりませんでした: %s\n", rootURL)
			return nil
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"Feed URL", "Version", "Entries"})
		for _, f := range feeds {
			t.AppendRow(table.Row{f.URL, f.FeedVersion, f.EntryCount})
		}
		t.Render()
		return nil
	},
}

func init() {
	discoverCmd.Flags().StringVarP(&discoverURL, "url", "u", "", "フィードを探すサイトのルートURL")
	_ = discoverCmd.MarkFlagRequired("url")
}

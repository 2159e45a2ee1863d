package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shouni/go-rss-harvester/internal/logger"
)

var rawURL string

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "指定されたURLまたは標準入力の記事ページから本文とメタデータを抽出します",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		urlToProcess := rawURL
		if urlToProcess == "" {
			scanner := bufio.NewScanner(os.Stdin)
			fmt.Print("処理するURLを入力してください: ")
			if !scanner.Scan() {
				if err := scanner.Err(); err != nil {
					return fmt.Errorf("標準入力の読み取りエラー: %w", err)
				}
				return fmt.Errorf("URLが入力されていません")
			}
			urlToProcess = scanner.Text()
		}

		processedURL, err := ensureScheme(urlToProcess)
		if err != nil {
			return fmt.Errorf("URLスキームの処理エラー: %w", err)
		}

		components, err := buildComponents()
		if err != nil {
			return err
		}

		timeout := overallTimeout()
		globalLogger.Debug("記事を抽出します", logger.String("url", processedURL), logger.Duration("timeout", timeout))

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		article, err := components.Extractor.Extract(ctx, processedURL)
		if err != nil {
			return fmt.Errorf("コンテンツ抽出エラー (URL: %s): %w", processedURL, err)
		}

		fmt.Printf("タイトル: %s\n", article.Title)
		if len(article.Authors) > 0 {
			fmt.Printf("著者: %s\n", strings.Join(article.Authors, ", "))
		}
		if article.Date != nil {
			fmt.Printf("公開日: %s\n", article.Date.Local().Format("2006-01-02 15:04:05"))
		}
		if article.Description != "" {
			fmt.Printf("概要: %s\n", article.Description)
		}
		if article.Canonical != "" {
			fmt.Printf("正規URL: %s\n", article.Canonical)
		}
		fmt.Println("--- 抽出された本文 ---")
		fmt.Println(article.Text)
		fmt.Println("-----------------------")
		return nil
	},
}

func init() {
	extractCmd.Flags().StringVarP(&rawURL, "url", "u", "", "抽出対象のURL")
}

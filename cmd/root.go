package cmd

import (
	"fmt"
	"time"

	clibase "github.com/shouni/go-cli-base"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shouni/go-rss-harvester/internal/config"
	"github.com/shouni/go-rss-harvester/internal/logger"
	"github.com/shouni/go-rss-harvester/internal/pipeline"
)

const (
	appName = "rss-harvester"

	// overallTimeoutFactor はクライアントタイムアウトに対する単発コマンド全体のタイムアウト倍率です。
	overallTimeoutFactor = 2
)

// AppFlags はこのアプリケーション固有の永続フラグを保持します。
type AppFlags struct {
	ConfigFile string // --config 設定ファイル
	TimeoutSec int    // --timeout タイムアウト
	MaxRetries int    // --max-retries リトライ回数
	LogFormat  string // --log-format console / json
}

var (
	Flags AppFlags

	v = viper.New()

	globalConfig *config.Config
	globalLogger logger.Logger = logger.NewNop()
)

// addAppPersistentFlags は、アプリケーション固有の永続フラグをルートコマンドに追加します。
func addAppPersistentFlags(rootCmd *cobra.Command) {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&Flags.ConfigFile, "config", "", "設定ファイルのパス (既定: ./rss-harvester.yaml)")
	pf.IntVar(&Flags.TimeoutSec, "timeout", config.DefaultTimeoutSec, "HTTPリクエストのタイムアウト時間（秒）")
	pf.IntVar(&Flags.MaxRetries, "max-retries", config.DefaultMaxRetries, "HTTPリクエストのリトライ最大回数")
	pf.StringVar(&Flags.LogFormat, "log-format", config.DefaultLogFormat, "ログ形式 (console / json)")

	// フラグが明示された場合のみ環境変数・設定ファイルより優先される
	_ = v.BindPFlag("timeout", pf.Lookup("timeout"))
	_ = v.BindPFlag("max_retries", pf.Lookup("max-retries"))
	_ = v.BindPFlag("log_format", pf.Lookup("log-format"))
}

// initAppPreRunE は、clibase 共通処理の後に実行される、アプリケーション固有の PersistentPreRunE です。
// clibase.Flags.Verbose はこの関数の実行前に設定済みです。
func initAppPreRunE(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(v, Flags.ConfigFile)
	if err != nil {
		return err
	}
	if clibase.Flags.Verbose {
		cfg.LogLevel = "debug"
	}

	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Encoding: cfg.LogFormat})
	if err != nil {
		return err
	}

	globalConfig = cfg
	globalLogger = log

	log.Debug("設定を読み込みました",
		logger.Duration("timeout", time.Duration(cfg.TimeoutSec)*time.Second),
		logger.Int("max_retries", cfg.MaxRetries),
		logger.Bool("config_file", v.ConfigFileUsed() != ""),
	)
	return nil
}

// buildComponents は、読み込んだ設定値からクロール部品一式を組み立てます。
func buildComponents() (*pipeline.Components, error) {
	if globalConfig == nil {
		return nil, fmt.Errorf("設定が初期化されていません。rootコマンドのPreRunを確認してください")
	}
	return pipeline.Build(globalConfig, globalLogger)
}

// overallTimeout は単発コマンド全体のタイムアウトです。
func overallTimeout() time.Duration {
	return time.Duration(globalConfig.TimeoutSec) * overallTimeoutFactor * time.Second
}

// Execute は、clibase を使ってルートコマンドを実行します。
func Execute() {
	defer func() { _ = globalLogger.Sync() }()

	clibase.Execute(
		appName,
		addAppPersistentFlags,
		initAppPreRunE,
		crawlCmd,
		discoverCmd,
		feedCmd,
		extractCmd,
	)
}

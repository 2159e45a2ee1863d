package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/shouni/go-rss-harvester/pkg/dates"
)

const (
	// EnvPrefix は環境変数のプレフィックスです (例: HARVEST_DAYS_LIMIT)。
	EnvPrefix = "HARVEST"
	// DefaultConfigName は設定ファイルの既定名です (rss-harvester.yaml)。
	DefaultConfigName = "rss-harvester"

	DefaultDaysLimit       = dates.DefaultDaysLimit
	MaxDaysLimit           = 36500
	DefaultConcurrency     = 4
	DefaultFeedConcurrency = 3
	DefaultTimeoutSec      = 10
	DefaultMaxRetries      = 5
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "console"
)

// Config はクロール実行の設定値です。
// 優先順位は フラグ > 環境変数 > 設定ファイル > 既定値 です。
type Config struct {
	RootURL         string `mapstructure:"root_url"`
	DaysLimit       int    `mapstructure:"days_limit"`
	OutputDir       string `mapstructure:"output_dir"`
	Concurrency     int    `mapstructure:"concurrency"`
	FeedConcurrency int    `mapstructure:"feed_concurrency"`
	MaxEntries      int    `mapstructure:"max_entries"`
	TimeoutSec      int    `mapstructure:"timeout"`
	MaxRetries      int    `mapstructure:"max_retries"`
	LogLevel        string `mapstructure:"log_level"`
	LogFormat       string `mapstructure:"log_format"`
}

// SetDefaults は既定値を viper に登録します。
// Unmarshal で環境変数を拾うには、すべてのキーが既知である必要があります。
func SetDefaults(v *viper.Viper) {
	v.SetDefault("root_url", "")
	v.SetDefault("days_limit", DefaultDaysLimit)
	v.SetDefault("output_dir", "")
	v.SetDefault("concurrency", DefaultConcurrency)
	v.SetDefault("feed_concurrency", DefaultFeedConcurrency)
	v.SetDefault("max_entries", 0)
	v.SetDefault("timeout", DefaultTimeoutSec)
	v.SetDefault("max_retries", DefaultMaxRetries)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("log_format", DefaultLogFormat)
}

// Load は .env、設定ファイル、環境変数を読み込み、Config を返します。
// configFile が空の場合はカレントディレクトリの rss-harvester.yaml を探し、存在しなければ無視します。
func Load(v *viper.Viper, configFile string) (*Config, error) {
	// .env が無いのは通常の状態
	_ = godotenv.Load()

	SetDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("設定ファイルの読み込みに失敗しました: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("設定の展開に失敗しました: %w", err)
	}
	return &cfg, nil
}

// Validate は設定値の範囲と、RootURL が指定されている場合はそのスキームを検証します。
func (c *Config) Validate() error {
	if c.DaysLimit < 1 || c.DaysLimit > MaxDaysLimit {
		return fmt.Errorf("days_limit は1以上%d以下を指定してください: %d", MaxDaysLimit, c.DaysLimit)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency は1以上を指定してください: %d", c.Concurrency)
	}
	if c.FeedConcurrency < 1 {
		return fmt.Errorf("feed_concurrency は1以上を指定してください: %d", c.FeedConcurrency)
	}
	if c.MaxEntries < 0 {
		return fmt.Errorf("max_entries は0以上を指定してください: %d", c.MaxEntries)
	}
	if c.TimeoutSec < 1 {
		return fmt.Errorf("timeout は1以上を指定してください: %d", c.TimeoutSec)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries は0以上を指定してください: %d", c.MaxRetries)
	}
	if c.RootURL != "" {
		u, err := url.Parse(c.RootURL)
		if err != nil {
			return fmt.Errorf("root_url のパースエラー: %w", err)
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("root_url は http または https の絶対URLを指定してください: %s", c.RootURL)
		}
	}
	return nil
}

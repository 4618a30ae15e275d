// Package config は環境変数・.env・設定ファイルからアプリケーション設定を読み込みます。
// 設定キーの "." は環境変数では "_" に置き換わります (例: scrape.concurrency → SCRAPE_CONCURRENCY)。
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/shouni/go-x-scraper/internal/logger"
	"github.com/shouni/go-x-scraper/pkg/fetch"
	"github.com/shouni/go-x-scraper/pkg/httpclient"
	"github.com/shouni/go-x-scraper/pkg/retry"
	"github.com/shouni/go-x-scraper/pkg/scraper"
	"github.com/shouni/go-x-scraper/pkg/twitter"
)

// 設定キー
const (
	KeyPort               = "port"
	KeyDebug              = "app.debug"
	KeyLogLevel           = "log.level"
	KeyLogFormat          = "log.format"
	KeyTwitterUsername    = "twitter.username"
	KeyTwitterPassword    = "twitter.password"
	KeyTwitterEmail       = "twitter.email"
	KeyTwitterBearerToken = "twitter.bearer_token"
	KeyTwitterAPIBase     = "twitter.api_base"
	KeyTwitterGraphQLBase = "twitter.graphql_base"
	KeyConcurrency        = "scrape.concurrency"
	KeyFetchTimeout       = "fetch.timeout"
	KeyAuthTimeout        = "auth.timeout"
	KeyHTTPTimeout        = "http.timeout"
	KeyMaxRetries         = "upstream.max_retries"
	KeyMetricsEnabled     = "metrics.enabled"
)

// DefaultPort は HTTP サーバーの既定のポートです。
const DefaultPort = 3000

// ErrInvalid は設定値が不正であることを示します。
var ErrInvalid = errors.New("invalid configuration")

// ValidationError は不正な設定項目を表します。
type ValidationError struct {
	Key    string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid config: %s=%v: %s", e.Key, e.Value, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalid
}

// ScrapeConfig はバッチ処理の設定です。
type ScrapeConfig struct {
	Concurrency  int
	FetchTimeout time.Duration
	AuthTimeout  time.Duration
}

// Config はアプリケーション全体の設定です。
type Config struct {
	Port           int
	Debug          bool
	MetricsEnabled bool
	Log            logger.Config
	Twitter        twitter.Config
	Scrape         ScrapeConfig
}

// New は既定値と環境変数の読み込みを設定した viper インスタンスを返します。
func New() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyPort, DefaultPort)
	v.SetDefault(KeyDebug, false)
	v.SetDefault(KeyLogLevel, logger.DefaultLevel)
	v.SetDefault(KeyLogFormat, logger.DefaultFormat)
	// 認証情報は既定値を持たないが、AutomaticEnv で参照できるようキーを登録しておく
	v.SetDefault(KeyTwitterUsername, "")
	v.SetDefault(KeyTwitterPassword, "")
	v.SetDefault(KeyTwitterEmail, "")
	v.SetDefault(KeyTwitterBearerToken, twitter.DefaultBearerToken)
	v.SetDefault(KeyTwitterAPIBase, twitter.DefaultAPIBase)
	v.SetDefault(KeyTwitterGraphQLBase, twitter.DefaultGraphQLBase)
	v.SetDefault(KeyConcurrency, scraper.DefaultConcurrency)
	v.SetDefault(KeyFetchTimeout, fetch.DefaultCallTimeout)
	v.SetDefault(KeyAuthTimeout, scraper.DefaultAuthTimeout)
	v.SetDefault(KeyHTTPTimeout, httpclient.DefaultHTTPTimeout)
	v.SetDefault(KeyMaxRetries, retry.DefaultMaxRetries)
	v.SetDefault(KeyMetricsEnabled, true)
}

// ReadFiles は .env と設定ファイルを読み込みます。どちらも存在しなければ無視します。
// cfgFile が空の場合はカレントディレクトリの config.yaml を探します。
func ReadFiles(v *viper.Viper, cfgFile string) error {
	_ = godotenv.Load()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("設定ファイル %s の読み込みに失敗しました: %w", cfgFile, err)
		}
		return nil
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("設定ファイルの読み込みに失敗しました: %w", err)
	}
	return nil
}

// Load は v から設定を組み立てて検証します。
func Load(v *viper.Viper) (*Config, error) {
	maxRetries := v.GetInt(KeyMaxRetries)
	if maxRetries < 0 {
		return nil, &ValidationError{Key: KeyMaxRetries, Value: maxRetries, Reason: "must not be negative"}
	}

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxRetries = uint64(maxRetries)

	cfg := &Config{
		Port:           v.GetInt(KeyPort),
		Debug:          v.GetBool(KeyDebug),
		MetricsEnabled: v.GetBool(KeyMetricsEnabled),
		Log: logger.Config{
			Level:  v.GetString(KeyLogLevel),
			Format: v.GetString(KeyLogFormat),
		},
		Twitter: twitter.Config{
			Credentials: twitter.Credentials{
				Username: strings.TrimSpace(v.GetString(KeyTwitterUsername)),
				Password: v.GetString(KeyTwitterPassword),
				Email:    strings.TrimSpace(v.GetString(KeyTwitterEmail)),
			},
			BearerToken: v.GetString(KeyTwitterBearerToken),
			APIBase:     v.GetString(KeyTwitterAPIBase),
			GraphQLBase: v.GetString(KeyTwitterGraphQLBase),
			HTTPTimeout: v.GetDuration(KeyHTTPTimeout),
			Retry:       retryCfg,
		},
		Scrape: ScrapeConfig{
			Concurrency:  v.GetInt(KeyConcurrency),
			FetchTimeout: v.GetDuration(KeyFetchTimeout),
			AuthTimeout:  v.GetDuration(KeyAuthTimeout),
		},
	}
	if cfg.Debug && cfg.Log.Level == logger.DefaultLevel {
		cfg.Log.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate は設定値の範囲を検証します。
func (c *Config) Validate() error {
	switch {
	case c.Port < 1 || c.Port > 65535:
		return &ValidationError{Key: KeyPort, Value: c.Port, Reason: "must be between 1 and 65535"}
	case c.Scrape.Concurrency < 1:
		return &ValidationError{Key: KeyConcurrency, Value: c.Scrape.Concurrency, Reason: "must be at least 1"}
	case c.Scrape.FetchTimeout <= 0:
		return &ValidationError{Key: KeyFetchTimeout, Value: c.Scrape.FetchTimeout, Reason: "must be positive"}
	case c.Scrape.AuthTimeout <= 0:
		return &ValidationError{Key: KeyAuthTimeout, Value: c.Scrape.AuthTimeout, Reason: "must be positive"}
	case c.Twitter.HTTPTimeout <= 0:
		return &ValidationError{Key: KeyHTTPTimeout, Value: c.Twitter.HTTPTimeout, Reason: "must be positive"}
	case c.Log.Format != logger.FormatJSON && c.Log.Format != logger.FormatConsole:
		return &ValidationError{Key: KeyLogFormat, Value: c.Log.Format, Reason: "must be json or console"}
	}
	return nil
}

// Addr は HTTP サーバーの待ち受けアドレスを返します。
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

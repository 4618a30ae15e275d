package cmd

import (
	"fmt"
	"time"

	clibase "github.com/shouni/go-cli-base"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shouni/go-x-scraper/internal/config"
	"github.com/shouni/go-x-scraper/internal/logger"
	"github.com/shouni/go-x-scraper/internal/metrics"
	"github.com/shouni/go-x-scraper/pkg/fetch"
	"github.com/shouni/go-x-scraper/pkg/scraper"
	"github.com/shouni/go-x-scraper/pkg/twitter"
)

const appName = "x-scraper"

// AppFlags はこのアプリケーション固有の永続フラグを保持します。
type AppFlags struct {
	ConfigFile   string        // --config 設定ファイルのパス
	FetchTimeout time.Duration // --fetch-timeout 上流呼び出し1回あたりのタイムアウト
	MaxRetries   int           // --max-retries 上流呼び出しの再試行回数
}

var Flags AppFlags // アプリケーション固有フラグにアクセスするためのグローバル変数

var (
	appConfig *config.Config
	appLogger logger.Logger = logger.NewNop()
)

// flagKeys はフラグ名と設定キーの対応です。指定されたフラグは環境変数や設定ファイルより優先されます。
var flagKeys = map[string]string{
	"fetch-timeout": config.KeyFetchTimeout,
	"max-retries":   config.KeyMaxRetries,
	"concurrency":   config.KeyConcurrency,
	"port":          config.KeyPort,
}

// addAppPersistentFlags は、アプリケーション固有の永続フラグをルートコマンドに追加します。
func addAppPersistentFlags(rootCmd *cobra.Command) {
	rootCmd.PersistentFlags().StringVar(&Flags.ConfigFile, "config", "", "設定ファイルのパス (既定: ./config.yaml があれば使用)")
	rootCmd.PersistentFlags().DurationVar(&Flags.FetchTimeout, "fetch-timeout", fetch.DefaultCallTimeout, "上流APIの呼び出し1回あたりのタイムアウト")
	rootCmd.PersistentFlags().IntVar(&Flags.MaxRetries, "max-retries", 0, "上流APIの呼び出しが失敗したときの再試行回数")
}

// initAppPreRunE は clibase の共通処理の後に実行され、設定とロガーを初期化します。
// NOTE: clibase.Flags.Verbose はこの関数の実行前に設定済み
func initAppPreRunE(cmd *cobra.Command, args []string) error {
	v := config.New()
	if err := config.ReadFiles(v, Flags.ConfigFile); err != nil {
		return err
	}
	if err := bindFlags(v, cmd); err != nil {
		return err
	}

	cfg, err := config.Load(v)
	if err != nil {
		return fmt.Errorf("設定の読み込みに失敗しました: %w", err)
	}
	if clibase.Flags.Verbose {
		cfg.Log.Level = "debug"
		cfg.Log.Format = logger.FormatConsole
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}

	appConfig = cfg
	appLogger = log
	appLogger.Debug("設定を読み込みました",
		logger.Int("concurrency", cfg.Scrape.Concurrency),
		logger.Duration("fetch_timeout", cfg.Scrape.FetchTimeout),
		logger.Bool("credentials", !cfg.Twitter.Credentials.Empty()),
	)
	return nil
}

// bindFlags は実行中のコマンドが持つフラグを設定キーに結び付けます。
func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	for name, key := range flagKeys {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("フラグ --%s の設定に失敗しました: %w", name, err)
		}
	}
	return nil
}

// newScraper は設定から Scraper を組み立てます。rec が nil の場合は計測しません。
func newScraper(cfg *config.Config, log logger.Logger, rec *metrics.Metrics) (*scraper.Scraper, error) {
	twCfg := cfg.Twitter
	twCfg.Retry.Notify = func(err error, next time.Duration) {
		log.Warn("上流APIの呼び出しを再試行します", logger.Error(err), logger.Duration("next", next))
	}

	opts := []scraper.Option{
		scraper.WithConcurrency(cfg.Scrape.Concurrency),
		scraper.WithFetchTimeout(cfg.Scrape.FetchTimeout),
		scraper.WithAuthTimeout(cfg.Scrape.AuthTimeout),
		scraper.WithLogger(log),
	}
	if rec != nil {
		opts = append(opts, scraper.WithRecorder(rec))
	}

	// バッチごとに新しいセッションを作り、ログイン状態を共有しない
	factory := func() fetch.Session { return twitter.New(twCfg) }
	return scraper.New(factory, opts...)
}

// Execute は clibase を使ってルートコマンドを実行します。
func Execute() {
	defer func() { _ = appLogger.Sync() }()

	clibase.Execute(
		appName,
		addAppPersistentFlags,
		initAppPreRunE,
		serveCmd,
		scrapeCmd,
		classifyCmd,
	)
}

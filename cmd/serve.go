package cmd

import (
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/shouni/go-x-scraper/internal/config"
	"github.com/shouni/go-x-scraper/internal/logger"
	"github.com/shouni/go-x-scraper/internal/metrics"
	"github.com/shouni/go-x-scraper/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "スクレイピングAPIサーバーを起動します",
	Long:  `POST /scrape で受け取ったURLの一覧を処理し、結果をJSONで返すHTTPサーバーを起動します。GET / は稼働確認用です。`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if appConfig == nil {
			return errors.New("設定が初期化されていません")
		}

		var (
			rec            *metrics.Metrics
			metricsHandler http.Handler
		)
		if appConfig.MetricsEnabled {
			rec = metrics.New()
			metricsHandler = rec.Handler()
		}

		s, err := newScraper(appConfig, appLogger, rec)
		if err != nil {
			return err
		}

		h := server.NewHandler(s, metricsHandler)
		srv := server.New(server.Config{Port: appConfig.Port, Debug: appConfig.Debug}, appLogger, h.Register)

		appLogger.Info("APIサーバーを起動します",
			logger.Int("port", appConfig.Port),
			logger.Bool("metrics", appConfig.MetricsEnabled),
			logger.Bool("credentials", !appConfig.Twitter.Credentials.Empty()),
		)
		return srv.Run(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().Int("port", config.DefaultPort, "待ち受けるポート番号 (環境変数 PORT より優先)")
}

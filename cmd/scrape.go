package cmd

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	textUtils "github.com/shouni/go-utils/text"
	"github.com/spf13/cobra"

	"github.com/shouni/go-x-scraper/internal/logger"
	"github.com/shouni/go-x-scraper/pkg/normalize"
	"github.com/shouni/go-x-scraper/pkg/scraper"
)

const previewLength = 100

// コマンドラインフラグ変数
var (
	inputURLs  string // --urls カンマ区切りのURLリスト
	jsonOutput bool   // --json 結果をJSONで出力する
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "複数のURLを分類・取得し、結果を出力します",
	Long:  `--urls フラグでカンマ区切りのURLリストを受け取るか、標準入力からURLを一行ずつ読み込み、入力順に処理します。`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if appConfig == nil {
			return errors.New("設定が初期化されていません")
		}

		urls, err := readURLs(inputURLs, cmd.InOrStdin())
		if err != nil {
			return err
		}
		if len(urls) == 0 {
			return errors.New("処理対象のURLが一つも指定されていません")
		}

		s, err := newScraper(appConfig, appLogger, nil)
		if err != nil {
			return err
		}

		appLogger.Info("スクレイピングを開始します", logger.Int("urls", len(urls)), logger.Int("concurrency", appConfig.Scrape.Concurrency))
		results := s.Run(cmd.Context(), urls)

		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), results)
		}
		writeSummary(cmd.OutOrStdout(), results)
		return nil
	},
}

func init() {
	scrapeCmd.Flags().StringVar(&inputURLs, "urls", "", "カンマ区切りのURLリスト (省略時は標準入力から読み込み)")
	scrapeCmd.Flags().BoolVar(&jsonOutput, "json", false, "結果をAPIと同じJSON形式で出力します")
	scrapeCmd.Flags().Int("concurrency", 1, "同時に処理するURL数 (環境変数 SCRAPE_CONCURRENCY より優先)")
}

// readURLs はフラグの値、または r から一行ずつURLを読み込みます。空行は無視します。
func readURLs(flagValue string, r io.Reader) ([]string, error) {
	var urls []string
	if flagValue != "" {
		for _, u := range strings.Split(flagValue, ",") {
			if u = strings.TrimSpace(u); u != "" {
				urls = append(urls, u)
			}
		}
		return urls, nil
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if u := strings.TrimSpace(scanner.Text()); u != "" {
			urls = append(urls, u)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("標準入力の読み取りエラー: %w", err)
	}
	return urls, nil
}

func writeJSON(w io.Writer, results []scraper.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return fmt.Errorf("結果のJSON出力に失敗しました: %w", err)
	}
	return nil
}

func writeSummary(w io.Writer, results []scraper.Result) {
	fmt.Fprintln(w, "--- スクレイピング結果 ---")
	for i, res := range results {
		if !res.OK() {
			fmt.Fprintf(w, "❌ [%d] %s (%s)\n", i+1, res.URL, res.Category)
			fmt.Fprintf(w, "     エラー: %s\n", res.Error)
			continue
		}
		fmt.Fprintf(w, "✅ [%d] %s (%s)\n", i+1, res.URL, res.Category)
		fmt.Fprintf(w, "     %s\n", preview(res.Content))
	}
	fmt.Fprintln(w, "-------------------------------")
	succeeded := scraper.Succeeded(results)
	fmt.Fprintf(w, "完了: 成功 %d 件, 失敗 %d 件\n", succeeded, len(results)-succeeded)
}

// preview は結果の内容を1行に整形し、previewLength 文字で切り詰めます。
func preview(out normalize.Output) string {
	var s string
	switch v := out.(type) {
	case normalize.Text:
		s = string(v)
	case *normalize.Record:
		key := "text"
		if v.Kind() == normalize.KindProfile {
			key = "name"
		}
		if val, ok := v.Get(key); ok {
			s = fmt.Sprint(val)
		}
	}

	s = strings.Join(strings.Fields(textUtils.NormalizeText(s)), " ")
	if r := []rune(s); len(r) > previewLength {
		return string(r[:previewLength]) + "..."
	}
	return s
}

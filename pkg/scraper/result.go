package scraper

import (
	"encoding/json"

	"github.com/shouni/go-x-scraper/pkg/normalize"
	"github.com/shouni/go-x-scraper/pkg/types"
)

const (
	// EmptyContentMessage は、取得結果から何も得られなかった場合のエラーメッセージです。
	EmptyContentMessage = "Scraped content was unexpectedly empty."
	// DefaultErrorMessage は、エラーにメッセージがない場合の既定値です。
	DefaultErrorMessage = "Scraping failed"
)

// 結果の分類です。計測値のラベルに使います。
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeEmpty   = "empty"
)

// Result は1件のURLの処理結果です。Content と Error のどちらか一方が設定されます。
type Result struct {
	URL      string
	Category types.Category
	Content  normalize.Output
	Error    string
	// Empty は、取得はできたが内容が空だったことを示します。Error には EmptyContentMessage が入ります。
	Empty bool
}

// OK は内容を取得できたかどうかを返します。
func (r Result) OK() bool {
	return r.Error == "" && r.Content != nil
}

// Outcome は結果の分類を返します。
func (r Result) Outcome() string {
	switch {
	case r.OK():
		return OutcomeSuccess
	case r.Empty || (r.Error == "" && r.Content == nil):
		return OutcomeEmpty
	default:
		return OutcomeError
	}
}

// MarshalJSON は結果の種類に応じて次のいずれかの形で出力します。
//
//	{url, category, content}
//	{url, category, error}
//	{url, category, content: null, error}
func (r Result) MarshalJSON() ([]byte, error) {
	switch r.Outcome() {
	case OutcomeSuccess:
		return json.Marshal(struct {
			URL      string           `json:"url"`
			Category types.Category   `json:"category"`
			Content  normalize.Output `json:"content"`
		}{r.URL, r.Category, r.Content})
	case OutcomeError:
		return json.Marshal(struct {
			URL      string         `json:"url"`
			Category types.Category `json:"category"`
			Error    string         `json:"error"`
		}{r.URL, r.Category, r.Error})
	default:
		return json.Marshal(struct {
			URL      string         `json:"url"`
			Category types.Category `json:"category"`
			Content  any            `json:"content"`
			Error    string         `json:"error"`
		}{r.URL, r.Category, nil, EmptyContentMessage})
	}
}

// Succeeded は内容を取得できた結果の件数を返します。
func Succeeded(results []Result) int {
	n := 0
	for _, r := range results {
		if r.OK() {
			n++
		}
	}
	return n
}

func failed(rawURL string, category types.Category, err error) Result {
	msg := DefaultErrorMessage
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return Result{URL: rawURL, Category: category, Error: msg}
}

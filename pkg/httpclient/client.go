package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/shouni/go-x-scraper/pkg/retry"
)

const (
	// HTTPクライアント関連の定数
	DefaultHTTPTimeout = 30 * time.Second
	MaxBodySize        = int64(10 * 1024 * 1024) // 10MB: レスポンスボディの最大読み込みサイズ

	// エラーメッセージに含めるボディの最大長
	maxErrorBodyLen = 1024

	// Webクライアントと同じ扱いを受けるためのUser-Agent
	UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/129.0.0.0 Safari/537.36"
)

// Doer は http.Client.Do を抽象化したインターフェースです。テストではモックに差し替えます。
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// NonRetryableHTTPError はHTTP 4xx系のステータスコードエラーを示すカスタムエラー型です。
type NonRetryableHTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *NonRetryableHTTPError) Error() string {
	if len(e.Body) == 0 {
		return fmt.Sprintf("upstream returned status %d", e.StatusCode)
	}
	body := strings.TrimSpace(string(e.Body))
	if len(body) > maxErrorBodyLen {
		body = body[:maxErrorBodyLen] + "..."
	}
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, body)
}

// Client はHTTPリクエストと指数バックオフを用いたリトライロジックを管理します。
// Cookie は jar に保持され、同じ Client を使う後続リクエストに引き継がれます。
type Client struct {
	httpClient  Doer
	jar         http.CookieJar
	retryConfig retry.Config
}

// Option は Client の生成時オプションです。
type Option func(*Client)

// WithHTTPClient は、内部で使用する Doer を差し替えます。
func WithHTTPClient(d Doer) Option {
	return func(c *Client) {
		c.httpClient = d
		if hc, ok := d.(*http.Client); ok {
			c.jar = hc.Jar
		} else {
			c.jar = nil
		}
	}
}

// WithRetryConfig は、リトライ設定を丸ごと差し替えます。
func WithRetryConfig(cfg retry.Config) Option {
	return func(c *Client) {
		c.retryConfig = cfg
	}
}

// New は、Cookie jar 付きの新しいClientを生成します。
func New(timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}

	// publicsuffix.List を使うため、エラーになることはない
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})

	c := &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
		jar:         jar,
		retryConfig: retry.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithMaxRetries は最大リトライ回数を設定します。
func (c *Client) WithMaxRetries(max uint64) *Client {
	c.retryConfig.MaxRetries = max
	return c
}

// Cookie は、rawURL に送信される Cookie のうち name に一致する値を返します。
func (c *Client) Cookie(rawURL, name string) string {
	if c.jar == nil {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	for _, ck := range c.jar.Cookies(u) {
		if ck.Name == name {
			return ck.Value
		}
	}
	return ""
}

// ResetCookies は、保持している Cookie をすべて破棄します。
func (c *Client) ResetCookies() {
	hc, ok := c.httpClient.(*http.Client)
	if !ok {
		return
	}
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	hc.Jar = jar
	c.jar = jar
}

// GetJSON は GET リクエストを送り、レスポンスの JSON を out にデコードします。out が nil の場合は読み捨てます。
func (c *Client) GetJSON(ctx context.Context, rawURL string, header http.Header, out any) error {
	return c.doWithRetry(ctx, http.MethodGet, rawURL, header, nil, out)
}

// PostJSON は in を JSON として POST し、レスポンスの JSON を out にデコードします。in が nil の場合はボディなしで送信します。
func (c *Client) PostJSON(ctx context.Context, rawURL string, header http.Header, in, out any) error {
	var body []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		body = b
	}
	return c.doWithRetry(ctx, http.MethodPost, rawURL, header, body, out)
}

func (c *Client) doWithRetry(ctx context.Context, method, rawURL string, header http.Header, body []byte, out any) error {
	op := func() error {
		return c.do(ctx, method, rawURL, header, body, out)
	}
	return retry.Do(
		ctx,
		c.retryConfig,
		fmt.Sprintf("%s %s", method, rawURL),
		op,
		c.isHTTPRetryableError,
	)
}

// do は実際の一度のHTTPリクエストとJSONデコードを実行します。
func (c *Client) do(ctx context.Context, method, rawURL string, header http.Header, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range header {
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := checkResponseForRetry(resp); err != nil {
		return err
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, MaxBodySize))
		return nil
	}

	if resp.ContentLength > MaxBodySize {
		return fmt.Errorf("response body exceeds the maximum size (%d bytes)", MaxBodySize)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, MaxBodySize)).Decode(out); err != nil {
		return fmt.Errorf("decode response body: %w", err)
	}
	return nil
}

// checkResponseForRetry はHTTPレスポンスのステータスコードを評価し、リトライすべきエラーか、非リトライ対象のエラーかを返します。
// 呼び出し元が resp.Body.Close() を実行する必要があります。
func checkResponseForRetry(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return nil
	}

	bodyBytes, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLen*4))

	// 5xx 系: リトライ対象のサーバーエラー
	if resp.StatusCode >= 500 {
		if readErr != nil {
			return fmt.Errorf("upstream server error %d: %w", resp.StatusCode, readErr)
		}
		return fmt.Errorf("upstream server error %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}

	// 4xx 系 (およびその他): 非リトライ対象
	if readErr != nil {
		return &NonRetryableHTTPError{StatusCode: resp.StatusCode}
	}
	return &NonRetryableHTTPError{StatusCode: resp.StatusCode, Body: bodyBytes}
}

// IsNonRetryableError は与えられたエラーが非リトライ対象のHTTPエラーであるかを判断します。
func IsNonRetryableError(err error) bool {
	if err == nil {
		return false
	}
	var nonRetryable *NonRetryableHTTPError
	return errors.As(err, &nonRetryable)
}

// StatusCode は、err が NonRetryableHTTPError を含む場合にそのステータスコードを返します。
func StatusCode(err error) (int, bool) {
	var nonRetryable *NonRetryableHTTPError
	if errors.As(err, &nonRetryable) {
		return nonRetryable.StatusCode, true
	}
	return 0, false
}

// isHTTPRetryableError はエラーがHTTPリトライ対象かどうかを判定します。
// この関数は retry.ShouldRetryFunc 型のシグネチャを満たします。
func (c *Client) isHTTPRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// 呼び出し元のコンテキスト終了はリトライしない (待機してもすぐ打ち切られる)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	// 4xx はリトライしない
	if IsNonRetryableError(err) {
		return false
	}

	// 5xx やネットワークエラーはリトライ対象
	return true
}

// Package twitter は、X (旧Twitter) の Web API に対するセッションを実装します。
// ゲストトークンによる匿名アクセスと、ログインタスクフローによる認証済みアクセスの両方に対応します。
package twitter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/shouni/go-x-scraper/pkg/httpclient"
	"github.com/shouni/go-x-scraper/pkg/retry"
)

const (
	// DefaultBearerToken は Web クライアントに埋め込まれている公開ベアラートークンです。
	DefaultBearerToken = "AAAAAAAAAAAAAAAAAAAAANRILgAAAAAAnNwIzUejRCOuH5E6I8xnZz4puTs%3D1Zv7ttfk8LF81IUq16cHjhLTvJu4FA33AGWWjCpTnA"

	DefaultAPIBase     = "https://api.twitter.com"
	DefaultGraphQLBase = "https://twitter.com/i/api/graphql"

	// PermalinkBase はポストやプロフィールのURL生成に使います。
	PermalinkBase = "https://x.com"
)

var (
	// ErrNoCredentials は、ログインに必要な認証情報が設定されていないことを示します。
	ErrNoCredentials = errors.New("twitter credentials are not configured")
	// ErrNotFound は、指定したポストやアカウントが存在しないことを示します。
	ErrNotFound = errors.New("not found")
	// ErrLoginFailed は、ログインタスクフローが成功で終わらなかったことを示します。
	ErrLoginFailed = errors.New("login failed")
)

// Credentials はログインに使用する認証情報です。
type Credentials struct {
	Username string
	Password string
	Email    string // 追加確認 (LoginEnterAlternateIdentifierSubtask) で求められた場合に使用
}

// Empty は、ログインに必要な情報が欠けているかどうかを返します。
func (c Credentials) Empty() bool {
	return c.Username == "" || c.Password == ""
}

// Config はクライアントの設定です。
type Config struct {
	Credentials Credentials
	BearerToken string
	APIBase     string
	GraphQLBase string
	HTTPTimeout time.Duration
	Retry       retry.Config
}

// SetDefaults は未設定の項目に既定値を適用します。
func (c *Config) SetDefaults() {
	if c.BearerToken == "" {
		c.BearerToken = DefaultBearerToken
	}
	if c.APIBase == "" {
		c.APIBase = DefaultAPIBase
	}
	if c.GraphQLBase == "" {
		c.GraphQLBase = DefaultGraphQLBase
	}
	c.APIBase = strings.TrimRight(c.APIBase, "/")
	c.GraphQLBase = strings.TrimRight(c.GraphQLBase, "/")
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = httpclient.DefaultHTTPTimeout
	}
}

// Client は1つの上流セッションです。ゲストトークンとログイン状態を保持します。
type Client struct {
	http *httpclient.Client
	cfg  Config

	mu         sync.Mutex
	guestToken string
	loggedIn   bool
}

// New は Client を生成します。opts は内部の HTTP クライアントに渡されます。
func New(cfg Config, opts ...httpclient.Option) *Client {
	cfg.SetDefaults()
	opts = append([]httpclient.Option{httpclient.WithRetryConfig(cfg.Retry)}, opts...)
	return &Client{
		http: httpclient.New(cfg.HTTPTimeout, opts...),
		cfg:  cfg,
	}
}

// IsLoggedIn は、ログイン済みかどうかを返します。
func (c *Client) IsLoggedIn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loggedIn
}

// baseHeaders は全リクエスト共通のヘッダーです。
func (c *Client) baseHeaders() http.Header {
	h := make(http.Header)
	h.Set("Authorization", "Bearer "+c.cfg.BearerToken)
	h.Set("X-Twitter-Active-User", "yes")
	h.Set("X-Twitter-Client-Language", "en")
	return h
}

// headers は、現在のセッション状態に応じた認証ヘッダーを返します。
// 未ログインの場合は必要に応じてゲストトークンを取得します。
func (c *Client) headers(ctx context.Context) (http.Header, error) {
	h := c.baseHeaders()

	if c.IsLoggedIn() {
		h.Set("X-Twitter-Auth-Type", "OAuth2Session")
		if csrf := c.http.Cookie(c.cfg.APIBase, "ct0"); csrf != "" {
			h.Set("X-Csrf-Token", csrf)
		}
		return h, nil
	}

	token, err := c.ensureGuestToken(ctx)
	if err != nil {
		return nil, err
	}
	h.Set("X-Guest-Token", token)
	return h, nil
}

type guestTokenResponse struct {
	GuestToken string `json:"guest_token"`
}

// ensureGuestToken は、保持しているゲストトークンを返すか、新たに発行します。
func (c *Client) ensureGuestToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	token := c.guestToken
	c.mu.Unlock()
	if token != "" {
		return token, nil
	}

	var resp guestTokenResponse
	if err := c.http.PostJSON(ctx, c.cfg.APIBase+"/1.1/guest/activate.json", c.baseHeaders(), nil, &resp); err != nil {
		return "", fmt.Errorf("activate guest token: %w", err)
	}
	if resp.GuestToken == "" {
		return "", errors.New("activate guest token: empty token in response")
	}

	c.mu.Lock()
	c.guestToken = resp.GuestToken
	c.mu.Unlock()
	return resp.GuestToken, nil
}

// invalidateGuestToken は、失効した可能性のあるゲストトークンを破棄します。
func (c *Client) invalidateGuestToken(err error) {
	status, ok := httpclient.StatusCode(err)
	if !ok || (status != http.StatusUnauthorized && status != http.StatusForbidden) {
		return
	}
	c.mu.Lock()
	if !c.loggedIn {
		c.guestToken = ""
	}
	c.mu.Unlock()
}

// Package fetch は、分類済みURLを上流セッション経由で生レコードに変換するアダプターです。
package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shouni/go-x-scraper/pkg/twitter"
	"github.com/shouni/go-x-scraper/pkg/types"
)

// DefaultCallTimeout は上流呼び出し1回あたりの既定のタイムアウトです。
const DefaultCallTimeout = 30 * time.Second

// UnknownPlaceholder は、対象外のURLに対するプレースホルダーです。
const UnknownPlaceholder = "URL is not recognized as a standard Tweet, Profile, or Community page, or is not a Twitter URL."

var (
	// ErrMissingTweetID は、ポストURLからIDを取り出せなかったことを示します。
	ErrMissingTweetID = errors.New("Could not extract Tweet ID.")
	// ErrMissingUsername は、プロフィールURLからハンドル名を取り出せなかったことを示します。
	ErrMissingUsername = errors.New("Could not extract Username.")
	// ErrTimeout は、上流呼び出しがタイムアウトしたことを示します。
	ErrTimeout = errors.New("upstream call timed out")
)

// Session は認証済みまたは匿名の上流セッションです。*twitter.Client が実装します。
type Session interface {
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	GetTweet(ctx context.Context, id string) (*twitter.Tweet, error)
	GetProfile(ctx context.Context, username string) (*twitter.Profile, error)
}

var _ Session = (*twitter.Client)(nil)

// Record はアダプターが返す生レコードです。
// *TweetRecord, *ProfileRecord, Placeholder のいずれかで、上流が何も返さなかった場合は nil です。
type Record interface {
	isRecord()
}

// TweetRecord は取得したポストです。
type TweetRecord struct {
	Tweet *twitter.Tweet
}

// ProfileRecord は取得したアカウント情報です。
type ProfileRecord struct {
	Profile *twitter.Profile
}

// Placeholder は取得対象外のカテゴリに対する固定メッセージです。
type Placeholder string

func (*TweetRecord) isRecord()   {}
func (*ProfileRecord) isRecord() {}
func (Placeholder) isRecord()    {}

// CommunityPlaceholder はコミュニティページ用のプレースホルダーを返します。
func CommunityPlaceholder(id string) Placeholder {
	return Placeholder(fmt.Sprintf("Community page identified (ID: %s). Specific scraping for communities is not implemented in this script or potentially supported by the library.", id))
}

// GenericPlaceholder は汎用ページ用のプレースホルダーを返します。
func GenericPlaceholder(page string) Placeholder {
	return Placeholder(fmt.Sprintf("Generic Twitter page (%s). No specific content to scrape.", page))
}

// Adapter はカテゴリごとの取得戦略を実装します。
type Adapter struct {
	session Session
	timeout time.Duration
}

// NewAdapter は Adapter を生成します。timeout が0以下の場合は DefaultCallTimeout を使います。
func NewAdapter(session Session, timeout time.Duration) (*Adapter, error) {
	if session == nil {
		return nil, errors.New("session cannot be nil")
	}
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &Adapter{session: session, timeout: timeout}, nil
}

// Fetch は分類結果に応じて生レコードを返します。ネットワークを使うのは Tweet と Profile のみです。
func (a *Adapter) Fetch(ctx context.Context, c types.ClassifiedURL) (Record, error) {
	switch c.Category {
	case types.CategoryTweet:
		if !c.HasIdentifier() {
			return nil, ErrMissingTweetID
		}
		tweet, err := call(ctx, a.timeout, func(ctx context.Context) (*twitter.Tweet, error) {
			return a.session.GetTweet(ctx, c.Identifier)
		})
		if err != nil || tweet == nil {
			return nil, err
		}
		return &TweetRecord{Tweet: tweet}, nil

	case types.CategoryProfile:
		if !c.HasIdentifier() {
			return nil, ErrMissingUsername
		}
		profile, err := call(ctx, a.timeout, func(ctx context.Context) (*twitter.Profile, error) {
			return a.session.GetProfile(ctx, c.Identifier)
		})
		if err != nil || profile == nil {
			return nil, err
		}
		return &ProfileRecord{Profile: profile}, nil

	case types.CategoryCommunity:
		return CommunityPlaceholder(c.Identifier), nil

	case types.CategoryGeneric:
		return GenericPlaceholder(c.Identifier), nil

	default:
		return Placeholder(UnknownPlaceholder), nil
	}
}

// call は fn をタイムアウト付きで実行します。タイムアウトは ErrTimeout として返します。
func call[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	v, err := fn(callCtx)
	if err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		var zero T
		return zero, fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}
	return v, err
}

// Package scraper は、URLの一覧に対して分類・取得・正規化を行うバッチ処理を提供します。
package scraper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shouni/go-x-scraper/internal/logger"
	"github.com/shouni/go-x-scraper/pkg/classify"
	"github.com/shouni/go-x-scraper/pkg/fetch"
	"github.com/shouni/go-x-scraper/pkg/normalize"
	"github.com/shouni/go-x-scraper/pkg/twitter"
	"github.com/shouni/go-x-scraper/pkg/types"
)

const (
	// DefaultConcurrency は既定の同時実行数です。1 の場合は入力順に逐次処理します。
	DefaultConcurrency = 1
	// DefaultAuthTimeout はログイン・ログアウト1回あたりの既定のタイムアウトです。
	DefaultAuthTimeout = 60 * time.Second
)

// ログイン結果の分類です。
const (
	LoginSuccess   = "success"
	LoginFailure   = "failure"
	LoginAnonymous = "anonymous"
)

// Runner はバッチ処理を実行するインターフェースです。
type Runner interface {
	Run(ctx context.Context, urls []string) []Result
}

// SessionFactory はバッチごとに新しい上流セッションを生成します。
type SessionFactory func() fetch.Session

// Recorder はバッチ処理の計測値を受け取ります。
type Recorder interface {
	ObserveBatch(size int)
	ObserveLogin(outcome string)
	ObserveResult(category types.Category, outcome string, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveBatch(int)                                    {}
func (nopRecorder) ObserveLogin(string)                                 {}
func (nopRecorder) ObserveResult(types.Category, string, time.Duration) {}

// Scraper は Runner の実装です。
type Scraper struct {
	newSession   SessionFactory
	concurrency  int
	fetchTimeout time.Duration
	authTimeout  time.Duration
	log          logger.Logger
	recorder     Recorder
}

// Option は Scraper の設定を変更します。
type Option func(*Scraper)

// WithConcurrency は同時実行数を設定します。1 以下は逐次処理になります。
func WithConcurrency(n int) Option {
	return func(s *Scraper) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithFetchTimeout は上流呼び出し1回あたりのタイムアウトを設定します。
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Scraper) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

// WithAuthTimeout はログイン・ログアウトのタイムアウトを設定します。
func WithAuthTimeout(d time.Duration) Option {
	return func(s *Scraper) {
		if d > 0 {
			s.authTimeout = d
		}
	}
}

// WithLogger はロガーを設定します。
func WithLogger(l logger.Logger) Option {
	return func(s *Scraper) {
		if l != nil {
			s.log = l
		}
	}
}

// WithRecorder は計測値の送り先を設定します。
func WithRecorder(r Recorder) Option {
	return func(s *Scraper) {
		if r != nil {
			s.recorder = r
		}
	}
}

// New は Scraper を初期化します。
func New(factory SessionFactory, opts ...Option) (*Scraper, error) {
	if factory == nil {
		return nil, errors.New("session factory cannot be nil")
	}
	s := &Scraper{
		newSession:   factory,
		concurrency:  DefaultConcurrency,
		fetchTimeout: fetch.DefaultCallTimeout,
		authTimeout:  DefaultAuthTimeout,
		log:          logger.NewNop(),
		recorder:     nopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run は urls を処理し、入力と同じ順序・同じ件数の結果を返します。
// 1件の失敗は結果の Error に記録され、他のURLの処理には影響しません。
// ログインはバッチ開始前に1回だけ試み、失敗しても匿名のまま続行します。
func (s *Scraper) Run(ctx context.Context, urls []string) []Result {
	log := s.log.With(logger.String("batch_id", uuid.NewString()))
	s.recorder.ObserveBatch(len(urls))

	results := make([]Result, len(urls))
	if len(urls) == 0 {
		return results
	}

	session := s.newSession()
	if session == nil {
		for i, u := range urls {
			results[i] = failed(u, classify.Classify(u).Category, errors.New("upstream session is not available"))
		}
		return results
	}
	if s.concurrency > 1 {
		session = fetch.Serialize(session)
	}
	adapter, err := fetch.NewAdapter(session, s.fetchTimeout)
	if err != nil {
		for i, u := range urls {
			results[i] = failed(u, classify.Classify(u).Category, err)
		}
		return results
	}

	log.Info("バッチ処理を開始します", logger.Int("urls", len(urls)), logger.Int("concurrency", s.concurrency))
	loggedIn := s.login(ctx, session, log)

	if s.concurrency <= 1 {
		for i, u := range urls {
			results[i] = s.process(ctx, adapter, u, log)
		}
	} else {
		var wg sync.WaitGroup
		// バッファ付きチャネルをセマフォとして使用し、同時実行数を制限する
		semaphore := make(chan struct{}, s.concurrency)
		for i, u := range urls {
			wg.Add(1)
			semaphore <- struct{}{}
			go func(i int, u string) {
				defer wg.Done()
				defer func() { <-semaphore }()
				results[i] = s.process(ctx, adapter, u, log)
			}(i, u)
		}
		wg.Wait()
	}

	if loggedIn {
		s.logout(ctx, session, log)
	}
	log.Info("バッチ処理が完了しました", logger.Int("succeeded", Succeeded(results)), logger.Int("failed", len(results)-Succeeded(results)))
	return results
}

func (s *Scraper) login(ctx context.Context, session fetch.Session, log logger.Logger) bool {
	authCtx, cancel := context.WithTimeout(ctx, s.authTimeout)
	defer cancel()

	err := session.Login(authCtx)
	switch {
	case err == nil:
		s.recorder.ObserveLogin(LoginSuccess)
		log.Info("上流サービスにログインしました")
		return true
	case errors.Is(err, twitter.ErrNoCredentials):
		s.recorder.ObserveLogin(LoginAnonymous)
		log.Warn("認証情報が未設定のため、匿名で続行します")
	default:
		s.recorder.ObserveLogin(LoginFailure)
		log.Warn("ログインに失敗しました。匿名で続行します", logger.Error(err))
	}
	return false
}

// logout は呼び出し元のコンテキストがキャンセル済みでも実行します。失敗はログに残すだけです。
func (s *Scraper) logout(ctx context.Context, session fetch.Session, log logger.Logger) {
	authCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.authTimeout)
	defer cancel()

	if err := session.Logout(authCtx); err != nil {
		log.Warn("ログアウトに失敗しました", logger.Error(err))
	}
}

// process は1件のURLを分類・取得・正規化します。パニックはこのURLのエラーとして扱います。
func (s *Scraper) process(ctx context.Context, adapter *fetch.Adapter, rawURL string, log logger.Logger) (res Result) {
	start := time.Now()
	c := classify.Classify(rawURL)
	res = Result{URL: rawURL, Category: c.Category}

	defer func() {
		if r := recover(); r != nil {
			log.Error("URLの処理中にパニックが発生しました", logger.String("url", rawURL), logger.Any("panic", r))
			res = failed(rawURL, c.Category, fmt.Errorf("panic: %v", r))
		}
		s.recorder.ObserveResult(c.Category, res.Outcome(), time.Since(start))
	}()

	rec, err := adapter.Fetch(ctx, c)
	if err != nil {
		log.Warn("コンテンツの取得に失敗しました",
			logger.String("url", rawURL),
			logger.String("category", c.Category.String()),
			logger.Error(err),
		)
		return failed(rawURL, c.Category, err)
	}

	out, err := normalize.Normalize(rec)
	if err != nil {
		log.Warn("取得結果が空でした", logger.String("url", rawURL), logger.String("category", c.Category.String()))
		return Result{URL: rawURL, Category: c.Category, Error: EmptyContentMessage, Empty: true}
	}
	res.Content = out
	log.Debug("URLを処理しました", logger.String("url", rawURL), logger.String("category", c.Category.String()))
	return res
}

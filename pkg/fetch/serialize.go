package fetch

import (
	"context"

	"github.com/shouni/go-x-scraper/pkg/twitter"
)

// serialSession は、1つのセッションへの呼び出しを同時に1つまでに制限します。
type serialSession struct {
	sem     chan struct{}
	session Session
}

// Serialize は、session への呼び出しを直列化するラッパーを返します。
// 待機中にコンテキストが終了した場合はそのエラーを返します。
func Serialize(session Session) Session {
	if s, ok := session.(*serialSession); ok {
		return s
	}
	return &serialSession{sem: make(chan struct{}, 1), session: session}
}

func (s *serialSession) acquire(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *serialSession) release() {
	<-s.sem
}

func (s *serialSession) Login(ctx context.Context) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()
	return s.session.Login(ctx)
}

func (s *serialSession) Logout(ctx context.Context) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()
	return s.session.Logout(ctx)
}

func (s *serialSession) GetTweet(ctx context.Context, id string) (*twitter.Tweet, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	defer s.release()
	return s.session.GetTweet(ctx, id)
}

func (s *serialSession) GetProfile(ctx context.Context, username string) (*twitter.Profile, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	defer s.release()
	return s.session.GetProfile(ctx, username)
}

// Package fetchtest は fetch.Session のテスト用モックを提供します。
package fetchtest

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/shouni/go-x-scraper/pkg/twitter"
)

// MockSession は testify/mock による fetch.Session の実装です。
type MockSession struct {
	mock.Mock
}

func (m *MockSession) Login(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockSession) Logout(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockSession) GetTweet(ctx context.Context, id string) (*twitter.Tweet, error) {
	args := m.Called(ctx, id)
	tweet, _ := args.Get(0).(*twitter.Tweet)
	return tweet, args.Error(1)
}

func (m *MockSession) GetProfile(ctx context.Context, username string) (*twitter.Profile, error) {
	args := m.Called(ctx, username)
	profile, _ := args.Get(0).(*twitter.Profile)
	return profile, args.Error(1)
}

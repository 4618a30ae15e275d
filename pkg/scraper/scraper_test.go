package scraper_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/shouni/go-x-scraper/pkg/fetch"
	"github.com/shouni/go-x-scraper/pkg/fetch/fetchtest"
	"github.com/shouni/go-x-scraper/pkg/normalize"
	"github.com/shouni/go-x-scraper/pkg/scraper"
	"github.com/shouni/go-x-scraper/pkg/twitter"
	"github.com/shouni/go-x-scraper/pkg/types"
)

func ptr[T any](v T) *T { return &v }

func newScraper(t *testing.T, session fetch.Session, opts ...scraper.Option) *scraper.Scraper {
	t.Helper()
	s, err := scraper.New(func() fetch.Session { return session }, opts...)
	require.NoError(t, err)
	return s
}

type recorder struct {
	mu       sync.Mutex
	batches  []int
	logins   []string
	outcomes map[types.Category][]string
}

func (r *recorder) ObserveBatch(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, n)
}

func (r *recorder) ObserveLogin(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logins = append(r.logins, outcome)
}

func (r *recorder) ObserveResult(c types.Category, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcomes == nil {
		r.outcomes = map[types.Category][]string{}
	}
	r.outcomes[c] = append(r.outcomes[c], outcome)
}

func TestNew(t *testing.T) {
	_, err := scraper.New(nil)
	assert.Error(t, err)
}

func TestRun_OrderWhenFirstFails(t *testing.T) {
	session := new(fetchtest.MockSession)
	session.On("Login", mock.Anything).Return(nil).Once()
	session.On("GetTweet", mock.Anything, "1").Return(nil, errors.New("upstream exploded")).Once()
	session.On("GetProfile", mock.Anything, "jack").Return(&twitter.Profile{Username: ptr("jack")}, nil).Once()
	session.On("Logout", mock.Anything).Return(nil).Once()

	results := newScraper(t, session).Run(context.Background(), []string{
		"https://x.com/a/status/1",
		"https://twitter.com/jack",
	})

	require.Len(t, results, 2)
	assert.Equal(t, "https://x.com/a/status/1", results[0].URL)
	assert.Equal(t, types.CategoryTweet, results[0].Category)
	assert.Equal(t, "upstream exploded", results[0].Error)
	assert.Nil(t, results[0].Content)

	assert.Equal(t, types.CategoryProfile, results[1].Category)
	require.True(t, results[1].OK())
	rec, ok := results[1].Content.(*normalize.Record)
	require.True(t, ok)
	v, _ := rec.Get("username")
	assert.Equal(t, "jack", v)

	session.AssertExpectations(t)
}

func TestRun_MalformedURL(t *testing.T) {
	session := new(fetchtest.MockSession)
	session.On("Login", mock.Anything).Return(twitter.ErrNoCredentials).Once()
	session.On("GetProfile", mock.Anything, "jack").Return(&twitter.Profile{}, nil).Once()

	results := newScraper(t, session).Run(context.Background(), []string{
		"https://x.com/home",
		"ht!tp://%zz",
		"https://x.com/jack",
	})

	require.Len(t, results, 3)
	assert.Equal(t, normalize.Text("Generic Twitter page (home). No specific content to scrape."), results[0].Content)
	assert.Equal(t, types.CategoryUnknown, results[1].Category)
	assert.Equal(t, normalize.Text(fetch.UnknownPlaceholder), results[1].Content)
	assert.True(t, results[2].OK())

	// 匿名で実行した場合はログアウトしない
	session.AssertNotCalled(t, "Logout", mock.Anything)
	session.AssertExpectations(t)
}

func TestRun_LoginFailureContinues(t *testing.T) {
	session := new(fetchtest.MockSession)
	session.On("Login", mock.Anything).Return(twitter.ErrLoginFailed).Once()
	session.On("GetTweet", mock.Anything, "20").Return(&twitter.Tweet{ID: "20"}, nil).Once()

	rec := &recorder{}
	results := newScraper(t, session, scraper.WithRecorder(rec)).Run(context.Background(), []string{"https://x.com/jack/status/20"})

	require.Len(t, results, 1)
	assert.True(t, results[0].OK())
	assert.Equal(t, []string{scraper.LoginFailure}, rec.logins)
	assert.Equal(t, []int{1}, rec.batches)
	assert.Equal(t, []string{scraper.OutcomeSuccess}, rec.outcomes[types.CategoryTweet])
	session.AssertNotCalled(t, "Logout", mock.Anything)
}

func TestRun_EmptyRecord(t *testing.T) {
	session := new(fetchtest.MockSession)
	session.On("Login", mock.Anything).Return(nil).Once()
	session.On("GetTweet", mock.Anything, "5").Return(nil, nil).Once()
	session.On("Logout", mock.Anything).Return(errors.New("logout failed")).Once()

	results := newScraper(t, session).Run(context.Background(), []string{"https://x.com/a/status/5"})

	require.Len(t, results, 1)
	assert.True(t, results[0].Empty)
	assert.Equal(t, scraper.EmptyContentMessage, results[0].Error)
	assert.Equal(t, scraper.OutcomeEmpty, results[0].Outcome())
	session.AssertExpectations(t)
}

func TestRun_Panic(t *testing.T) {
	session := new(fetchtest.MockSession)
	session.On("Login", mock.Anything).Return(twitter.ErrNoCredentials).Once()
	session.On("GetTweet", mock.Anything, "9").Run(func(mock.Arguments) { panic("boom") }).Return(nil, nil).Once()
	session.On("GetProfile", mock.Anything, "jack").Return(&twitter.Profile{}, nil).Once()

	results := newScraper(t, session).Run(context.Background(), []string{
		"https://x.com/a/status/9",
		"https://x.com/jack",
	})

	require.Len(t, results, 2)
	assert.Equal(t, "panic: boom", results[0].Error)
	assert.True(t, results[1].OK())
}

func TestRun_Empty(t *testing.T) {
	s, err := scraper.New(func() fetch.Session {
		t.Fatal("session must not be created for an empty batch")
		return nil
	})
	require.NoError(t, err)
	assert.Empty(t, s.Run(context.Background(), nil))
}

func TestRun_ConcurrencyKeepsOrder(t *testing.T) {
	session := new(fetchtest.MockSession)
	session.On("Login", mock.Anything).Return(nil).Once()
	session.On("Logout", mock.Anything).Return(nil).Once()
	ids := []string{"1", "2", "3", "4", "5", "6"}
	urls := make([]string, len(ids))
	for i, id := range ids {
		urls[i] = "https://x.com/a/status/" + id
		delay := time.Duration(len(ids)-i) * time.Millisecond
		session.On("GetTweet", mock.Anything, id).
			Run(func(mock.Arguments) { time.Sleep(delay) }).
			Return(&twitter.Tweet{ID: id}, nil).Once()
	}

	results := newScraper(t, session, scraper.WithConcurrency(4)).Run(context.Background(), urls)

	require.Len(t, results, len(ids))
	for i, id := range ids {
		assert.Equal(t, urls[i], results[i].URL)
		rec, ok := results[i].Content.(*normalize.Record)
		require.True(t, ok)
		v, _ := rec.Get("id")
		assert.Equal(t, id, v)
	}
	assert.Equal(t, len(ids), scraper.Succeeded(results))
	session.AssertExpectations(t)
}

func TestResult_MarshalJSON(t *testing.T) {
	testCases := []struct {
		name     string
		result   scraper.Result
		expected string
	}{
		{
			name:     "content",
			result:   scraper.Result{URL: "u", Category: types.CategoryGeneric, Content: normalize.Text("page")},
			expected: `{"url":"u","category":"Generic","content":"page"}`,
		},
		{
			name:     "error",
			result:   scraper.Result{URL: "u", Category: types.CategoryTweet, Error: "Could not extract Tweet ID."},
			expected: `{"url":"u","category":"Tweet","error":"Could not extract Tweet ID."}`,
		},
		{
			name:     "empty",
			result:   scraper.Result{URL: "u", Category: types.CategoryTweet, Error: scraper.EmptyContentMessage, Empty: true},
			expected: `{"url":"u","category":"Tweet","content":null,"error":"Scraped content was unexpectedly empty."}`,
		},
		{
			name:     "nothing set",
			result:   scraper.Result{URL: "u", Category: types.CategoryProfile},
			expected: `{"url":"u","category":"Profile","content":null,"error":"Scraped content was unexpectedly empty."}`,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := json.Marshal(tc.result)
			require.NoError(t, err)
			assert.JSONEq(t, tc.expected, string(b))
		})
	}
}

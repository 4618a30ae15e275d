package classify_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shouni/go-x-scraper/pkg/classify"
	"github.com/shouni/go-x-scraper/pkg/types"
)

func TestClassify(t *testing.T) {
	testCases := []struct {
		name       string
		url        string
		category   types.Category
		identifier string
	}{
		// ポスト
		{"tweet_on_x", "https://x.com/jack/status/20", types.CategoryTweet, "20"},
		{"tweet_with_trailing_segments", "https://twitter.com/jack/status/20/photo/1", types.CategoryTweet, "20"},
		{"tweet_with_www", "https://www.x.com/jack/status/1234567890", types.CategoryTweet, "1234567890"},
		{"status_id_not_digits", "https://x.com/jack/status/abc", types.CategoryUnknown, ""},

		// プロフィール
		{"profile_on_twitter", "https://twitter.com/jack", types.CategoryProfile, "jack"},
		{"profile_trailing_slash", "https://x.com/jack/", types.CategoryProfile, "jack"},
		{"profile_with_query", "https://x.com/Jack_01?lang=ja", types.CategoryProfile, "Jack_01"},
		{"handle_too_long", "https://x.com/abcdefghijklmnop", types.CategoryUnknown, ""},
		{"handle_with_dash", "https://x.com/not-a-handle", types.CategoryUnknown, ""},
		{"reserved_search", "https://x.com/search", types.CategoryUnknown, ""},
		{"reserved_i", "https://x.com/i", types.CategoryUnknown, ""},

		// コミュニティ
		{"community", "https://x.com/i/communities/123", types.CategoryCommunity, "123"},
		{"community_subpage", "https://x.com/i/communities/123/about", types.CategoryCommunity, "123"},
		{"community_without_id", "https://x.com/i/communities", types.CategoryUnknown, ""},

		// 汎用ページ
		{"generic_home", "https://x.com/home", types.CategoryGeneric, "home"},
		{"generic_explore", "https://twitter.com/explore", types.CategoryGeneric, "explore"},
		{"explore_tabs", "https://x.com/explore/tabs", types.CategoryUnknown, ""},
		{"settings_subpage", "https://twitter.com/settings/account", types.CategoryUnknown, ""},

		// 不明
		{"other_host", "https://example.com/jack/status/20", types.CategoryUnknown, ""},
		{"subdomain", "https://mobile.twitter.com/jack", types.CategoryUnknown, ""},
		{"lookalike_host", "https://x.com.evil.io/jack", types.CategoryUnknown, ""},
		{"root_path", "https://x.com/", types.CategoryUnknown, ""},
		{"no_scheme", "x.com/jack", types.CategoryUnknown, ""},
		{"malformed", "ht!tp://%zz", types.CategoryUnknown, ""},
		{"empty", "", types.CategoryUnknown, ""},
		{"two_segments", "https://x.com/jack/likes", types.CategoryUnknown, ""},
		{"escaped_slashes", "https://x.com/jack%2Fstatus%2F20", types.CategoryUnknown, ""},
		{"escaped_handle", "https://x.com/%6Aack", types.CategoryUnknown, ""},
		{"escaped_status_id", "https://x.com/jack/status/%32%30", types.CategoryUnknown, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := classify.Classify(tc.url)

			assert.Equal(t, tc.url, got.OriginalURL)
			assert.Equal(t, tc.category, got.Category)
			assert.Equal(t, tc.identifier, got.Identifier)
			if tc.category == types.CategoryUnknown {
				assert.False(t, got.HasIdentifier())
			}
		})
	}
}

func TestClassify_Idempotent(t *testing.T) {
	for _, u := range []string{
		"https://x.com/jack/status/20",
		"https://twitter.com/jack",
		"not a url",
	} {
		assert.Equal(t, classify.Classify(u), classify.Classify(u), u)
	}
}

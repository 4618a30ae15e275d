package twitter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tweetFixture = `{
  "data": {
    "tweetResult": {
      "result": {
        "__typename": "Tweet",
        "rest_id": "20",
        "source": "<a href=\"https://mobile.twitter.com\" rel=\"nofollow\">Twitter Web App</a>",
        "views": {"count": "1234", "state": "EnabledWithCount"},
        "core": {
          "user_results": {
            "result": {
              "__typename": "User",
              "rest_id": "12",
              "legacy": {"screen_name": "jack", "name": "jack", "pinned_tweet_ids_str": ["20"]}
            }
          }
        },
        "card": {
          "rest_id": "card://1",
          "legacy": {
            "name": "poll2choice_text_only",
            "binding_values": [
              {"key": "choice1_label", "value": {"string_value": "Yes", "type": "STRING"}},
              {"key": "choice1_count", "value": {"string_value": "10", "type": "STRING"}},
              {"key": "choice2_label", "value": {"string_value": "No", "type": "STRING"}},
              {"key": "duration_minutes", "value": {"string_value": "1440", "type": "STRING"}},
              {"key": "end_datetime_utc", "value": {"string_value": "2006-03-22T20:50:14Z", "type": "STRING"}},
              {"key": "counts_are_final", "value": {"boolean_value": true, "type": "BOOLEAN"}}
            ]
          }
        },
        "legacy": {
          "full_text": "just setting up my twttr @biz #first https://t.co/x",
          "created_at": "Tue Mar 21 20:50:14 +0000 2006",
          "conversation_id_str": "20",
          "user_id_str": "12",
          "favorite_count": 250000,
          "retweet_count": 120000,
          "quote_count": 0,
          "reply_count": 17000,
          "bookmark_count": 3000,
          "is_quote_status": false,
          "possibly_sensitive": false,
          "entities": {
            "hashtags": [{"text": "first"}],
            "user_mentions": [{"id_str": "13", "screen_name": "biz", "name": "Biz Stone"}],
            "urls": [{"expanded_url": "https://example.com/"}]
          },
          "extended_entities": {
            "media": [
              {"id_str": "m1", "type": "photo", "media_url_https": "https://pbs.twimg.com/media/a.jpg", "ext_alt_text": "alt"},
              {"id_str": "m2", "type": "video", "media_url_https": "https://pbs.twimg.com/thumb.jpg",
               "video_info": {"variants": [
                 {"content_type": "application/x-mpegURL", "url": "https://video.twimg.com/pl.m3u8"},
                 {"bitrate": 256000, "content_type": "video/mp4", "url": "https://video.twimg.com/low.mp4"},
                 {"bitrate": 2176000, "content_type": "video/mp4", "url": "https://video.twimg.com/high.mp4"}
               ]}}
            ]
          },
          "place": {"id": "p1", "name": "San Francisco", "full_name": "San Francisco, CA", "place_type": "city", "country": "United States", "country_code": "US"}
        }
      }
    }
  }
}`

const profileFixture = `{
  "data": {
    "user": {
      "result": {
        "__typename": "User",
        "rest_id": "12",
        "is_blue_verified": true,
        "legacy": {
          "screen_name": "jack",
          "name": "jack",
          "description": "no state is the best state",
          "location": "",
          "profile_image_url_https": "https://pbs.twimg.com/profile_images/1/a_normal.jpg",
          "created_at": "Tue Mar 21 20:50:14 +0000 2006",
          "followers_count": 6000000,
          "friends_count": 3,
          "statuses_count": 30000,
          "media_count": 2000,
          "listed_count": 25000,
          "favourites_count": 35000,
          "verified": false,
          "protected": false,
          "pinned_tweet_ids_str": ["20"],
          "entities": {"url": {"urls": [{"expanded_url": "https://block.xyz"}]}}
        }
      }
    }
  }
}`

// fakeUpstream は上流APIの最小限の振る舞いを再現するテスト用サーバーです。
type fakeUpstream struct {
	t *testing.T

	mu           sync.Mutex
	guestCalls   int
	logoutCalls  int
	loginSteps   []string
	requireEmail bool
	lastHeaders  http.Header
}

func (f *fakeUpstream) headers() http.Header {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastHeaders
}

func (f *fakeUpstream) counts() (guest, logout int, steps []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.guestCalls, f.logoutCalls, append([]string(nil), f.loginSteps...)
}

func (f *fakeUpstream) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/1.1/guest/activate.json", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.guestCalls++
		f.mu.Unlock()
		assert.Equal(f.t, http.MethodPost, r.Method)
		assert.Equal(f.t, "Bearer "+DefaultBearerToken, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"guest_token":"gt-1"}`))
	})

	mux.HandleFunc("/1.1/onboarding/task.json", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			FlowToken     string `json:"flow_token"`
			SubtaskInputs []struct {
				SubtaskID string `json:"subtask_id"`
			} `json:"subtask_inputs"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		next := ""
		if r.URL.Query().Get("flow_name") == "login" {
			next = subtaskJSInstrumentation
		} else {
			// 成功サブタスクへの応答は入力なしで送られる
			current := subtaskLoginSuccess
			if len(body.SubtaskInputs) > 0 {
				current = body.SubtaskInputs[0].SubtaskID
			}
			f.mu.Lock()
			f.loginSteps = append(f.loginSteps, current)
			f.mu.Unlock()
			switch current {
			case subtaskJSInstrumentation:
				next = subtaskEnterUserIdentifier
			case subtaskEnterUserIdentifier:
				if f.requireEmail {
					next = subtaskEnterAlternateID
				} else {
					next = subtaskEnterPassword
				}
			case subtaskEnterAlternateID:
				next = subtaskEnterPassword
			case subtaskEnterPassword:
				next = subtaskAccountDuplication
			case subtaskAccountDuplication:
				http.SetCookie(w, &http.Cookie{Name: "ct0", Value: "csrf-1", Path: "/"})
				http.SetCookie(w, &http.Cookie{Name: "auth_token", Value: "auth-1", Path: "/"})
				next = subtaskLoginSuccess
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if next == "" {
			_, _ = w.Write([]byte(`{"flow_token":"done","status":"success","subtasks":[]}`))
			return
		}
		_, _ = w.Write([]byte(`{"flow_token":"f","status":"success","subtasks":[{"subtask_id":"` + next + `"}]}`))
	})

	mux.HandleFunc("/1.1/account/logout.json", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.logoutCalls++
		f.mu.Unlock()
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.HandleFunc("/graphql/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.lastHeaders = r.Header.Clone()
		f.mu.Unlock()

		var vars map[string]any
		assert.NoError(f.t, json.Unmarshal([]byte(r.URL.Query().Get("variables")), &vars))

		switch {
		case strings.HasSuffix(r.URL.Path, "/TweetResultByRestId"):
			switch vars["tweetId"] {
			case "20":
				_, _ = w.Write([]byte(tweetFixture))
			case "404":
				_, _ = w.Write([]byte(`{"data":{"tweetResult":{"result":{"__typename":"TweetTombstone","reason":"Deleted"}}}}`))
			case "500":
				http.Error(w, "boom", http.StatusInternalServerError)
			default:
				_, _ = w.Write([]byte(`{"data":{"tweetResult":{}}}`))
			}
		case strings.HasSuffix(r.URL.Path, "/UserByScreenName"):
			switch vars["screen_name"] {
			case "jack":
				_, _ = w.Write([]byte(profileFixture))
			case "suspended":
				_, _ = w.Write([]byte(`{"data":{"user":{"result":{"__typename":"UserUnavailable","reason":"Suspended"}}}}`))
			default:
				_, _ = w.Write([]byte(`{"data":{}}`))
			}
		default:
			http.NotFound(w, r)
		}
	})

	return mux
}

func newTestClient(t *testing.T, creds Credentials, requireEmail bool) (*Client, *fakeUpstream) {
	t.Helper()
	f := &fakeUpstream{t: t, requireEmail: requireEmail}
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)

	c := New(Config{
		Credentials: creds,
		APIBase:     srv.URL,
		GraphQLBase: srv.URL + "/graphql/",
		HTTPTimeout: 5 * time.Second,
	})
	return c, f
}

func TestGetTweet(t *testing.T) {
	c, f := newTestClient(t, Credentials{}, false)

	tweet, err := c.GetTweet(context.Background(), "20")
	require.NoError(t, err)
	require.NotNil(t, tweet)

	assert.Equal(t, "20", tweet.ID)
	assert.Equal(t, "jack", *tweet.Username)
	assert.Equal(t, "12", *tweet.UserID)
	assert.Equal(t, "https://x.com/jack/status/20", *tweet.PermanentURL)
	assert.Equal(t, "just setting up my twttr @biz #first https://t.co/x", *tweet.Text)
	assert.True(t, time.Date(2006, 3, 21, 20, 50, 14, 0, time.UTC).Equal(*tweet.TimeParsed))
	assert.Equal(t, int64(1142974214), *tweet.Timestamp)
	assert.Equal(t, int64(250000), *tweet.Likes)
	assert.Equal(t, int64(0), *tweet.Quotes)
	assert.Equal(t, int64(1234), *tweet.Views)
	assert.False(t, *tweet.IsRetweet)
	assert.False(t, *tweet.IsReply)
	assert.True(t, *tweet.IsPin)
	assert.Equal(t, []string{"first"}, tweet.Hashtags)
	assert.Equal(t, []string{"https://example.com/"}, tweet.URLs)
	require.Len(t, tweet.Mentions, 1)
	assert.Equal(t, "biz", *tweet.Mentions[0].Username)
	require.Len(t, tweet.Photos, 1)
	assert.Equal(t, "https://pbs.twimg.com/media/a.jpg", tweet.Photos[0].URL)
	require.Len(t, tweet.Videos, 1)
	assert.Equal(t, "https://video.twimg.com/high.mp4", *tweet.Videos[0].URL)
	require.NotNil(t, tweet.Place)
	assert.Equal(t, "San Francisco, CA", *tweet.Place.FullName)
	require.NotNil(t, tweet.Poll)
	require.Len(t, tweet.Poll.Options, 2)
	assert.Equal(t, "Yes", tweet.Poll.Options[0].Label)
	assert.Equal(t, int64(10), *tweet.Poll.Options[0].Votes)
	assert.Nil(t, tweet.Poll.Options[1].Votes)
	assert.Equal(t, int64(1440), *tweet.Poll.DurationMinutes)
	assert.Equal(t, "closed", *tweet.Poll.VotingStatus)
	assert.Equal(t, "Twitter Web App", *tweet.Source)

	// 匿名アクセスではゲストトークンを使う
	assert.Equal(t, "gt-1", f.headers().Get("X-Guest-Token"))
	guest, _, _ := f.counts()
	assert.Equal(t, 1, guest)

	// ゲストトークンは使い回す
	_, err = c.GetTweet(context.Background(), "20")
	require.NoError(t, err)
	guest, _, _ = f.counts()
	assert.Equal(t, 1, guest)
}

func TestGetTweet_Missing(t *testing.T) {
	c, _ := newTestClient(t, Credentials{}, false)

	t.Run("tombstone is an error", func(t *testing.T) {
		tweet, err := c.GetTweet(context.Background(), "404")
		require.ErrorIs(t, err, ErrNotFound)
		assert.Nil(t, tweet)
		assert.Contains(t, err.Error(), "tweet 404 is deleted")
	})

	t.Run("empty result yields nil record", func(t *testing.T) {
		tweet, err := c.GetTweet(context.Background(), "1")
		require.NoError(t, err)
		assert.Nil(t, tweet)
	})

	t.Run("server error is passed through", func(t *testing.T) {
		_, err := c.GetTweet(context.Background(), "500")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "upstream server error 500")
	})
}

func TestGetProfile(t *testing.T) {
	c, _ := newTestClient(t, Credentials{}, false)

	profile, err := c.GetProfile(context.Background(), "jack")
	require.NoError(t, err)
	require.NotNil(t, profile)

	assert.Equal(t, "12", *profile.UserID)
	assert.Equal(t, "jack", *profile.Username)
	assert.Equal(t, "no state is the best state", *profile.Biography)
	assert.Nil(t, profile.Location)
	assert.Nil(t, profile.Banner)
	assert.Equal(t, "https://pbs.twimg.com/profile_images/1/a.jpg", *profile.Avatar)
	assert.Equal(t, "https://block.xyz", *profile.Website)
	assert.Equal(t, "https://x.com/jack", *profile.URL)
	assert.Equal(t, int64(6000000), *profile.FollowersCount)
	assert.Equal(t, int64(3), *profile.FollowingCount)
	assert.True(t, *profile.IsBlueVerified)
	assert.Equal(t, []string{"20"}, profile.PinnedTweetIDs)

	_, err = c.GetProfile(context.Background(), "suspended")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = c.GetProfile(context.Background(), "nobody")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLogin(t *testing.T) {
	t.Run("no credentials", func(t *testing.T) {
		c, _ := newTestClient(t, Credentials{}, false)
		err := c.Login(context.Background())
		assert.ErrorIs(t, err, ErrNoCredentials)
		assert.False(t, c.IsLoggedIn())
	})

	t.Run("full flow then authenticated requests", func(t *testing.T) {
		c, f := newTestClient(t, Credentials{Username: "user", Password: "pass", Email: "user@example.com"}, true)

		require.NoError(t, c.Login(context.Background()))
		assert.True(t, c.IsLoggedIn())
		_, _, steps := f.counts()
		assert.Equal(t, []string{
			subtaskJSInstrumentation,
			subtaskEnterUserIdentifier,
			subtaskEnterAlternateID,
			subtaskEnterPassword,
			subtaskAccountDuplication,
			subtaskLoginSuccess,
		}, steps)

		_, err := c.GetProfile(context.Background(), "jack")
		require.NoError(t, err)
		assert.Equal(t, "OAuth2Session", f.headers().Get("X-Twitter-Auth-Type"))
		assert.Equal(t, "csrf-1", f.headers().Get("X-Csrf-Token"))
		assert.Empty(t, f.headers().Get("X-Guest-Token"))

		require.NoError(t, c.Logout(context.Background()))
		assert.False(t, c.IsLoggedIn())
		_, logouts, _ := f.counts()
		assert.Equal(t, 1, logouts)
	})

	t.Run("alternate identifier without email fails", func(t *testing.T) {
		c, _ := newTestClient(t, Credentials{Username: "user", Password: "pass"}, true)

		err := c.Login(context.Background())
		assert.ErrorIs(t, err, ErrLoginFailed)
		assert.False(t, c.IsLoggedIn())
	})
}

func TestLogout_NotLoggedIn(t *testing.T) {
	c, f := newTestClient(t, Credentials{}, false)
	require.NoError(t, c.Logout(context.Background()))
	_, logouts, _ := f.counts()
	assert.Equal(t, 0, logouts)
}

func TestLoginSubtaskInput(t *testing.T) {
	creds := Credentials{Username: "u", Password: "p"}

	_, _, err := loginSubtaskInput(subtaskTwoFactorChallenge, creds)
	assert.ErrorIs(t, err, ErrLoginFailed)

	_, _, err = loginSubtaskInput(subtaskDenyLogin, creds)
	assert.ErrorIs(t, err, ErrLoginFailed)

	_, _, err = loginSubtaskInput("SomethingNew", creds)
	assert.ErrorContains(t, err, "SomethingNew")

	input, done, err := loginSubtaskInput(subtaskLoginSuccess, creds)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Empty(t, input)
}

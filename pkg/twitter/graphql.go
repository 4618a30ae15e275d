package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// graphQLOperation は Web クライアントが使う GraphQL 永続クエリです。
type graphQLOperation struct {
	queryID  string
	name     string
	features map[string]bool
}

var defaultFeatures = map[string]bool{
	"creator_subscriptions_tweet_preview_api_enabled":                         true,
	"communities_web_enable_tweet_community_results_fetch":                    true,
	"c9s_tweet_anatomy_moderator_badge_enabled":                               true,
	"articles_preview_enabled":                                                true,
	"tweetypie_unmention_optimization_enabled":                                true,
	"responsive_web_edit_tweet_api_enabled":                                   true,
	"graphql_is_translatable_rweb_tweet_is_translatable_enabled":              true,
	"view_counts_everywhere_api_enabled":                                      true,
	"longform_notetweets_consumption_enabled":                                 true,
	"responsive_web_twitter_article_tweet_consumption_enabled":                true,
	"tweet_awards_web_tipping_enabled":                                        false,
	"creator_subscriptions_quote_tweet_preview_enabled":                       false,
	"freedom_of_speech_not_reach_fetch_enabled":                               true,
	"standardized_nudges_misinfo":                                             true,
	"tweet_with_visibility_results_prefer_gql_limited_actions_policy_enabled": true,
	"rweb_video_timestamps_enabled":                                           true,
	"longform_notetweets_rich_text_read_enabled":                              true,
	"longform_notetweets_inline_media_enabled":                                true,
	"rweb_tipjar_consumption_enabled":                                         true,
	"responsive_web_graphql_exclude_directive_enabled":                        true,
	"verified_phone_label_enabled":                                            false,
	"responsive_web_graphql_skip_user_profile_image_extensions_enabled":       false,
	"responsive_web_graphql_timeline_navigation_enabled":                      true,
	"responsive_web_enhance_cards_enabled":                                    false,
	"hidden_profile_subscriptions_enabled":                                    true,
	"highlights_tweets_tab_ui_enabled":                                        true,
	"subscriptions_verification_info_is_identity_verified_enabled":            true,
	"subscriptions_verification_info_verified_since_enabled":                  true,
	"responsive_web_twitter_article_notes_tab_enabled":                        true,
}

var (
	opTweetResultByRestID = graphQLOperation{queryID: "Xl5pC_lBk_gcO2ItU39DQw", name: "TweetResultByRestId", features: defaultFeatures}
	opUserByScreenName    = graphQLOperation{queryID: "G3KGOASz96M-Qu0nwmGXNg", name: "UserByScreenName", features: defaultFeatures}
)

// --- レスポンス構造 (必要な項目のみ) ---

type tweetResultResponse struct {
	Data struct {
		TweetResult struct {
			Result *tweetResult `json:"result"`
		} `json:"tweetResult"`
	} `json:"data"`
	Errors []apiError `json:"errors"`
}

type userResultResponse struct {
	Data struct {
		User struct {
			Result *userResult `json:"result"`
		} `json:"user"`
	} `json:"data"`
	Errors []apiError `json:"errors"`
}

type tweetResult struct {
	Typename string       `json:"__typename"`
	RestID   string       `json:"rest_id"`
	Reason   string       `json:"reason"`
	Tweet    *tweetResult `json:"tweet"` // TweetWithVisibilityResults の場合の中身
	Core     struct {
		UserResults struct {
			Result *userResult `json:"result"`
		} `json:"user_results"`
	} `json:"core"`
	Legacy *tweetLegacy `json:"legacy"`
	Views  struct {
		Count string `json:"count"`
	} `json:"views"`
	Source    string `json:"source"`
	NoteTweet struct {
		NoteTweetResults struct {
			Result struct {
				Text string `json:"text"`
			} `json:"result"`
		} `json:"note_tweet_results"`
	} `json:"note_tweet"`
	Card *card `json:"card"`
}

type tweetLegacy struct {
	FullText              string `json:"full_text"`
	CreatedAt             string `json:"created_at"`
	ConversationIDStr     string `json:"conversation_id_str"`
	UserIDStr             string `json:"user_id_str"`
	InReplyToStatusIDStr  string `json:"in_reply_to_status_id_str"`
	InReplyToUserIDStr    string `json:"in_reply_to_user_id_str"`
	QuotedStatusIDStr     string `json:"quoted_status_id_str"`
	IsQuoteStatus         *bool  `json:"is_quote_status"`
	FavoriteCount         *int64 `json:"favorite_count"`
	RetweetCount          *int64 `json:"retweet_count"`
	QuoteCount            *int64 `json:"quote_count"`
	ReplyCount            *int64 `json:"reply_count"`
	BookmarkCount         *int64 `json:"bookmark_count"`
	PossiblySensitive     *bool  `json:"possibly_sensitive"`
	RetweetedStatusResult struct {
		Result *tweetResult `json:"result"`
	} `json:"retweeted_status_result"`
	Entities         entities `json:"entities"`
	ExtendedEntities struct {
		Media []media `json:"media"`
	} `json:"extended_entities"`
	Place *place `json:"place"`
}

type entities struct {
	Hashtags []struct {
		Text string `json:"text"`
	} `json:"hashtags"`
	UserMentions []struct {
		IDStr      string `json:"id_str"`
		ScreenName string `json:"screen_name"`
		Name       string `json:"name"`
	} `json:"user_mentions"`
	URLs  []expandedURL `json:"urls"`
	Media []media       `json:"media"`
}

type expandedURL struct {
	ExpandedURL string `json:"expanded_url"`
}

type media struct {
	IDStr         string `json:"id_str"`
	Type          string `json:"type"`
	MediaURLHTTPS string `json:"media_url_https"`
	ExtAltText    string `json:"ext_alt_text"`
	VideoInfo     struct {
		Variants []struct {
			Bitrate     *int64 `json:"bitrate"`
			ContentType string `json:"content_type"`
			URL         string `json:"url"`
		} `json:"variants"`
	} `json:"video_info"`
}

type place struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	FullName    string `json:"full_name"`
	PlaceType   string `json:"place_type"`
	Country     string `json:"country"`
	CountryCode string `json:"country_code"`
}

type card struct {
	RestID string `json:"rest_id"`
	Legacy struct {
		Name          string `json:"name"`
		BindingValues []struct {
			Key   string `json:"key"`
			Value struct {
				StringValue  *string `json:"string_value"`
				BooleanValue *bool   `json:"boolean_value"`
			} `json:"value"`
		} `json:"binding_values"`
	} `json:"legacy"`
}

type userResult struct {
	Typename       string      `json:"__typename"`
	RestID         string      `json:"rest_id"`
	Reason         string      `json:"reason"`
	IsBlueVerified *bool       `json:"is_blue_verified"`
	Legacy         *userLegacy `json:"legacy"`
}

type userLegacy struct {
	ScreenName           string   `json:"screen_name"`
	Name                 string   `json:"name"`
	Description          string   `json:"description"`
	Location             string   `json:"location"`
	ProfileImageURLHTTPS string   `json:"profile_image_url_https"`
	ProfileBannerURL     string   `json:"profile_banner_url"`
	CreatedAt            string   `json:"created_at"`
	FollowersCount       *int64   `json:"followers_count"`
	FriendsCount         *int64   `json:"friends_count"`
	StatusesCount        *int64   `json:"statuses_count"`
	MediaCount           *int64   `json:"media_count"`
	ListedCount          *int64   `json:"listed_count"`
	FavouritesCount      *int64   `json:"favourites_count"`
	Verified             *bool    `json:"verified"`
	Protected            *bool    `json:"protected"`
	PinnedTweetIDsStr    []string `json:"pinned_tweet_ids_str"`
	Entities             struct {
		URL struct {
			URLs []expandedURL `json:"urls"`
		} `json:"url"`
	} `json:"entities"`
}

// graphQL は GraphQL クエリを GET で実行し、レスポンスを out にデコードします。
func (c *Client) graphQL(ctx context.Context, op graphQLOperation, variables map[string]any, out any) error {
	vars, err := json.Marshal(variables)
	if err != nil {
		return fmt.Errorf("encode variables: %w", err)
	}
	features, err := json.Marshal(op.features)
	if err != nil {
		return fmt.Errorf("encode features: %w", err)
	}

	q := url.Values{}
	q.Set("variables", string(vars))
	q.Set("features", string(features))
	endpoint := fmt.Sprintf("%s/%s/%s?%s", c.cfg.GraphQLBase, op.queryID, op.name, q.Encode())

	h, err := c.headers(ctx)
	if err != nil {
		return err
	}
	if err := c.http.GetJSON(ctx, endpoint, h, out); err != nil {
		c.invalidateGuestToken(err)
		return err
	}
	return nil
}

// GetTweet は ID を指定してポストを1件取得します。
// 上流が結果を返さなかった場合は (nil, nil) を返します。
func (c *Client) GetTweet(ctx context.Context, id string) (*Tweet, error) {
	var resp tweetResultResponse
	err := c.graphQL(ctx, opTweetResultByRestID, map[string]any{
		"tweetId":                id,
		"withCommunity":          false,
		"includePromotedContent": false,
		"withVoice":              false,
	}, &resp)
	if err != nil {
		return nil, err
	}

	result := resp.Data.TweetResult.Result
	if result == nil {
		if len(resp.Errors) > 0 {
			return nil, joinAPIErrors(resp.Errors)
		}
		return nil, nil
	}
	if result.Typename == "TweetWithVisibilityResults" && result.Tweet != nil {
		result = result.Tweet
	}
	switch result.Typename {
	case "TweetTombstone", "TweetUnavailable":
		reason := result.Reason
		if reason == "" {
			reason = "unavailable"
		}
		return nil, fmt.Errorf("%w: tweet %s is %s", ErrNotFound, id, strings.ToLower(reason))
	}

	return parseTweet(result), nil
}

// GetProfile はハンドル名を指定してアカウント情報を取得します。
func (c *Client) GetProfile(ctx context.Context, username string) (*Profile, error) {
	var resp userResultResponse
	err := c.graphQL(ctx, opUserByScreenName, map[string]any{
		"screen_name":              username,
		"withSafetyModeUserFields": true,
	}, &resp)
	if err != nil {
		return nil, err
	}

	result := resp.Data.User.Result
	if result == nil {
		if len(resp.Errors) > 0 {
			return nil, joinAPIErrors(resp.Errors)
		}
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, username)
	}
	if result.Typename == "UserUnavailable" {
		reason := result.Reason
		if reason == "" {
			reason = "unavailable"
		}
		return nil, fmt.Errorf("%w: user %s is %s", ErrNotFound, username, strings.ToLower(reason))
	}

	return parseProfile(result), nil
}

func joinAPIErrors(errs []apiError) error {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Message)
	}
	return fmt.Errorf("upstream error: %s", strings.Join(msgs, "; "))
}

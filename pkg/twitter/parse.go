package twitter

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// created_at の形式 (例: "Wed Oct 10 20:19:24 +0000 2018")
const createdAtLayout = time.RubyDate

// parseTweet は GraphQL の結果を Tweet に変換します。
func parseTweet(r *tweetResult) *Tweet {
	t := &Tweet{
		ID:     r.RestID,
		Source: clientName(r.Source),
	}

	var user *userLegacy
	if u := r.Core.UserResults.Result; u != nil && u.Legacy != nil {
		user = u.Legacy
		t.Username = optString(user.ScreenName)
		t.Name = optString(user.Name)
		t.UserID = optString(u.RestID)
	}

	if n, err := strconv.ParseInt(r.Views.Count, 10, 64); err == nil {
		t.Views = &n
	}

	if t.Username != nil && t.ID != "" {
		link := PermalinkBase + "/" + *t.Username + "/status/" + t.ID
		t.PermanentURL = &link
	}

	t.Poll = parsePoll(r.Card)

	l := r.Legacy
	if l == nil {
		return t
	}

	if t.ID == "" {
		t.ID = l.ConversationIDStr
	}
	if l.UserIDStr != "" {
		t.UserID = optString(l.UserIDStr)
	}
	t.ConversationID = optString(l.ConversationIDStr)

	text := l.FullText
	if note := r.NoteTweet.NoteTweetResults.Result.Text; note != "" {
		text = note
	}
	t.Text = optString(text)

	if ts, err := time.Parse(createdAtLayout, l.CreatedAt); err == nil {
		ts = ts.UTC()
		unix := ts.Unix()
		t.TimeParsed = &ts
		t.Timestamp = &unix
	}

	t.Likes = l.FavoriteCount
	t.Retweets = l.RetweetCount
	t.Quotes = l.QuoteCount
	t.Replies = l.ReplyCount
	t.BookmarkCount = l.BookmarkCount
	t.IsQuoted = l.IsQuoteStatus
	t.SensitiveContent = l.PossiblySensitive

	t.InReplyToStatusID = optString(l.InReplyToStatusIDStr)
	t.QuotedStatusID = optString(l.QuotedStatusIDStr)
	isReply := l.InReplyToStatusIDStr != ""
	t.IsReply = &isReply
	selfThread := isReply && l.InReplyToUserIDStr != "" && l.InReplyToUserIDStr == l.UserIDStr
	t.IsSelfThread = &selfThread

	isRetweet := false
	if rt := l.RetweetedStatusResult.Result; rt != nil {
		isRetweet = true
		id := rt.RestID
		if rt.Tweet != nil {
			id = rt.Tweet.RestID
		}
		t.RetweetedStatusID = optString(id)
	}
	t.IsRetweet = &isRetweet

	if user != nil {
		pinned := slices.Contains(user.PinnedTweetIDsStr, t.ID)
		t.IsPin = &pinned
	}

	for _, h := range l.Entities.Hashtags {
		t.Hashtags = append(t.Hashtags, h.Text)
	}
	for _, m := range l.Entities.UserMentions {
		t.Mentions = append(t.Mentions, Mention{
			ID:       m.IDStr,
			Username: optString(m.ScreenName),
			Name:     optString(m.Name),
		})
	}
	for _, u := range l.Entities.URLs {
		if u.ExpandedURL != "" {
			t.URLs = append(t.URLs, u.ExpandedURL)
		}
	}

	mediaList := l.ExtendedEntities.Media
	if len(mediaList) == 0 {
		mediaList = l.Entities.Media
	}
	t.Photos, t.Videos = parseMedia(mediaList)

	if p := l.Place; p != nil && p.ID != "" {
		t.Place = &Place{
			ID:          optString(p.ID),
			Name:        optString(p.Name),
			FullName:    optString(p.FullName),
			PlaceType:   optString(p.PlaceType),
			Country:     optString(p.Country),
			CountryCode: optString(p.CountryCode),
		}
	}

	return t
}

// parseMedia は添付メディアを画像と動画に振り分けます。
func parseMedia(list []media) ([]Photo, []Video) {
	var photos []Photo
	var videos []Video
	for _, m := range list {
		switch m.Type {
		case "photo":
			photos = append(photos, Photo{
				ID:      m.IDStr,
				URL:     m.MediaURLHTTPS,
				AltText: optString(m.ExtAltText),
			})
		case "video", "animated_gif":
			v := Video{ID: m.IDStr, Preview: m.MediaURLHTTPS}
			var best int64 = -1
			for _, variant := range m.VideoInfo.Variants {
				if variant.ContentType != "video/mp4" {
					continue
				}
				var rate int64
				if variant.Bitrate != nil {
					rate = *variant.Bitrate
				}
				if rate > best {
					best = rate
					v.URL = optString(variant.URL)
				}
			}
			videos = append(videos, v)
		}
	}
	return photos, videos
}

// parsePoll は投票カードを Poll に変換します。投票以外のカードは nil です。
func parsePoll(c *card) *Poll {
	if c == nil || !strings.HasPrefix(c.Legacy.Name, "poll") {
		return nil
	}

	values := make(map[string]string)
	var countsFinal *bool
	for _, b := range c.Legacy.BindingValues {
		if b.Value.StringValue != nil {
			values[b.Key] = *b.Value.StringValue
		}
		if b.Key == "counts_are_final" && b.Value.BooleanValue != nil {
			countsFinal = b.Value.BooleanValue
		}
	}

	p := &Poll{ID: optString(c.RestID)}
	for i := 1; i <= 4; i++ {
		label, ok := values["choice"+strconv.Itoa(i)+"_label"]
		if !ok {
			continue
		}
		opt := PollOption{Position: i, Label: label}
		if n, err := strconv.ParseInt(values["choice"+strconv.Itoa(i)+"_count"], 10, 64); err == nil {
			opt.Votes = &n
		}
		p.Options = append(p.Options, opt)
	}
	if n, err := strconv.ParseInt(values["duration_minutes"], 10, 64); err == nil {
		p.DurationMinutes = &n
	}
	p.EndDatetime = optString(values["end_datetime_utc"])
	if countsFinal != nil {
		status := "open"
		if *countsFinal {
			status = "closed"
		}
		p.VotingStatus = &status
	}
	return p
}

// parseProfile は GraphQL のユーザー結果を Profile に変換します。
func parseProfile(u *userResult) *Profile {
	p := &Profile{
		UserID:         optString(u.RestID),
		IsBlueVerified: u.IsBlueVerified,
	}

	l := u.Legacy
	if l == nil {
		return p
	}

	p.Username = optString(l.ScreenName)
	p.Name = optString(l.Name)
	p.Biography = optString(l.Description)
	p.Location = optString(l.Location)
	// _normal は48pxのサムネイル。元サイズの画像URLにする
	p.Avatar = optString(strings.Replace(l.ProfileImageURLHTTPS, "_normal", "", 1))
	p.Banner = optString(l.ProfileBannerURL)
	if len(l.Entities.URL.URLs) > 0 {
		p.Website = optString(l.Entities.URL.URLs[0].ExpandedURL)
	}
	if l.ScreenName != "" {
		link := PermalinkBase + "/" + l.ScreenName
		p.URL = &link
	}
	if ts, err := time.Parse(createdAtLayout, l.CreatedAt); err == nil {
		ts = ts.UTC()
		p.Joined = &ts
	}

	p.FollowersCount = l.FollowersCount
	p.FollowingCount = l.FriendsCount
	p.TweetsCount = l.StatusesCount
	p.MediaCount = l.MediaCount
	p.ListedCount = l.ListedCount
	p.LikesCount = l.FavouritesCount
	p.IsPrivate = l.Protected
	p.IsVerified = l.Verified
	p.PinnedTweetIDs = l.PinnedTweetIDsStr

	return p
}

// clientName は、source 欄のアンカータグ (例: <a href="...">Twitter Web App</a>) からクライアント名だけを取り出します。
func clientName(source string) *string {
	if strings.TrimSpace(source) == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(source))
	if err != nil {
		return optString(strings.TrimSpace(source))
	}
	return optString(strings.TrimSpace(doc.Text()))
}

// optString は空文字列を「値なし」として nil にします。
func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

package normalize

import (
	"strings"
	"time"

	"github.com/shouni/go-x-scraper/pkg/twitter"
)

// timestampLayout はミリ秒付きの ISO-8601 (UTC) です。
const timestampLayout = "2006-01-02T15:04:05.000Z"

// field は出力項目1つ分の定義です。value は src が欠損していても必ず値を返します。
type field[T any] struct {
	name  string
	value func(src *T) any
}

// Place は位置情報の出力形です。
type Place struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	FullName  string `json:"fullName"`
	PlaceType string `json:"placeType"`
}

// Poll は投票の出力形です。
type Poll struct {
	Options         []string `json:"options"`
	DurationMinutes Count    `json:"durationMinutes"`
	EndDatetime     string   `json:"endDatetime"`
	VotingStatus    string   `json:"votingStatus"`
}

// Video は動画の出力形です。
type Video struct {
	Preview string `json:"preview"`
	URL     string `json:"url"`
}

var tweetFields = []field[twitter.Tweet]{
	{"id", func(t *twitter.Tweet) any { return str(&t.ID) }},
	{"url", func(t *twitter.Tweet) any { return str(t.PermanentURL) }},
	{"conversationId", func(t *twitter.Tweet) any { return str(t.ConversationID) }},
	{"userId", func(t *twitter.Tweet) any { return str(t.UserID) }},
	{"username", func(t *twitter.Tweet) any { return str(t.Username) }},
	{"name", func(t *twitter.Tweet) any { return str(t.Name) }},
	{"text", func(t *twitter.Tweet) any { return body(t.Text) }},
	{"createdAt", func(t *twitter.Tweet) any { return timestamp(t.TimeParsed, t.Timestamp) }},
	{"likes", func(t *twitter.Tweet) any { return CountOf(t.Likes) }},
	{"retweets", func(t *twitter.Tweet) any { return CountOf(t.Retweets) }},
	{"quotes", func(t *twitter.Tweet) any { return CountOf(t.Quotes) }},
	{"replies", func(t *twitter.Tweet) any { return CountOf(t.Replies) }},
	{"views", func(t *twitter.Tweet) any { return CountOf(t.Views) }},
	{"bookmarkCount", func(t *twitter.Tweet) any { return CountOf(t.BookmarkCount) }},
	{"isRetweet", func(t *twitter.Tweet) any { return flag(t.IsRetweet) }},
	{"isReply", func(t *twitter.Tweet) any { return flag(t.IsReply) }},
	{"isQuoted", func(t *twitter.Tweet) any { return flag(t.IsQuoted) }},
	{"isPin", func(t *twitter.Tweet) any { return flag(t.IsPin) }},
	{"isSelfThread", func(t *twitter.Tweet) any { return flag(t.IsSelfThread) }},
	{"sensitiveContent", func(t *twitter.Tweet) any { return flag(t.SensitiveContent) }},
	{"inReplyToStatusId", func(t *twitter.Tweet) any { return str(t.InReplyToStatusID) }},
	{"quotedStatusId", func(t *twitter.Tweet) any { return str(t.QuotedStatusID) }},
	{"retweetedStatusId", func(t *twitter.Tweet) any { return str(t.RetweetedStatusID) }},
	{"mentions", func(t *twitter.Tweet) any { return mentions(t.Mentions) }},
	{"hashtags", func(t *twitter.Tweet) any { return list(t.Hashtags) }},
	{"urls", func(t *twitter.Tweet) any { return list(t.URLs) }},
	{"photos", func(t *twitter.Tweet) any { return photos(t.Photos) }},
	{"videos", func(t *twitter.Tweet) any { return videos(t.Videos) }},
	{"place", func(t *twitter.Tweet) any { return place(t.Place) }},
	{"poll", func(t *twitter.Tweet) any { return poll(t.Poll) }},
	{"source", func(t *twitter.Tweet) any { return str(t.Source) }},
}

var profileFields = []field[twitter.Profile]{
	{"userId", func(p *twitter.Profile) any { return str(p.UserID) }},
	{"username", func(p *twitter.Profile) any { return str(p.Username) }},
	{"name", func(p *twitter.Profile) any { return str(p.Name) }},
	{"biography", func(p *twitter.Profile) any { return body(p.Biography) }},
	{"avatar", func(p *twitter.Profile) any { return str(p.Avatar) }},
	{"banner", func(p *twitter.Profile) any { return str(p.Banner) }},
	{"location", func(p *twitter.Profile) any { return str(p.Location) }},
	{"website", func(p *twitter.Profile) any { return str(p.Website) }},
	{"url", func(p *twitter.Profile) any { return str(p.URL) }},
	{"joined", func(p *twitter.Profile) any { return timestamp(p.Joined, nil) }},
	{"followersCount", func(p *twitter.Profile) any { return CountOf(p.FollowersCount) }},
	{"followingCount", func(p *twitter.Profile) any { return CountOf(p.FollowingCount) }},
	{"tweetsCount", func(p *twitter.Profile) any { return CountOf(p.TweetsCount) }},
	{"mediaCount", func(p *twitter.Profile) any { return CountOf(p.MediaCount) }},
	{"listedCount", func(p *twitter.Profile) any { return CountOf(p.ListedCount) }},
	{"likesCount", func(p *twitter.Profile) any { return CountOf(p.LikesCount) }},
	{"isPrivate", func(p *twitter.Profile) any { return flag(p.IsPrivate) }},
	{"isVerified", func(p *twitter.Profile) any { return flag(p.IsVerified) }},
	{"isBlueVerified", func(p *twitter.Profile) any { return flag(p.IsBlueVerified) }},
	{"pinnedTweetIds", func(p *twitter.Profile) any { return list(p.PinnedTweetIDs) }},
}

// TweetFieldNames はポスト出力の項目名を出力順で返します。
func TweetFieldNames() []string {
	return names(tweetFields)
}

// ProfileFieldNames はアカウント出力の項目名を出力順で返します。
func ProfileFieldNames() []string {
	return names(profileFields)
}

func names[T any](table []field[T]) []string {
	out := make([]string, len(table))
	for i, f := range table {
		out[i] = f.name
	}
	return out
}

func str(p *string) string {
	if p == nil || *p == "" {
		return NotAvailable
	}
	return *p
}

func body(p *string) string {
	if p == nil || strings.TrimSpace(*p) == "" {
		return NoContent
	}
	return *p
}

func flag(p *bool) bool {
	return p != nil && *p
}

// timestamp は解析済み時刻、UNIX秒の順に採用し、どちらもなければ "N/A" を返します。
func timestamp(parsed *time.Time, unix *int64) string {
	switch {
	case parsed != nil && !parsed.IsZero():
		return parsed.UTC().Format(timestampLayout)
	case unix != nil:
		return time.Unix(*unix, 0).UTC().Format(timestampLayout)
	default:
		return NotAvailable
	}
}

func list(in []string) []string {
	out := make([]string, 0, len(in))
	return append(out, in...)
}

func mentions(in []twitter.Mention) []string {
	out := make([]string, 0, len(in))
	for _, m := range in {
		if m.Username != nil && *m.Username != "" {
			out = append(out, "@"+*m.Username)
			continue
		}
		if m.ID == "" {
			out = append(out, NotAvailable)
			continue
		}
		out = append(out, "@"+m.ID)
	}
	return out
}

func photos(in []twitter.Photo) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		out = append(out, str(&p.URL))
	}
	return out
}

func videos(in []twitter.Video) []Video {
	out := make([]Video, 0, len(in))
	for _, v := range in {
		out = append(out, Video{Preview: str(&v.Preview), URL: str(v.URL)})
	}
	return out
}

func place(p *twitter.Place) any {
	if p == nil {
		return nil
	}
	return &Place{
		ID:        str(p.ID),
		Name:      str(p.Name),
		FullName:  str(p.FullName),
		PlaceType: str(p.PlaceType),
	}
}

func poll(p *twitter.Poll) any {
	if p == nil {
		return nil
	}
	options := make([]string, 0, len(p.Options))
	for _, o := range p.Options {
		options = append(options, o.Label)
	}
	return &Poll{
		Options:         options,
		DurationMinutes: CountOf(p.DurationMinutes),
		EndDatetime:     str(p.EndDatetime),
		VotingStatus:    str(p.VotingStatus),
	}
}

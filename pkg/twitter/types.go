package twitter

import "time"

// Tweet は上流APIから取得した1件のポストです。
// 上流が返さなかった項目は nil (スライスは空) のまま残し、既定値の補完は正規化側で行います。
type Tweet struct {
	ID                string
	ConversationID    *string
	UserID            *string
	Username          *string
	Name              *string
	Text              *string
	PermanentURL      *string
	TimeParsed        *time.Time
	Timestamp         *int64 // UNIX秒
	Likes             *int64
	Retweets          *int64
	Quotes            *int64
	Replies           *int64
	Views             *int64
	BookmarkCount     *int64
	IsRetweet         *bool
	IsReply           *bool
	IsQuoted          *bool
	IsPin             *bool
	IsSelfThread      *bool
	SensitiveContent  *bool
	InReplyToStatusID *string
	QuotedStatusID    *string
	RetweetedStatusID *string
	Mentions          []Mention
	Hashtags          []string
	URLs              []string
	Photos            []Photo
	Videos            []Video
	Place             *Place
	Poll              *Poll
	Source            *string // クライアント名 (HTML除去済み)
}

// Mention はポスト本文中のユーザー言及です。
type Mention struct {
	ID       string
	Username *string
	Name     *string
}

// Photo は添付画像です。
type Photo struct {
	ID      string
	URL     string
	AltText *string
}

// Video は添付動画 (GIFを含む) です。
type Video struct {
	ID      string
	Preview string
	URL     *string // 最もビットレートの高い mp4
}

// Place は位置情報です。上流は境界ボックスなども返しますが、ここでは保持しません。
type Place struct {
	ID          *string
	Name        *string
	FullName    *string
	PlaceType   *string
	Country     *string
	CountryCode *string
}

// Poll はカードとして添付された投票です。
type Poll struct {
	ID              *string
	Options         []PollOption
	DurationMinutes *int64
	EndDatetime     *string
	VotingStatus    *string
}

// PollOption は投票の選択肢です。
type PollOption struct {
	Position int
	Label    string
	Votes    *int64
}

// Profile は上流APIから取得したアカウント情報です。
type Profile struct {
	UserID         *string
	Username       *string
	Name           *string
	Biography      *string
	Avatar         *string
	Banner         *string
	Location       *string
	Website        *string
	URL            *string
	Joined         *time.Time
	FollowersCount *int64
	FollowingCount *int64
	TweetsCount    *int64
	MediaCount     *int64
	ListedCount    *int64
	LikesCount     *int64
	IsPrivate      *bool
	IsVerified     *bool
	IsBlueVerified *bool
	PinnedTweetIDs []string
}

package types

// Category は、URLが指すページの種別です。
type Category string

const (
	CategoryTweet     Category = "Tweet"
	CategoryProfile   Category = "Profile"
	CategoryCommunity Category = "Community"
	CategoryGeneric   Category = "Generic"
	CategoryUnknown   Category = "Unknown"
)

// String は fmt.Stringer を満たします。
func (c Category) String() string {
	return string(c)
}

// ClassifiedURL は、分類器が1つの入力URLに対して生成する結果です。
// Unknown 以外で識別子の抽出に成功した場合のみ Identifier が設定されます。
type ClassifiedURL struct {
	OriginalURL string   `json:"originalUrl"`          // 入力されたURL文字列 (未加工)
	Category    Category `json:"category"`             // 判定されたカテゴリ
	Identifier  string   `json:"identifier,omitempty"` // ポストID、ハンドル、コミュニティID、または予約ページ名
}

// HasIdentifier は、識別子が抽出されているかどうかを返します。
func (c ClassifiedURL) HasIdentifier() bool {
	return c.Identifier != ""
}

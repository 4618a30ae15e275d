// Package classify は、X (旧Twitter) のURLをページ種別と識別子に分類します。
package classify

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/shouni/go-x-scraper/pkg/types"
)

var (
	// 受け入れるホスト名 (www. は除去済みで比較)
	platformHosts = map[string]struct{}{
		"twitter.com": {},
		"x.com":       {},
	}

	// 単一セグメントがこれらのとき Generic として扱う
	genericPages = map[string]struct{}{
		"home":          {},
		"explore":       {},
		"notifications": {},
		"messages":      {},
		"settings":      {},
	}

	// ユーザー名として解釈しない予約語
	reservedWords = map[string]struct{}{
		"i":             {},
		"home":          {},
		"explore":       {},
		"notifications": {},
		"messages":      {},
		"settings":      {},
		"search":        {},
		"hashtag":       {},
		"compose":       {},
	}

	handlePattern = regexp.MustCompile(`^[A-Za-z0-9_]{1,15}$`)
)

// Classify は、URL文字列をカテゴリと識別子に分類します。
// 失敗することはなく、解析できないURLは Unknown になります。
func Classify(rawURL string) types.ClassifiedURL {
	unknown := types.ClassifiedURL{OriginalURL: rawURL, Category: types.CategoryUnknown}

	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return unknown
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if _, ok := platformHosts[host]; !ok {
		return unknown
	}

	// デコード前のパスで判定する (%2F などをセグメント区切りとみなさない)
	segments := pathSegments(u.EscapedPath())
	if len(segments) == 0 {
		return unknown
	}

	result := types.ClassifiedURL{OriginalURL: rawURL}

	switch {
	case isGeneric(segments):
		result.Category = types.CategoryGeneric
		result.Identifier = segments[0]
	case len(segments) >= 3 && segments[0] == "i" && segments[1] == "communities":
		result.Category = types.CategoryCommunity
		result.Identifier = segments[2]
	case len(segments) >= 3 && segments[1] == "status" && isDigits(segments[2]):
		result.Category = types.CategoryTweet
		result.Identifier = segments[2]
	case len(segments) == 1 && isHandle(segments[0]):
		result.Category = types.CategoryProfile
		result.Identifier = segments[0]
	default:
		return unknown
	}

	return result
}

// pathSegments は、空要素を除いたパスセグメントを返します。
func pathSegments(path string) []string {
	var segments []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}

// isGeneric は、予約ナビゲーションページ単体のパスかどうかを判定します。
// /explore/tabs のような下位ページは Generic に含めません。
func isGeneric(segments []string) bool {
	if len(segments) != 1 {
		return false
	}
	_, ok := genericPages[segments[0]]
	return ok
}

func isHandle(segment string) bool {
	if _, reserved := reservedWords[segment]; reserved {
		return false
	}
	return handlePattern.MatchString(segment)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

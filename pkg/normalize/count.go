package normalize

import (
	"encoding/json"
	"strconv"
)

// Count は「値なし」と0を区別する数値です。値なしは JSON で "N/A" になります。
type Count struct {
	value int64
	valid bool
}

// CountOf はポインタから Count を作ります。nil は値なしです。
func CountOf(p *int64) Count {
	if p == nil {
		return Count{}
	}
	return Count{value: *p, valid: true}
}

// Value は数値と、値が存在するかどうかを返します。
func (c Count) Value() (int64, bool) {
	return c.value, c.valid
}

func (c Count) String() string {
	if !c.valid {
		return NotAvailable
	}
	return strconv.FormatInt(c.value, 10)
}

// MarshalJSON は値があれば数値、なければ "N/A" を出力します。
func (c Count) MarshalJSON() ([]byte, error) {
	if !c.valid {
		return json.Marshal(NotAvailable)
	}
	return []byte(strconv.FormatInt(c.value, 10)), nil
}

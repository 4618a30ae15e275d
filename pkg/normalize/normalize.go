// Package normalize は、上流の生レコードを欠損のないJSON出力に変換します。
// 出力の各項目はフィールド表 (fields.go) で定義され、上流に値がなくても必ず既定値で埋まります。
package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shouni/go-x-scraper/pkg/fetch"
	"github.com/shouni/go-x-scraper/pkg/twitter"
)

const (
	// NotAvailable は文字列・数値項目が欠損しているときの値です。
	NotAvailable = "N/A"
	// NoContent は本文・自己紹介が欠損しているときの値です。
	NoContent = "(no content)"
)

// ErrEmptyRecord は、正規化できる内容がなかったことを示します。
var ErrEmptyRecord = errors.New("record is empty")

// Kind は正規化レコードの種類です。
type Kind string

const (
	KindTweet   Kind = "tweet"
	KindProfile Kind = "profile"
)

// Output は正規化の結果で、*Record か Text のいずれかです。
type Output interface {
	isOutput()
}

// Text はプレースホルダー文字列をそのまま出力します。
type Text string

func (Text) isOutput() {}

// Field は出力レコードの1項目です。
type Field struct {
	Name  string
	Value any
}

// Record はフィールド表の順序を保った正規化レコードです。
type Record struct {
	kind   Kind
	fields []Field
}

func (*Record) isOutput() {}

// Kind はレコードの種類を返します。
func (r *Record) Kind() Kind {
	return r.kind
}

// Fields は全項目を表の順序で返します。
func (r *Record) Fields() []Field {
	return r.fields
}

// Get は名前で項目を探します。
func (r *Record) Get(name string) (any, bool) {
	for _, f := range r.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// MarshalJSON は項目を表の順序でJSONオブジェクトとして出力します。
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("marshal field %q: %w", f.Name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Normalize は生レコードの種類に応じて正規化します。
// nil や空のレコードは ErrEmptyRecord になります。
func Normalize(rec fetch.Record) (Output, error) {
	switch r := rec.(type) {
	case nil:
		return nil, ErrEmptyRecord
	case *fetch.TweetRecord:
		if r == nil || r.Tweet == nil {
			return nil, ErrEmptyRecord
		}
		return Tweet(r.Tweet), nil
	case *fetch.ProfileRecord:
		if r == nil || r.Profile == nil {
			return nil, ErrEmptyRecord
		}
		return Profile(r.Profile), nil
	case fetch.Placeholder:
		if r == "" {
			return nil, ErrEmptyRecord
		}
		return Text(r), nil
	default:
		return nil, fmt.Errorf("%w: unsupported record type %T", ErrEmptyRecord, rec)
	}
}

// Tweet はポストを正規化します。
func Tweet(t *twitter.Tweet) *Record {
	return build(KindTweet, tweetFields, t)
}

// Profile はアカウント情報を正規化します。
func Profile(p *twitter.Profile) *Record {
	return build(KindProfile, profileFields, p)
}

func build[T any](kind Kind, table []field[T], src *T) *Record {
	r := &Record{kind: kind, fields: make([]Field, 0, len(table))}
	for _, f := range table {
		r.fields = append(r.fields, Field{Name: f.name, Value: f.value(src)})
	}
	return r
}

package logger

import "context"

type ctxKey struct{}

// WithContext はロガーを格納したコンテキストを返します。
func WithContext(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext はコンテキストのロガーを返します。格納されていなければ何も出力しないロガーを返します。
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(ctxKey{}).(Logger); ok {
		return l
	}
	return NewNop()
}

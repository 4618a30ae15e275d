package logger

// nopLogger は何も出力しないロガーです。テストやロガー未指定時に使います。
type nopLogger struct{}

// NewNop は何も出力しない Logger を返します。
func NewNop() Logger {
	return nopLogger{}
}

func (nopLogger) Debug(string, ...Field) {}
func (nopLogger) Info(string, ...Field)  {}
func (nopLogger) Warn(string, ...Field)  {}
func (nopLogger) Error(string, ...Field) {}
func (n nopLogger) With(...Field) Logger { return n }
func (nopLogger) Sync() error            { return nil }

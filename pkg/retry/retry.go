package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// DefaultMaxRetries は、上流APIへの既定の再試行回数です。0 は1回だけ実行することを意味します。
	DefaultMaxRetries = 0

	// バックオフのカスタム設定
	InitialBackoffInterval = 500 * time.Millisecond
	MaxBackoffInterval     = 5 * time.Second
)

// Operation はリトライ可能な処理を表す関数です。成功時は nil を返します。
type Operation func() error

// ShouldRetryFunc はエラーを受け取り、そのエラーがリトライ可能かどうかを判定する関数です。
type ShouldRetryFunc func(error) bool

// NotifyFunc は、再試行の直前に失敗したエラーと次の待機時間を受け取ります。
type NotifyFunc func(err error, next time.Duration)

// Config はリトライ動作を設定するための構造体です。
type Config struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Notify          NotifyFunc // nil の場合は通知しない
}

// DefaultConfig は推奨されるデフォルト設定を返します。
func DefaultConfig() Config {
	return Config{
		MaxRetries:      DefaultMaxRetries,
		InitialInterval: InitialBackoffInterval,
		MaxInterval:     MaxBackoffInterval,
	}
}

// newBackOffPolicy は、Config から最大回数とコンテキストを適用したバックオフを生成します。
func newBackOffPolicy(ctx context.Context, cfg Config) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	if cfg.InitialInterval > 0 {
		b.InitialInterval = cfg.InitialInterval
	}
	if cfg.MaxInterval > 0 {
		b.MaxInterval = cfg.MaxInterval
	}
	// 経過時間ではなく回数で打ち切る
	b.MaxElapsedTime = 0

	return backoff.WithContext(backoff.WithMaxRetries(b, cfg.MaxRetries), ctx)
}

// Do は指数バックオフとカスタムエラー判定を使用して操作をリトライします。
// 再試行されなかったエラーは、呼び出し元のメッセージを保つためラップせずに返します。
func Do(ctx context.Context, cfg Config, operationName string, op Operation, shouldRetryFn ShouldRetryFunc) error {
	var lastErr error
	attempts := uint64(0)

	retryableOp := func() error {
		attempts++
		err := op()
		if err == nil {
			return nil
		}
		lastErr = err

		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			return err
		}
		if shouldRetryFn == nil || !shouldRetryFn(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	var notify backoff.Notify
	if cfg.Notify != nil {
		notify = backoff.Notify(cfg.Notify)
	}

	err := backoff.RetryNotify(retryableOp, newBackOffPolicy(ctx, cfg), notify)
	if err == nil {
		return nil
	}

	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		return permanent.Err
	}

	// 操作自体が一度も成功せず、コンテキストが先に終了したケース
	if ctxErr := ctx.Err(); ctxErr != nil && (lastErr == nil || !errors.Is(lastErr, ctxErr)) {
		if lastErr == nil {
			return fmt.Errorf("%s: %w", operationName, ctxErr)
		}
		return fmt.Errorf("%s: %w (last error: %v)", operationName, ctxErr, lastErr)
	}

	if attempts <= 1 {
		return lastErr
	}
	return fmt.Errorf("%s failed after %d attempts: %w", operationName, attempts, lastErr)
}

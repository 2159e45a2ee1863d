package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.Equal(t, uint64(DefaultMaxRetries), cfg.MaxRetries)
	require.Equal(t, InitialBackoffInterval, cfg.InitialInterval)
	require.Equal(t, MaxBackoffInterval, cfg.MaxInterval)
	require.Nil(t, cfg.OnRetry)
}

func TestNewBackOffPolicy(t *testing.T) {
	cfg := Config{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}

	bo := newBackOffPolicy(context.Background(), cfg)
	require.NotNil(t, bo)

	// MaxRetries 回まではバックオフ間隔が返り、その後 Stop になる
	require.NotEqual(t, time.Duration(-1), bo.NextBackOff())
	require.NotEqual(t, time.Duration(-1), bo.NextBackOff())
	require.Equal(t, time.Duration(-1), bo.NextBackOff())
}

func TestDo(t *testing.T) {
	testCfg := Config{MaxRetries: 3, InitialInterval: time.Millisecond, MaxInterval: 10 * time.Millisecond}
	errRetryable := errors.New("retryable error")
	errFatal := errors.New("fatal error")

	canceledCtx, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name             string
		ctx              context.Context
		failures         int   // 先頭から何回失敗させるか
		err              error // 失敗時に返すエラー
		shouldRetry      ShouldRetryFunc
		expectedAttempts int
		expectedError    string
		expectedIs       error
	}{
		{
			name:             "初回で成功",
			ctx:              context.Background(),
			expectedAttempts: 1,
		},
		{
			name:             "リトライ後に成功",
			ctx:              context.Background(),
			failures:         2,
			err:              errRetryable,
			shouldRetry:      func(err error) bool { return true },
			expectedAttempts: 3,
		},
		{
			name:             "リトライ対象外のエラーは即時終了",
			ctx:              context.Background(),
			failures:         10,
			err:              errFatal,
			shouldRetry:      func(err error) bool { return !errors.Is(err, errFatal) },
			expectedAttempts: 1,
			expectedError:    "test_operationに失敗しました: fatal error",
			expectedIs:       errFatal,
		},
		{
			name:             "最大リトライ回数に到達",
			ctx:              context.Background(),
			failures:         10,
			err:              errRetryable,
			expectedAttempts: 4,
			expectedError:    "test_operationに失敗しました: 最大リトライ回数 (3回) に到達。最終エラー: retryable error",
			expectedIs:       errRetryable,
		},
		{
			name:             "キャンセル済みコンテキスト",
			ctx:              canceledCtx,
			failures:         10,
			err:              errRetryable,
			expectedAttempts: 1,
			expectedError:    "test_operationに失敗しました: コンテキストタイムアウト/キャンセル: context canceled",
			expectedIs:       context.Canceled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts := 0
			op := func() error {
				attempts++
				if attempts <= tt.failures {
					return tt.err
				}
				return nil
			}

			err := Do(tt.ctx, testCfg, "test_operation", op, tt.shouldRetry)

			require.Equal(t, tt.expectedAttempts, attempts)
			if tt.expectedError == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Equal(t, tt.expectedError, err.Error())
			require.ErrorIs(t, err, tt.expectedIs)
		})
	}
}

func TestDo_NotifiesBeforeEachRetry(t *testing.T) {
	var notified []string
	cfg := Config{
		MaxRetries:      2,
		InitialInterval: time.Millisecond,
		MaxInterval:     time.Millisecond,
		OnRetry: func(name string, err error, wait time.Duration) {
			notified = append(notified, name+": "+err.Error())
		},
	}

	err := Do(context.Background(), cfg, "fetch", func() error { return errors.New("boom") }, nil)

	require.Error(t, err)
	require.Equal(t, []string{"fetch: boom", "fetch: boom"}, notified)
}

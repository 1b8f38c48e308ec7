package assistant

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// callResult はHTTPステータスコードに基づく上流呼び出し結果の分類。
type callResult int

const (
	resultOK callResult = iota
	// resultRetry は時間をおいて再試行できる失敗（429/5xx）。
	resultRetry
	// resultFail は再試行しても結果が変わらない失敗（認証エラーやリクエスト不正など）。
	resultFail
)

const (
	// initialBackoff は再試行前の初回待ち時間。
	initialBackoff = 500 * time.Millisecond
	// maxBackoff は再試行前の待ち時間の上限。
	maxBackoff = 4 * time.Second
)

// statusError は上流が成功以外のステータスを返したことを表す。
type statusError struct {
	StatusCode int
	Body       string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("generate failed with status %d: %s", e.StatusCode, e.Body)
}

// classifyStatus はHTTPステータスコードを呼び出し結果に分類する。
func classifyStatus(statusCode int) callResult {
	switch {
	case statusCode == http.StatusOK:
		return resultOK
	case statusCode == http.StatusTooManyRequests:
		return resultRetry
	case statusCode >= http.StatusInternalServerError:
		return resultRetry
	default:
		return resultFail
	}
}

// retryable はerrが再試行対象かどうかを返す。
// 429/5xxとタイムアウト以外の通信エラーを再試行する。応答の解析エラーやキャンセルは再試行しない。
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return classifyStatus(se.StatusCode) == resultRetry
	}
	var netErr net.Error
	return errors.As(err, &netErr) && !netErr.Timeout()
}

// calculateBackoff は再試行回数に基づいて指数バックオフの待ち時間を計算する。
// 初回500ミリ秒、2倍ずつ増加、最大4秒。
func calculateBackoff(attempt int) time.Duration {
	delay := initialBackoff
	for range attempt {
		delay *= 2
		if delay > maxBackoff {
			return maxBackoff
		}
	}
	return delay
}

// withRetry はfnを最大maxRetries回まで再試行する。
// 再試行の待ち時間中にctxが終了した場合はctxのエラーを返す。
func withRetry(ctx context.Context, maxRetries int, fn func(ctx context.Context) (string, error)) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(calculateBackoff(attempt - 1))
			select {
			case <-ctx.Done():
				timer.Stop()
				return "", fmt.Errorf("retry aborted: %w (last error: %v)", ctx.Err(), lastErr)
			case <-timer.C:
			}
		}

		text, err := fn(ctx)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !retryable(err) {
			return "", err
		}
	}
	return "", lastErr
}

package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/questlog/internal/hub"
	"github.com/hitoshi/questlog/internal/model"
)

// StatsProvider はダッシュボード集計を返す。
type StatsProvider interface {
	Stats(ctx context.Context, session *model.Session) (*hub.Stats, error)
}

// HealthChecker はストレージへの疎通を確認する。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

const healthCheckTimeout = 2 * time.Second

// StatsHandler はダッシュボード集計を返すハンドラー。
// GET /api/stats
func StatsHandler(stats StatsProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := sessionOrUnauthorized(w, r)
		if session == nil {
			return
		}
		result, err := stats.Stats(r.Context(), session)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// HealthHandler はヘルスチェック結果を返すハンドラー。
// checkerがnilの場合はプロセスの生存のみを返す。
// GET /health
func HealthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			defer cancel()
			if err := checker.PingContext(ctx); err != nil {
				slog.Warn("health check failed", slog.String("error", err.Error()))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

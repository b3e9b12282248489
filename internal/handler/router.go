package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/stakeboard/internal/metrics"
	"github.com/hitoshi/stakeboard/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Gate         middleware.Admitter
	RateLimiter  *middleware.RateLimiter // nilの場合はレート制限なし
	AccessLogger *slog.Logger            // nilの場合はアクセスログなし

	// コアエンジン
	Sessions SessionIssuer
	Resolver SessionResolver
	Recorder StakeRecorder
	Reader   LeaderboardReader

	// 観測
	Metrics  *metrics.Collector  // nil可
	Gatherer prometheus.Gatherer // nilの場合は/metricsを公開しない
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Metrics → Admission → AccessLog → RateLimit
//
// MetricsはAdmissionより上に置く。過負荷ゲートが拒否した503も
// レスポンスとして計数されるようにするため。
// Admissionはルーティング判定よりも前に効くため、過負荷時は
// パス・メソッドに関係なくすべてのリクエストが503になる。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	if deps.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	}
	r.Use(middleware.NewAdmissionMiddleware(deps.Gate))
	if deps.AccessLogger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.AccessLogger))
	}
	if deps.RateLimiter != nil {
		r.Use(deps.RateLimiter.Middleware())
	}

	var sessionMet SessionMetrics
	var stakeMet StakeMetrics
	if deps.Metrics != nil {
		sessionMet = deps.Metrics
		stakeMet = deps.Metrics
	}

	sessionHandler := NewSessionHandler(deps.Sessions, sessionMet)
	stakeHandler := NewStakeHandler(deps.Resolver, deps.Recorder, deps.Reader, stakeMet)

	// 死活監視とメトリクス
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	// ベッティングAPI。パス先頭のIDセグメントは
	// sessionでは顧客ID、stake/highstakesではベットオファーIDを表す。
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/session", sessionHandler.Issue)
		r.Post("/stake", stakeHandler.Record)
		r.Get("/highstakes", stakeHandler.HighStakes)
	})

	return r
}

// Package app はアプリケーションの起動と依存関係のワイヤリングを提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/stakeboard/internal/config"
	"github.com/hitoshi/stakeboard/internal/handler"
	"github.com/hitoshi/stakeboard/internal/logger"
	"github.com/hitoshi/stakeboard/internal/metrics"
	"github.com/hitoshi/stakeboard/internal/middleware"
	"github.com/hitoshi/stakeboard/internal/session"
	"github.com/hitoshi/stakeboard/internal/stake"
	"github.com/hitoshi/stakeboard/internal/sysmon"
	"github.com/hitoshi/stakeboard/internal/worker/janitor"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8001"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.Duration("session_timeout", cfg.SessionTimeout),
	)

	return runServe(cfg)
}

// runServe はAPIサーバーモードで起動する。
// インメモリのセッションストアとレジャー、負荷モニタ、保守ジョブを
// すべてワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// 1. メトリクスレジストリ
	reg := prometheus.NewRegistry()
	col := metrics.NewCollector(reg)

	// 2. コアエンジンの初期化
	sessions := session.NewStore(session.StoreConfig{Timeout: cfg.SessionTimeout})
	ledger := stake.NewLedger()

	// 3. 負荷モニタと流入ゲート
	source := sysmon.DetectSource(slog.Default())
	monitor := sysmon.NewMonitor(source, sysmon.MonitorConfig{
		CPUThreshold: cfg.CPUThreshold,
		MemThreshold: cfg.MemThreshold,
		Metrics:      col,
		Logger:       slog.Default(),
	})
	go monitor.Start(ctx, cfg.LoadSampleInterval)

	// 4. 保守ジョブの起動
	sweepJob := janitor.NewSessionSweepJob(sessions, col, slog.Default())
	go janitor.NewScheduler(sweepJob, slog.Default()).Start(ctx, cfg.SessionSweepInterval)

	trimJob := janitor.NewStakeTrimJob(ledger, col, slog.Default())
	go janitor.NewScheduler(trimJob, slog.Default()).Start(ctx, cfg.StakeTrimInterval)

	// 5. ルーターの構築
	var limiter *middleware.RateLimiter
	if cfg.RateLimitEnabled {
		rlCfg := middleware.DefaultRateLimiterConfig()
		// configのRateLimitPerCustomerはreq/min単位なのでreq/secに変換する
		rlCfg.Rate = rate.Limit(float64(cfg.RateLimitPerCustomer) / 60.0)
		rlCfg.Burst = cfg.RateLimitBurst
		limiter = middleware.NewRateLimiter(rlCfg)
		defer limiter.Stop()
	}

	router := handler.NewRouter(&handler.RouterDeps{
		Gate:         monitor.Gate(),
		RateLimiter:  limiter,
		AccessLogger: slog.Default(),
		Sessions:     sessions,
		Resolver:     sessions,
		Recorder:     ledger,
		Reader:       ledger,
		Metrics:      col,
		Gatherer:     reg,
	})

	// 6. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down API server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /healthz エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/healthz", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

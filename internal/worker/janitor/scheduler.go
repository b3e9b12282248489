// Package janitor はインメモリ状態の定期保守ジョブを提供する。
// 失効セッションの掃除とリーダーボード外エントリのトリムを含む。
package janitor

import (
	"context"
	"log/slog"
	"time"
)

// Job は定期実行される保守ジョブのインターフェース。
type Job interface {
	// Name はログ用のジョブ名を返す。
	Name() string
	// Run はジョブを1回実行する。
	Run(ctx context.Context) error
}

// Scheduler は単一のジョブを一定間隔で実行する。
// ジョブのエラーはログに記録するだけで、スケジューリングは継続する。
type Scheduler struct {
	job    Job
	logger *slog.Logger
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
func NewScheduler(job Job, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		job:    job,
		logger: logger,
	}
}

// Start は指定間隔のティッカーでスケジューラを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("保守スケジューラを開始しました",
		slog.String("job", s.job.Name()),
		slog.Duration("interval", interval),
	)

	// 起動直後に1回実行
	s.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("保守スケジューラを停止しました",
				slog.String("job", s.job.Name()),
			)
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if err := s.job.Run(ctx); err != nil {
		s.logger.Error("保守ジョブの実行に失敗しました",
			slog.String("job", s.job.Name()),
			slog.String("error", err.Error()),
		)
	}
}

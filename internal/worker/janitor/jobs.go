package janitor

import (
	"context"
	"log/slog"
	"time"
)

// SessionSweeper は失効セッションの掃除インターフェース。session.Storeの部分集合。
type SessionSweeper interface {
	Sweep() int
	Len() int
}

// SweepMetrics はセッション掃除のメトリクス記録インターフェース。
type SweepMetrics interface {
	RecordSessionsSwept(count int)
	SetActiveSessions(count int)
}

// SessionSweepJob は失効セッションを定期的に削除するジョブ。
// 冪等: 削除対象がない場合でもエラーにならない。
type SessionSweepJob struct {
	store   SessionSweeper
	metrics SweepMetrics // nil可
	logger  *slog.Logger
}

// NewSessionSweepJob は新しいSessionSweepJobを生成する。
func NewSessionSweepJob(store SessionSweeper, metrics SweepMetrics, logger *slog.Logger) *SessionSweepJob {
	return &SessionSweepJob{
		store:   store,
		metrics: metrics,
		logger:  logger,
	}
}

// Name はジョブ名を返す。
func (j *SessionSweepJob) Name() string { return "session_sweep" }

// Run は失効セッションを掃除し、削除件数と残存数を記録する。
func (j *SessionSweepJob) Run(_ context.Context) error {
	start := time.Now()

	removed := j.store.Sweep()
	remaining := j.store.Len()

	if j.metrics != nil {
		j.metrics.RecordSessionsSwept(removed)
		j.metrics.SetActiveSessions(remaining)
	}

	j.logger.Info("セッション掃除が完了しました",
		slog.Int("removed", removed),
		slog.Int("remaining", remaining),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}

// LedgerTrimmer はリーダーボード外エントリのトリムインターフェース。stake.Ledgerの部分集合。
type LedgerTrimmer interface {
	Trim() int
}

// TrimMetrics はトリムのメトリクス記録インターフェース。
type TrimMetrics interface {
	RecordStakesTrimmed(count int)
}

// StakeTrimJob は上位20件に入らない賭け金エントリを定期的に削除するジョブ。
// トリム後もリーダーボードの内容は変わらない。
type StakeTrimJob struct {
	ledger  LedgerTrimmer
	metrics TrimMetrics // nil可
	logger  *slog.Logger
}

// NewStakeTrimJob は新しいStakeTrimJobを生成する。
func NewStakeTrimJob(ledger LedgerTrimmer, metrics TrimMetrics, logger *slog.Logger) *StakeTrimJob {
	return &StakeTrimJob{
		ledger:  ledger,
		metrics: metrics,
		logger:  logger,
	}
}

// Name はジョブ名を返す。
func (j *StakeTrimJob) Name() string { return "stake_trim" }

// Run はリーダーボード外のエントリを削除し、削除件数を記録する。
func (j *StakeTrimJob) Run(_ context.Context) error {
	start := time.Now()

	removed := j.ledger.Trim()

	if j.metrics != nil {
		j.metrics.RecordStakesTrimmed(removed)
	}

	j.logger.Info("賭け金トリムが完了しました",
		slog.Int("removed", removed),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}

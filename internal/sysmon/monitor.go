package sysmon

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/hitoshi/stakeboard/internal/model"
)

// LoadRecorder は負荷サンプルをメトリクスとして記録するインターフェース。
type LoadRecorder interface {
	RecordLoadSample(sample model.LoadSample)
}

// MonitorConfig はMonitorの設定。
type MonitorConfig struct {
	CPUThreshold float64 // CPU利用率のしきい値（比率）
	MemThreshold float64 // メモリ利用率のしきい値（比率）
	Metrics      LoadRecorder
	Logger       *slog.Logger
}

// Monitor はUsageSourceを定期的に観測し、過負荷フラグを公開する。
// フラグはMonitorだけが書き込み、他のコンポーネントはGate経由で読むのみ。
// 観測に失敗した場合は過負荷でない側に倒す（可用性優先のフェイルオープン）。
type Monitor struct {
	source       UsageSource
	cpuThreshold float64
	memThreshold float64
	metrics      LoadRecorder
	logger       *slog.Logger

	overloaded atomic.Bool
}

// NewMonitor は新しいMonitorを生成する。
func NewMonitor(source UsageSource, cfg MonitorConfig) *Monitor {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Monitor{
		source:       source,
		cpuThreshold: cfg.CPUThreshold,
		memThreshold: cfg.MemThreshold,
		metrics:      cfg.Metrics,
		logger:       cfg.Logger,
	}
}

// Start は固定間隔でサンプリングを繰り返す。
// コンテキストがキャンセルされるまで実行を継続する。
func (m *Monitor) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.logger.Info("負荷モニタを開始しました",
		slog.Duration("interval", interval),
		slog.Float64("cpu_threshold", m.cpuThreshold),
		slog.Float64("mem_threshold", m.memThreshold),
	)

	// 起動直後に1回観測し、差分計算の基準点を作る
	m.SampleOnce()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("負荷モニタを停止しました")
			return
		case <-ticker.C:
			m.SampleOnce()
		}
	}
}

// SampleOnce は1回分の観測としきい値判定を行い、過負荷フラグを更新する。
func (m *Monitor) SampleOnce() {
	cpu, mem, err := m.source.Sample()
	if err != nil {
		// フェイルオープン: 観測不能時は流入を止めない
		m.overloaded.Store(false)
		m.logger.Error("負荷の観測に失敗しました", slog.String("error", err.Error()))
		return
	}

	sample := model.LoadSample{
		CPURatio:    cpu,
		MemoryRatio: mem,
		Overloaded:  cpu > m.cpuThreshold || mem > m.memThreshold,
	}

	m.overloaded.Store(sample.Overloaded)

	if m.metrics != nil {
		m.metrics.RecordLoadSample(sample)
	}

	m.logger.Info("負荷を観測しました",
		slog.Float64("cpu_ratio", sample.CPURatio),
		slog.Float64("mem_ratio", sample.MemoryRatio),
		slog.Bool("overloaded", sample.Overloaded),
	)
}

// Overloaded は現在の過負荷フラグを返す。
func (m *Monitor) Overloaded() bool {
	return m.overloaded.Load()
}

// Gate はこのモニタのフラグを読む流入ゲートを返す。
func (m *Monitor) Gate() *Gate {
	return &Gate{flag: &m.overloaded}
}

// Gate は流入可否の判定だけを行う読み取り専用のビュー。
// Admitは副作用もブロッキングもない単一のアトミック読み取り。
type Gate struct {
	flag *atomic.Bool
}

// Admit はリクエストを処理してよい場合にtrueを返す。
func (g *Gate) Admit() bool {
	return !g.flag.Load()
}

// DetectSource は実行環境に応じたUsageSourceを選択する。
// cgroup v2の会計ファイルが読める場合はそれを優先し、なければホスト全体の観測に落ちる。
func DetectSource(logger *slog.Logger) UsageSource {
	cg := NewCgroupSource("")
	if cg.Available() {
		logger.Info("負荷ソースとしてcgroup v2を使用します", slog.String("dir", DefaultCgroupDir))
		return cg
	}
	logger.Info("cgroup v2が見つからないためホスト全体の観測を使用します")
	return NewGopsutilSource()
}

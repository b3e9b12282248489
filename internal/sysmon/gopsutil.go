package sysmon

import (
	"fmt"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"

	"github.com/hitoshi/stakeboard/internal/model"
)

// GopsutilSource はホスト全体のCPU・メモリ利用率をgopsutil経由で観測する。
// cgroup v2の会計ファイルが読めない環境（開発マシン等）のフォールバック。
// cpu.Percentは前回呼び出しからの差分で計算されるため、
// 初回のSampleはCPU比率にRatioUnavailableを返す。
type GopsutilSource struct {
	primed bool
}

// NewGopsutilSource は新しいGopsutilSourceを生成する。
func NewGopsutilSource() *GopsutilSource {
	return &GopsutilSource{}
}

// Sample はホスト全体のCPU・メモリ利用率を1回観測する。
func (s *GopsutilSource) Sample() (float64, float64, error) {
	percents, err := cpu.Percent(0, false)
	if err != nil {
		return 0, 0, fmt.Errorf("sample cpu: %w", err)
	}

	cpuRatio := model.RatioUnavailable
	if s.primed && len(percents) > 0 {
		cpuRatio = percents[0] / 100.0
	}
	s.primed = true

	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, 0, fmt.Errorf("sample memory: %w", err)
	}

	return cpuRatio, vm.UsedPercent / 100.0, nil
}

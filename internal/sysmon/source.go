// Package sysmon はホスト負荷の監視と過負荷時の流入制御フラグを提供する。
package sysmon

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/stakeboard/internal/model"
)

// UsageSource はCPU・メモリ利用率の観測手段を抽象化する。
// 利用率は[0,1]の比率で返す。計測できない値にはmodel.RatioUnavailableを入れる
// （累積カウンタ方式のソースでは初回サンプルのCPU比率が該当する）。
type UsageSource interface {
	Sample() (cpu, mem float64, err error)
}

// CgroupSource はcgroup v2の会計ファイルから利用率を算出する。
// CPU比率は累積使用時間の差分をquota/period×経過実時間で割った値。
// 前回の読み取りが必要なため、初回のSampleはCPU比率にRatioUnavailableを返す。
type CgroupSource struct {
	dir string // 通常は /sys/fs/cgroup

	lastUsage     int64 // usage_usec
	lastTimestamp int64 // 単調時計のマイクロ秒
	primed        bool
}

// DefaultCgroupDir はcgroup v2のマウントポイント。
const DefaultCgroupDir = "/sys/fs/cgroup"

// NewCgroupSource は指定ディレクトリのcgroup v2ファイルを読むソースを生成する。
// dirが空の場合はDefaultCgroupDirを使用する。
func NewCgroupSource(dir string) *CgroupSource {
	if dir == "" {
		dir = DefaultCgroupDir
	}
	return &CgroupSource{dir: dir}
}

// Available はcgroup v2の会計ファイルが読める環境かを返す。
func (s *CgroupSource) Available() bool {
	_, err := os.Stat(filepath.Join(s.dir, "cpu.stat"))
	return err == nil
}

// Sample はCPU・メモリ利用率を1回観測する。
func (s *CgroupSource) Sample() (float64, float64, error) {
	cpu, err := s.cpuRatio()
	if err != nil {
		return 0, 0, err
	}
	mem, err := s.memRatio()
	if err != nil {
		return 0, 0, err
	}
	return cpu, mem, nil
}

// cpuRatio は累積CPU使用時間の差分から利用率を計算する。
func (s *CgroupSource) cpuRatio() (float64, error) {
	usage, err := s.readCPUUsage()
	if err != nil {
		return 0, err
	}

	quota, period, err := s.readCPUMax()
	if err != nil {
		return 0, err
	}

	now := time.Now().UnixMicro()

	defer func() {
		s.lastUsage = usage
		s.lastTimestamp = now
		s.primed = true
	}()

	// 初回は差分が取れないため評価不能（過負荷と誤判定しない）
	if !s.primed {
		return model.RatioUnavailable, nil
	}

	elapsed := now - s.lastTimestamp
	if elapsed <= 0 || quota <= 0 || period <= 0 {
		return model.RatioUnavailable, nil
	}

	delta := usage - s.lastUsage
	limit := float64(quota) / float64(period) // 割り当てコア数
	return float64(delta) / (limit * float64(elapsed)), nil
}

// memRatio はmemory.current / memory.maxを返す。
// 上限が"max"（無制限）の場合は評価不能を返す。
func (s *CgroupSource) memRatio() (float64, error) {
	usage, err := s.readInt("memory.current")
	if err != nil {
		return 0, err
	}

	raw, err := s.readLine("memory.max")
	if err != nil {
		return 0, err
	}
	if raw == "max" {
		return model.RatioUnavailable, nil
	}

	limit, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || limit <= 0 {
		return model.RatioUnavailable, nil
	}

	return float64(usage) / float64(limit), nil
}

// readCPUUsage はcpu.statのusage_usec行を読む。
func (s *CgroupSource) readCPUUsage() (int64, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, "cpu.stat"))
	if err != nil {
		return 0, fmt.Errorf("read cpu.stat: %w", err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		if rest, ok := strings.CutPrefix(line, "usage_usec "); ok {
			return strconv.ParseInt(strings.TrimSpace(rest), 10, 64)
		}
	}
	return 0, fmt.Errorf("usage_usec not found in cpu.stat")
}

// readCPUMax はcpu.maxから(quota, period)を読む。quotaが"max"の場合は-1を返す。
func (s *CgroupSource) readCPUMax() (quota, period int64, err error) {
	line, err := s.readLine("cpu.max")
	if err != nil {
		return 0, 0, err
	}
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("unexpected cpu.max format: %q", line)
	}

	if fields[0] == "max" {
		quota = -1
	} else {
		quota, err = strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("parse cpu.max quota: %w", err)
		}
	}

	period, err = strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse cpu.max period: %w", err)
	}
	return quota, period, nil
}

func (s *CgroupSource) readInt(name string) (int64, error) {
	line, err := s.readLine(name)
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(line, 10, 64)
}

func (s *CgroupSource) readLine(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return strings.TrimSpace(string(data)), nil
}

package model

// LoadSample はシステム負荷の1回分の観測値を表す。
// 各比率は[0,1]の値。計測不能な場合はRatioUnavailable(-1)が入る。
type LoadSample struct {
	CPURatio    float64
	MemoryRatio float64
	Overloaded  bool
}

// RatioUnavailable は利用率が計測できなかったことを示す番兵値。
// しきい値判定では「過負荷でない」として扱う（フェイルオープン）。
const RatioUnavailable = -1.0

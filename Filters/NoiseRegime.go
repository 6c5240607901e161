package Filters

import "math"

// NoiseRatioThreshold 噪声比超过此值视为噪声段
const NoiseRatioThreshold = 0.09

// NoiseRatio NPKI / sqrt(NPKI² + SPKI²)。
// 两个估计都为 0 (或结果非有限值) 时定义为 0，即视为干净。
func NoiseRatio(signal, noise float64) float64 {
	den := math.Sqrt(noise*noise + signal*signal)
	if den == 0 || math.IsNaN(den) || math.IsInf(den, 0) {
		return 0
	}
	return noise / den
}

// Snapshot 最近一个干净 tick 时的峰值估计 (值拷贝)
type Snapshot struct {
	Signal PeakEstimate
	Noise  PeakEstimate
}

// NoiseTracker 根据噪声比判断噪声段。干净时持续保存快照，
// 噪声段结束的那一个 tick 用快照恢复阈值检测器的峰值窗口。
type NoiseTracker struct {
	clean     Snapshot
	ratio     float64
	noisy     bool
	prevNoisy bool
}

// Update 在阈值检测器更新之后调用。restored 表示本 tick 发生了恢复。
func (nt *NoiseTracker) Update(at *AdaptiveThresholder) (noisy, restored bool) {
	nt.ratio = NoiseRatio(at.Signal.Level, at.Noise.Level)
	nt.noisy = nt.ratio > NoiseRatioThreshold

	if !nt.noisy {
		nt.clean = Snapshot{Signal: at.Signal, Noise: at.Noise}
		if nt.prevNoisy {
			at.Signal.Window = nt.clean.Signal.Window
			at.Noise.Window = nt.clean.Noise.Window
			at.Signal.Reconcile()
			at.Noise.Reconcile()
			restored = true
		}
	}
	nt.prevNoisy = nt.noisy
	return nt.noisy, restored
}

// Ratio 最近一次计算的噪声比
func (nt *NoiseTracker) Ratio() float64 {
	return nt.ratio
}

// Noisy 当前是否处于噪声段
func (nt *NoiseTracker) Noisy() bool {
	return nt.noisy
}

// Clean 当前保存的快照
func (nt *NoiseTracker) Clean() Snapshot {
	return nt.clean
}

// Reset 清空快照与状态
func (nt *NoiseTracker) Reset() {
	*nt = NoiseTracker{}
}

package qrs

import "qrs/Filters"

// Result 单个 tick 的检测输出
type Result struct {
	Sample     float64 // 原始输入
	Filtered   float64 // 高通输出 (滤波后的 ECG)
	Integrated float64 // 滑动积分输出
	Threshold  float64
	SignalPeak float64 // SPKI
	NoisePeak  float64 // NPKI
	NoiseRatio float64
	QRS        bool
	Noisy      bool
	Restored   bool              // 本 tick 从干净快照恢复
	Peak       Filters.PeakClass // 本 tick 确认的峰值类别
}

// Detector 把滤波级联、阈值检测和噪声追踪按固定顺序串起来。
// 零值可直接使用，所有状态都从零开始；不可并发调用 Tick。
type Detector struct {
	cascade     Filters.Cascade
	out         Filters.Output
	thresholder Filters.AdaptiveThresholder
	noise       Filters.NoiseTracker
}

// NewDetector 创建检测器
func NewDetector() *Detector {
	return &Detector{}
}

// Tick 处理一个采样点
func (d *Detector) Tick(sample float64) Result {
	filtered := d.cascade.Process(sample, &d.out)
	qrs := d.thresholder.Update(&d.out)
	noisy, restored := d.noise.Update(&d.thresholder)

	return Result{
		Sample:     sample,
		Filtered:   filtered,
		Integrated: d.out[0],
		Threshold:  d.thresholder.Threshold,
		SignalPeak: d.thresholder.Signal.Level,
		NoisePeak:  d.thresholder.Noise.Level,
		NoiseRatio: d.noise.Ratio(),
		QRS:        qrs,
		Noisy:      noisy,
		Restored:   restored,
		Peak:       d.thresholder.LastPeak(),
	}
}

// Stages 最近一次 Tick 各滤波级的输出
func (d *Detector) Stages() Filters.Stages {
	return d.cascade.Stages()
}

// Reset 回到初始状态
func (d *Detector) Reset() {
	*d = Detector{}
}

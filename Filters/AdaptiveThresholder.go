package Filters

const (
	// PeakWindowSize 峰值估计的滑动平均窗口
	PeakWindowSize = 8
	// PeakWeight 窗口中每个峰值的权重
	PeakWeight = 1.0 / PeakWindowSize
	// ThresholdFraction 阈值位于噪声峰与信号峰之间的位置
	ThresholdFraction = 0.25
	// PeakFallRatio 输出回落到局部最大值的这个比例以下时确认峰值
	PeakFallRatio = 0.5
)

// PeakWindow 最近 8 个同类峰值，[0] 最新
type PeakWindow [PeakWindowSize]float64

// PeakEstimate 一类峰值 (信号 SPKI 或噪声 NPKI) 的当前估计及其历史窗口
type PeakEstimate struct {
	Level  float64
	Window PeakWindow
}

// Update 把新峰值推入窗口，Level 取窗口的等权滑动平均
func (e *PeakEstimate) Update(peak float64) {
	Push(e.Window[:], peak)
	e.Level = EvaluateFIR(PeakWeight, e.Window[:], peakWeights[:])
}

// Reconcile 让 Level 等于窗口的算术平均
func (e *PeakEstimate) Reconcile() {
	e.Level = Mean(e.Window[:])
}

var peakWeights = func() (w PeakWindow) {
	for i := range w {
		w[i] = 1
	}
	return w
}()

// PeakClass 本次更新中被确认的峰值类别
type PeakClass int

const (
	PeakNone PeakClass = iota
	PeakSignal
	PeakNoise
)

func (c PeakClass) String() string {
	switch c {
	case PeakSignal:
		return "signal"
	case PeakNoise:
		return "noise"
	default:
		return "none"
	}
}

// AdaptiveThresholder 在积分输出上追踪局部最大值，按信号峰/噪声峰两路估计
// 动态更新检测阈值。检测标志在越过阈值时置位，峰值确认时清除。
type AdaptiveThresholder struct {
	Signal    PeakEstimate // SPKI
	Noise     PeakEstimate // NPKI
	Threshold float64

	localMax float64
	detected bool
	lastPeak PeakClass
}

// Update 输入积分器最近三个输出 (y[0] 最新)，返回当前是否处于 QRS 中
func (at *AdaptiveThresholder) Update(y *Output) bool {
	at.lastPeak = PeakNone
	y0, y2 := y[0], y[OutputLen-1]

	// 上升沿，刷新局部最大值
	if y0 > y2 && y0 > at.localMax {
		at.localMax = y0
	}
	if at.localMax > at.Threshold {
		at.detected = true
	}

	// 下降沿且已回落到一半以下：确认这个峰
	if y0 <= y2 && y0 < PeakFallRatio*at.localMax {
		peak := at.localMax
		at.detected = false
		if peak > at.Threshold {
			at.Signal.Update(peak)
			at.lastPeak = PeakSignal
		} else {
			at.Noise.Update(peak)
			at.lastPeak = PeakNoise
		}
		at.Threshold = at.Noise.Level + ThresholdFraction*(at.Signal.Level-at.Noise.Level)
		at.localMax = 0
	}
	return at.detected
}

// Detected 当前检测标志
func (at *AdaptiveThresholder) Detected() bool {
	return at.detected
}

// LocalMax 当前追踪中的局部最大值
func (at *AdaptiveThresholder) LocalMax() float64 {
	return at.localMax
}

// LastPeak 最近一次 Update 确认的峰值类别
func (at *AdaptiveThresholder) LastPeak() PeakClass {
	return at.lastPeak
}

// Reset 回到全零初始状态
func (at *AdaptiveThresholder) Reset() {
	*at = AdaptiveThresholder{}
}

package qrs

import (
	"math"

	"github.com/mjibson/go-dsp/fft"
)

// RateEstimatorConfig 配置参数
type RateEstimatorConfig struct {
	SampleRate     float64
	WindowSize     int     // 参与计算的最新样本数
	MinBPM         float64 // 搜索下限
	MaxBPM         float64 // 搜索上限
	SmoothingAlpha float64 // 平滑系数 (0.0-1.0)，越小越平滑
	MaxJumpBPM     float64 // 允许的最大突变，超过此值视为干扰
	MinCorrelation float64 // 归一化自相关峰的门限，低于此值视为无节律
}

// RateEstimator 用积分输出的自相关估计心率，与逐拍检测互为校验。
// 自相关通过 FFT 计算 (补零到 2N 以避免循环混叠)。
type RateEstimator struct {
	config   RateEstimatorConfig
	lastBPM  float64
	hasLock  bool
	lastCorr float64
}

// NewRateEstimator 创建新实例
func NewRateEstimator(cfg RateEstimatorConfig) *RateEstimator {
	return &RateEstimator{config: cfg}
}

// Reset 重置锁定状态
func (re *RateEstimator) Reset() {
	re.lastBPM = 0
	re.hasLock = false
}

// Correlation 最近一次估计的归一化自相关峰值
func (re *RateEstimator) Correlation() float64 {
	return re.lastCorr
}

// Estimate 输入样本切片，返回平滑后的心率。found 表示本次找到有效节律。
func (re *RateEstimator) Estimate(samples []float64) (bpm float64, found bool) {
	if len(samples) < re.config.WindowSize || re.config.WindowSize < 2 {
		return re.lastBPM, false
	}

	acf := re.autocorrelation(samples[len(samples)-re.config.WindowSize:])
	lag, corr := re.findPeriod(acf)
	re.lastCorr = corr
	if lag <= 0 || corr < re.config.MinCorrelation {
		return re.lastBPM, false
	}
	return re.updateRateState(60 * re.config.SampleRate / lag)
}

// autocorrelation 去均值后的无偏自相关，按 r[0] 归一化
func (re *RateEstimator) autocorrelation(window []float64) []float64 {
	n := len(window)
	mean := 0.0
	for _, v := range window {
		mean += v
	}
	mean /= float64(n)

	size := 1
	for size < 2*n {
		size <<= 1
	}
	padded := make([]float64, size)
	for i, v := range window {
		padded[i] = v - mean
	}

	spectrum := fft.FFTReal(padded)
	for i, c := range spectrum {
		power := real(c)*real(c) + imag(c)*imag(c)
		spectrum[i] = complex(power, 0)
	}
	raw := fft.IFFT(spectrum)

	acf := make([]float64, n)
	r0 := real(raw[0]) / float64(n)
	if r0 <= 0 {
		return acf
	}
	for k := range acf {
		acf[k] = real(raw[k]) / float64(n-k) / r0
	}
	return acf
}

// findPeriod 在心率范围对应的滞后区间里找周期。
// 周期信号的自相关在整数倍周期处都有峰，所以取第一个接近最高峰的局部极大，
// 再用抛物线插值细化。
func (re *RateEstimator) findPeriod(acf []float64) (lag, corr float64) {
	minLag := int(60 * re.config.SampleRate / re.config.MaxBPM)
	maxLag := int(math.Ceil(60 * re.config.SampleRate / re.config.MinBPM))
	if minLag < 1 {
		minLag = 1
	}
	if maxLag > len(acf)-2 {
		maxLag = len(acf) - 2
	}
	if minLag >= maxLag {
		return 0, 0
	}

	best := math.Inf(-1)
	for k := minLag; k <= maxLag; k++ {
		if isLocalMax(acf, k) && acf[k] > best {
			best = acf[k]
		}
	}
	// 最高峰不为正说明没有节律 (稀疏的单个脉冲、基线漂移、导联脱落)
	if best <= 0 {
		return 0, 0
	}

	idx := -1
	for k := minLag; k <= maxLag; k++ {
		if isLocalMax(acf, k) && acf[k] >= best-(1-harmonicTolerance)*math.Abs(best) {
			idx = k
			break
		}
	}
	if idx < 0 {
		return 0, 0
	}

	y1, y2, y3 := acf[idx-1], acf[idx], acf[idx+1]
	delta := 0.0
	if den := 2 * (2*y2 - y1 - y3); den != 0 {
		delta = (y3 - y1) / den
	}
	return float64(idx) + delta, y2
}

// harmonicTolerance 局部极大达到最高峰的这个比例即可当作基本周期
const harmonicTolerance = 0.8

func isLocalMax(x []float64, k int) bool {
	return x[k] > x[k-1] && x[k] >= x[k+1]
}

// updateRateState 平滑与防跳变
func (re *RateEstimator) updateRateState(detected float64) (bpm float64, found bool) {
	if re.hasLock {
		if math.Abs(detected-re.lastBPM) > re.config.MaxJumpBPM {
			return re.lastBPM, true
		}
		re.lastBPM = (1-re.config.SmoothingAlpha)*re.lastBPM + re.config.SmoothingAlpha*detected
	} else {
		re.lastBPM = detected
		re.hasLock = true
	}
	return re.lastBPM, true
}

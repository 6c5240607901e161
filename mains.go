package qrs

import (
	"github.com/mjibson/go-dsp/window"
)

// MainsDetector 按块检测工频 (50/60Hz) 干扰。
// 每块加 Hann 窗后用 Goertzel 取工频分量，计算它占整块能量的比例。
// 纯工频正弦在窗口对齐时比例约为 2/3，干净的 ECG 接近 0。
type MainsDetector struct {
	goertzel *Goertzel
	window   []float64
	block    []float64
	limit    float64

	ratio        float64
	interference bool
}

// NewMainsDetector 创建检测器，limit 为报警比例
func NewMainsDetector(sampleRate, freq float64, blockSize int, limit float64) *MainsDetector {
	return &MainsDetector{
		goertzel: NewGoertzel(sampleRate, freq),
		window:   window.Hann(blockSize),
		block:    make([]float64, 0, blockSize),
		limit:    limit,
	}
}

// Process 输入一个样本。块满时返回该块的工频比例和 true。
func (m *MainsDetector) Process(sample float64) (ratio float64, done bool) {
	m.block = append(m.block, sample)
	if len(m.block) < len(m.window) {
		return m.ratio, false
	}

	mean := 0.0
	for _, v := range m.block {
		mean += v
	}
	mean /= float64(len(m.block))

	m.goertzel.Reset()
	energy := 0.0
	for i, v := range m.block {
		w := (v - mean) * m.window[i]
		m.goertzel.ProcessSample(w)
		energy += w * w
	}
	m.block = m.block[:0]

	m.ratio = 0
	if energy > 0 {
		m.ratio = 2 * m.goertzel.Power() / (float64(len(m.window)) * energy)
	}
	m.interference = m.ratio > m.limit
	return m.ratio, true
}

// Ratio 最近一块的工频比例
func (m *MainsDetector) Ratio() float64 {
	return m.ratio
}

// Interference 最近一块是否判定为工频干扰
func (m *MainsDetector) Interference() bool {
	return m.interference
}

package qrs

import (
	"math"
)

// Goertzel 用于检测特定频率的能量
type Goertzel struct {
	coeff float64
	q1    float64
	q2    float64
}

// NewGoertzel 初始化算法，coeff = 2cos(2π f/fs)
func NewGoertzel(sampleRate, targetFreq float64) *Goertzel {
	return &Goertzel{
		coeff: 2.0 * math.Cos(2.0*math.Pi*targetFreq/sampleRate),
	}
}

// Reset 重置状态，处理完一个块后调用
func (g *Goertzel) Reset() {
	g.q1 = 0
	g.q2 = 0
}

// ProcessSample 处理单个采样点
func (g *Goertzel) ProcessSample(sample float64) {
	q0 := g.coeff*g.q1 - g.q2 + sample
	g.q2 = g.q1
	g.q1 = q0
}

// Power 当前块在目标频率上的 |X|²
func (g *Goertzel) Power() float64 {
	p := g.q1*g.q1 + g.q2*g.q2 - g.q1*g.q2*g.coeff
	if p < 0 {
		return 0
	}
	return p
}

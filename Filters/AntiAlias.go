package Filters

import "math"

// biquad 二阶 IIR 节 (转置直接 II 型)
type biquad struct {
	b0, b1, b2, a1, a2 float64
	z1, z2             float64
}

func (f *biquad) process(in float64) float64 {
	out := in*f.b0 + f.z1
	f.z1 = in*f.b1 - out*f.a1 + f.z2
	f.z2 = in*f.b2 - out*f.a2
	return out
}

// AntiAlias 巴特沃斯低通，由 order/2 个二阶节级联。
// 声卡以远高于检测采样率的速率采集，送进检测之前先滤掉
// 检测采样率奈奎斯特频率以上的成分。
type AntiAlias struct {
	sections []biquad
}

// NewAntiAlias 创建 order 阶 (偶数) 的低通，截止频率为 outRate 的 0.4 倍
func NewAntiAlias(order int, inRate, outRate float64) *AntiAlias {
	if order < 2 || order%2 != 0 {
		panic("anti-alias filter order must be even")
	}
	cutoff := 0.4 * outRate
	if cutoff >= inRate*0.499 {
		cutoff = inRate * 0.499
	}

	// 双线性变换，先做频率预畸变
	k := 2 * inRate
	w := k * math.Tan(math.Pi*cutoff/inRate)

	sections := make([]biquad, order/2)
	for i := range sections {
		// Q 值低的节放在前面
		pole := order/2 - 1 - i
		theta := math.Pi * float64(2*pole+1) / float64(2*order)
		re := -w * math.Sin(theta)
		mag2 := w * w // |p|^2

		norm := k*k - 2*k*re + mag2
		sections[i] = biquad{
			b0: mag2 / norm,
			b1: 2 * mag2 / norm,
			b2: mag2 / norm,
			a1: (2*mag2 - 2*k*k) / norm,
			a2: (k*k + 2*k*re + mag2) / norm,
		}
	}
	return &AntiAlias{sections: sections}
}

// Process 滤波一个样本
func (f *AntiAlias) Process(in float64) float64 {
	out := in
	for i := range f.sections {
		out = f.sections[i].process(out)
	}
	return out
}

// Reset 清空所有节的状态
func (f *AntiAlias) Reset() {
	for i := range f.sections {
		f.sections[i].z1, f.sections[i].z2 = 0, 0
	}
}

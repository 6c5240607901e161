package Filters

import (
	"fmt"

	"github.com/viterin/vek"
)

// EvaluateFIR 计算 gain * Σ samples[k]*coeffs[k]。纯函数，不修改输入。
func EvaluateFIR(gain float64, samples, coeffs []float64) float64 {
	return gain * dot(samples, coeffs)
}

// EvaluateIIR 计算差分方程的当前输出：
//
//	y = gain * Σ ff[k]*b[k] - Σ fb[k]*a[k]
//
// fb[0] 是当前输出的位置，调用前已被移位清零，所以 a[0] 不参与运算。
func EvaluateIIR(gain float64, ffSamples, ffCoeffs, fbSamples, fbCoeffs []float64) float64 {
	return gain*dot(ffSamples, ffCoeffs) - dot(fbSamples, fbCoeffs)
}

// dot 长度不一致属于编程错误，直接 panic
func dot(x, c []float64) float64 {
	if len(x) != len(c) {
		panic(fmt.Sprintf("Filters: %d samples against %d coefficients", len(x), len(c)))
	}
	if len(x) == 0 {
		return 0
	}
	return vek.Dot(x, c)
}

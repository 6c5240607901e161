package Filters

import "math"

// ShiftRight 将延迟线整体后移一位：最旧的样本被丢弃，[0] 清零。
// 长度为 0 时不做任何事。
func ShiftRight(line []float64) {
	n := len(line)
	if n == 0 {
		return
	}
	copy(line[1:], line[:n-1])
	line[0] = 0
}

// Push 后移并把 v 写入最新位置 [0]
func Push(line []float64, v float64) {
	if len(line) == 0 {
		return
	}
	ShiftRight(line)
	line[0] = v
}

// Mean 算术平均，空切片返回 0
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev 样本标准差 (n-1)。少于两个样本时返回 0
func StdDev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	mean := Mean(values)
	acc := 0.0
	for _, v := range values {
		d := v - mean
		acc += d * d
	}
	return math.Sqrt(acc / float64(n-1))
}

package qrs

import "time"

// MatchWindow 检测与参考心跳的最大允许偏差
const MatchWindow = 150 * time.Millisecond

// Score 逐拍比对结果
type Score struct {
	TruePositives  int
	FalsePositives int
	FalseNegatives int
}

// Sensitivity TP / (TP + FN)
func (s Score) Sensitivity() float64 {
	if s.TruePositives+s.FalseNegatives == 0 {
		return 0
	}
	return float64(s.TruePositives) / float64(s.TruePositives+s.FalseNegatives)
}

// PPV 阳性预测值 TP / (TP + FP)
func (s Score) PPV() float64 {
	if s.TruePositives+s.FalsePositives == 0 {
		return 0
	}
	return float64(s.TruePositives) / float64(s.TruePositives+s.FalsePositives)
}

// ScoreBeats 把检测位置与参考位置一一配对 (两者都按升序)，
// 偏差不超过 tolerance 个样本的算命中，每个参考最多配对一次。
func ScoreBeats(reference, detected []int64, tolerance int64) Score {
	var s Score
	i, j := 0, 0
	for i < len(reference) && j < len(detected) {
		r, d := reference[i], detected[j]
		switch {
		case d < r-tolerance:
			s.FalsePositives++
			j++
		case d > r+tolerance:
			s.FalseNegatives++
			i++
		default:
			s.TruePositives++
			i++
			j++
		}
	}
	s.FalseNegatives += len(reference) - i
	s.FalsePositives += len(detected) - j
	return s
}

package qrs

import (
	"time"

	"qrs/Filters"
)

// RRWindowSize 计算心率所用的最近 RR 间期个数
const RRWindowSize = 8

// Beat 一次检测到的心跳
type Beat struct {
	Index    int64         // 检测上升沿所在的采样序号
	Interval time.Duration // 与上一次心跳的间隔，第一跳为 0
	Accepted bool          // 间隔是否落在合理范围内
}

// RhythmTracker 在 QRS 标志的上升沿计心跳，统计 RR 间期、心率和 SDNN。
// 超出 [MinRR, MaxRR] 的间期不计入统计。
type RhythmTracker struct {
	sampleRate float64
	minRR      time.Duration
	maxRR      time.Duration

	index     int64
	prevQRS   bool
	lastBeat  int64
	hasBeat   bool
	beats     int
	intervals [RRWindowSize]float64 // 秒，[0] 最新
	count     int                   // 窗口中的有效个数
}

// NewRhythmTracker 创建心律统计
func NewRhythmTracker(sampleRate float64, minRR, maxRR time.Duration) *RhythmTracker {
	return &RhythmTracker{
		sampleRate: sampleRate,
		minRR:      minRR,
		maxRR:      maxRR,
	}
}

// Update 每个 tick 调用一次。检测到新心跳时返回 beat 和 true。
func (r *RhythmTracker) Update(qrs bool) (Beat, bool) {
	idx := r.index
	r.index++
	rising := qrs && !r.prevQRS
	r.prevQRS = qrs
	if !rising {
		return Beat{}, false
	}

	r.beats++
	beat := Beat{Index: idx}
	if r.hasBeat {
		seconds := float64(idx-r.lastBeat) / r.sampleRate
		beat.Interval = time.Duration(seconds * float64(time.Second))
		if beat.Interval >= r.minRR && beat.Interval <= r.maxRR {
			beat.Accepted = true
			Filters.Push(r.intervals[:], seconds)
			if r.count < RRWindowSize {
				r.count++
			}
		}
	}
	r.lastBeat = idx
	r.hasBeat = true
	return beat, true
}

// Beats 检测到的心跳总数
func (r *RhythmTracker) Beats() int {
	return r.beats
}

// MeanRR 最近有效 RR 间期的平均值
func (r *RhythmTracker) MeanRR() time.Duration {
	return time.Duration(Filters.Mean(r.window()) * float64(time.Second))
}

// BPM 由平均 RR 间期换算的心率，没有有效间期时为 0
func (r *RhythmTracker) BPM() float64 {
	mean := Filters.Mean(r.window())
	if mean == 0 {
		return 0
	}
	return 60 / mean
}

// SDNN RR 间期的样本标准差
func (r *RhythmTracker) SDNN() time.Duration {
	return time.Duration(Filters.StdDev(r.window()) * float64(time.Second))
}

func (r *RhythmTracker) window() []float64 {
	return r.intervals[:r.count]
}

// Reset 清空统计
func (r *RhythmTracker) Reset() {
	*r = RhythmTracker{sampleRate: r.sampleRate, minRR: r.minRR, maxRR: r.maxRR}
}

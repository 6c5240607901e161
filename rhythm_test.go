package qrs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feedPulses(r *RhythmTracker, onsets []int, width, total int) []Beat {
	qrs := make([]bool, total)
	for _, o := range onsets {
		for i := o; i < o+width && i < total; i++ {
			qrs[i] = true
		}
	}
	var beats []Beat
	for _, q := range qrs {
		if b, ok := r.Update(q); ok {
			beats = append(beats, b)
		}
	}
	return beats
}

func TestRhythmTracker_SteadyRate(t *testing.T) {
	r := NewRhythmTracker(360, 238*time.Millisecond, 6*time.Second)
	var onsets []int
	for i := 0; i < 12; i++ {
		onsets = append(onsets, 100+i*300)
	}
	beats := feedPulses(r, onsets, 20, 4000)

	require.Len(t, beats, 12)
	assert.Equal(t, int64(100), beats[0].Index)
	assert.Equal(t, time.Duration(0), beats[0].Interval)
	assert.False(t, beats[0].Accepted)
	for _, b := range beats[1:] {
		assert.True(t, b.Accepted)
		assert.InDelta(t, float64(833*time.Millisecond), float64(b.Interval), float64(time.Millisecond))
	}
	assert.Equal(t, 12, r.Beats())
	assert.InDelta(t, 72, r.BPM(), 1e-9)
	assert.Less(t, r.SDNN(), time.Microsecond)
	assert.InDelta(t, float64(833*time.Millisecond), float64(r.MeanRR()), float64(time.Millisecond))
}

func TestRhythmTracker_RejectsOutOfRange(t *testing.T) {
	r := NewRhythmTracker(360, 238*time.Millisecond, 6*time.Second)
	// 第二拍只隔 36 点 (100ms)，第三拍隔 7s
	beats := feedPulses(r, []int{0, 36, 36 + 7*360}, 5, 3000)

	require.Len(t, beats, 3)
	assert.False(t, beats[1].Accepted)
	assert.False(t, beats[2].Accepted)
	assert.Equal(t, 0.0, r.BPM())
	assert.Equal(t, time.Duration(0), r.SDNN())
}

func TestRhythmTracker_SDNN(t *testing.T) {
	r := NewRhythmTracker(100, 200*time.Millisecond, 3*time.Second)
	// 间期 1.0s, 1.2s, 0.8s
	beats := feedPulses(r, []int{0, 100, 220, 300}, 3, 400)
	require.Len(t, beats, 4)

	assert.InDelta(t, 60.0, r.BPM(), 1e-9)
	assert.InDelta(t, float64(200*time.Millisecond), float64(r.SDNN()), float64(time.Microsecond))
}

func TestRhythmTracker_WindowKeepsLatest(t *testing.T) {
	r := NewRhythmTracker(100, 200*time.Millisecond, 3*time.Second)
	var onsets []int
	pos := 0
	// 先 10 拍 2s 间期，再 9 拍 0.5s 间期，窗口里只剩短间期
	for i := 0; i < 10; i++ {
		onsets = append(onsets, pos)
		pos += 200
	}
	for i := 0; i < 9; i++ {
		onsets = append(onsets, pos)
		pos += 50
	}
	feedPulses(r, onsets, 2, pos+10)
	assert.InDelta(t, 120, r.BPM(), 1e-9)

	r.Reset()
	assert.Equal(t, 0, r.Beats())
	assert.Equal(t, 0.0, r.BPM())
}

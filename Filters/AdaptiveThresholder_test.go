package Filters

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdaptiveThresholder_FinalizesSignalPeak(t *testing.T) {
	at := &AdaptiveThresholder{Threshold: 2}

	// 上升：局部最大值记为 5，越过阈值后锁存检测
	detected := at.Update(&Output{5, 3, 1})
	assert.True(t, detected)
	assert.Equal(t, 5.0, at.LocalMax())
	assert.Equal(t, PeakNone, at.LastPeak())

	// 回落到峰值一半以下：确认峰值 5 > 2，归入信号峰
	detected = at.Update(&Output{1, 5, 3})
	assert.False(t, detected)
	assert.Equal(t, PeakSignal, at.LastPeak())
	assert.Equal(t, 0.0, at.LocalMax())
	assert.Equal(t, PeakWindow{5}, at.Signal.Window)
	assert.InDelta(t, 0.625, at.Signal.Level, 1e-15)
	assert.Equal(t, 0.0, at.Noise.Level)
	assert.InDelta(t, 0.15625, at.Threshold, 1e-15)
}

func TestAdaptiveThresholder_FinalizesNoisePeak(t *testing.T) {
	at := &AdaptiveThresholder{Threshold: 10}

	assert.False(t, at.Update(&Output{5, 3, 1}))
	assert.False(t, at.Update(&Output{1, 5, 3}))
	assert.Equal(t, PeakNoise, at.LastPeak())
	assert.Equal(t, PeakWindow{5}, at.Noise.Window)
	assert.InDelta(t, 0.625, at.Noise.Level, 1e-15)
	// threshold = NPKI + 0.25*(0 - NPKI)
	assert.InDelta(t, 0.46875, at.Threshold, 1e-15)
}

func TestAdaptiveThresholder_HoldsUntilHalfPeak(t *testing.T) {
	at := &AdaptiveThresholder{Threshold: 1}

	at.Update(&Output{4, 2, 0})
	// 已下降但仍高于峰值的一半：检测保持
	assert.True(t, at.Update(&Output{3, 4, 2}))
	assert.True(t, at.Update(&Output{2.5, 3, 4}))
	assert.Equal(t, PeakNone, at.LastPeak())
	assert.False(t, at.Update(&Output{1.5, 2.5, 3}))
	assert.Equal(t, PeakSignal, at.LastPeak())
}

func TestPeakEstimate_RunningAverage(t *testing.T) {
	var e PeakEstimate
	for i := 1; i <= 10; i++ {
		e.Update(float64(i))
	}
	// 窗口保留最近 8 个：3..10
	assert.Equal(t, PeakWindow{10, 9, 8, 7, 6, 5, 4, 3}, e.Window)
	assert.InDelta(t, 6.5, e.Level, 1e-12)

	e.Level = 100
	e.Reconcile()
	assert.InDelta(t, 6.5, e.Level, 1e-12)
}

func TestPeakClass_String(t *testing.T) {
	assert.Equal(t, "none", PeakNone.String())
	assert.Equal(t, "signal", PeakSignal.String())
	assert.Equal(t, "noise", PeakNoise.String())
}

func TestAdaptiveThresholder_Reset(t *testing.T) {
	at := &AdaptiveThresholder{Threshold: 2}
	at.Update(&Output{5, 3, 1})
	at.Reset()
	assert.Equal(t, AdaptiveThresholder{}, *at)
}

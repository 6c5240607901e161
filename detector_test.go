package qrs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrs/Filters"
)

// risingEdges 喂入信号并返回 QRS 标志上升沿的位置
func risingEdges(d *Detector, signal []float64) (edges []int, results []Result) {
	prev := false
	for n, v := range signal {
		r := d.Tick(v)
		if r.QRS && !prev {
			edges = append(edges, n)
		}
		prev = r.QRS
		results = append(results, r)
	}
	return edges, results
}

func impulseTrain(n, period int) []float64 {
	x := make([]float64, n)
	for i := 0; i < n; i += period {
		x[i] = 1
	}
	return x
}

func TestDetector_ImpulseTrainPeriod(t *testing.T) {
	const period = 300
	d := NewDetector()
	edges, results := risingEdges(d, impulseTrain(20*period, period))

	require.Greater(t, len(edges), 15)
	// 前几拍阈值还在收敛
	for i := 10; i < len(edges); i++ {
		assert.InDelta(t, period, edges[i]-edges[i-1], 1, "beat %d", i)
	}

	last := results[len(results)-1]
	assert.InDelta(t, 0.4253864288330078, last.SignalPeak, 1e-12)
	assert.Equal(t, 0.0, last.NoisePeak)
	assert.InDelta(t, 0.10634660720825195, last.Threshold, 1e-12)
	for _, r := range results {
		assert.False(t, r.Noisy)
		assert.NotEqual(t, Filters.PeakNoise, r.Peak)
	}
}

func TestDetector_SyntheticECGPeriod(t *testing.T) {
	cases := []struct {
		bpm    float64
		period int
	}{
		{72, 300},
		{60, 360},
		{120, 180},
	}
	for _, tc := range cases {
		sc := DefaultSynthConfig()
		sc.BPM = tc.bpm
		signal := NewSynth(sc).Generate(7200)

		d := NewDetector()
		edges, results := risingEdges(d, signal)
		require.Greater(t, len(edges), 10, "bpm %v", tc.bpm)
		for i := 5; i < len(edges); i++ {
			assert.InDelta(t, tc.period, edges[i]-edges[i-1], 1, "bpm %v beat %d", tc.bpm, i)
		}
		for _, r := range results {
			require.False(t, r.Noisy, "bpm %v", tc.bpm)
		}
	}
}

func TestDetector_CleanSnapshotTracksState(t *testing.T) {
	d := NewDetector()
	synth := NewSynth(DefaultSynthConfig())
	for n := 0; n < 3600; n++ {
		r := d.Tick(synth.Next())
		require.False(t, r.Noisy)
		require.False(t, r.Restored)
		require.Equal(t, Filters.Snapshot{Signal: d.thresholder.Signal, Noise: d.thresholder.Noise}, d.noise.Clean())
	}
}

// 大脉冲每 300 点一个；3000-6000 之间插入 0.4 幅度的干扰脉冲，
// 6000 之后换成 0.1 的小脉冲把噪声峰估计拉低。
func regimeSignal() []float64 {
	x := make([]float64, 9000)
	for n := range x {
		switch {
		case n%300 == 0:
			x[n] = 1
		case n%300 == 150 && n >= 3000 && n < 6000:
			x[n] = 0.4
		case n%300 == 150 && n >= 6000:
			x[n] = 0.1
		}
	}
	return x
}

func TestDetector_NoiseRegimeRestore(t *testing.T) {
	d := NewDetector()
	edges, results := risingEdges(d, regimeSignal())

	firstNoisy, noisyTicks := -1, 0
	var restores []int
	for n, r := range results {
		if r.Noisy {
			noisyTicks++
			if firstNoisy < 0 {
				firstNoisy = n
			}
		}
		if r.Restored {
			restores = append(restores, n)
			assert.InDelta(t, Filters.Mean(d.thresholder.Signal.Window[:]), r.SignalPeak, 1e-9)
		}
	}

	assert.Greater(t, noisyTicks, 0)
	assert.GreaterOrEqual(t, firstNoisy, 3000)
	assert.Less(t, firstNoisy, 6000)
	require.Len(t, restores, 1)
	assert.GreaterOrEqual(t, restores[0], 6000)
	assert.False(t, results[len(results)-1].Noisy)

	// 干扰脉冲不产生检测
	assert.Len(t, edges, 30)
	for i := 2; i < len(edges); i++ {
		assert.InDelta(t, 300, edges[i]-edges[i-1], 1, "beat %d", i)
	}
}

func TestDetector_ZeroInput(t *testing.T) {
	d := NewDetector()
	for n := 0; n < 500; n++ {
		r := d.Tick(0)
		assert.False(t, r.QRS)
		assert.False(t, r.Noisy)
		assert.Equal(t, 0.0, r.NoiseRatio)
	}
}

func TestDetector_Reset(t *testing.T) {
	d := NewDetector()
	risingEdges(d, impulseTrain(1200, 300))
	d.Reset()
	assert.Equal(t, Detector{}, *d)

	// 复位后与新实例的输出一致
	fresh := NewDetector()
	for _, v := range impulseTrain(900, 300) {
		assert.Equal(t, fresh.Tick(v), d.Tick(v))
	}
}

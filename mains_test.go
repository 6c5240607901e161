package qrs

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runMains(m *MainsDetector, signal []float64) []float64 {
	var ratios []float64
	for _, v := range signal {
		if r, done := m.Process(v); done {
			ratios = append(ratios, r)
		}
	}
	return ratios
}

func TestGoertzel_Power(t *testing.T) {
	g := NewGoertzel(360, 50)
	for _, v := range generateSineWave(50, 1, 360) {
		g.ProcessSample(v)
	}
	// 整周期正弦的 |X_k| = N/2
	assert.InEpsilon(t, 180*180, g.Power(), 1e-6)

	g.Reset()
	assert.Equal(t, 0.0, g.Power())
}

func TestMainsDetector_PureTone(t *testing.T) {
	m := NewMainsDetector(360, 50, 360, 0.5)
	ratios := runMains(m, generateSineWave(50, 2, 360))
	require.Len(t, ratios, 2)
	for _, r := range ratios {
		assert.InDelta(t, 0.665, r, 0.01)
	}
	assert.True(t, m.Interference())
}

func TestMainsDetector_CleanECG(t *testing.T) {
	m := NewMainsDetector(360, 50, 360, 0.5)
	ratios := runMains(m, NewSynth(DefaultSynthConfig()).Generate(720))
	require.Len(t, ratios, 2)
	for _, r := range ratios {
		assert.Less(t, r, 0.01)
	}
	assert.False(t, m.Interference())
}

func TestMainsDetector_ECGWithHum(t *testing.T) {
	sc := DefaultSynthConfig()
	sc.MainsAmp = 0.5
	m := NewMainsDetector(360, 50, 360, 0.5)
	ratios := runMains(m, NewSynth(sc).Generate(720))
	require.Len(t, ratios, 2)
	for _, r := range ratios {
		assert.Greater(t, r, 0.5)
	}
	assert.True(t, m.Interference())
	assert.Equal(t, ratios[1], m.Ratio())
}

func TestMainsDetector_Silence(t *testing.T) {
	m := NewMainsDetector(360, 60, 120, 0.5)
	ratios := runMains(m, make([]float64, 240))
	assert.Equal(t, []float64{0, 0}, ratios)
	assert.False(t, math.IsNaN(m.Ratio()))
}

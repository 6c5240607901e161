package qrs

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"qrs/Filters"
)

func TestAudioCapture_HandleFramesFiltersAndHolds(t *testing.T) {
	var blocks int
	ac := &AudioCapture{
		SampleRate: 48000,
		aa:         Filters.NewAntiAlias(antiAliasOrder, 48000, 360),
		Callback:   func([]float32) { blocks++ },
	}

	v, err := ac.NextSample()
	assert.NoError(t, err)
	assert.Equal(t, 0.0, v)

	// 直流加上 2kHz 干扰，干扰应被滤掉
	block := make([]float32, 480)
	for b := 0; b < 100; b++ {
		for i := range block {
			n := b*len(block) + i
			block[i] = float32(0.25 + 0.5*math.Sin(2*math.Pi*2000*float64(n)/48000))
		}
		ac.handleFrames(block)
	}
	v, _ = ac.NextSample()
	assert.InDelta(t, 0.25, v, 1e-3)
	assert.Equal(t, 100, blocks)

	ac.handleFrames(nil)
	assert.Equal(t, 100, blocks)
}

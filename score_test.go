package qrs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreBeats(t *testing.T) {
	ref := []int64{100, 400, 700, 1000}
	det := []int64{5, 118, 419, 1020, 1300}

	s := ScoreBeats(ref, det, 54)
	assert.Equal(t, Score{TruePositives: 3, FalsePositives: 2, FalseNegatives: 1}, s)
	assert.InDelta(t, 0.75, s.Sensitivity(), 1e-12)
	assert.InDelta(t, 0.6, s.PPV(), 1e-12)
}

func TestScoreBeats_Empty(t *testing.T) {
	s := ScoreBeats(nil, nil, 10)
	assert.Equal(t, Score{}, s)
	assert.Equal(t, 0.0, s.Sensitivity())
	assert.Equal(t, 0.0, s.PPV())
}

func TestScoreBeats_SyntheticECG(t *testing.T) {
	sc := DefaultSynthConfig()
	synth := NewSynth(sc)
	d := NewDetector()
	edges, _ := risingEdges(d, synth.Generate(36000))

	det := make([]int64, len(edges))
	for i, e := range edges {
		det[i] = int64(e)
	}
	s := ScoreBeats(synth.RPeaks(), det, int64(MatchWindow.Seconds()*sc.SampleRate))
	assert.GreaterOrEqual(t, s.Sensitivity(), 0.98)
	// 启动时阈值为零，开头的上升沿可能是假阳性
	assert.LessOrEqual(t, s.FalsePositives, 2)
}

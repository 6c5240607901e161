package qrs

import (
	"io"
	"math"
	"math/rand"
)

// wave 单个高斯波形，位置与宽度都以一个心动周期为单位
type wave struct {
	amp, center, width float64
}

// 一个心动周期内的 P, Q, R, S, T 波
var ecgWaves = []wave{
	{0.08, 0.18, 0.03},
	{-0.12, 0.30, 0.01},
	{1.0, 0.32, 0.008},
	{-0.25, 0.35, 0.012},
	{0.25, 0.60, 0.06},
}

// rPeakPhase R 波在周期中的位置
const rPeakPhase = 0.32

// SynthConfig 合成 ECG 的参数
type SynthConfig struct {
	SampleRate float64
	BPM        float64
	Amplitude  float64 // R 波幅度
	Baseline   float64 // 直流偏置
	JitterPct  float64 // 每拍周期的随机变化 (0-1)
	NoiseStd   float64 // 高斯白噪声标准差
	WanderAmp  float64 // 基线漂移幅度 (0.3Hz)
	MainsAmp   float64 // 工频干扰幅度
	MainsFreq  float64
	Seed       int64
}

// DefaultSynthConfig 72 bpm 的干净信号
func DefaultSynthConfig() SynthConfig {
	return SynthConfig{
		SampleRate: 360,
		BPM:        72,
		Amplitude:  1,
		Baseline:   0.3,
		MainsFreq:  50,
		Seed:       1,
	}
}

// Synth 逐点生成 P-QRS-T 合成心电信号，并记录每个 R 波的样本序号
type Synth struct {
	cfg    SynthConfig
	rng    *rand.Rand
	phase  float64
	step   float64
	n      int64
	rPeaks []int64
}

// NewSynth 创建合成器
func NewSynth(cfg SynthConfig) *Synth {
	s := &Synth{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}
	s.step = s.beatStep()
	return s
}

func (s *Synth) beatStep() float64 {
	bpm := s.cfg.BPM
	if s.cfg.JitterPct > 0 {
		bpm *= 1 + (s.rng.Float64()*2-1)*s.cfg.JitterPct
	}
	return bpm / 60 / s.cfg.SampleRate
}

// Next 生成下一个样本
func (s *Synth) Next() float64 {
	t := s.phase
	v := s.cfg.Baseline
	for _, w := range ecgWaves {
		z := (t - w.center) / w.width
		v += s.cfg.Amplitude * w.amp * math.Exp(-0.5*z*z)
	}

	sec := float64(s.n) / s.cfg.SampleRate
	if s.cfg.WanderAmp > 0 {
		v += s.cfg.WanderAmp * math.Sin(2*math.Pi*0.3*sec)
	}
	if s.cfg.MainsAmp > 0 {
		v += s.cfg.MainsAmp * math.Sin(2*math.Pi*s.cfg.MainsFreq*sec)
	}
	if s.cfg.NoiseStd > 0 {
		v += s.rng.NormFloat64() * s.cfg.NoiseStd
	}

	// 本样本与下一样本之间跨过 R 波位置时记录
	if t <= rPeakPhase && t+s.step > rPeakPhase {
		s.rPeaks = append(s.rPeaks, s.n)
	}

	s.phase += s.step
	if s.phase >= 1 {
		s.phase -= 1
		s.step = s.beatStep()
	}
	s.n++
	return v
}

// Generate 生成 n 个样本
func (s *Synth) Generate(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = s.Next()
	}
	return out
}

// NextSample 作为检测系统的输入源
func (s *Synth) NextSample() (float64, error) {
	return s.Next(), nil
}

// RPeaks 至今生成的所有 R 波位置
func (s *Synth) RPeaks() []int64 {
	return s.rPeaks
}

func (s *Synth) Close() error { return nil }

// LimitSamples 在 n 个样本之后返回 io.EOF
func LimitSamples(src SampleSource, n int64) SampleSource {
	return &limitedSource{src: src, n: n}
}

type limitedSource struct {
	src SampleSource
	n   int64
}

func (l *limitedSource) NextSample() (float64, error) {
	if l.n <= 0 {
		return 0, io.EOF
	}
	l.n--
	return l.src.NextSample()
}

func (l *limitedSource) Close() error { return l.src.Close() }

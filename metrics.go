package qrs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 检测循环与后台分析的指标，按输入源 (serial/audio/replay/synth) 区分。

var (
	TicksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qrs",
		Subsystem: "detector",
		Name:      "ticks_total",
		Help:      "Total detection cycles executed",
	}, []string{"source"})

	LateTicksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qrs",
		Subsystem: "detector",
		Name:      "late_ticks_total",
		Help:      "Detection cycles that started more than one period late",
	}, []string{"source"})

	TickLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "qrs",
		Subsystem: "detector",
		Name:      "tick_duration_seconds",
		Help:      "Detection cycle processing duration",
		Buckets:   []float64{1e-6, 5e-6, 1e-5, 5e-5, 1e-4, 5e-4, 1e-3, 2.5e-3},
	}, []string{"source"})

	BeatsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qrs",
		Subsystem: "detector",
		Name:      "beats_total",
		Help:      "Total QRS complexes detected",
	}, []string{"source"})

	PeaksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qrs",
		Subsystem: "detector",
		Name:      "peaks_total",
		Help:      "Finalized integrator peaks by class",
	}, []string{"source", "class"})

	NoisyTicksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qrs",
		Subsystem: "noise",
		Name:      "noisy_ticks_total",
		Help:      "Ticks classified as noisy",
	}, []string{"source"})

	RestoresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qrs",
		Subsystem: "noise",
		Name:      "restores_total",
		Help:      "Peak estimates restored from the clean snapshot",
	}, []string{"source"})

	NoiseRatio = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "qrs",
		Subsystem: "noise",
		Name:      "ratio",
		Help:      "Current noise ratio NPKI/sqrt(NPKI^2+SPKI^2)",
	}, []string{"source"})

	HeartRate = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "qrs",
		Subsystem: "rhythm",
		Name:      "bpm",
		Help:      "Heart rate from mean RR interval",
	}, []string{"source"})

	SDNN = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "qrs",
		Subsystem: "rhythm",
		Name:      "sdnn_seconds",
		Help:      "Standard deviation of recent RR intervals",
	}, []string{"source"})

	RejectedBeatsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qrs",
		Subsystem: "rhythm",
		Name:      "rejected_intervals_total",
		Help:      "RR intervals outside the accepted range",
	}, []string{"source"})

	SpectralRate = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "qrs",
		Subsystem: "monitor",
		Name:      "bpm",
		Help:      "Heart rate estimated from the integrator autocorrelation",
	}, []string{"source"})

	MainsInterference = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "qrs",
		Subsystem: "mains",
		Name:      "ratio",
		Help:      "Share of block energy at the mains frequency",
	}, []string{"source"})

	SinkErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qrs",
		Subsystem: "sink",
		Name:      "errors_total",
		Help:      "Output sink write failures",
	}, []string{"source", "sink"})
)

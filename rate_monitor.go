package qrs

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"
)

// monitorBatch 检测循环每攒够这么多样本才发送一次，避免每个 tick 都走 channel
const monitorBatch = 36

// RateMonitor 在后台异步运行，周期性地对最近一段积分输出做自相关心率估计。
// 检测循环通过 Push 送数据，channel 满时直接丢弃，不阻塞检测。
type RateMonitor struct {
	cfg       *Config
	estimator *RateEstimator
	logger    *slog.Logger

	// 通信
	in           chan []float64
	pending      []float64         // 只由检测循环访问
	OnRateUpdate func(bpm float64) // 每次有效估计后回调 (在后台 goroutine 中)

	// 内部状态
	ringBuffer []float64
	ringPos    int
	filled     int
	lastLogged float64

	mu      sync.Mutex
	bpm     float64
	hasRate bool

	cancel context.CancelFunc
	done   chan struct{}
}

// NewRateMonitor 创建实例
func NewRateMonitor(cfg *Config, logger *slog.Logger, onUpdate func(float64)) *RateMonitor {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	m := cfg.Monitor
	return &RateMonitor{
		cfg: cfg,
		estimator: NewRateEstimator(RateEstimatorConfig{
			SampleRate:     cfg.Sampling.Rate,
			WindowSize:     m.WindowSize,
			MinBPM:         m.MinBPM,
			MaxBPM:         m.MaxBPM,
			SmoothingAlpha: m.SmoothingAlpha,
			MaxJumpBPM:     m.MaxJumpBPM,
			MinCorrelation: m.MinCorrelation,
		}),
		logger:       logger,
		in:           make(chan []float64, m.WindowSize/monitorBatch+8),
		pending:      make([]float64, 0, monitorBatch),
		OnRateUpdate: onUpdate,
		ringBuffer:   make([]float64, m.WindowSize),
	}
}

// Start 启动后台监控 goroutine
func (rm *RateMonitor) Start(ctx context.Context) {
	if !rm.cfg.Monitor.Enabled || rm.done != nil {
		return
	}
	ctx, rm.cancel = context.WithCancel(ctx)
	rm.done = make(chan struct{})
	go rm.run(ctx)
}

// Stop 停止监控并等待 goroutine 退出
func (rm *RateMonitor) Stop() {
	if rm.cancel == nil {
		return
	}
	rm.cancel()
	<-rm.done
}

// Push 由检测循环调用，每次一个积分输出
func (rm *RateMonitor) Push(v float64) {
	if !rm.cfg.Monitor.Enabled {
		return
	}
	rm.pending = append(rm.pending, v)
	if len(rm.pending) < monitorBatch {
		return
	}
	batch := rm.pending
	select {
	case rm.in <- batch:
		rm.pending = make([]float64, 0, monitorBatch)
	default:
		// 后台来不及处理，丢弃这一批以免阻塞检测循环
		rm.pending = rm.pending[:0]
	}
}

// Rate 最近一次有效的心率估计
func (rm *RateMonitor) Rate() (float64, bool) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.bpm, rm.hasRate
}

func (rm *RateMonitor) run(ctx context.Context) {
	defer close(rm.done)
	ticker := time.NewTicker(rm.cfg.Monitor.UpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case batch := <-rm.in:
			for _, v := range batch {
				rm.ringBuffer[rm.ringPos] = v
				rm.ringPos = (rm.ringPos + 1) % len(rm.ringBuffer)
			}
			rm.filled = min(rm.filled+len(batch), len(rm.ringBuffer))
		case <-ticker.C:
			rm.analyze()
		}
	}
}

func (rm *RateMonitor) analyze() {
	if rm.filled < len(rm.ringBuffer) {
		return
	}
	// 按时间顺序展开环形缓冲区
	window := make([]float64, len(rm.ringBuffer))
	n := copy(window, rm.ringBuffer[rm.ringPos:])
	copy(window[n:], rm.ringBuffer[:rm.ringPos])

	bpm, found := rm.estimator.Estimate(window)
	if !found {
		return
	}

	rm.mu.Lock()
	rm.bpm, rm.hasRate = bpm, true
	rm.mu.Unlock()

	if math.Abs(bpm-rm.lastLogged) > 2 {
		rm.logger.Info("rate update", "bpm", math.Round(bpm*10)/10, "correlation", rm.estimator.Correlation())
		rm.lastLogged = bpm
	}
	if rm.OnRateUpdate != nil {
		rm.OnRateUpdate(bpm)
	}
}

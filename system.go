package qrs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"qrs/Filters"
)

// ErrNoSource 没有配置任何输入
var ErrNoSource = errors.New("no input source configured")

// SampleSource 每个 tick 提供一个归一化样本
type SampleSource interface {
	NextSample() (float64, error)
	Close() error
}

type namedSink struct {
	name string
	sink SignalDebugger
}

// ECGSystem 管理整个检测系统的生命周期：输入源、定时检测循环、输出和后台分析
type ECGSystem struct {
	cfg    *Config
	logger *slog.Logger

	// 组件
	source     SampleSource
	sourceName string
	detector   *Detector
	rhythm     *RhythmTracker
	monitor    *RateMonitor
	mains      *MainsDetector
	sinks      []namedSink
	paced      bool

	// 回调 (在检测 goroutine 中调用，不能阻塞)
	OnResult func(r Result)
	OnBeat   func(b Beat, r Result)

	// 状态
	prevNoisy        bool
	prevInterference bool
	ticks            int64
	m                systemMetrics

	cancel  context.CancelFunc
	done    chan struct{}
	mu      sync.Mutex
	loopErr error
}

type systemMetrics struct {
	ticks, late, beats, noisy, restores, rejected prometheus.Counter
	signalPeaks, noisePeaks                       prometheus.Counter
	latency                                       prometheus.Observer
	ratio, bpm, sdnn, spectral, mains             prometheus.Gauge
}

func newSystemMetrics(source string) systemMetrics {
	return systemMetrics{
		ticks:       TicksTotal.WithLabelValues(source),
		late:        LateTicksTotal.WithLabelValues(source),
		beats:       BeatsTotal.WithLabelValues(source),
		noisy:       NoisyTicksTotal.WithLabelValues(source),
		restores:    RestoresTotal.WithLabelValues(source),
		rejected:    RejectedBeatsTotal.WithLabelValues(source),
		signalPeaks: PeaksTotal.WithLabelValues(source, "signal"),
		noisePeaks:  PeaksTotal.WithLabelValues(source, "noise"),
		latency:     TickLatency.WithLabelValues(source),
		ratio:       NoiseRatio.WithLabelValues(source),
		bpm:         HeartRate.WithLabelValues(source),
		sdnn:        SDNN.WithLabelValues(source),
		spectral:    SpectralRate.WithLabelValues(source),
		mains:       MainsInterference.WithLabelValues(source),
	}
}

// NewECGSystem 创建系统实例
func NewECGSystem(cfg *Config, logger *slog.Logger) *ECGSystem {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ECGSystem{
		cfg:      cfg,
		logger:   logger,
		detector: NewDetector(),
		rhythm:   NewRhythmTracker(cfg.Sampling.Rate, cfg.Rhythm.MinRR, cfg.Rhythm.MaxRR),
		paced:    true,
	}
}

// SetSource 使用外部提供的输入源 (合成信号、测试)，优先于配置中的输入
func (s *ECGSystem) SetSource(name string, src SampleSource, paced bool) {
	s.source = src
	s.sourceName = name
	s.paced = paced
	s.m = newSystemMetrics(name)
}

// AddSink 增加一个输出
func (s *ECGSystem) AddSink(name string, sink SignalDebugger) {
	s.sinks = append(s.sinks, namedSink{name: name, sink: sink})
}

// Rhythm 心律统计
func (s *ECGSystem) Rhythm() *RhythmTracker {
	return s.rhythm
}

// Monitor 后台心率估计，未启用时为 nil
func (s *ECGSystem) Monitor() *RateMonitor {
	return s.monitor
}

// Start 打开输入输出并启动检测循环
func (s *ECGSystem) Start(ctx context.Context) error {
	if s.source == nil {
		if err := s.openSource(ctx); err != nil {
			return err
		}
	}
	if err := s.openSinks(); err != nil {
		s.closeAll()
		return err
	}

	if s.cfg.Monitor.Enabled {
		s.monitor = NewRateMonitor(s.cfg, s.logger, func(bpm float64) {
			s.m.spectral.Set(bpm)
		})
		s.monitor.Start(ctx)
	}
	if s.cfg.Mains.Enabled {
		s.mains = NewMainsDetector(s.cfg.Sampling.Rate, s.cfg.Mains.Frequency, s.cfg.Mains.BlockSize, s.cfg.Mains.Ratio)
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.logger.Info("detector started",
		"source", s.sourceName,
		"rate", s.cfg.Sampling.Rate,
		"paced", s.paced,
		"sinks", len(s.sinks))
	go s.run(ctx)
	return nil
}

func (s *ECGSystem) openSource(ctx context.Context) error {
	cfg := s.cfg
	switch {
	case cfg.Replay.File != "":
		src, err := NewReplaySource(cfg.Replay.File)
		if err != nil {
			return fmt.Errorf("failed to open replay file: %w", err)
		}
		if float64(src.SampleRate()) != cfg.Sampling.Rate {
			s.logger.Warn("replay sample rate differs from detector rate",
				"file_rate", src.SampleRate(), "rate", cfg.Sampling.Rate)
		}
		s.SetSource("replay", src, cfg.Replay.Realtime)
	case cfg.Serial.Enabled:
		link := NewSerialLink(cfg.Serial.Port, cfg.Serial.BaudRate, cfg.Sampling.Scale, s.logger)
		link.Timeout = cfg.Serial.ReadTimeout
		if err := link.Open(); err != nil {
			return err
		}
		if err := link.Start(ctx); err != nil {
			link.Close()
			return err
		}
		s.SetSource("serial", link, true)
	case cfg.Audio.Enabled:
		ac, err := NewAudioCapture(cfg.Audio.SampleRate, cfg.Sampling.Rate, cfg.Audio.Device, s.logger)
		if err != nil {
			return fmt.Errorf("failed to init audio capture: %w", err)
		}
		if err := ac.Start(); err != nil {
			ac.Close()
			return fmt.Errorf("failed to start audio capture: %w", err)
		}
		s.SetSource("audio", ac, true)
	default:
		return ErrNoSource
	}
	return nil
}

func (s *ECGSystem) openSinks() error {
	cfg := s.cfg
	if cfg.Record.CsvFile != "" {
		d, err := NewCsvFileDebugger(cfg.Record.CsvFile)
		if err != nil {
			return fmt.Errorf("failed to create csv file: %w", err)
		}
		s.AddSink("csv", d)
	}
	if cfg.Record.WavFile != "" {
		w, err := NewWavWriter(cfg.Record.WavFile, int(cfg.Sampling.Rate), 2)
		if err != nil {
			return fmt.Errorf("failed to create wav file: %w", err)
		}
		s.AddSink("wav", &WavRecorder{w: w})
	}
	if cfg.Indicator.Enabled {
		ind, err := OpenIndicator(cfg.Indicator.QRSPin, cfg.Indicator.NoisePin, cfg.Indicator.LEDPin)
		if err != nil {
			return err
		}
		s.AddSink("gpio", ind)
	}
	return nil
}

// Wait 等待检测循环结束。输入正常结束 (文件读完) 或被取消时返回 nil。
func (s *ECGSystem) Wait() error {
	if s.done == nil {
		return nil
	}
	<-s.done
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loopErr
}

// Stop 停止检测循环并释放所有资源
func (s *ECGSystem) Stop() error {
	if s.cancel != nil {
		s.cancel()
	}
	err := s.Wait()
	if s.monitor != nil {
		s.monitor.Stop()
	}
	if cerr := s.closeAll(); err == nil {
		err = cerr
	}
	s.logger.Info("detector stopped",
		"ticks", s.ticks,
		"beats", s.rhythm.Beats(),
		"bpm", s.rhythm.BPM())
	return err
}

func (s *ECGSystem) closeAll() error {
	var errs []error
	for _, ns := range s.sinks {
		if err := ns.sink.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", ns.name, err))
		}
	}
	s.sinks = nil
	if s.source != nil {
		if err := s.source.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close source: %w", err))
		}
		s.source = nil
	}
	return errors.Join(errs...)
}

// run 检测循环。定时模式下 time.Ticker 的缓冲只有一个，处理不过来的 tick 会被丢弃而不是排队。
func (s *ECGSystem) run(ctx context.Context) {
	defer close(s.done)

	var err error
	if s.paced {
		err = s.runPaced(ctx)
	} else {
		err = s.runFree(ctx)
	}
	if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
		s.logger.Info("input finished", "source", s.sourceName, "ticks", s.ticks)
		err = nil
	} else if err != nil {
		s.logger.Error("detector loop failed", "err", err)
	}
	s.mu.Lock()
	s.loopErr = err
	s.mu.Unlock()
}

func (s *ECGSystem) runPaced(ctx context.Context) error {
	period := time.Duration(float64(time.Second) / s.cfg.Sampling.Rate)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if now.Sub(last) > period+period/2 {
				s.m.late.Inc()
			}
			last = now
			if err := s.step(); err != nil {
				return err
			}
		}
	}
}

func (s *ECGSystem) runFree(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.step(); err != nil {
			return err
		}
	}
}

// step 执行一个检测周期
func (s *ECGSystem) step() error {
	sample, err := s.source.NextSample()
	if err != nil {
		return err
	}
	start := time.Now()
	s.process(sample)
	s.m.latency.Observe(time.Since(start).Seconds())
	return nil
}

// process 检测、统计、输出
func (s *ECGSystem) process(sample float64) Result {
	r := s.detector.Tick(sample)
	s.ticks++
	s.m.ticks.Inc()

	switch r.Peak {
	case Filters.PeakSignal:
		s.m.signalPeaks.Inc()
	case Filters.PeakNoise:
		s.m.noisePeaks.Inc()
	}
	s.m.ratio.Set(r.NoiseRatio)
	if r.Noisy {
		s.m.noisy.Inc()
	}
	if r.Noisy != s.prevNoisy {
		s.logger.Info("noise regime changed", "noisy", r.Noisy, "ratio", r.NoiseRatio, "tick", s.ticks)
		s.prevNoisy = r.Noisy
	}
	if r.Restored {
		s.m.restores.Inc()
		s.logger.Debug("peak estimates restored", "spki", r.SignalPeak, "npki", r.NoisePeak)
	}

	if beat, ok := s.rhythm.Update(r.QRS); ok {
		s.m.beats.Inc()
		if beat.Interval > 0 && !beat.Accepted {
			s.m.rejected.Inc()
		}
		s.m.bpm.Set(s.rhythm.BPM())
		s.m.sdnn.Set(s.rhythm.SDNN().Seconds())
		if s.OnBeat != nil {
			s.OnBeat(beat, r)
		}
	}

	if s.monitor != nil {
		s.monitor.Push(r.Integrated)
	}
	if s.mains != nil {
		if ratio, done := s.mains.Process(sample); done {
			s.m.mains.Set(ratio)
			if hum := s.mains.Interference(); hum != s.prevInterference {
				s.logger.Warn("mains interference changed", "present", hum, "ratio", ratio)
				s.prevInterference = hum
			}
		}
	}

	for _, ns := range s.sinks {
		if err := ns.sink.Record(r); err != nil {
			SinkErrorsTotal.WithLabelValues(s.sourceName, ns.name).Inc()
			s.logger.Error("sink write failed", "sink", ns.name, "err", err)
		}
	}
	if s.OnResult != nil {
		s.OnResult(r)
	}
	return r
}

// WavRecorder 把输入和 SPKI 写成双声道 WAV，用于离线查看
type WavRecorder struct {
	w *WavWriter
}

func (r *WavRecorder) Record(res Result) error {
	return r.w.WriteFrame(res.Sample, res.SignalPeak)
}

func (r *WavRecorder) Close() error {
	return r.w.Close()
}

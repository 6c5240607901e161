package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"qrs"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "qrs",
		Short: "Real-time Pan-Tompkins QRS detector",
		Long: `qrs detects heartbeats in a streaming ECG sampled at a fixed rate.

Inputs: serial peer device, sound card line input, or WAV replay.
Outputs: GPIO indicator lines, WAV/CSV recordings, Prometheus metrics.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("config", "", "YAML config file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("metrics-addr", "", "Serve Prometheus metrics on this address")
	rootCmd.PersistentFlags().String("csv", "", "Write per-tick debug CSV")
	rootCmd.PersistentFlags().String("record", "", "Record input and SPKI to a stereo WAV")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("qrs v%s\n", version)
		},
	})

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the detector on a live or recorded input",
		RunE:  runDetector,
	}
	runCmd.Flags().String("file", "", "Replay a WAV file instead of live input")
	runCmd.Flags().Bool("fast", false, "Replay as fast as possible instead of in real time")
	runCmd.Flags().String("port", "", "Serial port of the peer device (enables serial input)")
	runCmd.Flags().Int("baud", 0, "Serial baud rate")
	runCmd.Flags().Bool("audio", false, "Capture from the sound card line input")
	runCmd.Flags().Bool("gpio", false, "Drive the QRS/noise/LED indicator lines")
	rootCmd.AddCommand(runCmd)

	simCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the detector on a synthetic ECG",
		RunE:  runSimulate,
	}
	simCmd.Flags().Float64("bpm", 72, "Heart rate of the synthetic signal")
	simCmd.Flags().Float64("noise", 0, "Gaussian noise standard deviation")
	simCmd.Flags().Float64("mains", 0, "Mains interference amplitude")
	simCmd.Flags().Float64("jitter", 0, "Beat-to-beat period jitter (0-1)")
	simCmd.Flags().Duration("duration", 30*time.Second, "Signal length")
	simCmd.Flags().Bool("realtime", false, "Pace the simulation at the sampling rate")
	rootCmd.AddCommand(simCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig 读取配置文件并用命令行参数覆盖
func loadConfig(cmd *cobra.Command) (*qrs.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := qrs.LoadConfig(path)
	if err != nil {
		return nil, nil, err
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if v, _ := cmd.Flags().GetString("metrics-addr"); v != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Addr = v
	}
	if v, _ := cmd.Flags().GetString("csv"); v != "" {
		cfg.Record.CsvFile = v
	}
	if v, _ := cmd.Flags().GetString("record"); v != "" {
		cfg.Record.WavFile = v
	}
	logger := qrs.NewLogger(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func runDetector(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if v, _ := flags.GetString("file"); v != "" {
		cfg.Replay.File = v
	}
	if v, _ := flags.GetBool("fast"); v {
		cfg.Replay.Realtime = false
	}
	if v, _ := flags.GetString("port"); v != "" {
		cfg.Serial.Enabled = true
		cfg.Serial.Port = v
	}
	if v, _ := flags.GetInt("baud"); v > 0 {
		cfg.Serial.BaudRate = v
	}
	if v, _ := flags.GetBool("audio"); v {
		cfg.Audio.Enabled = true
	}
	if v, _ := flags.GetBool("gpio"); v {
		cfg.Indicator.Enabled = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	system := qrs.NewECGSystem(cfg, logger)
	system.OnBeat = func(b qrs.Beat, r qrs.Result) {
		logger.Debug("beat", "index", b.Index, "rr", b.Interval, "spki", r.SignalPeak, "noisy", r.Noisy)
	}
	return serve(cfg, logger, system)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	sc := qrs.DefaultSynthConfig()
	sc.SampleRate = cfg.Sampling.Rate
	sc.BPM, _ = flags.GetFloat64("bpm")
	sc.NoiseStd, _ = flags.GetFloat64("noise")
	sc.MainsAmp, _ = flags.GetFloat64("mains")
	sc.MainsFreq = cfg.Mains.Frequency
	sc.JitterPct, _ = flags.GetFloat64("jitter")
	sc.Seed = time.Now().UnixNano()
	duration, _ := flags.GetDuration("duration")
	realtime, _ := flags.GetBool("realtime")

	synth := qrs.NewSynth(sc)
	n := int64(duration.Seconds() * cfg.Sampling.Rate)

	system := qrs.NewECGSystem(cfg, logger)
	system.SetSource("synth", qrs.LimitSamples(synth, n), realtime)
	var detected []int64
	system.OnBeat = func(b qrs.Beat, r qrs.Result) {
		detected = append(detected, b.Index)
	}
	if err := serve(cfg, logger, system); err != nil {
		return err
	}

	score := qrs.ScoreBeats(synth.RPeaks(), detected, int64(qrs.MatchWindow.Seconds()*cfg.Sampling.Rate))
	rhythm := system.Rhythm()
	fmt.Printf("beats: reference=%d detected=%d  Se=%.1f%%  PPV=%.1f%%\n",
		len(synth.RPeaks()), len(detected), score.Sensitivity()*100, score.PPV()*100)
	fmt.Printf("rhythm: %.1f bpm  SDNN=%v\n", rhythm.BPM(), rhythm.SDNN().Round(time.Millisecond))
	return nil
}

// serve 启动系统与指标服务，等待输入结束或退出信号
func serve(cfg *qrs.Config, logger *slog.Logger, system *qrs.ECGSystem) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Enabled {
		go serveMetrics(ctx, cfg.Metrics.Addr, logger)
	}
	if err := system.Start(ctx); err != nil {
		return fmt.Errorf("system start failed: %w", err)
	}
	waitErr := system.Wait()
	if err := system.Stop(); err != nil && waitErr == nil {
		waitErr = err
	}
	return waitErr
}

func serveMetrics(ctx context.Context, addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics server listening", "addr", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server failed", "err", err)
	}
}

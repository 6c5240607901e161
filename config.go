package qrs

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig 配置校验失败
var ErrInvalidConfig = errors.New("invalid config")

// Config 结构体用于集中管理检测系统的所有可调参数。
// 滤波器系数与阈值常数是固定设计，不在这里。
type Config struct {
	// --- 采样 ---
	Sampling struct {
		Rate  float64 `yaml:"rate"`  // 采样率 (Hz)，滤波器系数按 360Hz 设计
		Scale float64 `yaml:"scale"` // 串口整数样本的归一化除数 (11-bit ADC -> 2048)
	} `yaml:"sampling"`

	// --- 串口输入 (对端设备逐点发送样本) ---
	Serial struct {
		Enabled     bool          `yaml:"enabled"`
		Port        string        `yaml:"port"`
		BaudRate    int           `yaml:"baud"`
		ReadTimeout time.Duration `yaml:"read_timeout"`
	} `yaml:"serial"`

	// --- 声卡输入 (模拟前端接线路输入) ---
	Audio struct {
		Enabled    bool   `yaml:"enabled"`
		Device     string `yaml:"device"`      // 设备名关键字，空为默认设备
		SampleRate int    `yaml:"sample_rate"` // 声卡采样率，每个 tick 取最新值
	} `yaml:"audio"`

	// --- 文件回放 ---
	Replay struct {
		File     string `yaml:"file"`     // WAV 文件
		Realtime bool   `yaml:"realtime"` // true: 按采样率节拍回放; false: 尽快处理
	} `yaml:"replay"`

	// --- 录制 ---
	Record struct {
		WavFile string `yaml:"wav"` // 双声道: 输入, SPKI
		CsvFile string `yaml:"csv"` // 每 tick 一行的调试记录
	} `yaml:"record"`

	// --- 指示输出 (GPIO) ---
	Indicator struct {
		Enabled  bool   `yaml:"enabled"`
		QRSPin   string `yaml:"qrs_pin"`
		NoisePin string `yaml:"noise_pin"`
		LEDPin   string `yaml:"led_pin"` // 首次检测后常亮
	} `yaml:"indicator"`

	// --- 心律统计 ---
	Rhythm struct {
		MinRR time.Duration `yaml:"min_rr"` // 小于此间期视为误检 (约 250 bpm)
		MaxRR time.Duration `yaml:"max_rr"` // 大于此间期视为漏检 (10 bpm)
	} `yaml:"rhythm"`

	// --- 后台心率谱估计 (RateMonitor) ---
	Monitor struct {
		Enabled        bool          `yaml:"enabled"`
		UpdateInterval time.Duration `yaml:"update_interval"`
		WindowSize     int           `yaml:"window_size"`     // 参与自相关的样本数
		MinBPM         float64       `yaml:"min_bpm"`         // 搜索下限
		MaxBPM         float64       `yaml:"max_bpm"`         // 搜索上限
		SmoothingAlpha float64       `yaml:"smoothing_alpha"` // 0-1，越小越平滑
		MaxJumpBPM     float64       `yaml:"max_jump_bpm"`    // 超过此跳变视为干扰
		MinCorrelation float64       `yaml:"min_correlation"` // 归一化自相关峰的最低值
	} `yaml:"monitor"`

	// --- 工频干扰检测 ---
	Mains struct {
		Enabled   bool    `yaml:"enabled"`
		Frequency float64 `yaml:"frequency"`  // 50 或 60 Hz
		BlockSize int     `yaml:"block_size"` // 每块样本数
		Ratio     float64 `yaml:"ratio"`      // 工频能量占比超过此值报警
	} `yaml:"mains"`

	// --- 指标 ---
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Addr    string `yaml:"addr"`
	} `yaml:"metrics"`

	// --- 日志 ---
	Log struct {
		Level  string `yaml:"level"`  // debug, info, warn, error
		Format string `yaml:"format"` // text, json
	} `yaml:"log"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Sampling.Rate = 360
	cfg.Sampling.Scale = 2048

	cfg.Serial.Enabled = false
	cfg.Serial.Port = "/dev/ttyACM0"
	cfg.Serial.BaudRate = 115200
	cfg.Serial.ReadTimeout = 500 * time.Millisecond

	cfg.Audio.SampleRate = 48000

	cfg.Replay.Realtime = true

	cfg.Indicator.QRSPin = "GPIO17"
	cfg.Indicator.NoisePin = "GPIO27"
	cfg.Indicator.LEDPin = "GPIO22"

	cfg.Rhythm.MinRR = 238 * time.Millisecond // 252 bpm
	cfg.Rhythm.MaxRR = 6 * time.Second        // 10 bpm

	cfg.Monitor.Enabled = true
	cfg.Monitor.UpdateInterval = 2 * time.Second
	cfg.Monitor.WindowSize = 2048 // 约 5.7s @360Hz
	cfg.Monitor.MinBPM = 30
	cfg.Monitor.MaxBPM = 220
	cfg.Monitor.SmoothingAlpha = 0.3
	cfg.Monitor.MaxJumpBPM = 40
	cfg.Monitor.MinCorrelation = 0.3

	cfg.Mains.Enabled = true
	cfg.Mains.Frequency = 50
	cfg.Mains.BlockSize = 360
	cfg.Mains.Ratio = 0.5

	cfg.Metrics.Addr = ":9360"

	cfg.Log.Level = "info"
	cfg.Log.Format = "text"

	return cfg
}

// LoadConfig 在默认配置上叠加 YAML 文件。path 为空时只返回默认配置。
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 检查数值范围
func (c *Config) Validate() error {
	switch {
	case c.Sampling.Rate <= 0:
		return fmt.Errorf("%w: sampling.rate must be positive, got %v", ErrInvalidConfig, c.Sampling.Rate)
	case c.Sampling.Scale == 0:
		return fmt.Errorf("%w: sampling.scale must be non-zero", ErrInvalidConfig)
	case c.Rhythm.MinRR <= 0 || c.Rhythm.MaxRR <= c.Rhythm.MinRR:
		return fmt.Errorf("%w: rhythm range [%v, %v]", ErrInvalidConfig, c.Rhythm.MinRR, c.Rhythm.MaxRR)
	case c.Serial.Enabled && c.Serial.Port == "":
		return fmt.Errorf("%w: serial.port is empty", ErrInvalidConfig)
	case c.Serial.Enabled && c.Serial.ReadTimeout <= 0:
		// 没有读超时，串口读会一直阻塞，关闭时等不到读 goroutine 退出
		return fmt.Errorf("%w: serial.read_timeout must be positive", ErrInvalidConfig)
	case c.Serial.Enabled && c.Audio.Enabled:
		return fmt.Errorf("%w: serial and audio inputs are exclusive", ErrInvalidConfig)
	}
	if c.Monitor.Enabled {
		m := c.Monitor
		if m.WindowSize < 2 || m.MinBPM <= 0 || m.MaxBPM <= m.MinBPM || m.UpdateInterval <= 0 {
			return fmt.Errorf("%w: monitor settings", ErrInvalidConfig)
		}
		if m.SmoothingAlpha <= 0 || m.SmoothingAlpha > 1 {
			return fmt.Errorf("%w: monitor.smoothing_alpha must be in (0, 1]", ErrInvalidConfig)
		}
	}
	if c.Mains.Enabled && (c.Mains.Frequency <= 0 || c.Mains.BlockSize <= 0 ||
		c.Mains.Frequency >= c.Sampling.Rate/2) {
		return fmt.Errorf("%w: mains settings", ErrInvalidConfig)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: log.format %q", ErrInvalidConfig, c.Log.Format)
	}
	return nil
}

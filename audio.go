package qrs

import (
	"fmt"
	"log/slog"
	"strings"
	"unsafe"

	"github.com/gen2brain/malgo"

	"qrs/Filters"
)

// antiAliasOrder 声卡输入抗混叠低通的阶数
const antiAliasOrder = 4

// AudioCallback 定义音频数据回调函数类型
type AudioCallback func(samples []float32)

// AudioCapture 通过声卡线路输入采集模拟 ECG 前端的信号。
// 声卡采样率远高于检测采样率，采集到的样本先经过抗混叠低通，
// 每个 tick 只取最近一个滤波后的样本 (采样保持)。
type AudioCapture struct {
	ctx        *malgo.AllocatedContext
	device     *malgo.Device
	SampleRate int
	Callback   AudioCallback // 可选，收到每块数据后调用

	aa     *Filters.AntiAlias // 只在音频回调中使用
	hold   sampleHold
	logger *slog.Logger
}

// NewAudioCapture 创建新的音频捕获实例，tickRate 为检测采样率
func NewAudioCapture(sampleRate int, tickRate float64, targetDeviceName string, logger *slog.Logger) (*AudioCapture, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to init malgo context: %w", err)
	}

	ac := &AudioCapture{
		ctx:        ctx,
		SampleRate: sampleRate,
		aa:         Filters.NewAntiAlias(antiAliasOrder, float64(sampleRate), tickRate),
		logger:     logger,
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = uint32(sampleRate)
	deviceConfig.Alsa.NoMMap = 1

	if targetDeviceName != "" {
		infos, err := ctx.Devices(malgo.Capture)
		if err == nil {
			for _, info := range infos {
				if strings.Contains(strings.ToLower(info.Name()), strings.ToLower(targetDeviceName)) {
					deviceConfig.Capture.DeviceID = info.ID.Pointer()
					logger.Info("selected audio device", "name", info.Name())
					break
				}
			}
		}
	}

	onRecvFrames := func(pOutputSample, pInputSamples []byte, framecount uint32) {
		if len(pInputSamples) == 0 || framecount == 0 {
			return
		}
		samples := unsafe.Slice((*float32)(unsafe.Pointer(&pInputSamples[0])), int(framecount))
		ac.handleFrames(samples)
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{Data: onRecvFrames})
	if err != nil {
		_ = ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("failed to init device: %w", err)
	}
	ac.device = device
	logger.Info("audio device initialized", "rate", device.SampleRate())

	return ac, nil
}

func (ac *AudioCapture) handleFrames(samples []float32) {
	if len(samples) == 0 {
		return
	}
	var v float64
	for _, x := range samples {
		v = ac.aa.Process(float64(x))
	}
	ac.hold.Store(v)
	if ac.Callback != nil {
		ac.Callback(samples)
	}
}

// Start 启动音频捕获
func (ac *AudioCapture) Start() error {
	if ac.device == nil {
		return fmt.Errorf("device not initialized")
	}
	return ac.device.Start()
}

// NextSample 返回最近一个采集到的样本
func (ac *AudioCapture) NextSample() (float64, error) {
	return ac.hold.Load(), nil
}

// Close 停止音频捕获并释放资源
func (ac *AudioCapture) Close() error {
	if ac.device != nil {
		ac.device.Uninit()
		ac.device = nil
	}
	if ac.ctx != nil {
		_ = ac.ctx.Uninit()
		ac.ctx.Free()
		ac.ctx = nil
	}
	return nil
}

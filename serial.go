package qrs

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tarm/serial"
)

const (
	// FrameTerminator 每个样本帧以 0x00 结尾
	FrameTerminator = 0x00
	// FrameDataLen 帧中数据字节数 (int16 小端)
	FrameDataLen = 2
)

// SerialPort 定义串口操作接口，方便测试 Mock
type SerialPort interface {
	io.ReadWriteCloser
}

// FrameDecoder 从字节流中还原样本帧: [lo, hi, 0x00]。
// 数据字节收满之前出现的 0x00 也按数据处理；收满之后只有 0x00 能结束帧，
// 其它字节被丢弃。
type FrameDecoder struct {
	data [FrameDataLen]byte
	n    int
}

// Feed 输入一个字节，完成一帧时返回样本和 true
func (d *FrameDecoder) Feed(b byte) (int16, bool) {
	if b == FrameTerminator && d.n >= FrameDataLen {
		d.n = 0
		return int16(binary.LittleEndian.Uint16(d.data[:])), true
	}
	if d.n < FrameDataLen {
		d.data[d.n] = b
		d.n++
	}
	return 0, false
}

// EncodeFrame 构造一个样本帧
func EncodeFrame(v int16) []byte {
	frame := make([]byte, FrameDataLen+1)
	binary.LittleEndian.PutUint16(frame, uint16(v))
	frame[FrameDataLen] = FrameTerminator
	return frame
}

// sampleHold 最新样本的采样保持，读写可以来自不同 goroutine
type sampleHold struct {
	bits atomic.Uint64
}

func (h *sampleHold) Store(v float64) { h.bits.Store(math.Float64bits(v)) }
func (h *sampleHold) Load() float64  { return math.Float64frombits(h.bits.Load()) }

// SerialLink 与对端设备的串口链路。后台 goroutine 持续解帧，
// 检测循环每个 tick 取最近一个样本。
type SerialLink struct {
	Port     string
	BaudRate int
	Timeout  time.Duration
	Scale    float64 // 整数样本除以 Scale 得到归一化值

	conn    SerialPort
	decoder FrameDecoder
	hold    sampleHold
	frames  atomic.Int64
	logger  *slog.Logger

	mu      sync.Mutex
	readErr error
	done    chan struct{}
}

// NewSerialLink 创建串口链路
func NewSerialLink(port string, baudRate int, scale float64, logger *slog.Logger) *SerialLink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SerialLink{
		Port:     port,
		BaudRate: baudRate,
		Timeout:  500 * time.Millisecond,
		Scale:    scale,
		logger:   logger,
	}
}

// Open 打开串口连接
func (l *SerialLink) Open() error {
	s, err := serial.OpenPort(&serial.Config{
		Name:        l.Port,
		Baud:        l.BaudRate,
		ReadTimeout: l.Timeout,
	})
	if err != nil {
		return fmt.Errorf("open serial port %s: %w", l.Port, err)
	}
	l.conn = s
	l.logger.Info("serial port opened", "port", l.Port, "baud", l.BaudRate)
	return nil
}

// Start 启动后台读取，ctx 取消或读出错时结束
func (l *SerialLink) Start(ctx context.Context) error {
	if l.conn == nil {
		return fmt.Errorf("serial link %s: connection not open", l.Port)
	}
	l.done = make(chan struct{})
	go l.readLoop(ctx)
	return nil
}

func (l *SerialLink) readLoop(ctx context.Context) {
	defer close(l.done)
	buf := make([]byte, 256)
	for {
		if ctx.Err() != nil {
			return
		}
		n, err := l.conn.Read(buf)
		for _, b := range buf[:n] {
			if v, ok := l.decoder.Feed(b); ok {
				l.hold.Store(float64(v) / l.Scale)
				l.frames.Add(1)
			}
		}
		// 读超时在 tarm/serial 上表现为 0 字节 + io.EOF
		if err != nil && !errors.Is(err, io.EOF) {
			l.mu.Lock()
			l.readErr = fmt.Errorf("serial read: %w", err)
			l.mu.Unlock()
			return
		}
	}
}

// NextSample 返回当前保持的样本。读 goroutine 出错后返回该错误。
func (l *SerialLink) NextSample() (float64, error) {
	l.mu.Lock()
	err := l.readErr
	l.mu.Unlock()
	if err != nil {
		return 0, err
	}
	return l.hold.Load(), nil
}

// Frames 已解出的帧数
func (l *SerialLink) Frames() int64 {
	return l.frames.Load()
}

// SendSample 以帧格式发送一个样本 (发送端使用)
func (l *SerialLink) SendSample(v int16) error {
	if l.conn == nil {
		return fmt.Errorf("serial link %s: connection not open", l.Port)
	}
	_, err := l.conn.Write(EncodeFrame(v))
	return err
}

// Close 关闭串口并等待读 goroutine 退出
func (l *SerialLink) Close() error {
	if l.conn == nil {
		return nil
	}
	err := l.conn.Close()
	if l.done != nil {
		<-l.done
	}
	l.conn = nil
	return err
}

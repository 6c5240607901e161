package qrs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockSerialPort 模拟串口。缓冲读空时返回 io.EOF (与串口读超时一致)，
// 关闭后返回 io.ErrClosedPipe。
type MockSerialPort struct {
	mu          sync.Mutex
	ReadBuffer  *bytes.Buffer
	WriteBuffer *bytes.Buffer
	Closed      bool
	ReadErr     error // 缓冲读空后返回的错误，默认 io.EOF
}

func NewMockSerialPort() *MockSerialPort {
	return &MockSerialPort{
		ReadBuffer:  new(bytes.Buffer),
		WriteBuffer: new(bytes.Buffer),
	}
}

func (m *MockSerialPort) Read(p []byte) (n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Closed {
		return 0, io.ErrClosedPipe
	}
	if m.ReadBuffer.Len() == 0 {
		if m.ReadErr != nil {
			return 0, m.ReadErr
		}
		return 0, io.EOF
	}
	return m.ReadBuffer.Read(p)
}

func (m *MockSerialPort) Write(p []byte) (n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.WriteBuffer.Write(p)
}

func (m *MockSerialPort) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

func (m *MockSerialPort) Feed(b []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadBuffer.Write(b)
}

func decodeAll(d *FrameDecoder, stream []byte) []int16 {
	var out []int16
	for _, b := range stream {
		if v, ok := d.Feed(b); ok {
			out = append(out, v)
		}
	}
	return out
}

func TestEncodeFrame(t *testing.T) {
	assert.Equal(t, []byte{0x34, 0x12, 0x00}, EncodeFrame(0x1234))
	assert.Equal(t, []byte{0xFF, 0xFF, 0x00}, EncodeFrame(-1))
}

func TestFrameDecoder_Stream(t *testing.T) {
	values := []int16{0, 1, 256, -1, 2047, -2048, 0x1234, 5}
	var stream []byte
	for _, v := range values {
		stream = append(stream, EncodeFrame(v)...)
	}
	var d FrameDecoder
	assert.Equal(t, values, decodeAll(&d, stream))
}

func TestFrameDecoder_IgnoresExtraBytes(t *testing.T) {
	var d FrameDecoder
	// 两个数据字节之后的非零字节被丢弃，直到 0x00 结束帧
	stream := []byte{0x10, 0x00, 0x7F, 0x7F, 0x00, 0x20, 0x00, 0x00}
	assert.Equal(t, []int16{0x10, 0x20}, decodeAll(&d, stream))
}

func TestFrameDecoder_TerminatorTooEarly(t *testing.T) {
	var d FrameDecoder
	// 不足两个数据字节时 0x00 作为数据
	v, ok := d.Feed(0x00)
	assert.False(t, ok)
	v, ok = d.Feed(0x00)
	assert.False(t, ok)
	v, ok = d.Feed(0x00)
	assert.True(t, ok)
	assert.Equal(t, int16(0), v)
}

func TestSerialLink_SendSample(t *testing.T) {
	mockPort := NewMockSerialPort()
	link := &SerialLink{conn: mockPort}

	require.NoError(t, link.SendSample(1000))
	require.NoError(t, link.SendSample(-1000))
	assert.Equal(t, append(EncodeFrame(1000), EncodeFrame(-1000)...), mockPort.WriteBuffer.Bytes())
}

func TestSerialLink_NotOpen(t *testing.T) {
	link := NewSerialLink("/dev/null", 9600, 2048, nil)
	assert.Error(t, link.SendSample(1))
	assert.Error(t, link.Start(context.Background()))
	assert.NoError(t, link.Close())
}

func TestSerialLink_HoldsLatestSample(t *testing.T) {
	mockPort := NewMockSerialPort()
	link := NewSerialLink("mock", 115200, 2048, nil)
	link.conn = mockPort

	v, err := link.NextSample()
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)

	for _, s := range []int16{100, 512, 1024} {
		mockPort.Feed(EncodeFrame(s))
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, link.Start(ctx))

	require.Eventually(t, func() bool { return link.Frames() == 3 }, time.Second, time.Millisecond)
	v, err = link.NextSample()
	require.NoError(t, err)
	assert.Equal(t, 0.5, v)

	require.NoError(t, link.Close())
	assert.True(t, mockPort.Closed)
}

func TestSerialLink_ReadErrorSurfaces(t *testing.T) {
	mockPort := NewMockSerialPort()
	mockPort.ReadErr = errors.New("device unplugged")
	link := NewSerialLink("mock", 115200, 2048, nil)
	link.conn = mockPort

	require.NoError(t, link.Start(context.Background()))
	require.Eventually(t, func() bool {
		_, err := link.NextSample()
		return err != nil
	}, time.Second, time.Millisecond)

	_, err := link.NextSample()
	assert.ErrorContains(t, err, "device unplugged")
	assert.NoError(t, link.Close())
}

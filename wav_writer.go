package qrs

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// WavWriter 简单的 16-bit PCM WAV 写入器，支持多通道
type WavWriter struct {
	file       *os.File
	w          *bufio.Writer
	sampleRate int
	channels   int
	dataSize   int
	frame      []byte
}

// NewWavWriter 创建新的 WAV 写入器
func NewWavWriter(filename string, sampleRate, channels int) (*WavWriter, error) {
	if channels < 1 {
		return nil, fmt.Errorf("wav writer: invalid channel count %d", channels)
	}
	f, err := os.Create(filename)
	if err != nil {
		return nil, err
	}

	// 写入占位符头 (44字节)，Close 时回写正确的大小
	if _, err := f.Write(make([]byte, 44)); err != nil {
		f.Close()
		return nil, err
	}

	return &WavWriter{
		file:       f,
		w:          bufio.NewWriter(f),
		sampleRate: sampleRate,
		channels:   channels,
		frame:      make([]byte, 2*channels),
	}, nil
}

// WriteFrame 写入一帧，每个通道一个 [-1, 1] 的值，超出部分限幅
func (w *WavWriter) WriteFrame(values ...float64) error {
	if len(values) != w.channels {
		return fmt.Errorf("wav writer: got %d values for %d channels", len(values), w.channels)
	}
	for i, s := range values {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		binary.LittleEndian.PutUint16(w.frame[i*2:], uint16(int16(s*32767)))
	}
	n, err := w.w.Write(w.frame)
	w.dataSize += n
	return err
}

// Close 刷新缓冲、回写 WAV 头并关闭文件
func (w *WavWriter) Close() error {
	if err := w.w.Flush(); err != nil {
		w.file.Close()
		return err
	}

	blockAlign := w.channels * 2
	header := make([]byte, 44)
	copy(header[0:], "RIFF")
	binary.LittleEndian.PutUint32(header[4:], uint32(36+w.dataSize))
	copy(header[8:], "WAVE")
	copy(header[12:], "fmt ")
	binary.LittleEndian.PutUint32(header[16:], 16) // PCM fmt chunk 长度
	binary.LittleEndian.PutUint16(header[20:], 1)  // PCM
	binary.LittleEndian.PutUint16(header[22:], uint16(w.channels))
	binary.LittleEndian.PutUint32(header[24:], uint32(w.sampleRate))
	binary.LittleEndian.PutUint32(header[28:], uint32(w.sampleRate*blockAlign)) // ByteRate
	binary.LittleEndian.PutUint16(header[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:], 16)
	copy(header[36:], "data")
	binary.LittleEndian.PutUint32(header[40:], uint32(w.dataSize))

	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		w.file.Close()
		return err
	}
	if _, err := w.file.Write(header); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

package qrs

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrUnsupportedWav 文件不是 16-bit PCM WAV
var ErrUnsupportedWav = errors.New("unsupported wav file")

// WavReader 简单的 WAV 文件读取器 (仅支持 16-bit PCM)
type WavReader struct {
	file       *os.File
	r          *bufio.Reader
	SampleRate int
	Channels   int
	DataSize   int
	remaining  int // data chunk 中尚未读取的字节数
}

// NewWavReader 打开文件并定位到 data chunk
func NewWavReader(filename string) (*WavReader, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	w, err := parseWavHeader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	w.file = f
	w.r = bufio.NewReader(f)
	return w, nil
}

func parseWavHeader(f *os.File) (*WavReader, error) {
	riffHeader := make([]byte, 12)
	if _, err := io.ReadFull(f, riffHeader); err != nil {
		return nil, err
	}
	if string(riffHeader[0:4]) != "RIFF" || string(riffHeader[8:12]) != "WAVE" {
		return nil, fmt.Errorf("%w: missing RIFF/WAVE header", ErrUnsupportedWav)
	}

	var channels, sampleRate, bitsPerSample, format int
	foundFmt := false

	for {
		chunkHeader := make([]byte, 8)
		if _, err := io.ReadFull(f, chunkHeader); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("%w: missing data chunk", ErrUnsupportedWav)
			}
			return nil, err
		}
		chunkID := string(chunkHeader[0:4])
		chunkSize := binary.LittleEndian.Uint32(chunkHeader[4:8])
		padding := int64(chunkSize % 2)

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return nil, fmt.Errorf("%w: fmt chunk too small", ErrUnsupportedWav)
			}
			fmtData := make([]byte, chunkSize)
			if _, err := io.ReadFull(f, fmtData); err != nil {
				return nil, err
			}
			if _, err := f.Seek(padding, io.SeekCurrent); err != nil {
				return nil, err
			}
			format = int(binary.LittleEndian.Uint16(fmtData[0:2]))
			channels = int(binary.LittleEndian.Uint16(fmtData[2:4]))
			sampleRate = int(binary.LittleEndian.Uint32(fmtData[4:8]))
			bitsPerSample = int(binary.LittleEndian.Uint16(fmtData[14:16]))
			foundFmt = true
		case "data":
			if !foundFmt {
				return nil, fmt.Errorf("%w: data chunk before fmt chunk", ErrUnsupportedWav)
			}
			if format != 1 || bitsPerSample != 16 || channels < 1 {
				return nil, fmt.Errorf("%w: format %d, %d-bit, %d channels", ErrUnsupportedWav, format, bitsPerSample, channels)
			}
			return &WavReader{
				SampleRate: sampleRate,
				Channels:   channels,
				DataSize:   int(chunkSize),
				remaining:  int(chunkSize),
			}, nil
		default:
			if _, err := f.Seek(int64(chunkSize)+padding, io.SeekCurrent); err != nil {
				return nil, err
			}
		}
	}
}

// ReadFrames 读取最多 count 帧，每帧每个通道一个归一化到 [-1, 1) 的值。
// 数据读完时返回 io.EOF。
func (r *WavReader) ReadFrames(count int) ([][]float64, error) {
	frameBytes := 2 * r.Channels
	want := count * frameBytes
	if want > r.remaining {
		want = r.remaining - r.remaining%frameBytes
	}
	if want == 0 {
		return nil, io.EOF
	}
	buf := make([]byte, want)
	n, err := io.ReadFull(r.r, buf)
	r.remaining -= n
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, err
	}

	numFrames := n / frameBytes
	if numFrames == 0 {
		return nil, io.EOF
	}
	out := make([][]float64, numFrames)
	for i := range out {
		frame := make([]float64, r.Channels)
		for ch := range frame {
			offset := i*frameBytes + ch*2
			val := int16(binary.LittleEndian.Uint16(buf[offset : offset+2]))
			frame[ch] = float64(val) / 32768.0
		}
		out[i] = frame
	}
	return out, nil
}

// ReadSamples 读取第一个通道的 count 个样本
func (r *WavReader) ReadSamples(count int) ([]float64, error) {
	frames, err := r.ReadFrames(count)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(frames))
	for i, f := range frames {
		out[i] = f[0]
	}
	return out, nil
}

func (r *WavReader) Close() error {
	return r.file.Close()
}

// replayChunk 回放时每次从文件读取的样本数
const replayChunk = 1024

// ReplaySource 把 WAV 文件第一个通道逐点送给检测循环
type ReplaySource struct {
	reader *WavReader
	buf    []float64
	pos    int
}

// NewReplaySource 打开回放文件
func NewReplaySource(filename string) (*ReplaySource, error) {
	r, err := NewWavReader(filename)
	if err != nil {
		return nil, err
	}
	return &ReplaySource{reader: r}, nil
}

// SampleRate 文件采样率
func (s *ReplaySource) SampleRate() int {
	return s.reader.SampleRate
}

// NextSample 返回下一个样本，文件结束时返回 io.EOF
func (s *ReplaySource) NextSample() (float64, error) {
	if s.pos >= len(s.buf) {
		samples, err := s.reader.ReadSamples(replayChunk)
		if err != nil {
			return 0, err
		}
		s.buf, s.pos = samples, 0
	}
	v := s.buf[s.pos]
	s.pos++
	return v, nil
}

func (s *ReplaySource) Close() error {
	return s.reader.Close()
}

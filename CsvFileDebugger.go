package qrs

import (
	"bufio"
	"fmt"
	"os"
)

// SignalDebugger 定义调试器接口
// 系统只依赖这个接口，不依赖具体的文件操作
type SignalDebugger interface {
	Record(r Result) error
	Close() error
}

// CsvFileDebugger 是 SignalDebugger 的具体实现，每个 tick 一行
type CsvFileDebugger struct {
	file   *os.File
	writer *bufio.Writer
}

// NewCsvFileDebugger 创建一个新的 CSV 调试器
func NewCsvFileDebugger(filename string) (*CsvFileDebugger, error) {
	f, err := os.Create(filename)
	if err != nil {
		return nil, err
	}

	w := bufio.NewWriter(f)
	if _, err := w.WriteString("Sample,Filtered,Integrated,Threshold,SPKI,NPKI,NoiseRatio,QRS,Noisy,Peak\n"); err != nil {
		f.Close()
		return nil, err
	}

	return &CsvFileDebugger{
		file:   f,
		writer: w,
	}, nil
}

// Record 记录单帧数据
func (d *CsvFileDebugger) Record(r Result) error {
	_, err := fmt.Fprintf(d.writer, "%g,%g,%g,%g,%g,%g,%g,%d,%d,%s\n",
		r.Sample, r.Filtered, r.Integrated, r.Threshold, r.SignalPeak, r.NoisePeak, r.NoiseRatio,
		b2i(r.QRS), b2i(r.Noisy), r.Peak)
	return err
}

// Close 关闭文件并刷新缓冲区
func (d *CsvFileDebugger) Close() error {
	if err := d.writer.Flush(); err != nil {
		d.file.Close()
		return err
	}
	return d.file.Close()
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

// NoOpDebugger 是一个空实现，不记录数据时使用
type NoOpDebugger struct{}

func (NoOpDebugger) Record(Result) error { return nil }
func (NoOpDebugger) Close() error        { return nil }

package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"time"

	"qrs"
)

// 模拟对端设备：按采样率把 WAV 文件 (或合成信号) 逐点以帧格式写到串口
func main() {
	portName := flag.String("port", "/dev/ttyUSB0", "Serial port")
	baudRate := flag.Int("baud", 115200, "Baud rate")
	file := flag.String("file", "", "WAV file to stream (synthetic ECG if empty)")
	rate := flag.Float64("rate", 360, "Samples per second")
	scale := flag.Float64("scale", 2048, "Integer full scale")
	flag.Parse()

	var src qrs.SampleSource
	if *file != "" {
		r, err := qrs.NewReplaySource(*file)
		if err != nil {
			log.Fatalf("Failed to open %s: %v\n", *file, err)
		}
		src = r
	} else {
		sc := qrs.DefaultSynthConfig()
		sc.SampleRate = *rate
		src = qrs.NewSynth(sc)
	}
	defer src.Close()

	link := qrs.NewSerialLink(*portName, *baudRate, *scale, nil)
	if err := link.Open(); err != nil {
		log.Fatalf("Failed to open serial port: %v\n", err)
	}
	defer link.Close()
	fmt.Printf("Streaming to %s at %.0f Hz. Ctrl-C to stop.\n", *portName, *rate)

	ticker := time.NewTicker(time.Duration(float64(time.Second) / *rate))
	defer ticker.Stop()
	sent := 0
	for range ticker.C {
		v, err := src.NextSample()
		if err != nil {
			break
		}
		q := math.Round(v * *scale)
		q = math.Max(math.MinInt16, math.Min(math.MaxInt16, q))
		if err := link.SendSample(int16(q)); err != nil {
			log.Printf("Error sending sample: %v\n", err)
			break
		}
		sent++
	}
	fmt.Printf("Sent %d samples. Bye.\n", sent)
}

package qrs

import (
	"errors"
	"fmt"

	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/host"
)

// ErrPinNotFound GPIO 名称在当前主机上不存在
var ErrPinNotFound = errors.New("gpio pin not found")

// OutputPin 指示器需要的最小 GPIO 能力，gpio.PinIO 满足它
type OutputPin interface {
	Out(l gpio.Level) error
}

// Indicator 把检测结果输出到三根数字线：
// QRS 线跟随检测标志，噪声线跟随噪声判定，LED 在第一次检测到心跳后常亮。
// 电平只在变化时写出。
type Indicator struct {
	qrs   OutputPin
	noise OutputPin
	led   OutputPin

	qrsLevel   gpio.Level
	noiseLevel gpio.Level
	ledOn      bool
}

// NewIndicator 使用已经准备好的引脚，全部先拉低
func NewIndicator(qrs, noise, led OutputPin) (*Indicator, error) {
	ind := &Indicator{qrs: qrs, noise: noise, led: led}
	for _, p := range []OutputPin{qrs, noise, led} {
		if err := p.Out(gpio.Low); err != nil {
			return nil, fmt.Errorf("indicator: init pin: %w", err)
		}
	}
	return ind, nil
}

// OpenIndicator 初始化主机驱动并按名称查找引脚
func OpenIndicator(qrsPin, noisePin, ledPin string) (*Indicator, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("indicator: host init: %w", err)
	}
	pins := make([]OutputPin, 3)
	for i, name := range []string{qrsPin, noisePin, ledPin} {
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("indicator: %w: %s", ErrPinNotFound, name)
		}
		pins[i] = p
	}
	return NewIndicator(pins[0], pins[1], pins[2])
}

// Record 按当前 tick 的结果刷新输出
func (ind *Indicator) Record(r Result) error {
	if err := set(ind.qrs, &ind.qrsLevel, gpio.Level(r.QRS)); err != nil {
		return fmt.Errorf("indicator: qrs line: %w", err)
	}
	if err := set(ind.noise, &ind.noiseLevel, gpio.Level(r.Noisy)); err != nil {
		return fmt.Errorf("indicator: noise line: %w", err)
	}
	if r.QRS && !ind.ledOn {
		if err := ind.led.Out(gpio.High); err != nil {
			return fmt.Errorf("indicator: led: %w", err)
		}
		ind.ledOn = true
	}
	return nil
}

func set(p OutputPin, cur *gpio.Level, l gpio.Level) error {
	if *cur == l {
		return nil
	}
	if err := p.Out(l); err != nil {
		return err
	}
	*cur = l
	return nil
}

// Close 所有输出拉低
func (ind *Indicator) Close() error {
	var errs []error
	for _, p := range []OutputPin{ind.qrs, ind.noise, ind.led} {
		errs = append(errs, p.Out(gpio.Low))
	}
	ind.qrsLevel, ind.noiseLevel, ind.ledOn = gpio.Low, gpio.Low, false
	return errors.Join(errs...)
}

package qrs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/periph/conn/gpio"
)

// mockPin 记录每次写出的电平
type mockPin struct {
	writes []gpio.Level
	err    error
}

func (p *mockPin) Out(l gpio.Level) error {
	if p.err != nil {
		return p.err
	}
	p.writes = append(p.writes, l)
	return nil
}

func (p *mockPin) level() gpio.Level {
	if len(p.writes) == 0 {
		return gpio.Low
	}
	return p.writes[len(p.writes)-1]
}

func TestIndicator_FollowsResults(t *testing.T) {
	qrsPin, noisePin, ledPin := &mockPin{}, &mockPin{}, &mockPin{}
	ind, err := NewIndicator(qrsPin, noisePin, ledPin)
	require.NoError(t, err)
	assert.Equal(t, []gpio.Level{gpio.Low}, ledPin.writes)

	require.NoError(t, ind.Record(Result{}))
	assert.Equal(t, gpio.Low, ledPin.level())

	require.NoError(t, ind.Record(Result{QRS: true}))
	assert.Equal(t, gpio.High, qrsPin.level())
	assert.Equal(t, gpio.High, ledPin.level())

	require.NoError(t, ind.Record(Result{QRS: true}))
	require.NoError(t, ind.Record(Result{Noisy: true}))
	assert.Equal(t, gpio.Low, qrsPin.level())
	assert.Equal(t, gpio.High, noisePin.level())
	// LED 保持常亮
	assert.Equal(t, gpio.High, ledPin.level())

	// 电平不变时不重复写
	assert.Equal(t, []gpio.Level{gpio.Low, gpio.High, gpio.Low}, qrsPin.writes)
	assert.Equal(t, []gpio.Level{gpio.Low, gpio.High}, ledPin.writes)

	require.NoError(t, ind.Close())
	assert.Equal(t, gpio.Low, qrsPin.level())
	assert.Equal(t, gpio.Low, noisePin.level())
	assert.Equal(t, gpio.Low, ledPin.level())
}

func TestIndicator_PinError(t *testing.T) {
	broken := &mockPin{err: errors.New("bus fault")}
	_, err := NewIndicator(&mockPin{}, broken, &mockPin{})
	assert.ErrorContains(t, err, "bus fault")

	qrsPin := &mockPin{}
	ind, err := NewIndicator(qrsPin, &mockPin{}, &mockPin{})
	require.NoError(t, err)
	qrsPin.err = errors.New("bus fault")
	assert.ErrorContains(t, ind.Record(Result{QRS: true}), "qrs line")
}

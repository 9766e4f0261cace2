package hw

import (
	"encoding/binary"
	"io"
	"time"

	"github.com/pkg/errors"

	"github.com/buckleypaul/jig/internal/clock"
)

const (
	adsRegConversion = 0x00
	adsRegConfig     = 0x01

	adsStartSingle = 0x8000 // write: start a conversion; read: 1 when idle
	adsMuxSingle0  = 0x4000 // AINx vs GND is 0x4000 + x<<12
	adsPGA6144     = 0x0000 // ±6.144 V full scale
	adsModeSingle  = 0x0100
	adsRate860     = 0x00e0
	adsCompDisable = 0x0003

	// adsLSB is one count at ±6.144 V full scale, in volts.
	adsLSB = 187.5e-6

	adsPollInterval = 2 * time.Millisecond
	adsMaxPolls     = 20
)

// ErrInvalidChannel is returned for a channel outside 0..3.
var ErrInvalidChannel = errors.New("invalid ADC channel")

// ADS1115 measures single-ended voltages in one-shot mode.
type ADS1115 struct {
	dev   io.ReadWriter
	clock clock.Clock
}

// NewADS1115 returns a converter on dev. A nil clk uses the real clock.
func NewADS1115(dev io.ReadWriter, clk clock.Clock) *ADS1115 {
	if clk == nil {
		clk = clock.Real()
	}
	return &ADS1115{dev: dev, clock: clk}
}

// Measure converts AIN<channel> against ground and returns volts.
func (a *ADS1115) Measure(channel int) (float64, error) {
	if channel < 0 || channel > 3 {
		return 0, errors.Wrapf(ErrInvalidChannel, "channel %d", channel)
	}

	cfg := uint16(adsStartSingle | adsMuxSingle0 | channel<<12 | adsPGA6144 | adsModeSingle | adsRate860 | adsCompDisable)
	if err := a.writeRegister(adsRegConfig, cfg); err != nil {
		return 0, err
	}

	for i := 0; ; i++ {
		a.clock.Sleep(adsPollInterval)
		status, err := a.readRegister(adsRegConfig)
		if err != nil {
			return 0, err
		}
		if status&adsStartSingle != 0 {
			break
		}
		if i == adsMaxPolls {
			return 0, errors.Errorf("conversion on channel %d did not finish", channel)
		}
	}

	raw, err := a.readRegister(adsRegConversion)
	if err != nil {
		return 0, err
	}
	return float64(int16(raw)) * adsLSB, nil
}

func (a *ADS1115) writeRegister(reg byte, v uint16) error {
	buf := []byte{reg, 0, 0}
	binary.BigEndian.PutUint16(buf[1:], v)
	_, err := a.dev.Write(buf)
	return err
}

func (a *ADS1115) readRegister(reg byte) (uint16, error) {
	if _, err := a.dev.Write([]byte{reg}); err != nil {
		return 0, err
	}
	buf := make([]byte, 2)
	if err := readFull(a.dev, buf); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf), nil
}

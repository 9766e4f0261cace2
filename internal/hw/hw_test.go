package hw

import (
	"encoding/binary"
	"errors"
	"math"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buckleypaul/jig/internal/clock"
)

// fakeADS models the ADS1115 register pointer protocol.
type fakeADS struct {
	pointer   byte
	config    uint16
	counts    map[int]int16 // per channel
	busyPolls int           // config reads reporting busy after a start
	writeErr  error
}

func (f *fakeADS) Write(p []byte) (int, error) {
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	f.pointer = p[0]
	if len(p) == 3 && p[0] == adsRegConfig {
		f.config = binary.BigEndian.Uint16(p[1:])
	}
	return len(p), nil
}

func (f *fakeADS) Read(p []byte) (int, error) {
	var v uint16
	switch f.pointer {
	case adsRegConfig:
		v = f.config &^ adsStartSingle
		if f.busyPolls > 0 {
			f.busyPolls--
		} else {
			v |= adsStartSingle
		}
	case adsRegConversion:
		channel := int(f.config>>12&0x7) - 4
		v = uint16(f.counts[channel])
	}
	binary.BigEndian.PutUint16(p, v)
	return 2, nil
}

func newFakeClock() *clock.FakeClock {
	return clock.Fake(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
}

func TestADS1115Measure(t *testing.T) {
	dev := &fakeADS{counts: map[int]int16{0: 17600, 3: 21973}, busyPolls: 2}
	adc := NewADS1115(dev, newFakeClock())

	v, err := adc.Measure(0)
	require.NoError(t, err)
	assert.InDelta(t, 3.3, v, 0.001)

	v, err = adc.Measure(3)
	require.NoError(t, err)
	assert.InDelta(t, 4.12, v, 0.001)

	mux := dev.config >> 12 & 0x7
	assert.Equal(t, uint16(7), mux, "AIN3 single ended")
	assert.Equal(t, uint16(adsModeSingle), dev.config&adsModeSingle)
	assert.Equal(t, uint16(adsCompDisable), dev.config&adsCompDisable)
}

func TestADS1115NegativeCounts(t *testing.T) {
	adc := NewADS1115(&fakeADS{counts: map[int]int16{1: -32768}}, newFakeClock())
	v, err := adc.Measure(1)
	require.NoError(t, err)
	assert.InDelta(t, -6.144, v, 0.0001)
}

func TestADS1115InvalidChannel(t *testing.T) {
	adc := NewADS1115(&fakeADS{}, newFakeClock())
	_, err := adc.Measure(4)
	assert.ErrorIs(t, err, ErrInvalidChannel)
}

func TestADS1115ConversionTimeout(t *testing.T) {
	adc := NewADS1115(&fakeADS{busyPolls: math.MaxInt32}, newFakeClock())
	_, err := adc.Measure(0)
	assert.Error(t, err)
}

func TestADS1115BusError(t *testing.T) {
	busErr := &BusError{Op: "write", Addr: 0x48, Err: syscall.ENXIO}
	adc := NewADS1115(&fakeADS{writeErr: busErr}, newFakeClock())
	_, err := adc.Measure(0)

	var got *BusError
	require.True(t, errors.As(err, &got))
	assert.Equal(t, uint16(0x48), got.Addr)
	assert.ErrorIs(t, err, syscall.ENXIO)
	assert.Equal(t, "i2c 0x48 write: no such device or address", err.Error())
}

// fakeBNO replays SHTP packets and answers resets and product id requests.
type fakeBNO struct {
	pending  [][]byte
	writes   [][]byte
	writeErr error
	noAnswer bool
}

func shtp(channel byte, payload ...byte) []byte {
	pkt := make([]byte, 4+len(payload))
	binary.LittleEndian.PutUint16(pkt, uint16(len(pkt)))
	pkt[2] = channel
	copy(pkt[4:], payload)
	return pkt
}

func rotationReport(i, j, k, real int16) []byte {
	r := []byte{reportBaseTimestamp, 0, 0, 0, 0, reportRotationVector, 1, 3, 0}
	for _, v := range []int16{i, j, k, real} {
		r = binary.LittleEndian.AppendUint16(r, uint16(v))
	}
	return append(r, 0, 0)
}

func (f *fakeBNO) Write(p []byte) (int, error) {
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	f.writes = append(f.writes, append([]byte(nil), p...))
	if f.noAnswer {
		return len(p), nil
	}
	switch {
	case p[2] == shtpExecutable && p[4] == execReset:
		f.pending = append(f.pending, shtp(shtpCommand, 0, 1, 2, 3), shtp(shtpExecutable, 1))
	case p[2] == shtpControl && p[4] == reportProductIDRequest:
		f.pending = append(f.pending, shtp(shtpControl, reportProductIDResponse, 0, 3, 2))
	}
	return len(p), nil
}

func (f *fakeBNO) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	if len(f.pending) == 0 {
		return len(p), nil
	}
	next := f.pending[0]
	if len(p) == 4 {
		return copy(p, next[:4]), nil
	}
	f.pending = f.pending[1:]
	return copy(p, next), nil
}

func TestBNO08xInit(t *testing.T) {
	dev := &fakeBNO{}
	require.NoError(t, NewBNO08x(dev, newFakeClock()).Init())

	require.Len(t, dev.writes, 2)
	assert.Equal(t, []byte{5, 0, shtpExecutable, 0, execReset}, dev.writes[0])
	assert.Equal(t, byte(reportProductIDRequest), dev.writes[1][4])
}

func TestBNO08xInitNoAnswer(t *testing.T) {
	err := NewBNO08x(&fakeBNO{noAnswer: true}, newFakeClock()).Init()
	assert.ErrorIs(t, err, ErrNoProductID)
}

func TestBNO08xInitBusError(t *testing.T) {
	err := NewBNO08x(&fakeBNO{writeErr: &BusError{Op: "write", Addr: 0x4b, Err: syscall.EREMOTEIO}}, newFakeClock()).Init()
	var busErr *BusError
	assert.True(t, errors.As(err, &busErr))
}

func TestBNO08xEnableRotationVector(t *testing.T) {
	dev := &fakeBNO{}
	b := NewBNO08x(dev, newFakeClock())
	require.NoError(t, b.EnableRotationVector(5*time.Millisecond))

	cmd := dev.writes[0]
	assert.Equal(t, byte(shtpControl), cmd[2])
	assert.Equal(t, byte(reportSetFeature), cmd[4])
	assert.Equal(t, byte(reportRotationVector), cmd[5])
	assert.Equal(t, uint32(5000), binary.LittleEndian.Uint32(cmd[9:13]))
}

func TestBNO08xHandleMessages(t *testing.T) {
	dev := &fakeBNO{}
	b := NewBNO08x(dev, newFakeClock())

	_, err := b.RotationQuaternion()
	assert.Error(t, err, "no report yet")

	dev.pending = [][]byte{
		shtp(shtpReports, rotationReport(0, 0, 0, 1<<14)...),
		shtp(shtpControl, 0xfc),
		shtp(shtpReports, rotationReport(1<<13, 0, 0, 1<<13)...),
	}
	assert.Equal(t, 3, b.HandleMessages())
	assert.Zero(t, b.HandleMessages())

	q, err := b.RotationQuaternion()
	require.NoError(t, err)
	assert.InDelta(t, 0.5, q[0], 1e-9)
	assert.InDelta(t, 0.5, q[3], 1e-9)
	assert.False(t, q.Zero())
}

func TestBNO08xSequenceNumbersPerChannel(t *testing.T) {
	dev := &fakeBNO{noAnswer: true}
	b := NewBNO08x(dev, newFakeClock())
	require.NoError(t, b.EnableRotationVector(time.Millisecond))
	require.NoError(t, b.EnableRotationVector(time.Millisecond))
	assert.Equal(t, byte(0), dev.writes[0][3])
	assert.Equal(t, byte(1), dev.writes[1][3])
}

// streamingBNO always has another rotation report pending.
type streamingBNO struct {
	reads int
}

func (s *streamingBNO) Write(p []byte) (int, error) { return len(p), nil }

func (s *streamingBNO) Read(p []byte) (int, error) {
	s.reads++
	return copy(p, shtp(shtpReports, rotationReport(0, 0, 0, 1<<14)...)), nil
}

func TestBNO08xHandleMessagesBounded(t *testing.T) {
	dev := &streamingBNO{}
	b := NewBNO08x(dev, newFakeClock())

	done := make(chan int, 1)
	go func() { done <- b.HandleMessages() }()

	select {
	case n := <-done:
		assert.Equal(t, maxMessages, n)
	case <-time.After(2 * time.Second):
		t.Fatal("HandleMessages did not return for a streaming sensor")
	}

	_, err := b.RotationQuaternion()
	assert.NoError(t, err)
}

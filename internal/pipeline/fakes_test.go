package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/buckleypaul/jig/internal/clock"
	"github.com/buckleypaul/jig/internal/logbus"
)

var errReadTimeout = errors.New("read timeout")

type fakePresence struct {
	mu      sync.Mutex
	answers []bool // consumed in order; the last answer repeats
	calls   int
}

func (f *fakePresence) IsPresent(vid, pid uint16) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.answers) == 0 {
		return false
	}
	a := f.answers[0]
	if len(f.answers) > 1 {
		f.answers = f.answers[1:]
	}
	return a
}

type reading struct {
	volts float64
	err   error
}

type fakeVoltage struct {
	readings map[int]reading
	channels []int
}

func (f *fakeVoltage) Measure(channel int) (float64, error) {
	f.channels = append(f.channels, channel)
	r, ok := f.readings[channel]
	if !ok {
		return 0, errors.New("invalid channel")
	}
	return r.volts, r.err
}

func healthyVoltages() *fakeVoltage {
	return &fakeVoltage{readings: map[int]reading{
		2: {volts: 5.01},
		3: {volts: 4.12},
		0: {volts: 3.3 - 0.2},
	}}
}

type fakeIdentity struct {
	mac   string
	err   error
	calls int
}

func (f *fakeIdentity) ReadHardwareID(context.Context) (string, string, error) {
	f.calls++
	if f.err != nil {
		return "", "", f.err
	}
	return f.mac, "MAC: " + f.mac + "\n", nil
}

type fakeFlasher struct {
	log   string
	err   error
	panic bool
	calls int
}

func (f *fakeFlasher) Flash(context.Context) (string, error) {
	f.calls++
	if f.panic {
		panic("flasher exploded")
	}
	return f.log, f.err
}

// fakeSerial plays back boot chunks, then replies to written commands.
type fakeSerial struct {
	chunks    []string
	replies   map[string][]string
	writeErr  error
	clearErr  error
	written   []string
	resets    int
	closed    bool
	cleared   bool
	resetFail error
}

func (f *fakeSerial) Read(p []byte) (int, error) {
	if len(f.chunks) == 0 {
		return 0, errReadTimeout
	}
	n := copy(p, f.chunks[0])
	f.chunks[0] = f.chunks[0][n:]
	if f.chunks[0] == "" {
		f.chunks = f.chunks[1:]
	}
	return n, nil
}

func (f *fakeSerial) Write(p []byte) (int, error) {
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	f.written = append(f.written, string(p))
	f.chunks = append(f.chunks, f.replies[string(p)]...)
	return len(p), nil
}

func (f *fakeSerial) ClearBuffers() error { f.cleared = true; return f.clearErr }
func (f *fakeSerial) Close() error        { f.closed = true; return nil }
func (f *fakeSerial) Reset() error        { f.resets++; return f.resetFail }

type fakeOpener struct {
	port  *fakeSerial
	err   error
	opens int
}

func (f *fakeOpener) Open() (SerialChannel, error) {
	f.opens++
	if f.err != nil {
		return nil, f.err
	}
	return f.port, nil
}

func healthySerial() *fakeSerial {
	return &fakeSerial{
		chunks: []string{
			"ets Jan  8 2013,rst cause:2\n",
			"[INFO ] [BNO080Sensor:0] Connected to BNO085 on 0x4a\n",
		},
		replies: map[string][]string{
			"GET TEST\n": {"[INFO ] [SerialCommands] Sensor 1 sent some data, looks working.\n"},
		},
	}
}

type fakeSensor struct {
	initErrs  []error // consumed in order, nil once exhausted
	initCalls int
	enableErr error
	messages  int
	quat      Quaternion
	quatErr   error
}

func (f *fakeSensor) Init() error {
	f.initCalls++
	if len(f.initErrs) == 0 {
		return nil
	}
	err := f.initErrs[0]
	f.initErrs = f.initErrs[1:]
	return err
}

func (f *fakeSensor) EnableRotationVector(time.Duration) error { return f.enableErr }
func (f *fakeSensor) HandleMessages() int                      { return f.messages }
func (f *fakeSensor) RotationQuaternion() (Quaternion, error)  { return f.quat, f.quatErr }

// harness collects everything a pipeline test needs.
type harness struct {
	bus      *logbus.Bus
	clock    *clock.FakeClock
	presence *fakePresence
	voltage  *fakeVoltage
	identity *fakeIdentity
	flasher  *fakeFlasher
	opener   *fakeOpener
	sensor   *fakeSensor
}

func newHarness() *harness {
	return &harness{
		bus:      logbus.New(1024),
		clock:    clock.Fake(time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)),
		presence: &fakePresence{answers: []bool{true}},
		voltage:  healthyVoltages(),
		identity: &fakeIdentity{mac: "a4:cf:12:00:11:22"},
		flasher:  &fakeFlasher{log: "Wrote 400000 bytes\nHash of data verified.\n"},
		opener:   &fakeOpener{port: healthySerial()},
		sensor:   &fakeSensor{messages: 12, quat: Quaternion{0.01, -0.02, 0.7, 0.71}},
	}
}

func (h *harness) deps() Deps {
	return Deps{
		Presence: h.presence,
		Voltage:  h.voltage,
		Identity: h.identity,
		Flasher:  h.flasher,
		Serial:   h.opener,
		Sensor:   h.sensor,
		Bus:      h.bus.Producer(),
		Clock:    h.clock,
	}
}

// screen closes the bus and returns what the renderer would show.
func (h *harness) screen() []logbus.Event {
	h.bus.Close()
	var last []logbus.Event
	h.bus.Consumer().Run(logbus.RendererFunc(func(events []logbus.Event) { last = events }))
	return last
}

func texts(events []logbus.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Text)
	}
	return out
}

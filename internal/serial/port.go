package serial

import (
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.bug.st/serial"
)

// ErrReadTimeout is returned by Port.Read when no data arrived within the
// read timeout.
var ErrReadTimeout = errors.New("serial read timed out")

// resetPulse is how long RTS holds the chip in reset.
const resetPulse = 100 * time.Millisecond

// device is the part of serial.Port that Port drives.
type device interface {
	io.ReadWriteCloser
	Drain() error
	ResetInputBuffer() error
	ResetOutputBuffer() error
	SetDTR(dtr bool) error
	SetRTS(rts bool) error
}

// Port is an open serial connection to the device under test.
type Port struct {
	dev  device
	name string
	mu   sync.Mutex
	done bool
}

// Opener opens the station's serial port with fixed settings.
type Opener struct {
	Name        string
	BaudRate    int
	ReadTimeout time.Duration
}

// Open opens the port 8N1 at o.BaudRate. Reads fail with ErrReadTimeout once
// o.ReadTimeout passes without data.
func (o Opener) Open() (*Port, error) {
	mode := &serial.Mode{
		BaudRate: o.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	p, err := serial.Open(o.Name, mode)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", o.Name)
	}
	if o.ReadTimeout > 0 {
		if err := p.SetReadTimeout(o.ReadTimeout); err != nil {
			p.Close()
			return nil, errors.Wrapf(err, "set read timeout on %s", o.Name)
		}
	}
	return newPort(p, o.Name), nil
}

func newPort(dev device, name string) *Port {
	return &Port{dev: dev, name: name}
}

// Name returns the device path.
func (p *Port) Name() string { return p.name }

// Read reads from the port. A read that times out without data returns
// ErrReadTimeout rather than (0, nil).
func (p *Port) Read(b []byte) (int, error) {
	n, err := p.dev.Read(b)
	if err != nil {
		return n, errors.Wrapf(err, "read %s", p.name)
	}
	if n == 0 && len(b) > 0 {
		return 0, ErrReadTimeout
	}
	return n, nil
}

// Write writes b and waits until it has been transmitted.
func (p *Port) Write(b []byte) (int, error) {
	n, err := p.dev.Write(b)
	if err != nil {
		return n, errors.Wrapf(err, "write %s", p.name)
	}
	if err := p.dev.Drain(); err != nil {
		return n, errors.Wrapf(err, "drain %s", p.name)
	}
	return n, nil
}

// ClearBuffers discards pending input and output.
func (p *Port) ClearBuffers() error {
	if err := p.dev.ResetInputBuffer(); err != nil {
		return errors.Wrapf(err, "reset input buffer of %s", p.name)
	}
	if err := p.dev.ResetOutputBuffer(); err != nil {
		return errors.Wrapf(err, "reset output buffer of %s", p.name)
	}
	return nil
}

// Reset reboots the device into its application by pulsing RTS, which drives
// the chip enable line on the usual USB-serial wiring. DTR is released first
// so the boot strap pin stays high.
func (p *Port) Reset() error {
	if err := p.dev.SetDTR(false); err != nil {
		return errors.Wrapf(err, "release DTR on %s", p.name)
	}
	if err := p.dev.SetRTS(true); err != nil {
		return errors.Wrapf(err, "assert RTS on %s", p.name)
	}
	time.Sleep(resetPulse)
	if err := p.dev.SetRTS(false); err != nil {
		return errors.Wrapf(err, "release RTS on %s", p.name)
	}
	return nil
}

// Close closes the port. Closing twice is a no-op.
func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		return nil
	}
	p.done = true
	return p.dev.Close()
}

// Package hw talks to the fixture's I2C peripherals: the ADS1115 that
// measures the board supply rails and the BNO08x IMU on the sensor add-on.
package hw

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// i2cSlave is the i2c-dev ioctl that binds a file descriptor to an address.
const i2cSlave = 0x0703

// BusError reports a failed I2C transfer.
type BusError struct {
	Op   string
	Addr uint16
	Err  error
}

func (e *BusError) Error() string {
	return fmt.Sprintf("i2c 0x%02x %s: %v", e.Addr, e.Op, e.Err)
}

func (e *BusError) Unwrap() error { return e.Err }

// Device is one I2C peripheral behind a Linux i2c-dev node. Each Read and
// Write is a single bus transaction.
type Device struct {
	f    *os.File
	addr uint16
	mu   sync.Mutex
}

var _ io.ReadWriteCloser = (*Device)(nil)

// OpenDevice opens bus (e.g. /dev/i2c-1) and binds it to addr.
func OpenDevice(bus string, addr uint16) (*Device, error) {
	f, err := os.OpenFile(bus, os.O_RDWR, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", bus)
	}
	if err := unix.IoctlSetInt(int(f.Fd()), i2cSlave, int(addr)); err != nil {
		f.Close()
		return nil, &BusError{Op: "select", Addr: addr, Err: err}
	}
	return &Device{f: f, addr: addr}, nil
}

// Addr returns the bound address.
func (d *Device) Addr() uint16 { return d.addr }

func (d *Device) Read(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, err := d.f.Read(p)
	if err != nil {
		return n, &BusError{Op: "read", Addr: d.addr, Err: err}
	}
	return n, nil
}

func (d *Device) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, err := d.f.Write(p)
	if err != nil {
		return n, &BusError{Op: "write", Addr: d.addr, Err: err}
	}
	return n, nil
}

func (d *Device) Close() error {
	return d.f.Close()
}

// readFull reads exactly len(p) bytes in one transaction.
func readFull(rw io.Reader, p []byte) error {
	n, err := rw.Read(p)
	if err != nil {
		return err
	}
	if n != len(p) {
		return errors.Errorf("short read: %d of %d bytes", n, len(p))
	}
	return nil
}

package pipeline

import (
	"context"
	"io"
	"time"
)

// DevicePresence reports whether a USB device is attached.
type DevicePresence interface {
	IsPresent(vendorID, productID uint16) bool
}

// VoltageSource measures one analog channel in volts.
type VoltageSource interface {
	Measure(channel int) (float64, error)
}

// IdentityReader reads the device's hardware identity (its MAC address).
type IdentityReader interface {
	ReadHardwareID(ctx context.Context) (id string, log string, err error)
}

// Flasher writes the firmware image to the device and returns the tool log.
type Flasher interface {
	Flash(ctx context.Context) (string, error)
}

// SerialChannel is an open serial connection to the device. Read must return
// an error once its read timeout elapses so scans terminate.
type SerialChannel interface {
	io.ReadWriter
	ClearBuffers() error
	Close() error
}

// SerialOpener opens the device's serial console.
type SerialOpener interface {
	Open() (SerialChannel, error)
}

// Resetter reboots the device so it prints its boot log again.
type Resetter interface {
	Reset() error
}

// Quaternion is a unit rotation as reported by the sensor (i, j, k, real).
type Quaternion [4]float64

// Zero reports whether every component is zero, meaning no fusion happened.
func (q Quaternion) Zero() bool {
	return q == Quaternion{}
}

// SensorLink drives the IMU on an auxiliary board.
type SensorLink interface {
	Init() error
	EnableRotationVector(interval time.Duration) error
	HandleMessages() int
	RotationQuaternion() (Quaternion, error)
}

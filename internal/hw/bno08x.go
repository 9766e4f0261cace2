package hw

import (
	"encoding/binary"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/buckleypaul/jig/internal/clock"
	"github.com/buckleypaul/jig/internal/pipeline"
)

// SHTP channels.
const (
	shtpCommand    = 0
	shtpExecutable = 1
	shtpControl    = 2
	shtpReports    = 3
)

const (
	shtpHeaderLen = 4
	shtpMaxPacket = 512

	reportProductIDRequest  = 0xf9
	reportProductIDResponse = 0xf8
	reportSetFeature        = 0xfd
	reportBaseTimestamp     = 0xfb
	reportTimestampRebase   = 0xfa
	reportRotationVector    = 0x05

	execReset = 0x01

	// Rotation vector components are Q14 fixed point.
	rotationQPoint = 14

	bnoResetSettle = 50 * time.Millisecond
	bnoPollDelay   = 5 * time.Millisecond
	bnoMaxDrain    = 16
)

// ErrNoProductID is returned when the sensor never answers the product id
// request after a reset.
var ErrNoProductID = errors.New("no product id response from sensor")

type shtpPacket struct {
	channel byte
	payload []byte
}

// BNO08x speaks SHTP to a BNO080/BNO085 IMU over I2C.
type BNO08x struct {
	dev   io.ReadWriter
	clock clock.Clock

	mu   sync.Mutex
	seq  [6]byte
	quat pipeline.Quaternion
	seen bool
}

// NewBNO08x returns a sensor link on dev. A nil clk uses the real clock.
func NewBNO08x(dev io.ReadWriter, clk clock.Clock) *BNO08x {
	if clk == nil {
		clk = clock.Real()
	}
	return &BNO08x{dev: dev, clock: clk}
}

// Init soft-resets the sensor and waits for its product id.
func (b *BNO08x) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seen = false
	b.quat = pipeline.Quaternion{}

	if err := b.send(shtpExecutable, []byte{execReset}); err != nil {
		return errors.Wrap(err, "reset sensor")
	}
	b.clock.Sleep(bnoResetSettle)

	// The advertisement and reset notice are not needed.
	for i := 0; i < bnoMaxDrain; i++ {
		p, err := b.receive()
		if err != nil {
			return errors.Wrap(err, "drain startup packets")
		}
		if p == nil {
			break
		}
	}

	if err := b.send(shtpControl, []byte{reportProductIDRequest, 0}); err != nil {
		return errors.Wrap(err, "request product id")
	}
	for i := 0; i < bnoMaxDrain; i++ {
		b.clock.Sleep(bnoPollDelay)
		p, err := b.receive()
		if err != nil {
			return errors.Wrap(err, "read product id")
		}
		if p != nil && p.channel == shtpControl && len(p.payload) > 0 && p.payload[0] == reportProductIDResponse {
			log.Debug().Hex("product_id", p.payload).Msg("sensor identified")
			return nil
		}
	}
	return ErrNoProductID
}

// EnableRotationVector asks for rotation vector reports every interval.
func (b *BNO08x) EnableRotationVector(interval time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	cmd := make([]byte, 17)
	cmd[0] = reportSetFeature
	cmd[1] = reportRotationVector
	binary.LittleEndian.PutUint32(cmd[5:9], uint32(interval/time.Microsecond))
	if err := b.send(shtpControl, cmd); err != nil {
		return errors.Wrap(err, "enable rotation vector")
	}
	return nil
}

// maxMessages bounds one HandleMessages call against a sensor that never
// runs out of packets.
const maxMessages = 255

// HandleMessages reads pending packets, at most maxMessages of them, and
// returns how many were read.
func (b *BNO08x) HandleMessages() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := 0
	for n < maxMessages {
		p, err := b.receive()
		if err != nil {
			log.Debug().Err(err).Int("handled", n).Msg("sensor read failed while handling messages")
			return n
		}
		if p == nil {
			return n
		}
		n++
		if p.channel == shtpReports {
			b.parseReports(p.payload)
		}
	}
	log.Debug().Int("handled", n).Msg("sensor message limit reached")
	return n
}

// RotationQuaternion returns the latest rotation vector as i, j, k, real.
func (b *BNO08x) RotationQuaternion() (pipeline.Quaternion, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.seen {
		return pipeline.Quaternion{}, errors.New("no rotation vector report received")
	}
	return b.quat, nil
}

func (b *BNO08x) parseReports(payload []byte) {
	for len(payload) > 0 {
		switch payload[0] {
		case reportBaseTimestamp, reportTimestampRebase:
			if len(payload) < 5 {
				return
			}
			payload = payload[5:]
		case reportRotationVector:
			// id, seq, status, delay, i, j, k, real, accuracy
			if len(payload) < 14 {
				return
			}
			var q pipeline.Quaternion
			for c := 0; c < 4; c++ {
				raw := int16(binary.LittleEndian.Uint16(payload[4+2*c:]))
				q[c] = float64(raw) / (1 << rotationQPoint)
			}
			b.quat = q
			b.seen = true
			payload = payload[14:]
		default:
			return
		}
	}
}

func (b *BNO08x) send(channel byte, payload []byte) error {
	pkt := make([]byte, shtpHeaderLen+len(payload))
	binary.LittleEndian.PutUint16(pkt, uint16(len(pkt)))
	pkt[2] = channel
	pkt[3] = b.seq[channel]
	b.seq[channel]++
	copy(pkt[shtpHeaderLen:], payload)
	_, err := b.dev.Write(pkt)
	return err
}

// receive returns the next packet, or nil when the sensor has nothing to
// send. The header is read first to learn the length; the device repeats
// it at the start of the full read.
func (b *BNO08x) receive() (*shtpPacket, error) {
	header := make([]byte, shtpHeaderLen)
	if err := readFull(b.dev, header); err != nil {
		return nil, err
	}
	length := int(binary.LittleEndian.Uint16(header) & 0x7fff)
	if length <= shtpHeaderLen {
		return nil, nil
	}
	if length > shtpMaxPacket {
		length = shtpMaxPacket
	}

	buf := make([]byte, length)
	if err := readFull(b.dev, buf); err != nil {
		return nil, err
	}
	return &shtpPacket{channel: buf[2], payload: buf[shtpHeaderLen:]}, nil
}

package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/buckleypaul/jig/internal/clock"
	"github.com/buckleypaul/jig/internal/scan"
)

// Patterns are the success and failure substrings for a log scan.
type Patterns struct {
	Positive []string
	Negative []string
}

// MainBoardConfig holds the fixed parameters of the main board sequence.
type MainBoardConfig struct {
	VendorID  uint16
	ProductID uint16
	Rails     []Rail

	BootPatterns Patterns
	TestCommand  string
	TestPatterns Patterns

	PollInterval time.Duration
	SettleDelay  time.Duration
	CommandDelay time.Duration
}

// DefaultMainBoardConfig matches the CH340-based tracker main board.
func DefaultMainBoardConfig() MainBoardConfig {
	return MainBoardConfig{
		VendorID:  0x1a86,
		ProductID: 0x7523,
		Rails:     DefaultRails(),
		BootPatterns: Patterns{
			Positive: []string{"[INFO ] [BNO080Sensor:0] Connected to BNO085 on 0x4a"},
			Negative: []string{"ERR", "[FATAL"},
		},
		TestCommand: "GET TEST\n",
		TestPatterns: Patterns{
			Positive: []string{"Sensor 1 sent some data, looks working."},
			Negative: []string{"Sensor 1 didn't send any data yet!"},
		},
		PollInterval: time.Second,
		SettleDelay:  250 * time.Millisecond,
		CommandDelay: 100 * time.Millisecond,
	}
}

// MainBoard powers, identifies, flashes and smoke-tests a main board.
type MainBoard struct {
	deps Deps
	cfg  MainBoardConfig
}

// NewMainBoard validates deps and returns the main board pipeline.
func NewMainBoard(deps Deps, cfg MainBoardConfig) (*MainBoard, error) {
	switch {
	case deps.Presence == nil:
		return nil, errors.New("mainboard: device presence is required")
	case deps.Voltage == nil:
		return nil, errors.New("mainboard: voltage source is required")
	case deps.Identity == nil:
		return nil, errors.New("mainboard: identity reader is required")
	case deps.Flasher == nil:
		return nil, errors.New("mainboard: flasher is required")
	case deps.Serial == nil:
		return nil, errors.New("mainboard: serial opener is required")
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	return &MainBoard{deps: deps, cfg: cfg}, nil
}

func (m *MainBoard) WaitForDeviceConnect(ctx context.Context) {
	m.waitPresence(ctx, true)
}

func (m *MainBoard) WaitForDeviceDisconnect(ctx context.Context) {
	m.waitPresence(ctx, false)
}

func (m *MainBoard) waitPresence(ctx context.Context, want bool) {
	for ctx.Err() == nil {
		if m.deps.Presence.IsPresent(m.cfg.VendorID, m.cfg.ProductID) == want {
			return
		}
		m.deps.Clock.Sleep(m.cfg.PollInterval)
	}
}

func (m *MainBoard) Run(ctx context.Context) Outcome {
	s := NewSession(m.deps.Bus, m.deps.Clock)
	s.Sleep(m.cfg.SettleDelay)

	if !m.power(ctx, s) {
		s.Bus().Error("-> Faulty power circuit")
		return s.Fail()
	}

	if rec := s.Run(ctx, m.readIdentity(s)); rec.Failed {
		return s.Fail()
	}

	if rec := s.Run(ctx, m.flash()); rec.Failed {
		return s.Fail()
	}

	var port SerialChannel
	if rec := s.Run(ctx, m.openSerial(&port)); rec.Failed {
		return s.Fail()
	}
	defer func() {
		if err := port.Close(); err != nil {
			log.Warn().Err(err).Msg("closing serial port failed")
		}
	}()

	if err := port.ClearBuffers(); err != nil {
		log.Warn().Err(err).Msg("failed to clear serial port buffers")
	}

	if rec := s.Run(ctx, m.bootScan(port)); rec.Failed {
		return s.Fail()
	}

	s.Sleep(m.cfg.CommandDelay)

	if rec := s.Run(ctx, m.commandScan(port)); rec.Failed {
		return s.Fail()
	}

	return s.Pass()
}

// power measures every rail before deciding, so the operator sees all
// readings of a faulty supply at once.
func (m *MainBoard) power(ctx context.Context, s *Session) bool {
	ok := true
	for _, rail := range m.cfg.Rails {
		if rec := s.Run(ctx, m.measure(rail)); rec.Failed {
			ok = false
		}
	}
	return ok
}

func (m *MainBoard) measure(rail Rail) Step {
	return Step{
		Name:      "Measure " + rail.Name,
		Condition: rail.Condition(),
		Progress:  fmt.Sprintf("Measuring %s...", rail.Name),
		Run: func(context.Context) Check {
			v, err := m.deps.Voltage.Measure(rail.Channel)
			if err != nil {
				return Check{
					Value:   "N/A",
					Log:     "err: " + err.Error(),
					Failed:  rail.Gate,
					Warn:    !rail.Gate,
					Message: fmt.Sprintf("%s voltage: %v", rail.Name, err),
				}
			}
			value := formatVolts(v) + "V"
			if !rail.InRange(v) {
				msg := fmt.Sprintf("%s voltage: %s (%s)", rail.Name, value, rail.bounds())
				if rail.Gate {
					return Check{Value: value, Failed: true, Message: msg}
				}
				log.Warn().Str("rail", rail.Name).Str("value", value).Msg("ungated rail out of range")
				return Check{Value: value, Warn: true, Message: msg + " (not gated)"}
			}
			return Check{Value: value, Message: fmt.Sprintf("%s voltage: %s", rail.Name, value)}
		},
	}
}

func (m *MainBoard) readIdentity(s *Session) Step {
	return Step{
		Name:      "Read MAC address",
		Condition: "MAC address should be readable",
		Progress:  "Reading MAC address...",
		Run: func(ctx context.Context) Check {
			mac, out, err := m.deps.Identity.ReadHardwareID(ctx)
			if err != nil {
				return Check{
					Value:   "N/A",
					Log:     err.Error(),
					Failed:  true,
					Message: fmt.Sprintf("Failed to read MAC address: %v", err),
					Hints:   []string{"-> ESP8266 faulty"},
				}
			}
			s.Board.SetIdentity(mac)
			return Check{Value: mac, Log: out, Message: "Read MAC address: " + mac}
		},
	}
}

func (m *MainBoard) flash() Step {
	return Step{
		Name:      "Flashing",
		Condition: "Flashing should work",
		Progress:  "Flashing...",
		Run: func(ctx context.Context) Check {
			out, err := m.deps.Flasher.Flash(ctx)
			if err != nil {
				return Check{
					Value:   "false",
					Log:     err.Error(),
					Failed:  true,
					Message: fmt.Sprintf("Flashing: %v", err),
					Hints:   []string{"-> Flashing failed"},
				}
			}
			return Check{Value: "true", Log: out, Message: "Flashing successful"}
		},
	}
}

func (m *MainBoard) openSerial(port *SerialChannel) Step {
	return Step{
		Name:      "Serial",
		Condition: "Serial should work",
		Progress:  "Connecting to serial port...",
		Run: func(context.Context) Check {
			p, err := m.deps.Serial.Open()
			if err != nil {
				return Check{
					Value:   "false",
					Log:     err.Error(),
					Failed:  true,
					Message: fmt.Sprintf("Failed to open serial port: %v", err),
					Hints:   []string{"-> Serial port failed"},
				}
			}
			*port = p
			return Check{Value: "true", Message: "Serial port opened"}
		},
	}
}

func (m *MainBoard) bootScan(port SerialChannel) Step {
	return Step{
		Name:      "I2C to IMU",
		Condition: "I2C to IMU should work",
		Progress:  "Checking I2C connection to IMU...",
		Run: func(context.Context) Check {
			if err := m.reset(port); err != nil {
				return Check{
					Value:   "false",
					Log:     "reset failed: " + err.Error(),
					Failed:  true,
					Message: fmt.Sprintf("Failed to reset device: %v", err),
				}
			}
			return scanCheck(port, m.cfg.BootPatterns, "I2C to IMU working", "I2C to IMU faulty")
		},
	}
}

func (m *MainBoard) commandScan(port SerialChannel) Step {
	return Step{
		Name:      "IMU test",
		Condition: "IMU test should work",
		Progress:  fmt.Sprintf("Checking IMU via `%s` command...", trimNewline(m.cfg.TestCommand)),
		Run: func(context.Context) Check {
			if _, err := port.Write([]byte(m.cfg.TestCommand)); err != nil {
				msg := fmt.Sprintf("Failed to write to serial port: %v", err)
				return Check{Value: "false", Log: msg, Failed: true, Message: msg}
			}
			return scanCheck(port, m.cfg.TestPatterns, "IMU test successful", "IMU test failed")
		},
	}
}

func (m *MainBoard) reset(port SerialChannel) error {
	if m.deps.Reset != nil {
		return m.deps.Reset.Reset()
	}
	if r, ok := port.(Resetter); ok {
		return r.Reset()
	}
	log.Warn().Msg("no reset line available, relying on the device to boot by itself")
	return nil
}

func scanCheck(port SerialChannel, p Patterns, okMsg, failMsg string) Check {
	out, err := scan.ScanUntil(port, p.Positive, p.Negative)
	if err != nil {
		return Check{
			Value:   "false",
			Log:     err.Error(),
			Failed:  true,
			Message: failMsg,
			Hints:   []string{scanReason(err)},
		}
	}
	return Check{Value: "true", Log: out, Message: okMsg}
}

func scanReason(err error) string {
	var mismatch *scan.MismatchError
	if errors.As(err, &mismatch) {
		return "negative match: " + mismatch.Line
	}
	var readErr *scan.ReadError
	if errors.As(err, &readErr) {
		return "could not read from serial port: " + readErr.Err.Error()
	}
	return lastLine(err.Error())
}

package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/buckleypaul/jig/internal/clock"
)

// AuxBoardConfig holds the timings of the sensor add-on sequence.
type AuxBoardConfig struct {
	InitRetry        time.Duration
	StartupDelay     time.Duration
	MessageWindow    time.Duration
	RotationInterval time.Duration
	DisconnectDelay  time.Duration

	// NewID assigns the board identity; the add-on has no readable serial.
	NewID func() string
}

// DefaultAuxBoardConfig returns the timings used on the station.
func DefaultAuxBoardConfig() AuxBoardConfig {
	return AuxBoardConfig{
		InitRetry:        250 * time.Millisecond,
		StartupDelay:     time.Second,
		MessageWindow:    500 * time.Millisecond,
		RotationInterval: 5 * time.Millisecond,
		DisconnectDelay:  2 * time.Second,
		NewID:            uuid.NewString,
	}
}

// AuxBoard checks that the IMU on a sensor add-on initializes, streams and
// produces a fused orientation.
type AuxBoard struct {
	deps Deps
	cfg  AuxBoardConfig
}

// NewAuxBoard validates deps and returns the add-on pipeline.
func NewAuxBoard(deps Deps, cfg AuxBoardConfig) (*AuxBoard, error) {
	if deps.Sensor == nil {
		return nil, errors.New("auxboard: sensor link is required")
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	return &AuxBoard{deps: deps, cfg: cfg}, nil
}

// WaitForDeviceConnect retries sensor initialization, which doubles as
// presence detection for the add-on.
func (a *AuxBoard) WaitForDeviceConnect(ctx context.Context) {
	for ctx.Err() == nil {
		if err := a.deps.Sensor.Init(); err == nil {
			return
		}
		a.deps.Clock.Sleep(a.cfg.InitRetry)
	}
}

// WaitForDeviceDisconnect gives the operator time to swap boards; the
// add-on cannot be detected once it stops answering.
func (a *AuxBoard) WaitForDeviceDisconnect(ctx context.Context) {
	if ctx.Err() == nil {
		a.deps.Clock.Sleep(a.cfg.DisconnectDelay)
	}
}

func (a *AuxBoard) Run(ctx context.Context) Outcome {
	s := NewSession(a.deps.Bus, a.deps.Clock)
	s.Sleep(a.cfg.StartupDelay)
	s.Board.SetIdentity(a.cfg.NewID())

	sensor := a.deps.Sensor

	if rec := s.Run(ctx, Step{
		Name:      "Init",
		Condition: "should be successful",
		Progress:  "Initializing BNO080...",
		Run: func(context.Context) Check {
			if err := sensor.Init(); err != nil {
				return Check{Value: "false", Log: err.Error(), Failed: true,
					Message: fmt.Sprintf("BNO080 failed to initialize: %v", err)}
			}
			return Check{Value: "true", Message: "BNO080 initialized successfully"}
		},
	}); rec.Failed {
		return s.Fail()
	}

	if rec := s.Run(ctx, Step{
		Name:      "Rotation vector",
		Condition: "should be enabled",
		Progress:  "Enabling rotation vector...",
		Run: func(context.Context) Check {
			if err := sensor.EnableRotationVector(a.cfg.RotationInterval); err != nil {
				return Check{Value: "false", Log: err.Error(), Failed: true,
					Message: fmt.Sprintf("Rotation vector failed to enable: %v", err)}
			}
			return Check{Value: "true", Message: "Rotation vector enabled successfully"}
		},
	}); rec.Failed {
		return s.Fail()
	}

	if rec := s.Run(ctx, Step{
		Name:      "Handling messages",
		Condition: "should process messages",
		Progress:  "Handling messages...",
		Run: func(context.Context) Check {
			s.Sleep(a.cfg.MessageWindow)
			n := sensor.HandleMessages()
			c := Check{Value: strconv.Itoa(n), Message: fmt.Sprintf("Processed %d messages", n)}
			if n == 0 {
				c.Failed = true
				c.Message = "No messages received from the sensor"
			}
			return c
		},
	}); rec.Failed {
		return s.Fail()
	}

	if rec := s.Run(ctx, Step{
		Name:      "Quaternion",
		Condition: "should be valid",
		Progress:  "Reading rotation quaternion...",
		Run: func(context.Context) Check {
			q, err := sensor.RotationQuaternion()
			if err != nil {
				return Check{Value: "false", Log: err.Error(), Failed: true,
					Message: fmt.Sprintf("Failed to read quaternion: %v", err)}
			}
			text := fmt.Sprintf("%v", [4]float64(q))
			if q.Zero() {
				return Check{Value: "false", Log: text, Failed: true,
					Message: "Quaternion is all zero, sensor fusion is not running"}
			}
			return Check{Value: "true", Log: text, Message: "Quaternion: " + text}
		},
	}); rec.Failed {
		return s.Fail()
	}

	return s.Pass()
}

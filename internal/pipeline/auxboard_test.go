package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAux(t *testing.T, h *harness) *AuxBoard {
	t.Helper()
	cfg := DefaultAuxBoardConfig()
	cfg.NewID = func() string { return "7c0f3a52-3f4e-4b1a-9a57-1f1b2b3c4d5e" }
	a, err := NewAuxBoard(h.deps(), cfg)
	require.NoError(t, err)
	return a
}

func TestAuxBoardPasses(t *testing.T) {
	h := newHarness()
	out := newAux(t, h).Run(context.Background())

	assert.True(t, out.Passed())
	assert.Equal(t, []string{"Init", "Rotation vector", "Handling messages", "Quaternion"}, stepNames(out.Board))
	assert.Equal(t, "7c0f3a52-3f4e-4b1a-9a57-1f1b2b3c4d5e", out.Board.Identity())
	assert.Equal(t, "12", out.Board.Steps[2].Value)
	requireOrdered(t, out.Board)
}

func TestAuxBoardNoMessages(t *testing.T) {
	h := newHarness()
	h.sensor.messages = 0
	out := newAux(t, h).Run(context.Background())

	assert.False(t, out.Passed())
	assert.Equal(t, []string{"Init", "Rotation vector", "Handling messages"}, stepNames(out.Board))
	assert.Equal(t, "0", out.Board.Steps[2].Value)
	assert.Contains(t, texts(h.screen()), "╳ No messages received from the sensor")
}

func TestAuxBoardZeroQuaternion(t *testing.T) {
	h := newHarness()
	h.sensor.quat = Quaternion{}
	out := newAux(t, h).Run(context.Background())

	assert.False(t, out.Passed())
	last := out.Board.Steps[len(out.Board.Steps)-1]
	assert.Equal(t, "Quaternion", last.Step)
	assert.True(t, last.Failed)
}

func TestAuxBoardInitFailure(t *testing.T) {
	h := newHarness()
	h.sensor.initErrs = []error{errors.New("no SHTP advertisement")}
	out := newAux(t, h).Run(context.Background())

	assert.False(t, out.Passed())
	assert.Equal(t, []string{"Init"}, stepNames(out.Board))
	assert.NotEmpty(t, out.Board.Identity())
}

func TestAuxBoardMessageWindowUsesClock(t *testing.T) {
	h := newHarness()
	newAux(t, h).Run(context.Background())
	assert.Equal(t, time.Second+500*time.Millisecond, h.clock.Slept())
}

func TestAuxBoardWaitForDeviceConnectRetries(t *testing.T) {
	h := newHarness()
	h.sensor.initErrs = []error{errors.New("nack"), errors.New("nack")}
	newAux(t, h).WaitForDeviceConnect(context.Background())

	assert.Equal(t, 3, h.sensor.initCalls)
	assert.Equal(t, 500*time.Millisecond, h.clock.Slept())
}

func TestAuxBoardWaitForDeviceDisconnectSleeps(t *testing.T) {
	h := newHarness()
	newAux(t, h).WaitForDeviceDisconnect(context.Background())
	assert.Equal(t, 2*time.Second, h.clock.Slept())
}

func TestNewAuxBoardRequiresSensor(t *testing.T) {
	h := newHarness()
	deps := h.deps()
	deps.Sensor = nil
	_, err := NewAuxBoard(deps, DefaultAuxBoardConfig())
	assert.Error(t, err)
}

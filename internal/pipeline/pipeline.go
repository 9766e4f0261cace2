// Package pipeline runs the fixed, per-variant sequence of checks against a
// board under test and produces its audit trail.
//
// Every step appends exactly one StepRecord. The first failed step ends the
// run; the power stage is the one exception, where all rails are measured
// before the abort decision is taken.
package pipeline

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/buckleypaul/jig/internal/clock"
	"github.com/buckleypaul/jig/internal/logbus"
)

// Pipeline tests one board variant.
type Pipeline interface {
	// WaitForDeviceConnect blocks until a board is attached or ctx is done.
	WaitForDeviceConnect(ctx context.Context)
	// Run tests the attached board. It always returns an Outcome.
	Run(ctx context.Context) Outcome
	// WaitForDeviceDisconnect blocks until the board is removed or ctx is done.
	WaitForDeviceDisconnect(ctx context.Context)
}

// Variant selects the board type under test.
type Variant string

const (
	MainBoardVariant Variant = "mainboard"
	AuxBoardVariant  Variant = "auxboard"
)

// ParseVariant maps a report type to a Variant.
func ParseVariant(s string) (Variant, error) {
	switch v := Variant(strings.ToLower(strings.TrimSpace(s))); v {
	case MainBoardVariant, AuxBoardVariant:
		return v, nil
	}
	return "", errors.Errorf("unknown board variant %q (want mainboard or auxboard)", s)
}

// Deps are the hardware collaborators a pipeline drives. Only the ones the
// selected variant needs have to be set.
type Deps struct {
	Presence DevicePresence
	Voltage  VoltageSource
	Identity IdentityReader
	Flasher  Flasher
	Serial   SerialOpener
	Reset    Resetter // optional; falls back to the serial channel when it can reset
	Sensor   SensorLink

	Bus   logbus.Producer
	Clock clock.Clock
}

// New builds the pipeline for variant.
func New(variant Variant, deps Deps, main MainBoardConfig, aux AuxBoardConfig) (Pipeline, error) {
	switch variant {
	case MainBoardVariant:
		return NewMainBoard(deps, main)
	case AuxBoardVariant:
		return NewAuxBoard(deps, aux)
	}
	return nil, errors.Errorf("unknown board variant %q", variant)
}
